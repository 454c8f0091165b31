package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

type putCall struct {
	bucket string
	key    string
	body   []byte
	opts   minio.PutObjectOptions
}

// fakeMinIO is an in-memory MinIOAPI.
type fakeMinIO struct {
	mu         sync.Mutex
	buckets    map[string]bool
	objects    map[string][]byte
	puts       []putCall
	lifecycles map[string]*lifecycle.Configuration

	existsErr    error
	putErr       error
	lifecycleErr error
}

func newFakeMinIO(buckets ...string) *fakeMinIO {
	f := &fakeMinIO{
		buckets:    map[string]bool{},
		objects:    map[string][]byte{},
		lifecycles: map[string]*lifecycle.Configuration{},
	}
	for _, b := range buckets {
		f.buckets[b] = true
	}
	return f
}

func (f *fakeMinIO) BucketExists(ctx context.Context, bucket string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.buckets[bucket], nil
}

func (f *fakeMinIO) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[bucket] = true
	return nil
}

func (f *fakeMinIO) SetBucketLifecycle(ctx context.Context, bucket string, cfg *lifecycle.Configuration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lifecycleErr != nil {
		return f.lifecycleErr
	}
	f.lifecycles[bucket] = cfg
	return nil
}

func (f *fakeMinIO) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return minio.UploadInfo{}, err
	}
	if int64(buf.Len()) != size {
		return minio.UploadInfo{}, fmt.Errorf("size mismatch: %d != %d", buf.Len(), size)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = buf.Bytes()
	f.puts = append(f.puts, putCall{bucket: bucket, key: key, body: buf.Bytes(), opts: opts})
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func (f *fakeMinIO) StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}
	}
	return minio.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeMinIO) PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, params url.Values) (*url.URL, error) {
	return url.Parse(fmt.Sprintf("http://minio.local/%s/%s?X-Amz-Expires=%d", bucket, key, int(expiry.Seconds())))
}

func (s *MinIOTestSuite) TestApplyDefaults() {
	cfg := &MinIOConfig{}
	applyDefaults(cfg)

	s.Equal("us-east-1", cfg.Region)
	s.Equal("contextdiff-reports", cfg.Bucket)
	s.Equal("reports", cfg.Prefix)
	s.Equal(time.Hour, cfg.PresignExpiry)
}

func (s *MinIOTestSuite) TestNewClient_CreatesMissingBucket() {
	api := newFakeMinIO()
	c, err := newClientWithAPI(context.Background(), api, &MinIOConfig{Bucket: "diffs"}, s.log)
	s.Require().NoError(err)
	s.Equal("diffs", c.Bucket())
	s.True(api.buckets["diffs"])
	s.Empty(api.lifecycles)
	s.NoError(c.HealthCheck(context.Background()))
}

func (s *MinIOTestSuite) TestNewClient_RetentionRule() {
	api := newFakeMinIO("contextdiff-reports")
	_, err := newClientWithAPI(context.Background(), api, &MinIOConfig{RetentionDays: 90}, s.log)
	s.Require().NoError(err)

	cfg := api.lifecycles["contextdiff-reports"]
	s.Require().NotNil(cfg)
	s.Require().Len(cfg.Rules, 1)
	s.Equal("reports/", cfg.Rules[0].RuleFilter.Prefix)
	s.Equal(lifecycle.ExpirationDays(90), cfg.Rules[0].Expiration.Days)
}

func (s *MinIOTestSuite) TestNewClient_LifecycleFailureIsNotFatal() {
	api := newFakeMinIO("contextdiff-reports")
	api.lifecycleErr = errors.New("not implemented")
	_, err := newClientWithAPI(context.Background(), api, &MinIOConfig{RetentionDays: 30}, s.log)
	s.NoError(err)
}

func (s *MinIOTestSuite) TestNewClient_Unreachable() {
	api := newFakeMinIO()
	api.existsErr = errors.New("dial tcp: connection refused")
	_, err := newClientWithAPI(context.Background(), api, &MinIOConfig{}, s.log)
	s.Error(err)
}

func (s *MinIOTestSuite) TestNewMinIOClient_RequiresEndpoint() {
	_, err := NewMinIOClient(&MinIOConfig{}, s.log)
	s.Error(err)
}
