package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

// MinIOAPI is the subset of *minio.Client the archive needs.
type MinIOAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

type MinIOConfig struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	Endpoint        string        `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl" yaml:"use_ssl"`
	Region          string        `mapstructure:"region" yaml:"region"`
	Bucket          string        `mapstructure:"bucket" yaml:"bucket"`
	Prefix          string        `mapstructure:"prefix" yaml:"prefix"`
	RetentionDays   int           `mapstructure:"retention_days" yaml:"retention_days"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry" yaml:"presign_expiry"`
}

type MinIOClient struct {
	client MinIOAPI
	config *MinIOConfig
	logger logging.Logger
}

// NewMinIOClient connects to the endpoint and makes sure the report bucket
// exists with its retention rule.
func NewMinIOClient(cfg *MinIOConfig, log logging.Logger) (*MinIOClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New(errors.ErrCodeValidation, "minio endpoint required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := newClientWithAPI(ctx, client, cfg, log)
	if err != nil {
		return nil, err
	}
	c.logger.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

func newClientWithAPI(ctx context.Context, api MinIOAPI, cfg *MinIOConfig, log logging.Logger) (*MinIOClient, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	applyDefaults(cfg)
	c := &MinIOClient{client: api, config: cfg, logger: log}
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	c.SetupLifecycleRules(ctx)
	return c, nil
}

func applyDefaults(cfg *MinIOConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "contextdiff-reports"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "reports"
	}
	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = time.Hour
	}
}

func (c *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to check bucket existence")
	}
	if exists {
		return nil
	}
	if err := c.client.MakeBucket(ctx, c.config.Bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, fmt.Sprintf("failed to create bucket %s", c.config.Bucket))
	}
	c.logger.Info("Created bucket", logging.String("bucket", c.config.Bucket))
	return nil
}

// SetupLifecycleRules expires reports after RetentionDays. A failure is
// logged only; the archive still works without the rule.
func (c *MinIOClient) SetupLifecycleRules(ctx context.Context) {
	if c.config.RetentionDays <= 0 {
		return
	}
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{
		{
			ID:         "reports-retention",
			Status:     "Enabled",
			RuleFilter: lifecycle.Filter{Prefix: c.config.Prefix + "/"},
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(c.config.RetentionDays),
			},
		},
	}
	if err := c.client.SetBucketLifecycle(ctx, c.config.Bucket, cfg); err != nil {
		c.logger.Warn("Failed to set lifecycle for report bucket", logging.String("bucket", c.config.Bucket), logging.Err(err))
	}
}

func (c *MinIOClient) Bucket() string { return c.config.Bucket }

// HealthCheck reports whether the bucket is reachable.
func (c *MinIOClient) HealthCheck(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio health check failed")
	}
	if !exists {
		return errors.New(errors.ErrCodeServiceUnavailable, "bucket "+c.config.Bucket+" missing")
	}
	return nil
}

//Personal.AI order the ending
