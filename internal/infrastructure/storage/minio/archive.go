package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

// ReportArchive stores the full comparison report as one JSON object per
// comparison under <prefix>/YYYY/MM/DD/<id>.json.
type ReportArchive struct {
	client *MinIOClient
	logger logging.Logger
}

func NewReportArchive(client *MinIOClient, logger logging.Logger) *ReportArchive {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ReportArchive{client: client, logger: logger}
}

func (a *ReportArchive) Name() string { return "minio" }

// ObjectKey returns the object name for rec, dated by its UTC creation time.
func (a *ReportArchive) ObjectKey(id string, createdAt time.Time) string {
	t := createdAt.UTC()
	return path.Join(a.client.config.Prefix,
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", int(t.Month())),
		fmt.Sprintf("%02d", t.Day()),
		id+".json")
}

// Record uploads rec including its result.
func (a *ReportArchive) Record(ctx context.Context, rec *diff.ComparisonRecord) error {
	if rec.ID == "" {
		return errors.New(errors.ErrCodeValidation, "record id required")
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal report")
	}

	key := a.ObjectKey(rec.ID, rec.CreatedAt)
	_, err = a.client.client.PutObject(ctx, a.client.config.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType: "application/json",
			UserMetadata: map[string]string{
				"risk-score": strconv.Itoa(rec.RiskScore),
				"is-safe":    strconv.FormatBool(rec.IsSafe),
				"model":      rec.Model,
			},
		})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to upload report")
	}

	a.logger.Debug("Report archived",
		logging.String("bucket", a.client.config.Bucket),
		logging.String("key", key),
		logging.Int("size", len(data)))
	return nil
}

// ReportURL returns a presigned download URL for an archived report.
func (a *ReportArchive) ReportURL(ctx context.Context, id string, createdAt time.Time) (string, error) {
	key := a.ObjectKey(id, createdAt)
	if _, err := a.client.client.StatObject(ctx, a.client.config.Bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", errors.New(errors.ErrCodeNotFound, "report not found").WithDetail(key)
		}
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "failed to stat report")
	}
	u, err := a.client.client.PresignedGetObject(ctx, a.client.config.Bucket, key, a.client.config.PresignExpiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "failed to presign report url")
	}
	return u.String(), nil
}

var _ diff.RecordSink = (*ReportArchive)(nil)

//Personal.AI order the ending
