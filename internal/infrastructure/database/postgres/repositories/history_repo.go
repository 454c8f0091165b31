package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

const historyColumns = `id, request_hash, sensitivity, use_premium, model, original_length, generated_length,
	risk_score, change_level, is_safe, change_count, chunked, chunk_count, failed_chunks,
	cached, cache_source, duration_ms, created_at`

type postgresHistoryRepo struct {
	baseRepo
}

// NewPostgresHistoryRepo returns a HistoryRepository over conn.
func NewPostgresHistoryRepo(conn *postgres.Connection, log logging.Logger) diff.HistoryRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresHistoryRepo{baseRepo: baseRepo{conn: conn, log: log}}
}

func (r *postgresHistoryRepo) Name() string { return "postgres" }

// Record inserts rec. Replaying a record with a known id is a no-op.
func (r *postgresHistoryRepo) Record(ctx context.Context, rec *diff.ComparisonRecord) error {
	query := `
		INSERT INTO comparisons (` + historyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.executor().ExecContext(ctx, query,
		rec.ID, rec.RequestHash, string(rec.Sensitivity), rec.UsePremium, rec.Model,
		rec.OriginalLength, rec.GeneratedLength, rec.RiskScore, string(rec.Level), rec.IsSafe,
		rec.ChangeCount, rec.Chunked, rec.ChunkCount, rec.FailedChunks,
		rec.Cached, rec.CacheSource, rec.DurationMs, rec.CreatedAt,
	)
	if err != nil {
		r.log.Error("HistoryRepository.Record", logging.String("id", rec.ID), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save comparison")
	}
	return nil
}

func (r *postgresHistoryRepo) FindByID(ctx context.Context, id string) (*diff.ComparisonRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM comparisons WHERE id = $1`
	rec, err := scanRecord(r.executor().QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeNotFound, "comparison not found").WithDetail(id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load comparison")
	}
	return rec, nil
}

// List returns records newest first.
func (r *postgresHistoryRepo) List(ctx context.Context, q diff.HistoryQuery) ([]*diff.ComparisonRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	if !q.Since.IsZero() {
		args = append(args, q.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !q.Until.IsZero() {
		args = append(args, q.Until)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if q.Unsafe {
		where = append(where, "NOT is_safe")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + historyColumns + " FROM comparisons")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, limit, offset)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.executor().QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query comparisons")
	}
	defer rows.Close()

	records := make([]*diff.ComparisonRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan comparison")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate comparisons")
	}
	return records, nil
}

func scanRecord(row scanner) (*diff.ComparisonRecord, error) {
	var (
		rec         diff.ComparisonRecord
		sensitivity string
		level       string
	)
	err := row.Scan(
		&rec.ID, &rec.RequestHash, &sensitivity, &rec.UsePremium, &rec.Model,
		&rec.OriginalLength, &rec.GeneratedLength, &rec.RiskScore, &level, &rec.IsSafe,
		&rec.ChangeCount, &rec.Chunked, &rec.ChunkCount, &rec.FailedChunks,
		&rec.Cached, &rec.CacheSource, &rec.DurationMs, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Sensitivity = diff.Sensitivity(sensitivity)
	rec.Level = diff.ChangeLevel(level)
	return &rec, nil
}

//Personal.AI order the ending
