package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/vietddude/safely/internal/core/domain"
	"github.com/vietddude/safely/internal/infra/storage"
)

// ReportRepo implements storage.ReportRepository using PostgreSQL.
type ReportRepo struct {
	db *DB
}

// NewReportRepo creates a new PostgreSQL report repository.
func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{db: db}
}

type reportRow struct {
	ID          string         `db:"id"`
	Kind        string         `db:"kind"`
	Message     string         `db:"message"`
	Tag         string         `db:"tag"`
	Environment string         `db:"environment"`
	Fingerprint string         `db:"fingerprint"`
	Stack       pq.StringArray `db:"stack"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r reportRow) toDomain() *domain.ReportRecord {
	return &domain.ReportRecord{
		ID:          r.ID,
		Kind:        r.Kind,
		Message:     r.Message,
		Tag:         r.Tag,
		Environment: r.Environment,
		Fingerprint: r.Fingerprint,
		Stack:       []string(r.Stack),
		CreatedAt:   r.CreatedAt,
	}
}

// Save adds a report.
func (r *ReportRepo) Save(ctx context.Context, report *domain.ReportRecord) error {
	query := `
		INSERT INTO safely_reports (id, kind, message, tag, environment, fingerprint, stack, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	stack := pq.StringArray(report.Stack)
	if stack == nil {
		stack = pq.StringArray{}
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		report.ID,
		report.Kind,
		report.Message,
		report.Tag,
		report.Environment,
		report.Fingerprint,
		stack,
		report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetByID returns a report by ID.
func (r *ReportRepo) GetByID(ctx context.Context, id string) (*domain.ReportRecord, error) {
	query := `
		SELECT id, kind, message, tag, environment, fingerprint, stack, created_at
		FROM safely_reports
		WHERE id = $1
	`
	var row reportRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return row.toDomain(), nil
}

// ListRecent returns up to limit reports, newest first.
func (r *ReportRepo) ListRecent(ctx context.Context, limit int) ([]*domain.ReportRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, kind, message, tag, environment, fingerprint, stack, created_at
		FROM safely_reports
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	var rows []reportRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports := make([]*domain.ReportRecord, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, row.toDomain())
	}
	return reports, nil
}

// CountByFingerprint counts reports sharing a fingerprint.
func (r *ReportRepo) CountByFingerprint(ctx context.Context, fingerprint string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM safely_reports WHERE fingerprint = $1`, fingerprint)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes reports created before cutoff.
func (r *ReportRepo) DeleteOlderThan(ctx context.Context, cutoffUnix int64) (int, error) {
	res, err := r.db.ExecContext(
		ctx,
		`DELETE FROM safely_reports WHERE created_at < to_timestamp($1)`,
		cutoffUnix,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

var _ storage.ReportRepository = (*ReportRepo)(nil)
