package storage

import (
	"context"
	"errors"

	"github.com/vietddude/safely/internal/core/domain"
)

var (
	// ErrReportNotFound is returned when a report doesn't exist
	ErrReportNotFound = errors.New("report not found")
)

// ReportRepository handles report storage operations
type ReportRepository interface {
	// Save saves a report
	Save(ctx context.Context, report *domain.ReportRecord) error

	// GetByID retrieves a report by ID
	GetByID(ctx context.Context, id string) (*domain.ReportRecord, error)

	// ListRecent returns up to limit reports, newest first
	ListRecent(ctx context.Context, limit int) ([]*domain.ReportRecord, error)

	// CountByFingerprint counts reports sharing a fingerprint
	CountByFingerprint(ctx context.Context, fingerprint string) (int, error)

	// DeleteOlderThan removes reports created before cutoff and returns how many
	DeleteOlderThan(ctx context.Context, cutoffUnix int64) (int, error)
}
