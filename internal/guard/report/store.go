package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/safely/internal/core/domain"
	"github.com/vietddude/safely/internal/core/failure"
	"github.com/vietddude/safely/internal/guard/throttle"
	"github.com/vietddude/safely/internal/infra/storage"
)

// StoreReporter persists each report as a domain.ReportRecord.
type StoreReporter struct {
	repo        storage.ReportRepository
	environment string
	now         func() time.Time
}

// NewStoreReporter creates a reporter saving to repo.
func NewStoreReporter(repo storage.ReportRepository, environment string) *StoreReporter {
	return &StoreReporter{repo: repo, environment: environment, now: time.Now}
}

// Report implements Reporter.
func (r *StoreReporter) Report(ctx context.Context, err error) error {
	record := NewRecord(err, r.environment, r.now())
	if serr := r.repo.Save(ctx, record); serr != nil {
		return fmt.Errorf("failed to save report: %w", serr)
	}
	return nil
}

// NewRecord builds the persisted form of a (possibly tagged) failure.
func NewRecord(err error, environment string, now time.Time) *domain.ReportRecord {
	tag, _ := TagOf(err)
	return &domain.ReportRecord{
		ID:          uuid.New().String(),
		Kind:        failure.KindName(Untagged(err)),
		Message:     err.Error(),
		Tag:         tag,
		Environment: environment,
		Fingerprint: throttle.Fingerprint(Untagged(err)),
		Stack:       failure.StackOf(err),
		CreatedAt:   now.UTC(),
	}
}
