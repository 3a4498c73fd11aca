package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vietddude/safely/internal/core/domain"
	"github.com/vietddude/safely/internal/infra/storage"
)

// MemoryStorage holds reports in process. It backs the memory sink and tests.
type MemoryStorage struct {
	reports map[string]*domain.ReportRecord
	mu      sync.RWMutex
}

// NewMemoryStorage creates an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		reports: make(map[string]*domain.ReportRecord),
	}
}

// -----------------------------------------------------------------------------
// Report Repository
// -----------------------------------------------------------------------------

// ReportRepo implements storage.ReportRepository over a MemoryStorage.
type ReportRepo struct {
	store *MemoryStorage
}

// NewReportRepo creates a repository on store.
func NewReportRepo(store *MemoryStorage) *ReportRepo {
	return &ReportRepo{store: store}
}

// Save stores a copy of report, replacing any report with the same ID.
func (r *ReportRepo) Save(ctx context.Context, report *domain.ReportRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *report
	cp.Stack = append([]string(nil), report.Stack...)
	r.store.reports[report.ID] = &cp
	return nil
}

// GetByID retrieves a report by ID.
func (r *ReportRepo) GetByID(ctx context.Context, id string) (*domain.ReportRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	report, ok := r.store.reports[id]
	if !ok {
		return nil, storage.ErrReportNotFound
	}
	cp := *report
	return &cp, nil
}

// ListRecent returns up to limit reports, newest first. A limit of zero or
// less returns all of them.
func (r *ReportRepo) ListRecent(ctx context.Context, limit int) ([]*domain.ReportRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.ReportRecord, 0, len(r.store.reports))
	for _, report := range r.store.reports {
		cp := *report
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountByFingerprint counts reports sharing a fingerprint.
func (r *ReportRepo) CountByFingerprint(ctx context.Context, fingerprint string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	count := 0
	for _, report := range r.store.reports {
		if report.Fingerprint == fingerprint {
			count++
		}
	}
	return count, nil
}

// DeleteOlderThan removes reports created before cutoff.
func (r *ReportRepo) DeleteOlderThan(ctx context.Context, cutoffUnix int64) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	deleted := 0
	for id, report := range r.store.reports {
		if report.CreatedAt.Unix() < cutoffUnix {
			delete(r.store.reports, id)
			deleted++
		}
	}
	return deleted, nil
}

var _ storage.ReportRepository = (*ReportRepo)(nil)
