package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/safely/internal/infra/storage"
)

// Pruner deletes stored reports older than the retention period.
type Pruner struct {
	retention time.Duration
	repo      storage.ReportRepository
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, repo storage.ReportRepository) *Pruner {
	return &Pruner{
		retention: retention,
		repo:      repo,
		now:       time.Now,
	}
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 || p.repo == nil {
		return // Retention disabled
	}

	// Check every 10% of the retention period, between 1 minute and 1 hour
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune deletes reports created before now minus the retention period.
func (p *Pruner) Prune(ctx context.Context) int {
	threshold := p.now().Add(-p.retention).Unix()

	deleted, err := p.repo.DeleteOlderThan(ctx, threshold)
	if err != nil {
		slog.Error("Failed to prune reports", "error", err)
		return 0
	}
	if deleted > 0 {
		slog.Debug("Pruned reports", "count", deleted)
	}
	return deleted
}
