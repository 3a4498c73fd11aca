package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/safely/internal/core/domain"
	"github.com/vietddude/safely/internal/guard/metrics"
	"github.com/vietddude/safely/internal/guard/throttle"
)

// ThrottleLedger shares throttle counts between processes. Keys expire with
// their bucket, so no size ceiling is needed.
type ThrottleLedger struct {
	client *Client
	log    *slog.Logger
}

// NewThrottleLedger creates a Redis-backed throttle.Ledger.
func NewThrottleLedger(client *Client, log *slog.Logger) *ThrottleLedger {
	if log == nil {
		log = slog.Default()
	}
	return &ThrottleLedger{client: client, log: log.With("component", "throttle")}
}

// ShouldSuppress implements throttle.Ledger. Redis errors fail open.
func (l *ThrottleLedger) ShouldSuppress(
	ctx context.Context,
	err error,
	policy *domain.ThrottlePolicy,
	now time.Time,
) bool {
	if policy == nil {
		return false
	}
	key := throttleKey(throttle.LedgerKey(err, policy, now))

	count, rerr := l.client.rdb.Incr(ctx, key).Result()
	if rerr != nil {
		metrics.LedgerErrorsTotal.WithLabelValues("redis").Inc()
		l.log.Warn("Throttle ledger unavailable, not throttling", "error", rerr)
		return false
	}
	if count == 1 {
		ttl := time.Duration(policy.PeriodSeconds()) * time.Second
		if rerr := l.client.rdb.Expire(ctx, key, ttl).Err(); rerr != nil {
			l.log.Warn("Failed to set throttle key expiry", "key", key, "error", rerr)
		}
	}
	return count > int64(policy.Limit)
}

var _ throttle.Ledger = (*ThrottleLedger)(nil)
