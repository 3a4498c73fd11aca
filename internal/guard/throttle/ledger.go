package throttle

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/safely/internal/core/domain"
	"github.com/vietddude/safely/internal/core/failure"
)

// DefaultCeiling is the table size above which MemoryLedger starts over.
const DefaultCeiling = 1000

// Ledger decides whether a report should be dropped as over its limit.
type Ledger interface {
	// ShouldSuppress counts one report of err and reports whether the
	// count for its key in the current bucket now exceeds the limit.
	// A nil policy never suppresses and records nothing.
	ShouldSuppress(ctx context.Context, err error, policy *domain.ThrottlePolicy, now time.Time) bool
}

// Fingerprint identifies "this exact failure": an MD5 of its kind name,
// message and stack.
func Fingerprint(err error) string {
	parts := []string{
		failure.KindName(err),
		err.Error(),
		strings.Join(failure.StackOf(err), "\n"),
	}
	sum := md5.Sum([]byte(strings.Join(parts, "/")))
	return hex.EncodeToString(sum[:])
}

// DedupKey returns the policy's explicit key or the failure's fingerprint.
func DedupKey(err error, policy *domain.ThrottlePolicy) string {
	if policy.Key != "" {
		return policy.Key
	}
	return Fingerprint(err)
}

// LedgerKey returns "<dedup-key>/<bucket-start>" for now.
func LedgerKey(err error, policy *domain.ThrottlePolicy, now time.Time) string {
	return DedupKey(err, policy) + "/" + strconv.FormatInt(policy.BucketStart(now), 10)
}

// MemoryLedger is an in-process ledger. Counts are approximate: the whole
// table is dropped once it holds more than ceiling keys.
type MemoryLedger struct {
	ceiling int

	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryLedger creates a ledger cleared past ceiling keys. A ceiling of
// zero or less uses DefaultCeiling.
func NewMemoryLedger(ceiling int) *MemoryLedger {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &MemoryLedger{
		ceiling: ceiling,
		counts:  make(map[string]int),
	}
}

// ShouldSuppress implements Ledger.
func (l *MemoryLedger) ShouldSuppress(
	_ context.Context,
	err error,
	policy *domain.ThrottlePolicy,
	now time.Time,
) bool {
	if policy == nil {
		return false
	}
	key := LedgerKey(err, policy, now)

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.counts) > l.ceiling {
		clear(l.counts)
	}
	l.counts[key]++
	return l.counts[key] > policy.Limit
}

// Len returns the number of keys currently held.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counts)
}

var _ Ledger = (*MemoryLedger)(nil)
