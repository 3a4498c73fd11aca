package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/safely/internal/guard/report"
)

// DefaultStreamMaxLen caps the report stream length (approximate trimming).
const DefaultStreamMaxLen = 10000

// StreamReporter appends each report to a Redis stream.
type StreamReporter struct {
	client      *Client
	stream      string
	maxLen      int64
	environment string
	now         func() time.Time
}

// NewStreamReporter creates a reporter writing to stream.
func NewStreamReporter(client *Client, stream, environment string) *StreamReporter {
	return &StreamReporter{
		client:      client,
		stream:      stream,
		maxLen:      DefaultStreamMaxLen,
		environment: environment,
		now:         time.Now,
	}
}

// Report implements report.Reporter.
func (r *StreamReporter) Report(ctx context.Context, err error) error {
	record := report.NewRecord(err, r.environment, r.now())
	stack, jerr := json.Marshal(record.Stack)
	if jerr != nil {
		return fmt.Errorf("failed to marshal stack: %w", jerr)
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":          record.ID,
			"kind":        record.Kind,
			"message":     record.Message,
			"tag":         record.Tag,
			"environment": record.Environment,
			"fingerprint": record.Fingerprint,
			"stack":       string(stack),
			"created_at":  record.CreatedAt.Unix(),
		},
	}
	if xerr := r.client.rdb.XAdd(ctx, args).Err(); xerr != nil {
		return fmt.Errorf("xadd failed: %w", xerr)
	}
	return nil
}

var _ report.Reporter = (*StreamReporter)(nil)
