package report

import (
	"context"
	"log/slog"

	"github.com/vietddude/safely/internal/core/failure"
	"github.com/vietddude/safely/internal/guard/throttle"
)

// LogReporter writes each report as an error-level slog record.
type LogReporter struct {
	log         *slog.Logger
	environment string
}

// NewLogReporter creates a reporter logging to log, or slog.Default when nil.
func NewLogReporter(log *slog.Logger, environment string) *LogReporter {
	if log == nil {
		log = slog.Default()
	}
	return &LogReporter{log: log.With("component", "safely"), environment: environment}
}

// Report implements Reporter.
func (r *LogReporter) Report(ctx context.Context, err error) error {
	attrs := []any{
		"kind", failure.KindName(Untagged(err)),
		"fingerprint", throttle.Fingerprint(Untagged(err)),
		"env", r.environment,
	}
	if tag, ok := TagOf(err); ok {
		attrs = append(attrs, "tag", tag)
	}
	if stack := failure.StackOf(err); len(stack) > 0 {
		attrs = append(attrs, "frame", stack[0])
	}
	r.log.ErrorContext(ctx, err.Error(), attrs...)
	return nil
}
