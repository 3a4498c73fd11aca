package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vietddude/safely/internal/core/domain"
	"github.com/vietddude/safely/internal/core/failure"
	"github.com/vietddude/safely/internal/guard/metrics"
)

// Emitter tags failures and hands them to a reporter. Reporter failures,
// returned or panicked, end up as one FAIL-SAFE line on the diagnostic writer.
type Emitter struct {
	reporter   Reporter
	defaultTag domain.Tag
	stderr     io.Writer
}

// NewEmitter creates an emitter. A nil reporter discards reports and a nil
// writer means os.Stderr.
func NewEmitter(reporter Reporter, defaultTag domain.Tag, stderr io.Writer) *Emitter {
	if reporter == nil {
		reporter = Discard
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Emitter{
		reporter:   reporter,
		defaultTag: defaultTag,
		stderr:     stderr,
	}
}

// Emit reports err, tagged with tag or the default tag. It never fails.
func (e *Emitter) Emit(ctx context.Context, err error, tag domain.Tag) {
	if label, ok := tag.Or(e.defaultTag).Text(); ok {
		err = Tagged(err, label)
	}

	if rerr := e.report(ctx, err); rerr != nil {
		metrics.ReporterFailuresTotal.Inc()
		// Nothing left to fall back to if this write fails.
		msg := strings.ReplaceAll(rerr.Error(), "\n", "; ")
		fmt.Fprintf(e.stderr, "FAIL-SAFE %s: %s\n", failure.KindName(rerr), msg)
		return
	}
	metrics.ReportsTotal.Inc()
}

func (e *Emitter) report(ctx context.Context, err error) (rerr error) {
	defer func() {
		if v := recover(); v != nil {
			rerr = failure.FromPanic(v)
		}
	}()
	return e.reporter.Report(ctx, err)
}
