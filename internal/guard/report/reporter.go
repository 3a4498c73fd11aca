package report

import (
	"context"
	"errors"
)

// Reporter is the sink failures are reported to.
type Reporter interface {
	Report(ctx context.Context, err error) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, err error) error

// Report implements Reporter.
func (f ReporterFunc) Report(ctx context.Context, err error) error {
	return f(ctx, err)
}

// Discard drops every report.
var Discard Reporter = ReporterFunc(func(context.Context, error) error { return nil })

// Multi reports to every sink in order and joins their errors.
type Multi []Reporter

// Report implements Reporter.
func (m Multi) Report(ctx context.Context, err error) error {
	var errs []error
	for _, r := range m {
		if rerr := r.Report(ctx, err); rerr != nil {
			errs = append(errs, rerr)
		}
	}
	return errors.Join(errs...)
}
