// Package safely runs work under a guard: failures matching a policy are
// reported and replaced by a fallback value, except in environments such as
// development and test where they are re-raised so they get noticed.
//
//	total, err := safely.Do(ctx, safely.Policy[int]{
//		Options: safely.Options{Tag: safely.Label("billing")},
//		Default: -1,
//	}, func() (int, error) {
//		return computeTotal(order)
//	})
//
// Returned errors and panics are both treated as failures. A failure that is
// re-raised comes back unchanged: the same error value, or a re-panic with
// the original panic value.
package safely

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/vietddude/safely/internal/core/config"
	"github.com/vietddude/safely/internal/core/domain"
	"github.com/vietddude/safely/internal/core/failure"
	"github.com/vietddude/safely/internal/guard"
	"github.com/vietddude/safely/internal/guard/report"
)

type (
	// Kind identifies a class of failure.
	Kind = failure.Kind
	// Failure is an error carrying a Kind and a stack.
	Failure = failure.Failure
	// Tag labels reported messages with the call site.
	Tag = domain.Tag
	// ThrottlePolicy limits repeated reports of the same failure.
	ThrottlePolicy = domain.ThrottlePolicy
	// Options are the policy fields shared by Do and Run.
	Options = guard.Options
	// Policy configures one guarded call.
	Policy[T any] = guard.Policy[T]
	// Config is the process-wide reporting configuration.
	Config = guard.Config
	// Guard applies policies against one Config.
	Guard = guard.Guard
	// Reporter receives reported failures.
	Reporter = report.Reporter
	// ReporterFunc adapts a function to Reporter.
	ReporterFunc = report.ReporterFunc
)

var (
	// Standard matches every ordinary failure and is intercepted by default.
	Standard = failure.Standard
	// Fatal is the root of failures that are never intercepted by default.
	Fatal = failure.Fatal
	// Panic is the kind of recovered panics.
	Panic = failure.Panic

	// TagOn tags reports with "safely".
	TagOn = domain.TagOn
	// TagOff disables tagging for a call.
	TagOff = domain.TagOff
)

// NewKind declares a kind under parent (Standard when nil).
func NewKind(name string, parent *Kind) *Kind { return failure.NewKind(name, parent) }

// KindOf declares a kind matching errors that wrap sentinel.
func KindOf(name string, parent *Kind, sentinel error) *Kind {
	return failure.KindOf(name, parent, sentinel)
}

// KindFor declares a kind matching errors that wrap an E.
func KindFor[E error](name string, parent *Kind) *Kind { return failure.KindFor[E](name, parent) }

// Label returns a tag with the given label.
func Label(label string) Tag { return domain.Label(label) }

// New creates a Guard from cfg.
func New(cfg Config) *Guard { return guard.New(cfg) }

var defaultGuard atomic.Pointer[Guard]

// Default returns the process-wide guard. Unless replaced with SetDefault it
// is built on first use from the detected environment, re-raises in
// development and test, and reports through slog.Default.
func Default() *Guard {
	if g := defaultGuard.Load(); g != nil {
		return g
	}
	cfg := config.Default()
	g := guard.New(guard.Config{
		Environment:     cfg.Environment,
		RaiseEnvs:       cfg.RaiseEnvs,
		DefaultTag:      cfg.Tag,
		ThrottleCeiling: cfg.ThrottleCeiling,
		Reporter:        report.NewLogReporter(slog.Default(), cfg.Environment),
		Stderr:          os.Stderr,
	})
	if defaultGuard.CompareAndSwap(nil, g) {
		return g
	}
	return defaultGuard.Load()
}

// SetDefault replaces the process-wide guard and returns a func restoring
// the previous one.
func SetDefault(g *Guard) (restore func()) {
	prev := defaultGuard.Swap(g)
	return func() { defaultGuard.Store(prev) }
}

// Do runs work under p with the default guard.
func Do[T any](ctx context.Context, p Policy[T], work func() (T, error)) (T, error) {
	return guard.Do(ctx, Default(), p, work)
}

// Yolo is another name for Do.
func Yolo[T any](ctx context.Context, p Policy[T], work func() (T, error)) (T, error) {
	return Do(ctx, p, work)
}

// DoWith runs work under p with g.
func DoWith[T any](ctx context.Context, g *Guard, p Policy[T], work func() (T, error)) (T, error) {
	return guard.Do(ctx, g, p, work)
}

// Run runs work that has no result under o with the default guard.
func Run(ctx context.Context, o Options, work func() error) error {
	return guard.Run(ctx, Default(), o, work)
}

// RunWith runs work that has no result under o with g.
func RunWith(ctx context.Context, g *Guard, o Options, work func() error) error {
	return guard.Run(ctx, g, o, work)
}

// Wrap returns fn guarded by p. The default guard is looked up on every
// call, so SetDefault applies to functions wrapped earlier.
func Wrap[T any](p Policy[T], fn func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return guard.Do(ctx, Default(), p, func() (T, error) { return fn(ctx) })
	}
}
