// Package guard runs units of work under a policy that intercepts their
// failures, reports them and substitutes a fallback value.
package guard

import (
	"context"
	"io"
	"time"

	"github.com/vietddude/safely/internal/core/domain"
	"github.com/vietddude/safely/internal/core/failure"
	"github.com/vietddude/safely/internal/guard/classifier"
	"github.com/vietddude/safely/internal/guard/metrics"
	"github.com/vietddude/safely/internal/guard/report"
	"github.com/vietddude/safely/internal/guard/throttle"
)

// Options are the policy fields that do not depend on the result type.
type Options struct {
	// Only lists the kinds to intercept. Empty means failure.Standard.
	Only []*failure.Kind
	// Except lists kinds that are always re-raised.
	Except []*failure.Kind
	// Silence lists kinds that are intercepted but never reported.
	Silence []*failure.Kind
	// Sample reports one failure in Sample on average. Zero reports all.
	Sample float64
	// Tag prefixes reported messages. Unset inherits Config.DefaultTag.
	Tag domain.Tag
	// Throttle limits repeated reports. Nil disables throttling.
	Throttle *domain.ThrottlePolicy
}

// Policy configures one guarded call.
type Policy[T any] struct {
	Options
	// Default is returned when a failure is absorbed.
	Default T
}

// Config is the process-wide reporting configuration a Guard is built from.
type Config struct {
	Environment string
	RaiseEnvs   []string
	DefaultTag  domain.Tag
	Reporter    report.Reporter
	// Ledger counts reports for throttling. Nil means an in-process ledger
	// with ThrottleCeiling keys.
	Ledger          throttle.Ledger
	ThrottleCeiling int
	// Stderr receives FAIL-SAFE lines. Nil means os.Stderr.
	Stderr io.Writer
	// Rand and Now are injectable for tests.
	Rand func() float64
	Now  func() time.Time
}

// Guard applies policies against one configuration. It is safe for
// concurrent use.
type Guard struct {
	env        classifier.Environment
	classifier *classifier.Classifier
	ledger     throttle.Ledger
	emitter    *report.Emitter
	now        func() time.Time
}

// New creates a Guard from cfg.
func New(cfg Config) *Guard {
	ledger := cfg.Ledger
	if ledger == nil {
		ledger = throttle.NewMemoryLedger(cfg.ThrottleCeiling)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	raiseEnvs := make([]string, len(cfg.RaiseEnvs))
	copy(raiseEnvs, cfg.RaiseEnvs)

	return &Guard{
		env:        classifier.Environment{Name: cfg.Environment, RaiseEnvs: raiseEnvs},
		classifier: classifier.New(cfg.Rand),
		ledger:     ledger,
		emitter:    report.NewEmitter(cfg.Reporter, cfg.DefaultTag, cfg.Stderr),
		now:        now,
	}
}

// Environment returns the deployment mode the guard classifies against.
func (g *Guard) Environment() string { return g.env.Name }

// Raises reports whether every matched failure is re-raised.
func (g *Guard) Raises() bool { return g.env.Raises() }

// Do runs work under p. On success its result is returned unchanged. An
// absorbed failure yields p.Default and a nil error. A failure that is not
// absorbed is returned as is; a panic that is not absorbed is re-panicked
// with its original value.
func Do[T any](ctx context.Context, g *Guard, p Policy[T], work func() (T, error)) (T, error) {
	result, err, panicked := call(work)
	if err == nil {
		return result, nil
	}

	if !g.absorb(ctx, err, p.Options) {
		if panicked {
			f := err.(*failure.Failure)
			panic(f.PanicValue())
		}
		var zero T
		return zero, err
	}
	return p.Default, nil
}

// Run is Do for work without a result.
func Run(ctx context.Context, g *Guard, o Options, work func() error) error {
	_, err := Do(ctx, g, Policy[struct{}]{Options: o}, func() (struct{}, error) {
		return struct{}{}, work()
	})
	return err
}

// call runs work, converting a panic into a *failure.Failure.
func call[T any](work func() (T, error)) (result T, err error, panicked bool) {
	defer func() {
		if v := recover(); v != nil {
			err = failure.FromPanic(v)
			panicked = true
		}
	}()
	result, err = work()
	return result, err, false
}

// absorb decides err's fate and reports it when due. It returns false when
// err must propagate to the caller.
func (g *Guard) absorb(ctx context.Context, err error, o Options) bool {
	rules := classifier.Rules{
		Only:    o.Only,
		Except:  o.Except,
		Silence: o.Silence,
		Sample:  o.Sample,
	}

	decision, intercepted := g.classifier.Evaluate(err, rules, g.env)
	if !intercepted {
		return false
	}
	metrics.FailuresTotal.WithLabelValues(decision.String()).Inc()

	switch decision {
	case domain.Reraise:
		return false
	case domain.Suppress:
		return true
	}

	if g.ledger.ShouldSuppress(ctx, err, o.Throttle, g.now()) {
		metrics.ThrottledTotal.Inc()
		return true
	}
	g.emitter.Emit(ctx, err, o.Tag)
	return true
}
