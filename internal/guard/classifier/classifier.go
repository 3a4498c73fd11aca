package classifier

import (
	"math/rand/v2"
	"slices"

	"github.com/vietddude/safely/internal/core/domain"
	"github.com/vietddude/safely/internal/core/failure"
)

// Rules are the classification fields of a guard policy.
type Rules struct {
	Only    []*failure.Kind
	Except  []*failure.Kind
	Silence []*failure.Kind
	// Sample reports one failure in Sample on average. Zero reports all.
	Sample float64
}

// Environment is the deployment mode and the modes that force re-raising.
type Environment struct {
	Name      string
	RaiseEnvs []string
}

// Raises reports whether failures re-raise in this environment.
func (e Environment) Raises() bool {
	return slices.Contains(e.RaiseEnvs, e.Name)
}

// Classifier decides the fate of a failure. It holds no state besides its
// random source and is safe for concurrent use if the source is.
type Classifier struct {
	rand func() float64
}

// New creates a classifier. A nil rand uses math/rand/v2.
func New(rand func() float64) *Classifier {
	if rand == nil {
		rand = defaultRand
	}
	return &Classifier{rand: rand}
}

func defaultRand() float64 { return rand.Float64() }

// Evaluate classifies err. The second result is false when err is not
// intercepted at all and must propagate untouched.
//
// Order:
//   - not in Only (default Standard): not intercepted
//   - in Except: Reraise
//   - environment in RaiseEnvs: Reraise
//   - sampled out: Suppress (one random draw)
//   - in Silence: Suppress
//   - otherwise: Report
func (c *Classifier) Evaluate(err error, rules Rules, env Environment) (domain.Decision, bool) {
	only := rules.Only
	if len(only) == 0 {
		only = []*failure.Kind{failure.Standard}
	}
	if !failure.MatchesAny(err, only) {
		return domain.Reraise, false
	}

	if failure.MatchesAny(err, rules.Except) {
		return domain.Reraise, true
	}

	if env.Raises() {
		return domain.Reraise, true
	}

	// Sampling runs before silencing, so a silenced failure still consumes
	// a draw.
	if rules.Sample > 0 && c.rand() >= 1/rules.Sample {
		return domain.Suppress, true
	}

	if failure.MatchesAny(err, rules.Silence) {
		return domain.Suppress, true
	}

	return domain.Report, true
}
