package classifier

import (
	"errors"
	"testing"

	"github.com/vietddude/safely/internal/core/domain"
	"github.com/vietddude/safely/internal/core/failure"
)

var (
	arithmetic = failure.NewKind("Arithmetic", nil)
	zeroDiv    = failure.NewKind("ZeroDivision", arithmetic)
	timeout    = failure.NewKind("Timeout", nil)
	shutdown   = failure.NewKind("Shutdown", failure.Fatal)
)

var production = Environment{Name: "production", RaiseEnvs: []string{"development", "test"}}

// fixedRand returns v and counts draws.
type fixedRand struct {
	v     float64
	draws int
}

func (r *fixedRand) next() float64 {
	r.draws++
	return r.v
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		rules       Rules
		env         Environment
		draw        float64
		want        domain.Decision
		intercepted bool
	}{
		{
			name:        "default only intercepts any standard failure",
			err:         errors.New("boom"),
			env:         production,
			want:        domain.Report,
			intercepted: true,
		},
		{
			name: "fatal kinds escape the default filter",
			err:  shutdown.New("stop"),
			env:  production,
			want: domain.Reraise,
		},
		{
			name:  "not in only",
			err:   timeout.New("slow"),
			rules: Rules{Only: []*failure.Kind{arithmetic}},
			env:   production,
			want:  domain.Reraise,
		},
		{
			name:        "only matches subkinds",
			err:         zeroDiv.New("x"),
			rules:       Rules{Only: []*failure.Kind{arithmetic}},
			env:         production,
			want:        domain.Report,
			intercepted: true,
		},
		{
			name:        "except wins over only",
			err:         zeroDiv.New("x"),
			rules:       Rules{Only: []*failure.Kind{arithmetic}, Except: []*failure.Kind{zeroDiv}},
			env:         production,
			want:        domain.Reraise,
			intercepted: true,
		},
		{
			name:        "raise env re-raises regardless of silence and sample",
			err:         zeroDiv.New("x"),
			rules:       Rules{Silence: []*failure.Kind{arithmetic}, Sample: 10},
			env:         Environment{Name: "test", RaiseEnvs: []string{"development", "test"}},
			want:        domain.Reraise,
			intercepted: true,
		},
		{
			name:        "silence suppresses",
			err:         zeroDiv.New("x"),
			rules:       Rules{Silence: []*failure.Kind{arithmetic}},
			env:         production,
			want:        domain.Suppress,
			intercepted: true,
		},
		{
			name:        "sampled out",
			err:         zeroDiv.New("x"),
			rules:       Rules{Sample: 4},
			env:         production,
			draw:        0.25,
			want:        domain.Suppress,
			intercepted: true,
		},
		{
			name:        "sampled in",
			err:         zeroDiv.New("x"),
			rules:       Rules{Sample: 4},
			env:         production,
			draw:        0.2499,
			want:        domain.Report,
			intercepted: true,
		},
		{
			name:        "sampled in but silenced",
			err:         zeroDiv.New("x"),
			rules:       Rules{Sample: 4, Silence: []*failure.Kind{zeroDiv}},
			env:         production,
			draw:        0,
			want:        domain.Suppress,
			intercepted: true,
		},
		{
			name:        "empty raise envs never re-raise",
			err:         zeroDiv.New("x"),
			env:         Environment{Name: "development"},
			want:        domain.Report,
			intercepted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fixedRand{v: tt.draw}
			got, intercepted := New(r.next).Evaluate(tt.err, tt.rules, tt.env)
			if intercepted != tt.intercepted {
				t.Fatalf("intercepted = %v, want %v", intercepted, tt.intercepted)
			}
			if intercepted && got != tt.want {
				t.Errorf("Evaluate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEvaluate_DrawsOnlyWhenSampling(t *testing.T) {
	r := &fixedRand{v: 0}
	c := New(r.next)

	c.Evaluate(errors.New("x"), Rules{}, production)
	if r.draws != 0 {
		t.Errorf("draws without sample = %d, want 0", r.draws)
	}

	c.Evaluate(errors.New("x"), Rules{Sample: 3}, production)
	if r.draws != 1 {
		t.Errorf("draws with sample = %d, want 1", r.draws)
	}

	c.Evaluate(errors.New("x"), Rules{Sample: 3}, Environment{Name: "test", RaiseEnvs: []string{"test"}})
	if r.draws != 1 {
		t.Errorf("re-raised failures must not draw, got %d draws", r.draws)
	}
}

func TestEvaluate_SampleOneAlwaysReports(t *testing.T) {
	c := New(nil)
	for i := 0; i < 10000; i++ {
		if got, _ := c.Evaluate(errors.New("x"), Rules{Sample: 1}, production); got != domain.Report {
			t.Fatalf("trial %d: Evaluate() = %s, want report", i, got)
		}
	}
}

func TestEvaluate_SampleRate(t *testing.T) {
	c := New(nil)

	const trials = 100000
	reported := 0
	for i := 0; i < trials; i++ {
		if got, _ := c.Evaluate(errors.New("x"), Rules{Sample: 4}, production); got == domain.Report {
			reported++
		}
	}

	rate := float64(reported) / trials
	if rate < 0.23 || rate > 0.27 {
		t.Errorf("report rate = %.4f, want about 0.25", rate)
	}
}

func TestEvaluate_SampleOneInAMillion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping statistical test in short mode")
	}

	c := New(nil)
	const trials = 1000000
	reported := 0
	for i := 0; i < trials; i++ {
		if got, _ := c.Evaluate(errors.New("x"), Rules{Sample: 1000000}, production); got == domain.Report {
			reported++
		}
	}

	// Expected about one report; more than 15 is vanishingly unlikely.
	if reported > 15 {
		t.Errorf("reported %d of %d, want about 1", reported, trials)
	}
}

func TestEnvironment_Raises(t *testing.T) {
	env := Environment{Name: "test", RaiseEnvs: []string{"development", "test"}}
	if !env.Raises() {
		t.Error("test should raise")
	}
	env.Name = "production"
	if env.Raises() {
		t.Error("production should not raise")
	}
}
