package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/safely/internal/core/domain"
	"github.com/vietddude/safely/internal/core/failure"
	"github.com/vietddude/safely/internal/guard"
	"github.com/vietddude/safely/internal/guard/report"
)

type recorder struct {
	reports []error
}

func (r *recorder) Report(_ context.Context, err error) error {
	r.reports = append(r.reports, err)
	return nil
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func newTestGuard(env string, rep report.Reporter) *guard.Guard {
	return guard.New(guard.Config{
		Environment: env,
		RaiseEnvs:   []string{"development", "test"},
		Reporter:    rep,
		Stderr:      &bytes.Buffer{},
	})
}

func TestRunGuarded_Success(t *testing.T) {
	requireShell(t)
	rec := &recorder{}
	var stdout bytes.Buffer

	code, err := runGuarded(context.Background(), newTestGuard("production", rec), runFlags{defaultExit: 9},
		[]string{"sh", "-c", "echo hello"}, &stdout, &bytes.Buffer{})
	if err != nil || code != 0 {
		t.Errorf("runGuarded() = %d, %v", code, err)
	}
	if strings.TrimSpace(stdout.String()) != "hello" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if len(rec.reports) != 0 {
		t.Errorf("reports = %v", rec.reports)
	}
}

func TestRunGuarded_FailureReported(t *testing.T) {
	requireShell(t)
	rec := &recorder{}

	code, err := runGuarded(context.Background(), newTestGuard("production", rec),
		runFlags{tag: "nightly", defaultExit: 0},
		[]string{"sh", "-c", "echo disk full >&2; exit 3"}, &bytes.Buffer{}, &bytes.Buffer{})
	if err != nil || code != 0 {
		t.Errorf("runGuarded() = %d, %v; want 0, nil", code, err)
	}
	if len(rec.reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(rec.reports))
	}
	msg := rec.reports[0].Error()
	if !strings.HasPrefix(msg, "[nightly] sh -c") || !strings.Contains(msg, "disk full") {
		t.Errorf("report = %q", msg)
	}
	if failure.KindName(report.Untagged(rec.reports[0])) != "CommandFailed" {
		t.Errorf("kind = %q", failure.KindName(rec.reports[0]))
	}
}

func TestRunGuarded_TestEnvReraises(t *testing.T) {
	requireShell(t)
	rec := &recorder{}

	_, err := runGuarded(context.Background(), newTestGuard("test", rec), runFlags{},
		[]string{"sh", "-c", "exit 4"}, &bytes.Buffer{}, &bytes.Buffer{})

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 4 {
		t.Fatalf("err = %v, want exit status 4", err)
	}
	if len(rec.reports) != 0 {
		t.Errorf("reports = %v", rec.reports)
	}
}

func TestRunGuarded_SilencedExitCode(t *testing.T) {
	requireShell(t)
	rec := &recorder{}

	code, err := runGuarded(context.Background(), newTestGuard("production", rec),
		runFlags{silenceExit: []int{2}, defaultExit: 5},
		[]string{"sh", "-c", "exit 2"}, &bytes.Buffer{}, &bytes.Buffer{})
	if err != nil || code != 5 {
		t.Errorf("runGuarded() = %d, %v; want 5, nil", code, err)
	}
	if len(rec.reports) != 0 {
		t.Errorf("silenced exit reported: %v", rec.reports)
	}
}

func TestRunGuarded_OnlyExitErrors(t *testing.T) {
	rec := &recorder{}

	_, err := runGuarded(context.Background(), newTestGuard("production", rec),
		runFlags{onlyExitErrors: true},
		[]string{filepath.Join(t.TempDir(), "missing-binary")}, &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("start failure must propagate when only exit errors are intercepted")
	}
	if !failure.Matches(err, CommandNotStarted) {
		t.Errorf("err = %v, want CommandNotStarted", err)
	}
}

func TestRunFlags_Policy(t *testing.T) {
	o := runFlags{
		tag:            "sync",
		sample:         10,
		throttleKey:    "k",
		throttlePeriod: time.Minute,
		throttleLimit:  3,
	}.policy()

	if o.Tag != domain.Label("sync") || o.Sample != 10 {
		t.Errorf("policy = %+v", o)
	}
	if o.Throttle == nil || o.Throttle.Key != "k" || o.Throttle.Limit != 3 || o.Throttle.Period != time.Minute {
		t.Errorf("throttle = %+v", o.Throttle)
	}

	if (runFlags{}).policy().Throttle != nil {
		t.Error("throttling must be off without a period")
	}
}

func TestEnvCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"env", "--env", "production", "--config", filepath.Join(t.TempDir(), "none.yaml")})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		envFlag = ""
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "production") || !strings.Contains(text, "false") {
		t.Errorf("output = %q", text)
	}
}

func TestLastLine(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"one\n":          "one",
		"one\ntwo\n":     "two",
		"  padded  \n\n": "padded",
	}
	for in, want := range tests {
		if got := lastLine(in); got != want {
			t.Errorf("lastLine(%q) = %q, want %q", in, got, want)
		}
	}
}

// executeRun runs "safely run" through the root command with a config file
// holding cfgYAML.
func executeRun(t *testing.T, cfgYAML, env string, command ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "safely.yaml")
	if err := os.WriteFile(path, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var stderr bytes.Buffer
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"run", "--env", env, "--config", path, "--"}, command...))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		envFlag = ""
	})

	err := rootCmd.Execute()
	return stderr.String(), err
}

func TestRunCommand_ReraisedExitCode(t *testing.T) {
	requireShell(t)

	_, err := executeRun(t, "environment: test\n", "test", "sh", "-c", "exit 3")
	var exitErr *exitCodeError
	if !errors.As(err, &exitErr) || exitErr.code != 3 {
		t.Fatalf("err = %v, want exit code 3", err)
	}
	if code := exitCode(err, &bytes.Buffer{}); code != 3 {
		t.Errorf("exitCode() = %d, want 3", code)
	}
}

func TestRunCommand_MemorySinkPrintsReports(t *testing.T) {
	requireShell(t)

	stderr, err := executeRun(t, "reporter:\n  sinks: [memory]\n", "production",
		"sh", "-c", "echo disk full >&2; exit 4")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(stderr, "CommandFailed") || !strings.Contains(stderr, "disk full") {
		t.Errorf("stderr = %q, want the stored report", stderr)
	}
}

func TestExitCode(t *testing.T) {
	var stderr bytes.Buffer
	if code := exitCode(&exitCodeError{code: 7}, &stderr); code != 7 || stderr.Len() != 0 {
		t.Errorf("exitCode() = %d, stderr %q", code, stderr.String())
	}
	if code := exitCode(errors.New("bad config"), &stderr); code != 1 || !strings.Contains(stderr.String(), "bad config") {
		t.Errorf("exitCode() = %d, stderr %q", code, stderr.String())
	}
}
