package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/safely/internal/control"
	"github.com/vietddude/safely/internal/core/config"
	"github.com/vietddude/safely/internal/core/domain"
	"github.com/vietddude/safely/internal/core/failure"
	"github.com/vietddude/safely/internal/guard"
)

var (
	// CommandFailed matches commands that ran and exited non-zero.
	CommandFailed = failure.KindFor[*exec.ExitError]("CommandFailed", nil)
	// CommandNotStarted matches commands that could not be started.
	CommandNotStarted = failure.KindFor[*exec.Error]("CommandNotStarted", nil)
)

type runFlags struct {
	tag            string
	sample         float64
	throttleKey    string
	throttlePeriod time.Duration
	throttleLimit  int
	defaultExit    int
	onlyExitErrors bool
	silenceExit    []int
	statusAddr     string
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run [flags] -- command [args...]",
	Short: "Run a command and report its failure instead of propagating it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.tag, "tag", "", "label prefixed to reported messages")
	f.Float64Var(&runOpts.sample, "sample", 0, "report one failure in N (0 reports all)")
	f.StringVar(&runOpts.throttleKey, "throttle-key", "", "dedup key for throttling (default: failure fingerprint)")
	f.DurationVar(&runOpts.throttlePeriod, "throttle-period", 0, "throttle bucket width, enables throttling")
	f.IntVar(&runOpts.throttleLimit, "throttle-limit", 1, "reports allowed per key per bucket")
	f.IntVar(&runOpts.defaultExit, "default-exit", 0, "exit code when a failure is absorbed")
	f.BoolVar(&runOpts.onlyExitErrors, "only-exit-errors", false, "intercept non-zero exits only, not start failures")
	f.IntSliceVar(&runOpts.silenceExit, "silence-exit", nil, "exit codes absorbed without reporting")
	f.StringVar(&runOpts.statusAddr, "status-addr", "", "serve /health and /metrics on this address while the command runs")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := control.NewRuntime(ctx, cfg, control.Options{Stderr: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.Start(ctx)

	if runOpts.statusAddr != "" {
		srv := control.NewServer(rt.Guard, runOpts.statusAddr, rt.HealthChecks())
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	code, err := runGuarded(ctx, rt.Guard, runOpts, args, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if cfg.HasSink(config.SinkMemory) {
		reports, lerr := rt.Reports.ListRecent(ctx, 0)
		if lerr != nil {
			return lerr
		}
		if len(reports) > 0 {
			_ = writeReports(cmd.ErrOrStderr(), reports)
		}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &exitCodeError{code: exitErr.ExitCode()}
		}
		return err
	}
	if code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}

// policy builds the guard options for the flags.
func (f runFlags) policy() guard.Options {
	o := guard.Options{Sample: f.sample}
	if f.tag != "" {
		o.Tag = domain.Label(f.tag)
	}
	if f.onlyExitErrors {
		o.Only = []*failure.Kind{CommandFailed}
	}
	if f.throttlePeriod > 0 {
		o.Throttle = &domain.ThrottlePolicy{
			Key:    f.throttleKey,
			Period: f.throttlePeriod,
			Limit:  f.throttleLimit,
		}
	}
	for _, code := range f.silenceExit {
		o.Silence = append(o.Silence, exitCodeKind(code))
	}
	return o
}

// exitCodeKind matches exit errors with one specific code.
func exitCodeKind(code int) *failure.Kind {
	return failure.KindFunc(fmt.Sprintf("Exit%d", code), CommandFailed, func(err error) bool {
		var exitErr *exec.ExitError
		return errors.As(err, &exitErr) && exitErr.ExitCode() == code
	})
}

// runGuarded runs args under the guard and returns the exit code to use.
func runGuarded(
	ctx context.Context,
	g *guard.Guard,
	flags runFlags,
	args []string,
	stdout, stderr io.Writer,
) (int, error) {
	p := guard.Policy[int]{Options: flags.policy(), Default: flags.defaultExit}
	return guard.Do(ctx, g, p, func() (int, error) {
		var tail bytes.Buffer
		c := exec.CommandContext(ctx, args[0], args[1:]...)
		c.Stdin = os.Stdin
		c.Stdout = stdout
		c.Stderr = io.MultiWriter(stderr, &tail)

		if err := c.Run(); err != nil {
			return 0, commandError(args, err, tail.String())
		}
		return 0, nil
	})
}

// commandError wraps err with the command line and the last stderr line so
// reports identify what failed.
func commandError(args []string, err error, stderr string) error {
	msg := strings.Join(args, " ")
	if last := lastLine(stderr); last != "" {
		msg += ": " + last
	}

	kind := CommandNotStarted
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		kind = CommandFailed
	}
	return kind.Wrap(err, msg)
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
