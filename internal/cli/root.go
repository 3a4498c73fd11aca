package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/safely/internal/core/config"
	"github.com/vietddude/stylelog"
)

var (
	cfgPath string
	isDebug bool
	envFlag string
)

var rootCmd = &cobra.Command{
	Use:   "safely",
	Short: "Run commands under a failure guard",
	Long: `safely runs a command and reports its failure instead of propagating it,
except in environments (development and test by default) where failures are re-raised.`,
	SilenceUsage:     true,
	SilenceErrors:    true,
	PersistentPreRun: setupLogging,
}

// exitCodeError makes Execute exit with code once every deferred cleanup
// of the command has run.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err, os.Stderr))
	}
}

// exitCode returns the process exit code for err, printing it unless it
// only carries a code.
func exitCode(err error, stderr io.Writer) int {
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	fmt.Fprintln(stderr, "Error:", err)
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "safely.yaml", "config file (default is safely.yaml, optional)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "override the detected environment")
}

func setupLogging(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	slogLevel := slog.LevelInfo
	if isDebug {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist, and applies the --env override.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("No config file, using defaults", "path", cfgPath)
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if envFlag != "" {
		cfg.Environment = envFlag
	}
	if cfg.Logging.Level == "debug" && !isDebug {
		stylelog.InitDefault(&tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC3339,
		})
	}
	return cfg, nil
}
