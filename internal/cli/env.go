package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Show the detected environment and whether failures re-raise in it",
	RunE:  runEnv,
}

func init() {
	rootCmd.AddCommand(envCmd)
}

func runEnv(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(w, "ENVIRONMENT\t%s\n", cfg.Environment)
	_, _ = fmt.Fprintf(w, "RAISE_ENVS\t%s\n", strings.Join(cfg.RaiseEnvs, ","))
	_, _ = fmt.Fprintf(w, "RAISES\t%t\n", cfg.Raises())
	_, _ = fmt.Fprintf(w, "TAG\t%s\n", cfg.Tag)
	_, _ = fmt.Fprintf(w, "SINKS\t%s\n", strings.Join(cfg.Reporter.Sinks, ","))
	_, _ = fmt.Fprintf(w, "THROTTLE\t%s\n", cfg.Throttle.Backend)
	return w.Flush()
}
