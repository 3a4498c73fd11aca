package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vietddude/safely/internal/core/domain"
	"github.com/vietddude/safely/internal/infra/storage/postgres"
)

var reportsLimit int

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List the most recent reports stored in PostgreSQL",
	RunE:  runReports,
}

func init() {
	reportsCmd.Flags().IntVar(&reportsLimit, "limit", 20, "number of reports to show")
	rootCmd.AddCommand(reportsCmd)
}

func runReports(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is not configured")
	}

	ctx := cmd.Context()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	reports, err := postgres.NewReportRepo(db).ListRecent(ctx, reportsLimit)
	if err != nil {
		return err
	}

	return writeReports(cmd.OutOrStdout(), reports)
}

// writeReports prints reports as a table, newest first.
func writeReports(out io.Writer, reports []*domain.ReportRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CREATED\tENV\tKIND\tMESSAGE")
	for _, r := range reports {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), r.Environment, r.Kind, r.Message)
	}
	return w.Flush()
}
