package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cultura/internal/bootstrap"
	"cultura/internal/errs"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich raw records that have no outcome yet",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		defer pushMetrics(cmd, app)

		limit, _ := cmd.Flags().GetInt("limit")

		stats, err := app.Pipeline.Process(cmd.Context(), limit)
		if err != nil {
			return errs.Wrap(err, "enrich records")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "enrich: processed=%d success=%d failed=%d skipped=%d\n",
			stats.Processed, stats.Success, stats.Failed, stats.Skipped); err != nil {
			return errs.Wrap(err, "write enrich output")
		}
		return nil
	}),
}

var enrichStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize stored enrichment outcomes",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		summary, err := app.Pipeline.Summary(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "summarize outcomes")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "outcomes: total=%d success=%d failed=%d success_rate=%.1f%%\n",
			summary.Total, summary.Success, summary.Failed, summary.SuccessRate); err != nil {
			return errs.Wrap(err, "write stats output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(enrichCmd)
	enrichCmd.AddCommand(enrichStatsCmd)
	enrichCmd.Flags().Int("limit", 0, "Maximum number of raw records to read (0 reads all)")
}
