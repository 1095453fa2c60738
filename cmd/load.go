package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cultura/internal/bootstrap"
	"cultura/internal/errs"
	"cultura/internal/usecase/etl"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load successful enrichment outcomes into the relational catalog",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		defer pushMetrics(cmd, app)

		stats, err := app.Loader.LoadAll(cmd.Context())
		if werr := printLoad(cmd.OutOrStdout(), stats, app.Loader.Transformer().Stats()); werr != nil {
			return werr
		}
		return errs.Wrap(err, "load outcomes")
	}),
}

func printLoad(w io.Writer, stats etl.LoadStats, transform etl.TransformStats) error {
	if _, err := fmt.Fprintf(w, "load: processed=%d inserted=%d skipped=%d errors=%d\n",
		stats.Processed, stats.Inserted, stats.Skipped, stats.Errors); err != nil {
		return errs.Wrap(err, "write load output")
	}
	if _, err := fmt.Fprintf(w, "transform: processed=%d errors=%d success_rate=%.1f%%\n",
		transform.Processed, transform.Errors, transform.SuccessRate); err != nil {
		return errs.Wrap(err, "write load output")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
