package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"cultura/internal/bootstrap"
	"cultura/internal/bootstrap/logging"
	"cultura/internal/errs"
)

var runCmd = &cobra.Command{
	Use:   "run [file]...",
	Short: "Import the given files, enrich pending records, then load the catalog",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		defer pushMetrics(cmd, app)

		ctx := cmd.Context()
		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")
		out := cmd.OutOrStdout()

		if err := app.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		for _, path := range cmd.Flags().Args() {
			stats, err := app.Importer.ImportFile(ctx, path, source)
			if err != nil {
				return errs.Wrapf(err, "import %s", path)
			}
			if _, err := fmt.Fprintf(out, "%s: inserted=%d duplicates=%d errors=%d\n",
				path, stats.Inserted, stats.Duplicates, stats.Errors); err != nil {
				return errs.Wrap(err, "write run output")
			}
		}

		enriched, err := app.Pipeline.Process(ctx, limit)
		if err != nil {
			return errs.Wrap(err, "enrich records")
		}
		if _, err := fmt.Fprintf(out, "enrich: processed=%d success=%d failed=%d skipped=%d\n",
			enriched.Processed, enriched.Success, enriched.Failed, enriched.Skipped); err != nil {
			return errs.Wrap(err, "write run output")
		}

		loaded, err := app.Loader.LoadAll(ctx)
		if werr := printLoad(out, loaded, app.Loader.Transformer().Stats()); werr != nil {
			return werr
		}
		if err != nil {
			return errs.Wrap(err, "load outcomes")
		}

		logging.Info(ctx, "run finished",
			slog.Int("enriched", enriched.Success),
			slog.Int("loaded", loaded.Inserted),
		)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("source", "", "Source name for imported records that do not carry one")
	runCmd.Flags().Int("limit", 0, "Maximum number of raw records to enrich (0 enriches all)")
}
