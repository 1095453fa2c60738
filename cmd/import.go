package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"cultura/internal/bootstrap"
	"cultura/internal/bootstrap/logging"
	"cultura/internal/errs"
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import raw event records (YAML or JSON) into the document store",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := cmd.Context()
		source, _ := cmd.Flags().GetString("source")

		for _, path := range cmd.Flags().Args() {
			stats, err := app.Importer.ImportFile(ctx, path, source)
			if err != nil {
				logging.Error(ctx, "import file failed", slog.String("path", path), slog.Any("err", errs.Loggable(err)))
				return errs.Wrapf(err, "import %s", path)
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: inserted=%d duplicates=%d errors=%d\n",
				path, stats.Inserted, stats.Duplicates, stats.Errors); err != nil {
				return errs.Wrap(err, "write import output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("source", "", "Source name for records that do not carry one")
}
