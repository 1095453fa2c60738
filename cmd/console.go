package cmd

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"cultura/internal/bootstrap"
	"cultura/internal/errs"
	"cultura/internal/ports"
	"cultura/internal/usecase/catalogconsole"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Browse the loaded catalog and recent pipeline runs",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		category, _ := cmd.Flags().GetString("category")
		city, _ := cmd.Flags().GetString("city")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")

		model := catalogconsole.NewModel(cmd.Context(), app.Catalog, app.Runs, catalogconsole.Options{
			Filter:          ports.EventFilter{Category: category, City: city},
			PageSize:        pageSize,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run catalog console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().String("category", "", "Initial category filter")
	consoleCmd.Flags().String("city", "", "Initial city filter")
	consoleCmd.Flags().Int("page-size", 15, "Events per page")
	consoleCmd.Flags().Duration("refresh-interval", 10*time.Second, "Auto refresh interval")
}
