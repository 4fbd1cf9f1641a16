package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/passrate/go-pass-metrics/internal/catalog"
	"github.com/passrate/go-pass-metrics/internal/report"
	"github.com/passrate/go-pass-metrics/internal/statsbomb"
)

var competitionsCmd = &cobra.Command{
	Use:   "competitions",
	Short: "List the competition seasons matching the filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := statsbomb.NewClient(log)
		entries, err := catalog.Resolve(cmd.Context(), client, filtersFromFlags())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No competition seasons match the filters.")
			return nil
		}
		report.PrintCompetitionTable(os.Stdout, entries)
		return nil
	},
}

func init() {
	addFilterFlags(competitionsCmd)
}
