package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/passrate/go-pass-metrics/internal/catalog"
	"github.com/passrate/go-pass-metrics/internal/report"
	"github.com/passrate/go-pass-metrics/internal/storage"
)

var showList bool

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a cached result without recomputing",
	Long: `Fast mode: reads the aggregate cached for the given filters and prints
it. Use --list to see every cached run instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := storage.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer db.Close()

		if showList {
			runs, err := db.ListRuns()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No cached runs.")
				return nil
			}
			report.PrintRunsTable(os.Stdout, runs)
			return nil
		}

		key := catalog.CacheKey(filtersFromFlags())
		agg, err := db.LoadAggregate(key)
		if err != nil {
			return err
		}
		if agg == nil {
			return fmt.Errorf("no cached result for %s; use 'passmetrics run'", key)
		}
		report.PrintRunSummary(os.Stdout, *agg)
		report.PrintPositionTable(os.Stdout, *agg)
		return nil
	},
}

func init() {
	addFilterFlags(showCmd)
	showCmd.Flags().BoolVar(&showList, "list", false, "list all cached runs")
}
