package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/passrate/go-pass-metrics/internal/catalog"
	"github.com/passrate/go-pass-metrics/internal/storage"
)

var dropAll bool

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete cached results",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := storage.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer db.Close()

		if dropAll {
			if err := db.DeleteAll(); err != nil {
				return err
			}
			fmt.Println("Dropped all cached runs.")
			return nil
		}

		key := catalog.CacheKey(filtersFromFlags())
		if err := db.DeleteAggregate(key); err != nil {
			return err
		}
		fmt.Printf("Dropped cached run %s\n", key)
		return nil
	},
}

func init() {
	addFilterFlags(dropCmd)
	dropCmd.Flags().BoolVar(&dropAll, "all", false, "drop every cached run")
}
