package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/passrate/go-pass-metrics/internal/aggregator"
	"github.com/passrate/go-pass-metrics/internal/catalog"
	"github.com/passrate/go-pass-metrics/internal/model"
	"github.com/passrate/go-pass-metrics/internal/pipeline"
	"github.com/passrate/go-pass-metrics/internal/report"
	"github.com/passrate/go-pass-metrics/internal/statsbomb"
	"github.com/passrate/go-pass-metrics/internal/storage"
)

var runRefresh bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute passes per minute by position",
	Long: `Resolves the selected competition seasons, processes every match
concurrently and prints the per-position passes-per-minute table.

A cached result for the same filters is reused unless --refresh is given.

Examples:
  # Bundesliga, every open-data season
  passmetrics run --competitions 9

  # Two competitions, limited to seasons starting 2015-2020
  passmetrics run --competitions 9,11 --from 2015 --to 2020`,
	RunE: runRun,
}

func init() {
	addFilterFlags(runCmd)
	runCmd.Flags().BoolVar(&runRefresh, "refresh", false, "ignore the cache and recompute")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer db.Close()

	f := filtersFromFlags()
	key := catalog.CacheKey(f)

	if !runRefresh {
		cached, err := db.LoadAggregate(key)
		switch {
		case errors.Is(err, storage.ErrCacheCorrupt):
			log.WithField("key", key).Warn("cache unreadable, recomputing")
		case err != nil:
			return err
		case cached != nil:
			fmt.Println("Using cached result (run with --refresh to recompute).")
			report.PrintRunSummary(os.Stdout, *cached)
			report.PrintPositionTable(os.Stdout, *cached)
			return nil
		}
	}

	total, err := computeAggregate(ctx, f)
	if err != nil {
		return err
	}

	if err := db.SaveAggregate(key, total); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}

	report.PrintRunSummary(os.Stdout, total)
	report.PrintPositionTable(os.Stdout, total)
	return nil
}

// computeAggregate runs the live pipeline: resolve the catalog, process each
// selection's matches and reduce everything into one aggregate.
func computeAggregate(ctx context.Context, f catalog.Filters) (model.AggregateResult, error) {
	client := statsbomb.NewClient(log)

	selections, err := catalog.Resolve(ctx, client, f)
	if err != nil {
		return model.AggregateResult{}, err
	}
	if len(selections) == 0 {
		return model.AggregateResult{}, fmt.Errorf("no competition seasons match the filters")
	}
	fmt.Printf("Processing %d competition season(s)...\n", len(selections))

	matches := pipeline.NewMatchProcessor(client, log)
	competitions := pipeline.NewCompetitionProcessor(matches, workers, log)

	var results []model.AggregateResult
	for i, cs := range selections {
		entry := log.WithFields(logrus.Fields{
			"competition": cs.CompetitionName,
			"season":      cs.SeasonName,
		})

		stubs, err := client.Matches(ctx, cs.CompetitionID, cs.SeasonID)
		if err != nil {
			if ctx.Err() != nil {
				return model.AggregateResult{}, ctx.Err()
			}
			entry.WithField("error", err).Warn("match listing failed, selection skipped")
			continue
		}

		ids := make([]model.MatchID, 0, len(stubs))
		for _, s := range stubs {
			ids = append(ids, s.MatchID)
		}

		agg, err := competitions.ProcessCompetition(ctx, cs.CompetitionID, cs.SeasonID, ids)
		if err != nil {
			if ctx.Err() != nil {
				return model.AggregateResult{}, ctx.Err()
			}
			entry.WithField("error", err).Warn("selection failed, skipped")
			continue
		}

		fmt.Printf("[%d/%d] %s %s: %d matches, %d skipped\n",
			i+1, len(selections), cs.CompetitionName, cs.SeasonName,
			agg.MatchesProcessed, agg.MatchesSkipped)
		results = append(results, agg)
	}

	if len(results) == 0 {
		return model.AggregateResult{}, fmt.Errorf("every selected season failed: %w", statsbomb.ErrDataUnavailable)
	}
	return aggregator.Reduce(results), nil
}
