// Package pipeline orchestrates per-match processing and the concurrent
// fan-out over all matches of a competition season.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/passrate/go-pass-metrics/internal/aggregator"
	"github.com/passrate/go-pass-metrics/internal/model"
	"github.com/passrate/go-pass-metrics/internal/statsbomb"
	"github.com/passrate/go-pass-metrics/internal/timeline"
)

// maxDefaultWorkers caps the default pool size so an unconfigured run does
// not hammer the remote data source.
const maxDefaultWorkers = 12

// Source is the slice of the data client the pipeline needs per match.
type Source interface {
	Events(ctx context.Context, id model.MatchID) ([]model.Event, error)
	Lineups(ctx context.Context, id model.MatchID) ([]model.TeamLineup, error)
}

// MatchProcessor computes one match's per-position totals.
type MatchProcessor struct {
	src Source
	log logrus.FieldLogger
}

// NewMatchProcessor returns a processor reading from src.
func NewMatchProcessor(src Source, log logrus.FieldLogger) *MatchProcessor {
	return &MatchProcessor{src: src, log: log}
}

// ProcessMatch fetches one match's lineups and events, rebuilds position
// timelines and attributes completed passes. It touches no shared state and
// returns a fresh MatchResult, so it is safe to call from many goroutines.
// Fetch failures wrap statsbomb.ErrDataUnavailable and are skippable by the
// caller.
func (p *MatchProcessor) ProcessMatch(ctx context.Context, id model.MatchID) (model.MatchResult, error) {
	events, err := p.src.Events(ctx, id)
	if err != nil {
		return model.MatchResult{}, fmt.Errorf("match %d events: %w", int(id), err)
	}
	lineups, err := p.src.Lineups(ctx, id)
	if err != nil {
		return model.MatchResult{}, fmt.Errorf("match %d lineups: %w", int(id), err)
	}

	duration := timeline.MatchDuration(events)
	built := timeline.Build(lineups, events, duration)
	res := aggregator.Attribute(id, events, built.Timelines, built.Malformed)

	p.log.WithFields(logrus.Fields{
		"match_id":  int(id),
		"duration":  duration,
		"positions": len(res.Positions),
		"misses":    res.Diags.AttributionMisses,
		"malformed": res.Diags.MalformedEvents,
	}).Debug("match processed")
	return res, nil
}

// CompetitionProcessor fans ProcessMatch out over a bounded worker pool.
type CompetitionProcessor struct {
	matches *MatchProcessor
	workers int
	log     logrus.FieldLogger
}

// NewCompetitionProcessor returns a processor running at most workers
// concurrent match fetches; workers <= 0 selects the platform default.
func NewCompetitionProcessor(matches *MatchProcessor, workers int, log logrus.FieldLogger) *CompetitionProcessor {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
		if workers > maxDefaultWorkers {
			workers = maxDefaultWorkers
		}
	}
	return &CompetitionProcessor{matches: matches, workers: workers, log: log}
}

type matchOutcome struct {
	id  model.MatchID
	res model.MatchResult
	err error
}

// ProcessCompetition processes every listed match concurrently and merges the
// results at a single reduction point after all workers finish, so the
// outcome is identical regardless of completion order. Individual match
// failures are logged, counted and skipped; the call fails only when the
// context is cancelled or a non-empty match set produced no result at all.
func (p *CompetitionProcessor) ProcessCompetition(ctx context.Context, competitionID, seasonID int, matchIDs []model.MatchID) (model.AggregateResult, error) {
	agg := model.NewAggregateResult()
	if len(matchIDs) == 0 {
		return agg, nil
	}

	jobs := make(chan model.MatchID)
	outcomes := make(chan matchOutcome, len(matchIDs))

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				res, err := p.matches.ProcessMatch(ctx, id)
				outcomes <- matchOutcome{id: id, res: res, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, id := range matchIDs {
			select {
			case jobs <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(outcomes)

	if err := ctx.Err(); err != nil {
		// Abandon in-flight work; never expose a partial aggregate.
		return model.AggregateResult{}, err
	}

	for out := range outcomes {
		if out.err != nil {
			p.log.WithFields(logrus.Fields{
				"competition_id": competitionID,
				"season_id":      seasonID,
				"match_id":       int(out.id),
				"error":          out.err,
			}).Warn("match skipped")
			agg.MatchesSkipped++
			continue
		}
		aggregator.Merge(&agg, out.res)
	}

	if agg.MatchesProcessed == 0 {
		return model.AggregateResult{}, fmt.Errorf(
			"competition %d season %d: all %d matches failed: %w",
			competitionID, seasonID, len(matchIDs), statsbomb.ErrDataUnavailable)
	}

	p.log.WithFields(logrus.Fields{
		"competition_id": competitionID,
		"season_id":      seasonID,
		"processed":      agg.MatchesProcessed,
		"skipped":        agg.MatchesSkipped,
		"positions":      len(agg.Positions),
	}).Info("competition processed")
	return agg, nil
}

// IsDataUnavailable reports whether err stems from an exhausted fetch.
func IsDataUnavailable(err error) bool {
	return errors.Is(err, statsbomb.ErrDataUnavailable)
}
