// Package aggregator turns one match's events and timelines into per-position
// totals, and merges totals across matches and competitions.
package aggregator

import (
	"github.com/passrate/go-pass-metrics/internal/model"
)

// Attribute assigns each completed pass to the position its player occupied
// at that moment and sums minutes played per position. Minutes come from the
// timelines alone, once per interval, so a position accrues time whether or
// not any passes were recorded there. Positions are pooled across players:
// two centre-backs both feed minutes into the same label.
func Attribute(matchID model.MatchID, events []model.Event, timelines map[int]model.Timeline, malformed int) model.MatchResult {
	res := model.MatchResult{
		MatchID:   matchID,
		Positions: make(map[string]model.PositionTotals),
	}
	res.Diags.MalformedEvents = malformed

	for _, tl := range timelines {
		for _, iv := range tl {
			t := res.Positions[iv.Position]
			t.Minutes += iv.Duration()
			res.Positions[iv.Position] = t
		}
	}

	for _, ev := range events {
		if ev.Type != model.EventPass || ev.Pass == nil || !ev.Pass.Completed || ev.PlayerID == 0 {
			continue
		}
		iv, ok := lookup(timelines[ev.PlayerID], ev.Clock())
		if !ok {
			res.Diags.AttributionMisses++
			continue
		}
		t := res.Positions[iv.Position]
		t.Passes++
		res.Positions[iv.Position] = t
	}

	return res
}

// lookup finds the interval containing the pass timestamp. Timestamps before
// minute 0 can never match [start, end) and fall out as attribution misses.
func lookup(tl model.Timeline, minute float64) (model.PositionInterval, bool) {
	if len(tl) == 0 || minute < 0 {
		return model.PositionInterval{}, false
	}
	return tl.At(minute)
}

// Merge folds one match's totals and diagnostics into the aggregate. The
// position merge is commutative and associative, so matches may be merged in
// any completion order with an identical outcome.
func Merge(agg *model.AggregateResult, m model.MatchResult) {
	if agg.Positions == nil {
		agg.Positions = make(map[string]model.PositionTotals)
	}
	for pos, t := range m.Positions {
		cur := agg.Positions[pos]
		cur.Passes += t.Passes
		cur.Minutes += t.Minutes
		agg.Positions[pos] = cur
	}
	agg.MatchesProcessed++
	agg.AttributionMisses += m.Diags.AttributionMisses
	agg.MalformedEvents += m.Diags.MalformedEvents
}

// Reduce merges aggregates from several competition/season runs into one,
// using the same merge rule as per-match accumulation.
func Reduce(results []model.AggregateResult) model.AggregateResult {
	out := model.NewAggregateResult()
	for _, r := range results {
		for pos, t := range r.Positions {
			cur := out.Positions[pos]
			cur.Passes += t.Passes
			cur.Minutes += t.Minutes
			out.Positions[pos] = cur
		}
		out.MatchesProcessed += r.MatchesProcessed
		out.MatchesSkipped += r.MatchesSkipped
		out.AttributionMisses += r.AttributionMisses
		out.MalformedEvents += r.MalformedEvents
	}
	return out
}
