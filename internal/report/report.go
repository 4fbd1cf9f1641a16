// Package report renders aggregated results as terminal tables. It is the
// sole output surface of the pipeline; chart and dashboard rendering live in
// external consumers of the same data.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/passrate/go-pass-metrics/internal/model"
	"github.com/passrate/go-pass-metrics/internal/storage"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintPositionTable writes the per-position table sorted descending by
// passes per minute.
func PrintPositionTable(w io.Writer, agg model.AggregateResult) {
	table := newTable(w)
	table.Header("POSITION", "PASSES", "MINUTES", "PASSES/MIN")

	for _, row := range model.RankByRate(agg.Positions) {
		table.Append(
			row.Position,
			strconv.Itoa(row.Passes),
			fmt.Sprintf("%.1f", row.Minutes),
			fmt.Sprintf("%.5f", row.Rate),
		)
	}
	table.Render()
}

// PrintRunSummary writes the diagnostic summary line for a completed run.
func PrintRunSummary(w io.Writer, agg model.AggregateResult) {
	fmt.Fprintf(w, "\nMatches processed: %d  |  Skipped: %d  |  Passes dropped: %d  |  Malformed events: %d\n",
		agg.MatchesProcessed, agg.MatchesSkipped, agg.AttributionMisses, agg.MalformedEvents)
}

// PrintCompetitionTable writes the resolved catalog entries.
func PrintCompetitionTable(w io.Writer, entries []model.CompetitionSeason) {
	table := newTable(w)
	table.Header("COMP_ID", "SEASON_ID", "COMPETITION", "COUNTRY", "SEASON")

	for _, cs := range entries {
		table.Append(
			strconv.Itoa(cs.CompetitionID),
			strconv.Itoa(cs.SeasonID),
			cs.CompetitionName,
			cs.CountryName,
			cs.SeasonName,
		)
	}
	table.Render()
}

// PrintRunsTable writes the cached runs, newest first.
func PrintRunsTable(w io.Writer, runs []storage.RunSummary) {
	table := newTable(w)
	table.Header("CACHE_KEY", "CREATED", "MATCHES", "SKIPPED", "DROPPED", "MALFORMED")

	for _, r := range runs {
		table.Append(
			r.CacheKey,
			r.CreatedAt,
			strconv.Itoa(r.MatchesProcessed),
			strconv.Itoa(r.MatchesSkipped),
			strconv.Itoa(r.AttributionMisses),
			strconv.Itoa(r.MalformedEvents),
		)
	}
	table.Render()
}
