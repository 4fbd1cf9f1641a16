package model

import "sort"

// MatchID uniquely names one match in the open-data corpus.
type MatchID int

// Event type names as they appear in the source data.
const (
	EventStartingXI   = "Starting XI"
	EventSubstitution = "Substitution"
	EventPass         = "Pass"
)

// ---- Raw events decoded from the source feed ----

// Event is one match event, tagged by Type. Only the payload pointer matching
// the tag is populated; the scalar fields are shared by all event kinds.
type Event struct {
	Type     string
	Minute   int
	Second   int
	TeamName string
	PlayerID int    // 0 when the event has no player
	Position string // position name when the event carries one, else ""

	Tactics      *Tactics      // Starting XI only
	Substitution *Substitution // Substitution only
	Pass         *Pass         // Pass only
}

// Clock returns the event timestamp in fractional minutes.
func (e Event) Clock() float64 {
	return float64(e.Minute) + float64(e.Second)/60
}

// Tactics is the lineup payload of a Starting XI event.
type Tactics struct {
	Formation int
	Lineup    []LineupSlot
}

// LineupSlot places one starting player at a position.
type LineupSlot struct {
	PlayerID   int
	PlayerName string
	Position   string
	Jersey     int
}

// Substitution names the player entering for the event's (outgoing) player.
type Substitution struct {
	ReplacementID   int
	ReplacementName string
	Outcome         string // e.g. "Tactical", "Injury"
}

// Pass carries the outcome of a pass event. In the source data a pass with no
// recorded outcome is a completed pass.
type Pass struct {
	Completed   bool
	RecipientID int
}

// ---- Position timelines ----

// PositionInterval is one stretch of play a player spent at a single position.
// The interval is half-open: [Start, End).
type PositionInterval struct {
	Position string
	Team     string
	Start    float64 // minute, inclusive
	End      float64 // minute, exclusive
}

// Duration returns the interval length in minutes.
func (iv PositionInterval) Duration() float64 {
	return iv.End - iv.Start
}

// Timeline is one player's ordered, non-overlapping position intervals within
// a match. A player with no recorded minutes has an empty timeline.
type Timeline []PositionInterval

// At returns the interval containing the given minute under [Start, End)
// semantics, or false if no interval contains it.
func (tl Timeline) At(minute float64) (PositionInterval, bool) {
	// First interval starting strictly after the minute; the candidate is the
	// one before it.
	i := sort.Search(len(tl), func(i int) bool { return tl[i].Start > minute })
	if i == 0 {
		return PositionInterval{}, false
	}
	iv := tl[i-1]
	if minute >= iv.Start && minute < iv.End {
		return iv, true
	}
	return PositionInterval{}, false
}

// Minutes returns the total minutes covered by the timeline.
func (tl Timeline) Minutes() float64 {
	var total float64
	for _, iv := range tl {
		total += iv.Duration()
	}
	return total
}

// ---- Aggregated statistics ----

// PositionTotals accumulates completed passes and minutes played for one
// position label.
type PositionTotals struct {
	Passes  int
	Minutes float64
}

// PassesPerMinute returns the derived rate, or 0 when no minutes were played.
func (t PositionTotals) PassesPerMinute() float64 {
	if t.Minutes <= 0 {
		return 0
	}
	return float64(t.Passes) / t.Minutes
}

// MatchDiagnostics counts soft anomalies found while processing one match.
type MatchDiagnostics struct {
	AttributionMisses int // completed passes with no covering interval
	MalformedEvents   int // events skipped or clamped for bad timestamps
}

// MatchResult maps position labels to totals for a single match.
type MatchResult struct {
	MatchID   MatchID
	Positions map[string]PositionTotals
	Diags     MatchDiagnostics
}

// AggregateResult maps position labels to totals accumulated across matches.
// Totals are summed; the passes-per-minute rate is always recomputed from the
// summed totals, never averaged across matches.
type AggregateResult struct {
	Positions map[string]PositionTotals

	MatchesProcessed  int
	MatchesSkipped    int
	AttributionMisses int
	MalformedEvents   int
}

// NewAggregateResult returns an empty aggregate ready to merge into.
func NewAggregateResult() AggregateResult {
	return AggregateResult{Positions: make(map[string]PositionTotals)}
}

// PositionRate is one report row: totals plus the recomputed rate.
type PositionRate struct {
	Position string
	Passes   int
	Minutes  float64
	Rate     float64
}

// RankByRate flattens position totals into rows sorted descending by
// passes-per-minute, ties broken by position name for stable output.
func RankByRate(positions map[string]PositionTotals) []PositionRate {
	rows := make([]PositionRate, 0, len(positions))
	for pos, t := range positions {
		rows = append(rows, PositionRate{
			Position: pos,
			Passes:   t.Passes,
			Minutes:  t.Minutes,
			Rate:     t.PassesPerMinute(),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Rate != rows[j].Rate {
			return rows[i].Rate > rows[j].Rate
		}
		return rows[i].Position < rows[j].Position
	})
	return rows
}

// ---- Catalog and match metadata ----

// CompetitionSeason is one (competition, season) entry of the source catalog.
type CompetitionSeason struct {
	CompetitionID   int
	SeasonID        int
	CompetitionName string
	SeasonName      string
	CountryName     string
	Year            int // first year of the season name, 0 if unparsable
}

// MatchStub is the per-match metadata from a competition's match listing.
type MatchStub struct {
	MatchID   MatchID
	MatchDate string
	HomeTeam  string
	AwayTeam  string
}

// TeamLineup is one team's full squad listing for a match, including unused
// substitutes.
type TeamLineup struct {
	TeamID   int
	TeamName string
	Players  []LineupPlayer
}

// LineupPlayer is one squad member in a team lineup.
type LineupPlayer struct {
	PlayerID     int
	Name         string
	JerseyNumber int
}
