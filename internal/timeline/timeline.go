// Package timeline reconstructs, for every player of a match, the ordered
// position intervals they occupied, from the lineup and the event stream.
package timeline

import (
	"github.com/passrate/go-pass-metrics/internal/model"
)

// Result holds the per-player timelines plus a count of events whose
// timestamps had to be clamped or skipped.
type Result struct {
	Timelines map[int]model.Timeline
	Malformed int
}

// MatchDuration returns the match's last recorded minute: the maximum event
// timestamp across the stream, which folds stoppage time into the total. A
// match that ended early ends at its last event; 90 is only the empty-stream
// default.
func MatchDuration(events []model.Event) float64 {
	if len(events) == 0 {
		return 90
	}
	var duration float64
	for _, ev := range events {
		if t := ev.Clock(); t > duration {
			duration = t
		}
	}
	return duration
}

// builder tracks one open interval per on-pitch player while replaying the
// event stream in order.
type builder struct {
	open      map[int]openInterval
	done      map[int]model.Timeline
	duration  float64
	malformed int
}

type openInterval struct {
	position string
	team     string
	start    float64
}

// Build replays the event stream and returns every player's closed position
// intervals. Squad players from the lineups that never appear keep an empty
// timeline. Out-of-order or out-of-range timestamps are clamped to the
// surrounding valid boundary and counted, never fatal.
func Build(lineups []model.TeamLineup, events []model.Event, duration float64) Result {
	b := &builder{
		open:     make(map[int]openInterval),
		done:     make(map[int]model.Timeline),
		duration: duration,
	}

	// Seed the full squads so unused substitutes are represented with empty
	// timelines and contribute no minutes.
	for _, tl := range lineups {
		for _, p := range tl.Players {
			if _, ok := b.done[p.PlayerID]; !ok {
				b.done[p.PlayerID] = nil
			}
		}
	}

	for _, ev := range events {
		switch ev.Type {
		case model.EventStartingXI:
			b.startingXI(ev)
			continue
		case model.EventSubstitution:
			b.substitution(ev)
			continue
		}
		if ev.PlayerID != 0 && ev.Position != "" {
			b.reposition(ev)
		}
	}

	b.finalize()
	return Result{Timelines: b.done, Malformed: b.malformed}
}

// startingXI opens an interval at minute 0 for each starter.
func (b *builder) startingXI(ev model.Event) {
	if ev.Tactics == nil {
		b.malformed++
		return
	}
	for _, slot := range ev.Tactics.Lineup {
		b.open[slot.PlayerID] = openInterval{
			position: slot.Position,
			team:     ev.TeamName,
			start:    0,
		}
	}
}

// substitution closes the outgoing player's interval and opens one for the
// replacement at the position recorded on the event (the vacated slot by
// default). A substitution for an untracked player is skipped.
func (b *builder) substitution(ev model.Event) {
	if ev.Substitution == nil || ev.PlayerID == 0 {
		b.malformed++
		return
	}
	out, ok := b.open[ev.PlayerID]
	if !ok {
		b.malformed++
		return
	}

	minute := b.clamp(ev.Clock(), out.start)

	position := ev.Position
	if position == "" {
		position = out.position
	}

	b.close(ev.PlayerID, out, minute)

	// Inconsistent feed: the incoming player is already on the pitch. Close
	// their open interval instead of discarding its minutes.
	if prev, ok := b.open[ev.Substitution.ReplacementID]; ok {
		b.malformed++
		end := minute
		if end < prev.start {
			end = prev.start
		}
		b.close(ev.Substitution.ReplacementID, prev, end)
	}

	b.open[ev.Substitution.ReplacementID] = openInterval{
		position: position,
		team:     ev.TeamName,
		start:    minute,
	}
}

// reposition closes the player's current interval and opens a new one at the
// same minute when an event shows them at a different position.
func (b *builder) reposition(ev model.Event) {
	cur, ok := b.open[ev.PlayerID]
	if !ok || cur.position == ev.Position {
		return
	}
	minute := b.clamp(ev.Clock(), cur.start)
	b.close(ev.PlayerID, cur, minute)
	b.open[ev.PlayerID] = openInterval{
		position: ev.Position,
		team:     cur.team,
		start:    minute,
	}
}

// clamp bounds an event timestamp to [floor, duration], counting any
// adjustment as a malformed event.
func (b *builder) clamp(t, floor float64) float64 {
	switch {
	case t < floor:
		b.malformed++
		return floor
	case t > b.duration:
		b.malformed++
		return b.duration
	}
	return t
}

// close appends the closed interval to the player's timeline and removes the
// open slot. Zero-length intervals are kept; they carry no minutes.
func (b *builder) close(playerID int, iv openInterval, end float64) {
	b.done[playerID] = append(b.done[playerID], model.PositionInterval{
		Position: iv.position,
		Team:     iv.team,
		Start:    iv.start,
		End:      end,
	})
	delete(b.open, playerID)
}

// finalize closes every still-open interval at full time.
func (b *builder) finalize() {
	for playerID, iv := range b.open {
		end := b.duration
		if iv.start > end {
			b.malformed++
			end = iv.start
		}
		b.done[playerID] = append(b.done[playerID], model.PositionInterval{
			Position: iv.position,
			Team:     iv.team,
			Start:    iv.start,
			End:      end,
		})
	}
	b.open = nil
}
