package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/passrate/go-pass-metrics/internal/model"
	"github.com/passrate/go-pass-metrics/internal/statsbomb"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeSource serves canned matches: each match is one starter who plays the
// whole match at a fixed position and completes a known number of passes.
type fakeSource struct {
	passes map[model.MatchID]int    // completed passes per match
	pos    map[model.MatchID]string // starter's position per match
	fail   map[model.MatchID]error  // matches whose fetch fails
}

func (f *fakeSource) Events(_ context.Context, id model.MatchID) ([]model.Event, error) {
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	pos := f.pos[id]
	events := []model.Event{{
		Type:     model.EventStartingXI,
		TeamName: "Home",
		Tactics: &model.Tactics{Lineup: []model.LineupSlot{
			{PlayerID: int(id), Position: pos},
		}},
	}}
	for i := 0; i < f.passes[id]; i++ {
		events = append(events, model.Event{
			Type:     model.EventPass,
			Minute:   i % 90,
			PlayerID: int(id),
			Pass:     &model.Pass{Completed: true},
		})
	}
	events = append(events, model.Event{Type: "Half End", Minute: 90})
	return events, nil
}

func (f *fakeSource) Lineups(_ context.Context, id model.MatchID) ([]model.TeamLineup, error) {
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	return []model.TeamLineup{{
		TeamID:   1,
		TeamName: "Home",
		Players:  []model.LineupPlayer{{PlayerID: int(id)}},
	}}, nil
}

func unavailable(id model.MatchID) error {
	return fmt.Errorf("get events/%d: %w", int(id), statsbomb.ErrDataUnavailable)
}

func TestProcessMatch(t *testing.T) {
	src := &fakeSource{
		passes: map[model.MatchID]int{7: 12},
		pos:    map[model.MatchID]string{7: "Center Midfield"},
	}
	p := NewMatchProcessor(src, testLogger())

	res, err := p.ProcessMatch(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cm := res.Positions["Center Midfield"]
	if cm.Passes != 12 || cm.Minutes != 90 {
		t.Errorf("want 12 passes / 90 min, got %+v", cm)
	}
}

func TestProcessMatch_FetchFailureWrapsSentinel(t *testing.T) {
	src := &fakeSource{fail: map[model.MatchID]error{7: unavailable(7)}}
	p := NewMatchProcessor(src, testLogger())

	_, err := p.ProcessMatch(context.Background(), 7)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsDataUnavailable(err) {
		t.Errorf("error should wrap the data-unavailable sentinel: %v", err)
	}
}

func TestProcessCompetition_EmptyMatchSet(t *testing.T) {
	p := NewCompetitionProcessor(NewMatchProcessor(&fakeSource{}, testLogger()), 4, testLogger())

	agg, err := p.ProcessCompetition(context.Background(), 11, 4, nil)
	if err != nil {
		t.Fatalf("empty match set must not fail: %v", err)
	}
	if agg.MatchesProcessed != 0 || len(agg.Positions) != 0 {
		t.Errorf("want an empty aggregate, got %+v", agg)
	}
	if agg.Positions == nil {
		t.Error("positions map should be allocated")
	}
}

func TestProcessCompetition_SkipsFailedMatches(t *testing.T) {
	src := &fakeSource{
		passes: map[model.MatchID]int{1: 10, 2: 20, 3: 30},
		pos: map[model.MatchID]string{
			1: "Center Midfield", 2: "Center Midfield", 3: "Right Back",
		},
		fail: map[model.MatchID]error{2: unavailable(2)},
	}
	p := NewCompetitionProcessor(NewMatchProcessor(src, testLogger()), 2, testLogger())

	agg, err := p.ProcessCompetition(context.Background(), 11, 4, []model.MatchID{1, 2, 3})
	if err != nil {
		t.Fatalf("partial failure must not fail the run: %v", err)
	}
	if agg.MatchesProcessed != 2 || agg.MatchesSkipped != 1 {
		t.Errorf("want 2 processed / 1 skipped, got %+v", agg)
	}
	if got := agg.Positions["Center Midfield"].Passes; got != 10 {
		t.Errorf("skipped match leaked into totals: %d", got)
	}
	if got := agg.Positions["Right Back"].Passes; got != 30 {
		t.Errorf("Right Back passes: want 30, got %d", got)
	}
}

func TestProcessCompetition_AllMatchesFailed(t *testing.T) {
	src := &fakeSource{fail: map[model.MatchID]error{
		1: unavailable(1),
		2: unavailable(2),
	}}
	p := NewCompetitionProcessor(NewMatchProcessor(src, testLogger()), 2, testLogger())

	_, err := p.ProcessCompetition(context.Background(), 11, 4, []model.MatchID{1, 2})
	if err == nil {
		t.Fatal("expected failure when no match could be processed")
	}
	if !IsDataUnavailable(err) {
		t.Errorf("error should wrap the data-unavailable sentinel: %v", err)
	}
}

func TestProcessCompetition_DeterministicUnderShuffle(t *testing.T) {
	src := &fakeSource{
		passes: map[model.MatchID]int{},
		pos:    map[model.MatchID]string{},
	}
	ids := make([]model.MatchID, 0, 16)
	for i := 1; i <= 16; i++ {
		id := model.MatchID(i)
		src.passes[id] = i * 4
		if i%2 == 0 {
			src.pos[id] = "Center Midfield"
		} else {
			src.pos[id] = "Left Wing"
		}
		ids = append(ids, id)
	}
	p := NewCompetitionProcessor(NewMatchProcessor(src, testLogger()), 5, testLogger())

	base, err := p.ProcessCompetition(context.Background(), 11, 4, ids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 3; trial++ {
		shuffled := append([]model.MatchID(nil), ids...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		agg, err := p.ProcessCompetition(context.Background(), 11, 4, shuffled)
		if err != nil {
			t.Fatalf("trial %d: unexpected error: %v", trial, err)
		}
		if !reflect.DeepEqual(agg, base) {
			t.Fatalf("trial %d: submission order changed the aggregate:\n got %+v\nwant %+v", trial, agg, base)
		}
	}
}

func TestProcessCompetition_CancelledContext(t *testing.T) {
	src := &fakeSource{
		passes: map[model.MatchID]int{1: 10},
		pos:    map[model.MatchID]string{1: "Goalkeeper"},
	}
	p := NewCompetitionProcessor(NewMatchProcessor(src, testLogger()), 2, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg, err := p.ProcessCompetition(ctx, 11, 4, []model.MatchID{1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if agg.MatchesProcessed != 0 || len(agg.Positions) != 0 {
		t.Errorf("cancelled run must not expose a partial aggregate: %+v", agg)
	}
}
