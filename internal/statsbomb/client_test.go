package statsbomb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passrate/go-pass-metrics/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)

	c := NewClient(log)
	c.baseURL = srv.URL
	c.backoffBase = time.Millisecond
	return c
}

func serveJSON(t *testing.T, paths map[string]string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := paths[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	})
}

const eventsFixture = `[
	{
		"type": {"id": 35, "name": "Starting XI"},
		"minute": 0, "second": 0,
		"team": {"id": 217, "name": "Barcelona"},
		"tactics": {
			"formation": 442,
			"lineup": [
				{"player": {"id": 5503, "name": "Lionel Messi"}, "position": {"id": 17, "name": "Right Wing"}, "jersey_number": 10}
			]
		}
	},
	{
		"type": {"id": 30, "name": "Pass"},
		"minute": 12, "second": 30,
		"team": {"id": 217, "name": "Barcelona"},
		"player": {"id": 5503, "name": "Lionel Messi"},
		"position": {"id": 17, "name": "Right Wing"},
		"pass": {"recipient": {"id": 5211, "name": "Jordi Alba"}}
	},
	{
		"type": {"id": 30, "name": "Pass"},
		"minute": 20, "second": 0,
		"player": {"id": 5503, "name": "Lionel Messi"},
		"position": {"id": 17, "name": "Right Wing"},
		"pass": {"outcome": {"id": 9, "name": "Incomplete"}}
	},
	{
		"type": {"id": 19, "name": "Substitution"},
		"minute": 70, "second": 15,
		"team": {"id": 217, "name": "Barcelona"},
		"player": {"id": 5503, "name": "Lionel Messi"},
		"position": {"id": 17, "name": "Right Wing"},
		"substitution": {"outcome": {"id": 102, "name": "Tactical"}, "replacement": {"id": 6609, "name": "Ousmane Dembélé"}}
	}
]`

func TestEvents_Decode(t *testing.T) {
	c := newTestClient(t, serveJSON(t, map[string]string{"/events/15946.json": eventsFixture}))

	events, err := c.Events(context.Background(), 15946)
	require.NoError(t, err)
	require.Len(t, events, 4)

	xi := events[0]
	assert.Equal(t, model.EventStartingXI, xi.Type)
	require.NotNil(t, xi.Tactics)
	assert.Equal(t, 442, xi.Tactics.Formation)
	require.Len(t, xi.Tactics.Lineup, 1)
	assert.Equal(t, 5503, xi.Tactics.Lineup[0].PlayerID)
	assert.Equal(t, "Right Wing", xi.Tactics.Lineup[0].Position)

	completed := events[1]
	assert.Equal(t, model.EventPass, completed.Type)
	assert.Equal(t, 5503, completed.PlayerID)
	require.NotNil(t, completed.Pass)
	assert.True(t, completed.Pass.Completed, "pass without outcome object is completed")
	assert.Equal(t, 5211, completed.Pass.RecipientID)
	assert.InDelta(t, 12.5, completed.Clock(), 1e-9)

	failed := events[2]
	require.NotNil(t, failed.Pass)
	assert.False(t, failed.Pass.Completed, "pass with outcome object is not completed")

	sub := events[3]
	assert.Equal(t, model.EventSubstitution, sub.Type)
	assert.Equal(t, "Right Wing", sub.Position)
	require.NotNil(t, sub.Substitution)
	assert.Equal(t, 6609, sub.Substitution.ReplacementID)
	assert.Equal(t, "Tactical", sub.Substitution.Outcome)
}

func TestCompetitions_Decode(t *testing.T) {
	const fixture = `[
		{"competition_id": 11, "season_id": 4, "competition_name": "La Liga", "season_name": "2018/2019", "country_name": "Spain"},
		{"competition_id": 43, "season_id": 3, "competition_name": "FIFA World Cup", "season_name": "2018", "country_name": "International"},
		{"competition_id": 99, "season_id": 9, "competition_name": "Odd Cup", "season_name": "Unknown", "country_name": "Nowhere"}
	]`
	c := newTestClient(t, serveJSON(t, map[string]string{"/competitions.json": fixture}))

	entries, err := c.Competitions(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, 2018, entries[0].Year, "split season name yields its first year")
	assert.Equal(t, 2018, entries[1].Year)
	assert.Equal(t, 0, entries[2].Year, "unparsable season name yields 0")
	assert.Equal(t, "La Liga", entries[0].CompetitionName)
}

func TestMatches_Decode(t *testing.T) {
	const fixture = `[
		{"match_id": 15946, "match_date": "2018-08-18",
		 "home_team": {"home_team_name": "Barcelona"},
		 "away_team": {"away_team_name": "Alavés"}}
	]`
	c := newTestClient(t, serveJSON(t, map[string]string{"/matches/11/4.json": fixture}))

	matches, err := c.Matches(context.Background(), 11, 4)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, model.MatchID(15946), matches[0].MatchID)
	assert.Equal(t, "Barcelona", matches[0].HomeTeam)
	assert.Equal(t, "Alavés", matches[0].AwayTeam)
}

func TestLineups_Decode(t *testing.T) {
	const fixture = `[
		{"team_id": 217, "team_name": "Barcelona", "lineup": [
			{"player_id": 5503, "player_name": "Lionel Messi", "jersey_number": 10},
			{"player_id": 20055, "player_name": "Marc-André ter Stegen", "jersey_number": 1}
		]},
		{"team_id": 206, "team_name": "Alavés", "lineup": []}
	]`
	c := newTestClient(t, serveJSON(t, map[string]string{"/lineups/15946.json": fixture}))

	lineups, err := c.Lineups(context.Background(), 15946)
	require.NoError(t, err)
	require.Len(t, lineups, 2)
	assert.Equal(t, "Barcelona", lineups[0].TeamName)
	require.Len(t, lineups[0].Players, 2)
	assert.Equal(t, 5503, lineups[0].Players[0].PlayerID)
	assert.Empty(t, lineups[1].Players)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `[]`)
	})
	c := newTestClient(t, handler)

	_, err := c.Events(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load(), "two failures then success")
}

func TestGet_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, `[]`)
	})
	c := newTestClient(t, handler)

	_, err := c.Competitions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGet_NotFoundFailsFast(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	})
	c := newTestClient(t, handler)

	_, err := c.Events(context.Background(), 404404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataUnavailable))
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestGet_ExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, handler)

	_, err := c.Events(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataUnavailable))
	assert.Equal(t, int32(c.maxAttempts), calls.Load())
}

func TestGet_CancelledDuringBackoff(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newTestClient(t, handler)
	c.backoffBase = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Events(ctx, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestGet_MalformedBody(t *testing.T) {
	c := newTestClient(t, serveJSON(t, map[string]string{"/events/1.json": `{not json`}))

	_, err := c.Events(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataUnavailable))
}

func TestSeasonStartYear(t *testing.T) {
	cases := map[string]int{
		"2018/2019": 2018,
		"2018":      2018,
		"1970/1971": 1970,
		"Unknown":   0,
		"":          0,
	}
	for name, want := range cases {
		assert.Equal(t, want, seasonStartYear(name), "season name %q", name)
	}
}
