// Package statsbomb provides a minimal client for the StatsBomb open-data
// corpus published as raw JSON on GitHub.
package statsbomb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/passrate/go-pass-metrics/internal/model"
)

// defaultBaseURL is the root of the open-data repository's data directory.
const defaultBaseURL = "https://raw.githubusercontent.com/statsbomb/open-data/master/data"

// ErrDataUnavailable marks a fetch that failed after the retry policy was
// exhausted (or that cannot succeed at all, e.g. a missing match). Callers
// treat it as recoverable per match.
var ErrDataUnavailable = errors.New("statsbomb: data unavailable")

// Client fetches competition, match, lineup and event payloads.
type Client struct {
	baseURL     string
	http        *http.Client
	maxAttempts int
	backoffBase time.Duration
	log         logrus.FieldLogger
}

// NewClient returns a client for the public open-data repository.
func NewClient(log logrus.FieldLogger) *Client {
	return &Client{
		baseURL:     defaultBaseURL,
		http:        &http.Client{Timeout: 30 * time.Second},
		maxAttempts: 5,
		backoffBase: 250 * time.Millisecond,
		log:         log,
	}
}

// get fetches path and JSON-decodes the body into out, retrying transport
// errors, 5xx and 429 with capped exponential backoff plus jitter. Any other
// 4xx fails immediately. All failures wrap ErrDataUnavailable.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	url := c.baseURL + path
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("GET %s: %w", path, err)
		}

		resp, err := c.http.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode == http.StatusOK:
			err = json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("GET %s: decode: %v: %w", path, err, ErrDataUnavailable)
			}
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
		default:
			resp.Body.Close()
			return fmt.Errorf("GET %s: HTTP %d: %w", path, resp.StatusCode, ErrDataUnavailable)
		}

		c.log.WithFields(logrus.Fields{
			"path":    path,
			"attempt": attempt,
			"error":   lastErr,
		}).Warn("fetch failed, retrying")

		if attempt < c.maxAttempts {
			if err := sleep(ctx, backoff(c.backoffBase, attempt)); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("GET %s after %d attempts: %v: %w", path, c.maxAttempts, lastErr, ErrDataUnavailable)
}

// backoff returns base*2^attempt plus jitter, capped at 5s.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base*(1<<attempt) + time.Duration(rand.Int63n(int64(base)))
	if max := 5 * time.Second; d > max {
		d = max
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ---- Wire structs (subset of the open-data schema we need) ----

type wireCompetition struct {
	CompetitionID   int    `json:"competition_id"`
	SeasonID        int    `json:"season_id"`
	CompetitionName string `json:"competition_name"`
	SeasonName      string `json:"season_name"`
	CountryName     string `json:"country_name"`
}

type wireMatch struct {
	MatchID   int    `json:"match_id"`
	MatchDate string `json:"match_date"`
	HomeTeam  struct {
		Name string `json:"home_team_name"`
	} `json:"home_team"`
	AwayTeam struct {
		Name string `json:"away_team_name"`
	} `json:"away_team"`
}

type wireRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type wireEvent struct {
	Type     wireRef  `json:"type"`
	Minute   int      `json:"minute"`
	Second   int      `json:"second"`
	Team     *wireRef `json:"team"`
	Player   *wireRef `json:"player"`
	Position *wireRef `json:"position"`
	Tactics  *struct {
		Formation int `json:"formation"`
		Lineup    []struct {
			Player       wireRef `json:"player"`
			Position     wireRef `json:"position"`
			JerseyNumber int     `json:"jersey_number"`
		} `json:"lineup"`
	} `json:"tactics"`
	Substitution *struct {
		Outcome     wireRef `json:"outcome"`
		Replacement wireRef `json:"replacement"`
	} `json:"substitution"`
	Pass *struct {
		Outcome   *wireRef `json:"outcome"`
		Recipient *wireRef `json:"recipient"`
	} `json:"pass"`
}

type wireLineup struct {
	TeamID   int    `json:"team_id"`
	TeamName string `json:"team_name"`
	Lineup   []struct {
		PlayerID     int    `json:"player_id"`
		PlayerName   string `json:"player_name"`
		JerseyNumber int    `json:"jersey_number"`
	} `json:"lineup"`
}

// ---- API ----

// Competitions fetches the full competition/season catalog.
func (c *Client) Competitions(ctx context.Context) ([]model.CompetitionSeason, error) {
	var wire []wireCompetition
	if err := c.get(ctx, "/competitions.json", &wire); err != nil {
		return nil, err
	}
	out := make([]model.CompetitionSeason, 0, len(wire))
	for _, w := range wire {
		out = append(out, model.CompetitionSeason{
			CompetitionID:   w.CompetitionID,
			SeasonID:        w.SeasonID,
			CompetitionName: w.CompetitionName,
			SeasonName:      w.SeasonName,
			CountryName:     w.CountryName,
			Year:            seasonStartYear(w.SeasonName),
		})
	}
	return out, nil
}

// Matches lists the matches of one competition season.
func (c *Client) Matches(ctx context.Context, competitionID, seasonID int) ([]model.MatchStub, error) {
	var wire []wireMatch
	path := fmt.Sprintf("/matches/%d/%d.json", competitionID, seasonID)
	if err := c.get(ctx, path, &wire); err != nil {
		return nil, err
	}
	out := make([]model.MatchStub, 0, len(wire))
	for _, w := range wire {
		out = append(out, model.MatchStub{
			MatchID:   model.MatchID(w.MatchID),
			MatchDate: w.MatchDate,
			HomeTeam:  w.HomeTeam.Name,
			AwayTeam:  w.AwayTeam.Name,
		})
	}
	return out, nil
}

// Events fetches the ordered event stream of one match.
func (c *Client) Events(ctx context.Context, id model.MatchID) ([]model.Event, error) {
	var wire []wireEvent
	if err := c.get(ctx, fmt.Sprintf("/events/%d.json", int(id)), &wire); err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(wire))
	for _, w := range wire {
		out = append(out, decodeEvent(w))
	}
	return out, nil
}

// Lineups fetches both teams' squad listings for one match.
func (c *Client) Lineups(ctx context.Context, id model.MatchID) ([]model.TeamLineup, error) {
	var wire []wireLineup
	if err := c.get(ctx, fmt.Sprintf("/lineups/%d.json", int(id)), &wire); err != nil {
		return nil, err
	}
	out := make([]model.TeamLineup, 0, len(wire))
	for _, w := range wire {
		tl := model.TeamLineup{TeamID: w.TeamID, TeamName: w.TeamName}
		for _, p := range w.Lineup {
			tl.Players = append(tl.Players, model.LineupPlayer{
				PlayerID:     p.PlayerID,
				Name:         p.PlayerName,
				JerseyNumber: p.JerseyNumber,
			})
		}
		out = append(out, tl)
	}
	return out, nil
}

// decodeEvent maps a wire event onto the tagged model.Event variant.
func decodeEvent(w wireEvent) model.Event {
	ev := model.Event{
		Type:   w.Type.Name,
		Minute: w.Minute,
		Second: w.Second,
	}
	if w.Team != nil {
		ev.TeamName = w.Team.Name
	}
	if w.Player != nil {
		ev.PlayerID = w.Player.ID
	}
	if w.Position != nil {
		ev.Position = w.Position.Name
	}
	if w.Tactics != nil {
		t := &model.Tactics{Formation: w.Tactics.Formation}
		for _, slot := range w.Tactics.Lineup {
			t.Lineup = append(t.Lineup, model.LineupSlot{
				PlayerID:   slot.Player.ID,
				PlayerName: slot.Player.Name,
				Position:   slot.Position.Name,
				Jersey:     slot.JerseyNumber,
			})
		}
		ev.Tactics = t
	}
	if w.Substitution != nil {
		ev.Substitution = &model.Substitution{
			ReplacementID:   w.Substitution.Replacement.ID,
			ReplacementName: w.Substitution.Replacement.Name,
			Outcome:         w.Substitution.Outcome.Name,
		}
	}
	if w.Pass != nil {
		// No outcome object means the pass was completed.
		ev.Pass = &model.Pass{Completed: w.Pass.Outcome == nil}
		if w.Pass.Recipient != nil {
			ev.Pass.RecipientID = w.Pass.Recipient.ID
		}
	}
	return ev
}

// seasonStartYear parses the first year out of a season name such as
// "2018/2019" or "2018". Returns 0 when the name has no leading year.
func seasonStartYear(name string) int {
	first := name
	if i := strings.IndexByte(name, '/'); i >= 0 {
		first = name[:i]
	}
	year, err := strconv.Atoi(first)
	if err != nil {
		return 0
	}
	return year
}
