// Package catalog resolves user-supplied competition/season filters against
// the live competition catalog of the data source.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/passrate/go-pass-metrics/internal/model"
)

// ErrInvalidFilter marks a filter naming a competition or season that exists
// nowhere in the catalog. Surfaced to the caller, never silently dropped.
var ErrInvalidFilter = errors.New("catalog: invalid filter")

// Lister is the slice of the data client the catalog needs.
type Lister interface {
	Competitions(ctx context.Context) ([]model.CompetitionSeason, error)
}

// Filters select competition seasons. Empty id lists mean "all"; the year
// range bounds the season's starting year, inclusive on both ends.
type Filters struct {
	CompetitionIDs []int
	SeasonIDs      []int
	FromYear       int
	ToYear         int
}

// Resolve applies the filters as a conjunction over the live catalog and
// returns the matching entries ordered by (competition_id, season_id).
// Requested ids that match no catalog entry yield ErrInvalidFilter.
func Resolve(ctx context.Context, lister Lister, f Filters) ([]model.CompetitionSeason, error) {
	all, err := lister.Competitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	if f.ToYear == 0 {
		f.ToYear = int(^uint(0) >> 1) // unbounded
	}

	wantComp := toSet(f.CompetitionIDs)
	wantSeason := toSet(f.SeasonIDs)
	seenComp := make(map[int]bool)
	seenSeason := make(map[int]bool)

	var out []model.CompetitionSeason
	for _, cs := range all {
		if cs.Year == 0 {
			continue // season name carries no parsable year
		}
		if len(wantComp) > 0 && !wantComp[cs.CompetitionID] {
			continue
		}
		seenComp[cs.CompetitionID] = true
		if len(wantSeason) > 0 && !wantSeason[cs.SeasonID] {
			continue
		}
		seenSeason[cs.SeasonID] = true
		if cs.Year < f.FromYear || cs.Year > f.ToYear {
			continue
		}
		out = append(out, cs)
	}

	if missing := missingIDs(f.CompetitionIDs, seenComp); len(missing) > 0 {
		return nil, fmt.Errorf("unknown competition ids %v: %w", missing, ErrInvalidFilter)
	}
	if missing := missingIDs(f.SeasonIDs, seenSeason); len(missing) > 0 {
		return nil, fmt.Errorf("unknown season ids %v: %w", missing, ErrInvalidFilter)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CompetitionID != out[j].CompetitionID {
			return out[i].CompetitionID < out[j].CompetitionID
		}
		return out[i].SeasonID < out[j].SeasonID
	})
	return out, nil
}

// CacheKey derives the deterministic flat-store key for a filter set.
func CacheKey(f Filters) string {
	return fmt.Sprintf("comps=%s|seasons=%s|years=%d-%d",
		joinSorted(f.CompetitionIDs), joinSorted(f.SeasonIDs), f.FromYear, f.ToYear)
}

func toSet(ids []int) map[int]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func missingIDs(requested []int, seen map[int]bool) []int {
	var missing []int
	for _, id := range requested {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	sort.Ints(missing)
	return missing
}

func joinSorted(ids []int) string {
	if len(ids) == 0 {
		return "all"
	}
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
