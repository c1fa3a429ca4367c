package aggregator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pable/go-qb-stats/internal/model"
)

// ErrDuplicateKey is returned when a table that must be keyed uniquely is not.
var ErrDuplicateKey = errors.New("duplicate key")

// Aggregate sums every stat column per (season, passer id, passer name).
// Plays with a null key are dropped; null stat cells contribute 0. The result
// is sorted by key.
func Aggregate(plays []model.Play) []model.QBSeason {
	sums := make(map[model.Key]*model.Stats)
	for _, p := range plays {
		if !p.KeyValid {
			continue
		}
		s, ok := sums[p.Key]
		if !ok {
			s = &model.Stats{}
			sums[p.Key] = s
		}
		s.Pass += value(p.Pass)
		s.CompletePass += value(p.CompletePass)
		s.Interception += value(p.Interception)
		s.Sack += value(p.Sack)
		s.YardsGained += value(p.YardsGained)
		s.Touchdown += value(p.Touchdown)
	}

	out := make([]model.QBSeason, 0, len(sums))
	for k, s := range sums {
		out = append(out, model.QBSeason{Key: k, Stats: *s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

func value(f model.NullFloat) float64 {
	if !f.Valid {
		return 0
	}
	return f.Value
}

// Shift returns a copy of rows with every season moved forward by `by`.
func Shift(rows []model.QBSeason, by int) []model.QBSeason {
	out := make([]model.QBSeason, len(rows))
	for i, r := range rows {
		r.Season += by
		out[i] = r
	}
	return out
}

// LagJoin left-joins current to its own copy shifted forward one season, so
// each row carries the same quarterback's previous-season stats. Rows without
// a previous season keep Prev == nil. Output order and length match current.
func LagJoin(current []model.QBSeason) ([]model.LaggedSeason, error) {
	shifted := Shift(current, 1)

	// Index the shifted table by key; it inherits key uniqueness from current.
	prev := make(map[model.Key]model.Stats, len(shifted))
	for _, r := range shifted {
		if _, dup := prev[r.Key]; dup {
			return nil, fmt.Errorf("lag join: %s: %w", r.Key, ErrDuplicateKey)
		}
		prev[r.Key] = r.Stats
	}

	out := make([]model.LaggedSeason, len(current))
	for i, r := range current {
		out[i] = model.LaggedSeason{QBSeason: r}
		if s, ok := prev[r.Key]; ok {
			s := s
			out[i].Prev = &s
		}
	}
	return out, nil
}

// SeasonTotals rolls the aggregate table up to one row per season.
func SeasonTotals(rows []model.QBSeason) []model.SeasonTotals {
	bySeason := make(map[int]*model.SeasonTotals)
	for _, r := range rows {
		t, ok := bySeason[r.Season]
		if !ok {
			t = &model.SeasonTotals{Season: r.Season}
			bySeason[r.Season] = t
		}
		t.Passers++
		t.Pass += r.Pass
		t.Touchdown += r.Touchdown
		t.YardsGained += r.YardsGained
	}
	out := make([]model.SeasonTotals, 0, len(bySeason))
	for _, t := range bySeason {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Season < out[j].Season })
	return out
}
