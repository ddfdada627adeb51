// Package goal resolves daily goal and visibility settings with
// carry-forward semantics.
package goal

import (
	"context"
	"sort"
	"time"

	"watchlog/internal/model"
	"watchlog/internal/store"
)

// Settings is the resolved goal and visibility state for one day.
// Every tracked language has an entry in both maps.
type Settings struct {
	Goals      map[model.Language]int
	Visibility map[model.Language]bool
}

// Defaults returns the goal set used when no snapshot exists: every
// language at zero minutes and visible.
func Defaults() Settings {
	s := Settings{
		Goals:      map[model.Language]int{},
		Visibility: map[model.Language]bool{},
	}
	for _, lang := range model.Languages() {
		s.Goals[lang] = 0
		s.Visibility[lang] = true
	}
	return s
}

// Resolve returns the settings in effect for a day: the most recent
// snapshot at or before it, or the defaults when none exists. Writes
// never rewrite history; carry-forward happens only at read time.
func Resolve(ctx context.Context, st *store.Store, date string) (Settings, error) {
	goals, err := st.ListDailyGoals(ctx)
	if err != nil {
		return Settings{}, err
	}
	return ResolveFrom(goals, date), nil
}

// ResolveFrom applies carry-forward resolution over an in-memory
// snapshot list, for callers that resolve many days from one load.
func ResolveFrom(goals []model.DailyGoal, date string) Settings {
	sorted := append([]model.DailyGoal(nil), goals...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})
	for _, g := range sorted {
		if g.Date <= date {
			return normalize(g)
		}
	}
	return Defaults()
}

// normalize fills defaults for languages absent from a stored snapshot.
// This is the single place absent-language fallbacks happen.
func normalize(g model.DailyGoal) Settings {
	s := Defaults()
	for lang, minutes := range g.Goals {
		if lang.Known() {
			s.Goals[lang] = minutes
		}
	}
	for lang, visible := range g.Visibility {
		if lang.Known() {
			s.Visibility[lang] = visible
		}
	}
	return s
}

// SetGoal updates one language's goal for a day, preserving every other
// language's current value by resolving the effective settings first.
func SetGoal(ctx context.Context, st *store.Store, date string, lang model.Language, minutes int) error {
	current, err := Resolve(ctx, st, date)
	if err != nil {
		return err
	}
	current.Goals[lang] = minutes
	return save(ctx, st, date, current)
}

// SetVisibility updates one language's visibility for a day, preserving
// every other language's current value.
func SetVisibility(ctx context.Context, st *store.Store, date string, lang model.Language, visible bool) error {
	current, err := Resolve(ctx, st, date)
	if err != nil {
		return err
	}
	current.Visibility[lang] = visible
	return save(ctx, st, date, current)
}

func save(ctx context.Context, st *store.Store, date string, s Settings) error {
	return st.SaveDailyGoal(ctx, model.DailyGoal{
		Date:       date,
		Goals:      s.Goals,
		Visibility: s.Visibility,
		UpdatedAt:  time.Now(),
	})
}
