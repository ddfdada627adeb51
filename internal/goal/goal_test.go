package goal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"watchlog/internal/model"
	"watchlog/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "watchlog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestResolveDefaultsWhenEmpty(t *testing.T) {
	st := openTestStore(t)
	settings, err := Resolve(context.Background(), st, "2024-01-05")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, lang := range model.Languages() {
		if settings.Goals[lang] != 0 {
			t.Fatalf("expected zero default goal for %s, got %d", lang, settings.Goals[lang])
		}
		if !settings.Visibility[lang] {
			t.Fatalf("expected %s visible by default", lang)
		}
	}
}

func TestResolveCarryForward(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	snapshots := []model.DailyGoal{
		{
			Date:       "2024-01-01",
			Goals:      map[model.Language]int{model.English: 30},
			Visibility: map[model.Language]bool{},
			UpdatedAt:  time.Now(),
		},
		{
			Date:       "2024-01-10",
			Goals:      map[model.Language]int{model.English: 60},
			Visibility: map[model.Language]bool{},
			UpdatedAt:  time.Now(),
		},
	}
	for _, snap := range snapshots {
		if err := st.SaveDailyGoal(ctx, snap); err != nil {
			t.Fatalf("save goal: %v", err)
		}
	}

	mid, err := Resolve(ctx, st, "2024-01-05")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if mid.Goals[model.English] != 30 {
		t.Fatalf("expected the 2024-01-01 snapshot for 2024-01-05, got %d", mid.Goals[model.English])
	}

	after, err := Resolve(ctx, st, "2024-01-10")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if after.Goals[model.English] != 60 {
		t.Fatalf("expected the exact-date snapshot, got %d", after.Goals[model.English])
	}

	before, err := Resolve(ctx, st, "2023-12-31")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if before.Goals[model.English] != 0 {
		t.Fatalf("expected defaults before any snapshot, got %d", before.Goals[model.English])
	}
}

func TestResolveDefaultsAbsentVisibility(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	snap := model.DailyGoal{
		Date:       "2024-01-01",
		Goals:      map[model.Language]int{model.Japanese: 20},
		Visibility: map[model.Language]bool{model.Spanish: false},
		UpdatedAt:  time.Now(),
	}
	if err := st.SaveDailyGoal(ctx, snap); err != nil {
		t.Fatalf("save goal: %v", err)
	}
	settings, err := Resolve(ctx, st, "2024-01-02")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if settings.Visibility[model.Spanish] {
		t.Fatalf("expected spanish hidden")
	}
	if !settings.Visibility[model.Japanese] || !settings.Visibility[model.English] {
		t.Fatalf("expected languages absent from visibility to default to visible")
	}
}

func TestSetGoalPreservesSiblings(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := model.DailyGoal{
		Date: "2024-01-01",
		Goals: map[model.Language]int{
			model.English:  15,
			model.Japanese: 45,
		},
		Visibility: map[model.Language]bool{model.Cantonese: false},
		UpdatedAt:  time.Now(),
	}
	if err := st.SaveDailyGoal(ctx, base); err != nil {
		t.Fatalf("save goal: %v", err)
	}

	if err := SetGoal(ctx, st, "2024-01-05", model.English, 30); err != nil {
		t.Fatalf("set goal: %v", err)
	}

	settings, err := Resolve(ctx, st, "2024-01-05")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if settings.Goals[model.English] != 30 {
		t.Fatalf("expected english goal 30, got %d", settings.Goals[model.English])
	}
	if settings.Goals[model.Japanese] != 45 {
		t.Fatalf("expected japanese goal preserved, got %d", settings.Goals[model.Japanese])
	}
	if settings.Visibility[model.Cantonese] {
		t.Fatalf("expected cantonese visibility preserved")
	}

	// The earlier snapshot must not be rewritten.
	old, err := Resolve(ctx, st, "2024-01-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if old.Goals[model.English] != 15 {
		t.Fatalf("expected prior snapshot untouched, got %d", old.Goals[model.English])
	}
}

func TestSetVisibilityPreservesGoals(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := SetGoal(ctx, st, "2024-01-01", model.Spanish, 25); err != nil {
		t.Fatalf("set goal: %v", err)
	}
	if err := SetVisibility(ctx, st, "2024-01-01", model.Spanish, false); err != nil {
		t.Fatalf("set visibility: %v", err)
	}
	settings, err := Resolve(ctx, st, "2024-01-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if settings.Goals[model.Spanish] != 25 {
		t.Fatalf("expected goal preserved, got %d", settings.Goals[model.Spanish])
	}
	if settings.Visibility[model.Spanish] {
		t.Fatalf("expected spanish hidden")
	}
}

func TestResolveFromUnsortedSnapshots(t *testing.T) {
	goals := []model.DailyGoal{
		{Date: "2024-01-10", Goals: map[model.Language]int{model.English: 60}},
		{Date: "2024-01-01", Goals: map[model.Language]int{model.English: 30}},
	}
	settings := ResolveFrom(goals, "2024-01-05")
	if settings.Goals[model.English] != 30 {
		t.Fatalf("expected the older snapshot, got %d", settings.Goals[model.English])
	}
}
