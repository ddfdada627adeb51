package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"watchlog/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "watchlog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestSaveRecordRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rec := model.PlaybackRecord{
		SessionID:   "s1",
		Title:       "Episode 3",
		URL:         "https://example.com/watch?v=abc",
		ChannelName: "Dreaming Spanish",
		ChannelLogo: "https://example.com/logo.png",
		Language:    model.Spanish,
		Duration:    1800,
		Date:        time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := st.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("save record: %v", err)
	}
	got, found, err := st.GetRecord(ctx, "s1")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if !found {
		t.Fatalf("expected record found")
	}
	if got.Title != rec.Title || got.ChannelName != rec.ChannelName || got.Language != rec.Language {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.Date.Equal(rec.Date) {
		t.Fatalf("expected date %v, got %v", rec.Date, got.Date)
	}
}

func TestSaveRecordUpsertsBySessionID(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rec := model.PlaybackRecord{
		SessionID: "s1",
		Title:     "before",
		Language:  model.English,
		Duration:  60,
		Date:      time.Now(),
	}
	if err := st.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("save record: %v", err)
	}
	rec.Title = "after"
	rec.Duration = 120
	if err := st.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("upsert record: %v", err)
	}
	records, err := st.ListRecords(ctx, model.ListFilter{})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record after upsert, got %d", len(records))
	}
	if records[0].Title != "after" || records[0].Duration != 120 {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestSaveRecordRejectsEmptyID(t *testing.T) {
	st := openTestStore(t)
	if err := st.SaveRecord(context.Background(), model.PlaybackRecord{Title: "x"}); err == nil {
		t.Fatalf("expected error for empty session id")
	}
}

func TestListRecordsOrderAndFilter(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fixtures := []model.PlaybackRecord{
		{SessionID: "c", Title: "c", Language: model.English, Duration: 60, Date: base.Add(48 * time.Hour)},
		{SessionID: "a", Title: "a", Language: model.Japanese, Duration: 60, Date: base},
		{SessionID: "b", Title: "b", Language: model.English, Duration: 60, Date: base.Add(24 * time.Hour)},
	}
	for _, rec := range fixtures {
		if err := st.SaveRecord(ctx, rec); err != nil {
			t.Fatalf("save record: %v", err)
		}
	}

	all, err := st.ListRecords(ctx, model.ListFilter{})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].SessionID != "a" || all[1].SessionID != "b" || all[2].SessionID != "c" {
		t.Fatalf("expected date-ascending order, got %v %v %v",
			all[0].SessionID, all[1].SessionID, all[2].SessionID)
	}

	since := base.Add(12 * time.Hour)
	filtered, err := st.ListRecords(ctx, model.ListFilter{Lang: model.English, Since: &since})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 filtered records, got %d", len(filtered))
	}
	if filtered[0].SessionID != "b" {
		t.Fatalf("expected b first, got %s", filtered[0].SessionID)
	}
}

func TestDeleteRecord(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rec := model.PlaybackRecord{SessionID: "s1", Title: "x", Language: model.English, Duration: 60, Date: time.Now()}
	if err := st.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("save record: %v", err)
	}
	if err := st.DeleteRecord(ctx, "s1"); err != nil {
		t.Fatalf("delete record: %v", err)
	}
	_, found, err := st.GetRecord(ctx, "s1")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if found {
		t.Fatalf("expected record deleted")
	}
}

func TestDailyGoalRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	goal := model.DailyGoal{
		Date:       "2024-03-01",
		Goals:      map[model.Language]int{model.English: 30, model.Japanese: 60},
		Visibility: map[model.Language]bool{model.Cantonese: false},
		UpdatedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := st.SaveDailyGoal(ctx, goal); err != nil {
		t.Fatalf("save goal: %v", err)
	}
	got, found, err := st.GetDailyGoal(ctx, "2024-03-01")
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if !found {
		t.Fatalf("expected goal found")
	}
	if got.Goals[model.English] != 30 || got.Goals[model.Japanese] != 60 {
		t.Fatalf("unexpected goals: %+v", got.Goals)
	}
	if got.Visibility[model.Cantonese] {
		t.Fatalf("expected cantonese hidden")
	}
	if !got.UpdatedAt.Equal(goal.UpdatedAt) {
		t.Fatalf("expected updated at %v, got %v", goal.UpdatedAt, got.UpdatedAt)
	}

	_, found, err = st.GetDailyGoal(ctx, "2024-03-02")
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if found {
		t.Fatalf("expected no goal for other day")
	}
}

func TestListDailyGoalsDescending(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	for _, date := range []string{"2024-01-01", "2024-02-01", "2024-01-15"} {
		goal := model.DailyGoal{
			Date:       date,
			Goals:      map[model.Language]int{},
			Visibility: map[model.Language]bool{},
			UpdatedAt:  time.Now(),
		}
		if err := st.SaveDailyGoal(ctx, goal); err != nil {
			t.Fatalf("save goal: %v", err)
		}
	}
	goals, err := st.ListDailyGoals(ctx)
	if err != nil {
		t.Fatalf("list goals: %v", err)
	}
	if len(goals) != 3 {
		t.Fatalf("expected 3 goals, got %d", len(goals))
	}
	if goals[0].Date != "2024-02-01" || goals[2].Date != "2024-01-01" {
		t.Fatalf("expected descending order, got %v %v %v",
			goals[0].Date, goals[1].Date, goals[2].Date)
	}
}
