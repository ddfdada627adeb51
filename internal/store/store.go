// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"watchlog/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for playback records and daily goals.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			session_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			channel_name TEXT NOT NULL DEFAULT '',
			channel_logo TEXT NOT NULL DEFAULT '',
			lang TEXT NOT NULL,
			duration INTEGER NOT NULL,
			date TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS daily_goals (
			date TEXT PRIMARY KEY,
			goals TEXT NOT NULL,
			visibility TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_date ON records(date);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRecord inserts or replaces a playback record by session id.
func (s *Store) SaveRecord(ctx context.Context, rec model.PlaybackRecord) error {
	if rec.SessionID == "" {
		return fmt.Errorf("record has no session id")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (session_id, title, url, channel_name, channel_logo, lang, duration, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			channel_name = excluded.channel_name,
			channel_logo = excluded.channel_logo,
			lang = excluded.lang,
			duration = excluded.duration,
			date = excluded.date`,
		rec.SessionID,
		rec.Title,
		rec.URL,
		rec.ChannelName,
		rec.ChannelLogo,
		string(rec.Language),
		rec.Duration,
		rec.Date.Format(time.RFC3339Nano),
	)
	return err
}

// GetRecord loads one record by session id. The second result reports
// whether the record exists.
func (s *Store) GetRecord(ctx context.Context, sessionID string) (model.PlaybackRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, title, url, channel_name, channel_logo, lang, duration, date
		 FROM records WHERE session_id = ?`, sessionID)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlaybackRecord{}, false, nil
	}
	if err != nil {
		return model.PlaybackRecord{}, false, err
	}
	return rec, true, nil
}

// ListRecords returns records matching the filter, ordered by date ascending.
func (s *Store) ListRecords(ctx context.Context, filter model.ListFilter) ([]model.PlaybackRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Lang != "" {
		clauses = append(clauses, "lang = ?")
		args = append(args, string(filter.Lang))
	}
	if filter.Since != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT session_id, title, url, channel_name, channel_logo, lang, duration, date
		FROM records
		WHERE %s
		ORDER BY date ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.PlaybackRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteRecord removes one record by session id.
func (s *Store) DeleteRecord(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE session_id = ?`, sessionID)
	return err
}

// SaveDailyGoal inserts or replaces the goal snapshot for a day.
func (s *Store) SaveDailyGoal(ctx context.Context, goal model.DailyGoal) error {
	if goal.Date == "" {
		return fmt.Errorf("goal has no date")
	}
	goals, err := json.Marshal(goal.Goals)
	if err != nil {
		return err
	}
	visibility, err := json.Marshal(goal.Visibility)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO daily_goals (date, goals, visibility, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET
			goals = excluded.goals,
			visibility = excluded.visibility,
			updated_at = excluded.updated_at`,
		goal.Date,
		string(goals),
		string(visibility),
		goal.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// GetDailyGoal loads the goal snapshot stored for exactly the given day key.
func (s *Store) GetDailyGoal(ctx context.Context, date string) (model.DailyGoal, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT date, goals, visibility, updated_at FROM daily_goals WHERE date = ?`, date)
	goal, err := scanGoal(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DailyGoal{}, false, nil
	}
	if err != nil {
		return model.DailyGoal{}, false, err
	}
	return goal, true, nil
}

// ListDailyGoals returns all goal snapshots ordered by date descending.
func (s *Store) ListDailyGoals(ctx context.Context) ([]model.DailyGoal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, goals, visibility, updated_at FROM daily_goals ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var goals []model.DailyGoal
	for rows.Next() {
		goal, err := scanGoal(rows.Scan)
		if err != nil {
			return nil, err
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return goals, nil
}

func scanRecord(scan func(...any) error) (model.PlaybackRecord, error) {
	var rec model.PlaybackRecord
	var lang, date string
	if err := scan(&rec.SessionID, &rec.Title, &rec.URL, &rec.ChannelName, &rec.ChannelLogo, &lang, &rec.Duration, &date); err != nil {
		return model.PlaybackRecord{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return model.PlaybackRecord{}, err
	}
	rec.Language = model.Language(lang)
	rec.Date = parsed
	return rec, nil
}

func scanGoal(scan func(...any) error) (model.DailyGoal, error) {
	var goal model.DailyGoal
	var goals, visibility, updatedAt string
	if err := scan(&goal.Date, &goals, &visibility, &updatedAt); err != nil {
		return model.DailyGoal{}, err
	}
	if err := json.Unmarshal([]byte(goals), &goal.Goals); err != nil {
		return model.DailyGoal{}, err
	}
	if err := json.Unmarshal([]byte(visibility), &goal.Visibility); err != nil {
		return model.DailyGoal{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return model.DailyGoal{}, err
	}
	goal.UpdatedAt = parsed
	return goal, nil
}
