// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Language is a target language tracked by watchlog.
type Language string

// Tracked languages.
const (
	Cantonese Language = "cantonese"
	English   Language = "english"
	Japanese  Language = "japanese"
	Spanish   Language = "spanish"
)

// Languages returns all tracked languages in display order.
func Languages() []Language {
	return []Language{Cantonese, English, Japanese, Spanish}
}

// ParseLanguage parses a language code, case-insensitively.
func ParseLanguage(s string) (Language, error) {
	lang := Language(strings.ToLower(strings.TrimSpace(s)))
	if !lang.Known() {
		return "", fmt.Errorf("unknown language %q (available: cantonese, english, japanese, spanish)", s)
	}
	return lang, nil
}

// Known reports whether the language is one of the tracked set.
func (l Language) Known() bool {
	switch l {
	case Cantonese, English, Japanese, Spanish:
		return true
	}
	return false
}

// PlaybackRecord is a raw stored playback session.
type PlaybackRecord struct {
	SessionID   string    `json:"sessionId"`
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	ChannelName string    `json:"channelName,omitempty"`
	ChannelLogo string    `json:"channelLogo,omitempty"`
	Language    Language  `json:"language"`
	Duration    int64     `json:"duration"` // seconds
	Date        time.Time `json:"date"`
}

// End returns the end instant of the record's playback interval.
func (r PlaybackRecord) End() time.Time {
	return r.Date.Add(time.Duration(r.Duration) * time.Second)
}

// Segment is a single playback interval inside a display record.
type Segment struct {
	Start time.Time
	End   time.Time
}

// DisplayRecord is a derived viewing session: one or more playback records
// folded together for display. Never persisted; rebuilt on every pass.
type DisplayRecord struct {
	PlaybackRecord

	MergedSessionIDs []string
	TotalDuration    int64 // seconds, sum of constituents
	StartDate        time.Time
	SpanStart        time.Time
	SpanEnd          time.Time
	Segments         []Segment
	IsMerged         bool
}

// DailyGoal is the goal and visibility snapshot for one calendar day.
// Lookups for days without a snapshot carry forward the most recent
// snapshot at or before the day.
type DailyGoal struct {
	Date       string            `json:"date"` // "2006-01-02"
	Goals      map[Language]int  `json:"goals"`
	Visibility map[Language]bool `json:"visibility"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// DayKeyLayout is the calendar-day key format.
const DayKeyLayout = "2006-01-02"

// DayKey returns the local calendar date key for an instant.
func DayKey(t time.Time) string {
	return t.In(time.Local).Format(DayKeyLayout)
}

// ListFilter selects records for listing and reporting.
type ListFilter struct {
	Lang  Language
	Since *time.Time
}
