// Package stats contains aggregation calculations and reporting.
package stats

import (
	"time"

	"watchlog/internal/model"
)

// ByDay sums raw record durations per local calendar day and language.
// Day totals are always computed from raw records, never display
// sessions, so a session split across midnight still credits each day.
// Records with unknown language tags are skipped, not rejected.
func ByDay(records []model.PlaybackRecord) map[string]map[model.Language]int64 {
	out := map[string]map[model.Language]int64{}
	for _, rec := range records {
		if !rec.Language.Known() {
			continue
		}
		day := model.DayKey(rec.Date)
		if _, ok := out[day]; !ok {
			out[day] = map[model.Language]int64{}
		}
		out[day][rec.Language] += rec.Duration
	}
	return out
}

// Totals sums raw record durations per language across all days.
func Totals(records []model.PlaybackRecord) map[model.Language]int64 {
	out := map[model.Language]int64{}
	for _, rec := range records {
		if !rec.Language.Known() {
			continue
		}
		out[rec.Language] += rec.Duration
	}
	return out
}

// Achieved reports whether a day's watch time meets the goal. Whole
// minutes only, and a zero or unset goal is never achieved.
func Achieved(seconds int64, goalMinutes int) bool {
	if goalMinutes <= 0 {
		return false
	}
	return seconds/60 >= int64(goalMinutes)
}

// DayRange lists every day key from the earliest record's day through
// the latest record's day, inclusive, so plots have no missing days.
func DayRange(records []model.PlaybackRecord) []string {
	if len(records) == 0 {
		return nil
	}
	first := records[0].Date
	last := records[0].Date
	for _, rec := range records[1:] {
		if rec.Date.Before(first) {
			first = rec.Date
		}
		if rec.Date.After(last) {
			last = rec.Date
		}
	}
	firstDay := first.In(time.Local)
	firstDay = time.Date(firstDay.Year(), firstDay.Month(), firstDay.Day(), 0, 0, 0, 0, time.Local)
	lastKey := model.DayKey(last)

	var days []string
	for d := firstDay; ; d = d.AddDate(0, 0, 1) {
		key := model.DayKey(d)
		days = append(days, key)
		if key == lastKey {
			break
		}
	}
	return days
}

// MinutesSeries builds one per-day minutes series per language that has
// any watch time, over the full day range of the records.
func MinutesSeries(records []model.PlaybackRecord) []Series {
	byDay := ByDay(records)
	days := DayRange(records)
	var out []Series
	for _, lang := range model.Languages() {
		values := make([]float64, len(days))
		seen := false
		for i, day := range days {
			seconds := byDay[day][lang]
			if seconds > 0 {
				seen = true
			}
			values[i] = float64(seconds) / 60.0
		}
		if seen {
			out = append(out, Series{Name: string(lang), Values: values})
		}
	}
	return out
}

// DaysWatched counts distinct days with any watch time per language.
func DaysWatched(records []model.PlaybackRecord) map[model.Language]int {
	byDay := ByDay(records)
	out := map[model.Language]int{}
	for _, langs := range byDay {
		for lang, seconds := range langs {
			if seconds > 0 {
				out[lang]++
			}
		}
	}
	return out
}
