// Package merge folds consecutive playback records of the same video
// into display sessions.
package merge

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"watchlog/internal/model"
)

// crossDayGap is the largest start-to-start gap that still merges two
// records on different calendar days. Same-day records merge regardless
// of gap length.
const crossDayGap = 2 * time.Hour

// Key returns the normalized merge identity of a record: channel name,
// title, and language, lower-cased and trimmed. The URL is deliberately
// excluded so that tracking-parameter noise cannot split a session.
func Key(rec model.PlaybackRecord) string {
	channel := strings.ToLower(strings.TrimSpace(rec.ChannelName))
	title := strings.ToLower(strings.TrimSpace(rec.Title))
	return channel + "|" + title + "|" + string(rec.Language)
}

// trackingParams are query parameters stripped by CanonicalURL.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"si":           {},
	"feature":      {},
	"t":            {},
}

// CanonicalURL strips known tracking query parameters from a URL.
// Unparseable input is returned unchanged.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	values := u.Query()
	changed := false
	for name := range values {
		if _, ok := trackingParams[name]; ok {
			values.Del(name)
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = values.Encode()
	return u.String()
}

// Merge groups records into display sessions. Records are sorted by date
// internally, so callers may pass them in any order. With merging
// disabled every record becomes its own singleton display session.
func Merge(records []model.PlaybackRecord, enabled bool) []model.DisplayRecord {
	if len(records) == 0 {
		return nil
	}
	sorted := append([]model.PlaybackRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	if !enabled {
		out := make([]model.DisplayRecord, 0, len(sorted))
		for _, rec := range sorted {
			out = append(out, newDisplay(rec))
		}
		return out
	}

	var out []model.DisplayRecord
	current := newDisplay(sorted[0])
	currentKey := Key(sorted[0])
	last := sorted[0]
	for _, rec := range sorted[1:] {
		if Key(rec) == currentKey && canBridge(last, rec) {
			absorb(&current, rec)
			last = rec
			continue
		}
		out = append(out, finalize(current))
		current = newDisplay(rec)
		currentKey = Key(rec)
		last = rec
	}
	return append(out, finalize(current))
}

// canBridge reports whether rec may join a session whose last-merged
// record is prev. Same-day continuations always merge; crossing a
// calendar-day boundary merges only within crossDayGap.
func canBridge(prev, rec model.PlaybackRecord) bool {
	if model.DayKey(prev.Date) == model.DayKey(rec.Date) {
		return true
	}
	return rec.Date.Sub(prev.Date) <= crossDayGap
}

func newDisplay(rec model.PlaybackRecord) model.DisplayRecord {
	return model.DisplayRecord{
		PlaybackRecord:   rec,
		MergedSessionIDs: []string{rec.SessionID},
		TotalDuration:    rec.Duration,
		StartDate:        rec.Date,
		SpanStart:        rec.Date,
		SpanEnd:          rec.End(),
		Segments:         []model.Segment{{Start: rec.Date, End: rec.End()}},
	}
}

func absorb(dst *model.DisplayRecord, rec model.PlaybackRecord) {
	dst.MergedSessionIDs = append(dst.MergedSessionIDs, rec.SessionID)
	dst.TotalDuration += rec.Duration
	if rec.Date.Before(dst.StartDate) {
		dst.StartDate = rec.Date
	}
	if rec.Date.Before(dst.SpanStart) {
		dst.SpanStart = rec.Date
	}
	if rec.End().After(dst.SpanEnd) {
		dst.SpanEnd = rec.End()
	}
	dst.Segments = append(dst.Segments, model.Segment{Start: rec.Date, End: rec.End()})
	if dst.ChannelName == "" {
		dst.ChannelName = rec.ChannelName
	}
	if dst.ChannelLogo == "" {
		dst.ChannelLogo = rec.ChannelLogo
	}
}

// finalize stamps IsMerged on emission so intermediate state never
// leaks a half-built flag.
func finalize(d model.DisplayRecord) model.DisplayRecord {
	d.IsMerged = len(d.MergedSessionIDs) > 1
	return d
}
