package merge

import (
	"testing"
	"time"

	"watchlog/internal/model"
)

func record(id, channel, title string, lang model.Language, date time.Time, seconds int64) model.PlaybackRecord {
	return model.PlaybackRecord{
		SessionID:   id,
		Title:       title,
		ChannelName: channel,
		Language:    lang,
		Duration:    seconds,
		Date:        date,
	}
}

func TestKeyNormalizesCaseAndWhitespace(t *testing.T) {
	base := record("a", "Comprehensible Japanese", "Episode 12", model.Japanese, time.Now(), 60)
	variant := base
	variant.ChannelName = "  comprehensible JAPANESE "
	variant.Title = "EPISODE 12  "
	if Key(base) != Key(variant) {
		t.Fatalf("expected equal keys, got %q vs %q", Key(base), Key(variant))
	}
}

func TestKeyIgnoresURL(t *testing.T) {
	base := record("a", "ch", "title", model.English, time.Now(), 60)
	base.URL = "https://example.com/watch?v=abc&utm_source=share&t=120"
	variant := base
	variant.URL = "https://example.com/watch?t=0&v=abc"
	if Key(base) != Key(variant) {
		t.Fatalf("expected URL-decorated records to share a key")
	}
}

func TestKeySeparatesLanguages(t *testing.T) {
	a := record("a", "ch", "title", model.English, time.Now(), 60)
	b := record("b", "ch", "title", model.Spanish, time.Now(), 60)
	if Key(a) == Key(b) {
		t.Fatalf("expected different keys for different languages")
	}
}

func TestCanonicalURLStripsTrackingParams(t *testing.T) {
	in := "https://example.com/watch?v=abc&utm_source=share&fbclid=xyz&si=123"
	want := "https://example.com/watch?v=abc"
	if got := CanonicalURL(in); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	plain := "https://example.com/watch?v=abc"
	if got := CanonicalURL(plain); got != plain {
		t.Fatalf("expected untouched URL, got %q", got)
	}
	if got := CanonicalURL("  "); got != "" {
		t.Fatalf("expected empty result for blank input, got %q", got)
	}
}

func TestMergeDisabledYieldsSingletons(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	records := []model.PlaybackRecord{
		record("a", "ch", "title", model.English, start, 600),
		record("b", "ch", "title", model.English, start.Add(20*time.Minute), 300),
	}
	out := Merge(records, false)
	if len(out) != 2 {
		t.Fatalf("expected 2 display records, got %d", len(out))
	}
	for _, d := range out {
		if d.IsMerged {
			t.Fatalf("expected unmerged display record")
		}
		if len(d.Segments) != 1 {
			t.Fatalf("expected one segment, got %d", len(d.Segments))
		}
		if d.TotalDuration != d.Duration {
			t.Fatalf("expected total %d, got %d", d.Duration, d.TotalDuration)
		}
	}
}

func TestMergeSameDayAlwaysMerges(t *testing.T) {
	morning := time.Date(2024, 3, 1, 8, 0, 0, 0, time.Local)
	evening := time.Date(2024, 3, 1, 22, 0, 0, 0, time.Local)
	out := Merge([]model.PlaybackRecord{
		record("a", "ch", "title", model.English, morning, 600),
		record("b", "ch", "title", model.English, evening, 300),
	}, true)
	if len(out) != 1 {
		t.Fatalf("expected a 14-hour same-day gap to merge, got %d records", len(out))
	}
	if !out[0].IsMerged {
		t.Fatalf("expected merged flag set")
	}
}

func TestMergeCrossDayWithinTwoHours(t *testing.T) {
	late := time.Date(2024, 3, 1, 23, 30, 0, 0, time.Local)
	early := time.Date(2024, 3, 2, 0, 30, 0, 0, time.Local)
	out := Merge([]model.PlaybackRecord{
		record("a", "ch", "title", model.English, late, 600),
		record("b", "ch", "title", model.English, early, 300),
	}, true)
	if len(out) != 1 {
		t.Fatalf("expected a 1-hour cross-midnight gap to merge, got %d records", len(out))
	}
}

func TestMergeCrossDayBeyondTwoHours(t *testing.T) {
	late := time.Date(2024, 3, 1, 23, 0, 0, 0, time.Local)
	next := time.Date(2024, 3, 2, 10, 0, 0, 0, time.Local)
	out := Merge([]model.PlaybackRecord{
		record("a", "ch", "title", model.English, late, 600),
		record("b", "ch", "title", model.English, next, 300),
	}, true)
	if len(out) != 2 {
		t.Fatalf("expected an 11-hour cross-day gap to split, got %d records", len(out))
	}
}

func TestMergeKeyMismatchSplits(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	out := Merge([]model.PlaybackRecord{
		record("a", "ch", "title one", model.English, start, 600),
		record("b", "ch", "title two", model.English, start.Add(5*time.Minute), 300),
		record("c", "ch", "title one", model.English, start.Add(10*time.Minute), 100),
	}, true)
	if len(out) != 3 {
		t.Fatalf("expected interleaved titles to split into 3, got %d", len(out))
	}
}

func TestMergeDurationConservation(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	records := []model.PlaybackRecord{
		record("a", "ch", "title", model.English, start, 600),
		record("b", "ch", "title", model.English, start.Add(15*time.Minute), 300),
		record("c", "ch", "title", model.English, start.Add(40*time.Minute), 120),
		record("d", "ch", "other", model.English, start.Add(time.Hour), 90),
	}
	out := Merge(records, true)
	var total int64
	var segments int
	for _, d := range out {
		total += d.TotalDuration
		segments += len(d.Segments)
		if len(d.MergedSessionIDs) != len(d.Segments) {
			t.Fatalf("expected one segment per constituent, got %d ids and %d segments",
				len(d.MergedSessionIDs), len(d.Segments))
		}
	}
	if total != 600+300+120+90 {
		t.Fatalf("expected conserved duration 1110, got %d", total)
	}
	if segments != len(records) {
		t.Fatalf("expected %d segments in total, got %d", len(records), segments)
	}
}

func TestMergeSortsInputInternally(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	reversed := []model.PlaybackRecord{
		record("b", "ch", "title", model.English, start.Add(20*time.Minute), 300),
		record("a", "ch", "title", model.English, start, 600),
	}
	out := Merge(reversed, true)
	if len(out) != 1 {
		t.Fatalf("expected reversed input to merge, got %d records", len(out))
	}
	if out[0].MergedSessionIDs[0] != "a" {
		t.Fatalf("expected earliest record first, got %v", out[0].MergedSessionIDs)
	}
}

func TestMergeBackfillsChannelMetadata(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	first := record("a", "", "title", model.English, start, 600)
	second := record("b", "", "title", model.English, start.Add(10*time.Minute), 300)
	second.ChannelLogo = "https://example.com/logo.png"
	out := Merge([]model.PlaybackRecord{first, second}, true)
	if len(out) != 1 {
		t.Fatalf("expected one merged record, got %d", len(out))
	}
	if out[0].ChannelLogo != "https://example.com/logo.png" {
		t.Fatalf("expected channel logo backfilled, got %q", out[0].ChannelLogo)
	}
}

func TestMergeEndToEndScenario(t *testing.T) {
	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	second := time.Date(2024, 3, 1, 10, 20, 0, 0, time.UTC)
	out := Merge([]model.PlaybackRecord{
		record("a", "", "A", model.English, first, 600),
		record("b", "", "A", model.English, second, 300),
	}, true)
	if len(out) != 1 {
		t.Fatalf("expected one display record, got %d", len(out))
	}
	d := out[0]
	if d.TotalDuration != 900 {
		t.Fatalf("expected total 900, got %d", d.TotalDuration)
	}
	if len(d.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(d.Segments))
	}
	if !d.SpanStart.Equal(first) {
		t.Fatalf("expected span start %v, got %v", first, d.SpanStart)
	}
	wantEnd := second.Add(5 * time.Minute)
	if !d.SpanEnd.Equal(wantEnd) {
		t.Fatalf("expected span end %v, got %v", wantEnd, d.SpanEnd)
	}
	if !d.StartDate.Equal(first) {
		t.Fatalf("expected start date %v, got %v", first, d.StartDate)
	}
}

func TestMergeEmptyInput(t *testing.T) {
	if out := Merge(nil, true); out != nil {
		t.Fatalf("expected nil output for empty input, got %v", out)
	}
}
