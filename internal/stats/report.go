package stats

import (
	"context"
	"fmt"
	"io"

	"watchlog/internal/merge"
	"watchlog/internal/model"
	"watchlog/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Records  []model.PlaybackRecord
	Display  []model.DisplayRecord
	ByDay    map[string]map[model.Language]int64
	Totals   map[model.Language]int64
	Days     map[model.Language]int
	Channels []ChannelTotal
}

const topChannelCount = 10

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, filter model.ListFilter, mergeEnabled bool) (Report, error) {
	records, err := st.ListRecords(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Records:  records,
		Display:  merge.Merge(records, mergeEnabled),
		ByDay:    ByDay(records),
		Totals:   Totals(records),
		Days:     DaysWatched(records),
		Channels: TopChannels(records, topChannelCount),
	}, nil
}

// RenderSummary prints per-language totals as a table.
func RenderSummary(w io.Writer, report Report) error {
	if len(report.Records) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Sessions: %d (%d after merging)\n", len(report.Records), len(report.Display)); err != nil {
		return err
	}

	headers := []string{"Language", "Total", "Days", "Avg/Day"}
	rows := make([][]string, 0, len(report.Totals))
	for _, lang := range model.Languages() {
		seconds, ok := report.Totals[lang]
		if !ok {
			continue
		}
		days := report.Days[lang]
		avg := int64(0)
		if days > 0 {
			avg = seconds / int64(days)
		}
		rows = append(rows, []string{
			string(lang),
			FormatDuration(seconds),
			fmt.Sprintf("%d", days),
			FormatDuration(avg),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderSessions prints display sessions as a table, newest last.
func RenderSessions(w io.Writer, display []model.DisplayRecord) error {
	if len(display) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	headers := []string{"Date", "Title", "Channel", "Language", "Duration", "Parts"}
	rows := make([][]string, 0, len(display))
	for _, d := range display {
		rows = append(rows, []string{
			d.StartDate.Local().Format("2006-01-02 15:04"),
			d.Title,
			d.ChannelName,
			string(d.Language),
			FormatDuration(d.TotalDuration),
			fmt.Sprintf("%d", len(d.Segments)),
		})
	}
	rightAlign := map[int]bool{4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderChannels prints the top channels by watch time.
func RenderChannels(w io.Writer, channels []ChannelTotal) error {
	if len(channels) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Top Channels"); err != nil {
		return err
	}
	headers := []string{"Channel", "Watched", "Sessions"}
	rows := make([][]string, 0, len(channels))
	for _, c := range channels {
		rows = append(rows, []string{
			c.Channel,
			FormatDuration(c.Seconds),
			fmt.Sprintf("%d", c.Sessions),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderDaily prints per-language daily-minutes plots sized to a given
// total width.
func RenderDaily(w io.Writer, records []model.PlaybackRecord, totalWidth, height int, useColor bool) error {
	series := MinutesSeries(records)
	if len(series) == 0 {
		return nil
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Daily Minutes", series, width, height, useColor)
}

// FormatDuration renders seconds as "3h 25m" (or "12m", "45s").
func FormatDuration(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
