package stats

import (
	"sort"

	"watchlog/internal/model"
)

// ChannelTotal aggregates watch time for one channel.
type ChannelTotal struct {
	Channel  string
	Seconds  int64
	Sessions int
}

// TopChannels returns the top N channels by total watch time. Records
// without a channel name are grouped under "(no channel)".
func TopChannels(records []model.PlaybackRecord, n int) []ChannelTotal {
	if n <= 0 || len(records) == 0 {
		return nil
	}
	totals := map[string]*ChannelTotal{}
	for _, rec := range records {
		name := rec.ChannelName
		if name == "" {
			name = "(no channel)"
		}
		if _, ok := totals[name]; !ok {
			totals[name] = &ChannelTotal{Channel: name}
		}
		totals[name].Seconds += rec.Duration
		totals[name].Sessions++
	}
	items := make([]ChannelTotal, 0, len(totals))
	for _, t := range totals {
		items = append(items, *t)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Seconds == items[j].Seconds {
			return items[i].Channel < items[j].Channel
		}
		return items[i].Seconds > items[j].Seconds
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
