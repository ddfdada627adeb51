// Package export implements the JSON import/export boundary.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"watchlog/internal/merge"
	"watchlog/internal/model"
	"watchlog/internal/store"
)

// Version is the export document format version.
const Version = "1.0"

// Document is the interchange format for backups and transfers.
type Document struct {
	Version    string                 `json:"version"`
	ExportDate time.Time              `json:"exportDate"`
	Records    []model.PlaybackRecord `json:"records"`
	Goals      []model.DailyGoal      `json:"goals"`
}

// Export writes all records and goal snapshots as a JSON document.
func Export(ctx context.Context, st *store.Store, w io.Writer) error {
	records, err := st.ListRecords(ctx, model.ListFilter{})
	if err != nil {
		return err
	}
	goals, err := st.ListDailyGoals(ctx)
	if err != nil {
		return err
	}
	doc := Document{
		Version:    Version,
		ExportDate: time.Now().UTC(),
		Records:    records,
		Goals:      goals,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Import reads a JSON document and upserts its records and goals.
// The document is validated in full before the first store write; a
// store failure mid-loop leaves already-saved entries in place.
func Import(ctx context.Context, st *store.Store, r io.Reader) (int, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return 0, fmt.Errorf("malformed import document: %w", err)
	}
	if doc.Version == "" {
		return 0, fmt.Errorf("import document has no version")
	}
	if doc.Records == nil {
		return 0, fmt.Errorf("import document has no records list")
	}
	for i := range doc.Records {
		rec := &doc.Records[i]
		if rec.SessionID == "" {
			rec.SessionID = uuid.NewString()
		}
		if rec.Title == "" {
			return 0, fmt.Errorf("record %d has no title", i)
		}
		if rec.Duration < 0 {
			return 0, fmt.Errorf("record %d has negative duration", i)
		}
		if rec.Date.IsZero() {
			return 0, fmt.Errorf("record %d has no date", i)
		}
		rec.URL = merge.CanonicalURL(rec.URL)
	}
	for _, g := range doc.Goals {
		if g.Date == "" {
			return 0, fmt.Errorf("goal snapshot has no date")
		}
		if _, err := time.Parse(model.DayKeyLayout, g.Date); err != nil {
			return 0, fmt.Errorf("goal snapshot has invalid date %q", g.Date)
		}
	}

	saved := 0
	for _, rec := range doc.Records {
		if err := st.SaveRecord(ctx, rec); err != nil {
			return saved, err
		}
		saved++
	}
	for _, g := range doc.Goals {
		if err := st.SaveDailyGoal(ctx, g); err != nil {
			return saved, err
		}
	}
	return saved, nil
}
