package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abelbrown/narratives/internal/model"
)

// snapshotLayouts are the timestamp forms found in event snapshots.
// Timestamps without a zone are taken as UTC.
var snapshotLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

type snapshotEvent struct {
	model.SignalEvent
	Timestamp string `json:"timestamp"`
}

// LoadSnapshot reads a JSON array of events from path.
func LoadSnapshot(path string) ([]model.SignalEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	events, err := ReadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

// ReadSnapshot decodes a JSON array of events. Missing domains and content
// hashes are filled in; unknown subtypes are an error.
func ReadSnapshot(r io.Reader) ([]model.SignalEvent, error) {
	var raw []snapshotEvent
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	events := make([]model.SignalEvent, 0, len(raw))
	for i, se := range raw {
		ts, err := parseTimestamp(se.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		e := se.SignalEvent
		e.Timestamp = ts
		if e.Entities == nil {
			e.Entities = []string{}
		}
		events = append(events, e.EnsureHash())
	}
	return events, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range snapshotLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
