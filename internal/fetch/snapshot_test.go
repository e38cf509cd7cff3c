package fetch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/narratives/internal/model"
)

const testSnapshot = `[
  {
    "timestamp": "2026-01-05T12:00:00+00:00",
    "source_type": "offchain",
    "source_subtype": "github",
    "entities": ["jupiter"],
    "text": "jup-ag/perps released v2",
    "url": "https://github.com/jup-ag/perps",
    "metrics": {"stars": 120, "is_release": true},
    "author": "jup-ag",
    "author_followers": 0,
    "content_hash": "abc"
  },
  {
    "timestamp": "2026-01-06T08:30:00.123456",
    "source_subtype": "tx_activity",
    "text": "TPS sample"
  }
]`

func TestReadSnapshot(t *testing.T) {
	events, err := ReadSnapshot(strings.NewReader(testSnapshot))
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	first := events[0]
	if !first.Timestamp.Equal(time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", first.Timestamp)
	}
	if first.ContentHash != "abc" {
		t.Errorf("existing hash replaced: %s", first.ContentHash)
	}
	if stars, _ := first.Metric("stars"); stars != 120 {
		t.Errorf("stars = %v", stars)
	}
	if !first.MetricBool("is_release") {
		t.Error("expected is_release")
	}

	second := events[1]
	if second.Domain != model.DomainOnchain {
		t.Errorf("domain not derived: %q", second.Domain)
	}
	if second.ContentHash == "" {
		t.Error("expected computed hash")
	}
	if second.Entities == nil {
		t.Error("expected non-nil entities")
	}
	if second.Timestamp.Location() != time.UTC || second.Timestamp.Hour() != 8 {
		t.Errorf("naive timestamp = %v", second.Timestamp)
	}
}

func TestReadSnapshotErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"unknown subtype", `[{"timestamp": "2026-01-05T12:00:00Z", "source_subtype": "telegram", "text": "x"}]`},
		{"bad timestamp", `[{"timestamp": "yesterday", "source_subtype": "forum", "text": "x"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadSnapshot(strings.NewReader(tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}

	var unknown *model.UnknownSubtypeError
	_, err := ReadSnapshot(strings.NewReader(tests[1].body))
	if !errors.As(err, &unknown) || unknown.Value != "telegram" {
		t.Errorf("expected UnknownSubtypeError, got %v", err)
	}
}

func TestLoadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(testSnapshot), 0644); err != nil {
		t.Fatal(err)
	}
	events, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d", len(events))
	}

	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
