package main

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/abelbrown/narratives/internal/fetch"
)

func TestWindowEnd(t *testing.T) {
	end, err := windowEnd("2026-01-14")
	if err != nil {
		t.Fatalf("windowEnd failed: %v", err)
	}
	if !end.Equal(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}

	if _, err := windowEnd("14/01/2026"); err == nil {
		t.Error("expected error for bad date")
	}

	now, err := windowEnd("")
	if err != nil || time.Since(now) > time.Minute {
		t.Errorf("default end = %v, %v", now, err)
	}
}

func TestParseSubtypes(t *testing.T) {
	got, err := parseSubtypes("github, rss_blog")
	if err != nil {
		t.Fatalf("parseSubtypes failed: %v", err)
	}
	if len(got) != 2 || got[0] != "github" || got[1] != "rss_blog" {
		t.Errorf("got %v", got)
	}

	if _, err := parseSubtypes("github,telegram"); err == nil {
		t.Error("expected error for unknown subtype")
	}
}

func TestCountFeedErrors(t *testing.T) {
	joined := errors.Join(
		&fetch.FeedError{Feed: "a", Err: errors.New("boom")},
		&fetch.FeedError{Feed: "b", Err: errors.New("boom")},
	)
	if n := countFeedErrors(joined); n != 2 {
		t.Errorf("joined = %d, want 2", n)
	}
	if n := countFeedErrors(nil); n != 0 {
		t.Errorf("nil = %d", n)
	}
	if n := countFeedErrors(fmt.Errorf("other")); n != 0 {
		t.Errorf("plain error = %d", n)
	}
}
