// Package model defines the records exchanged between pipeline stages.
//
// Every type here is created fresh for each run. Stages treat events as
// values: they return new slices and never mutate the events they were given.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// hashTextPrefix is how much of the text participates in the content hash.
const hashTextPrefix = 200

// SignalEvent is one normalized observation from any data source.
type SignalEvent struct {
	Timestamp       time.Time      `json:"timestamp"`
	Domain          Domain         `json:"source_type"`
	Subtype         Subtype        `json:"source_subtype"`
	Entities        []string       `json:"entities"`
	Text            string         `json:"text"`
	URL             string         `json:"url,omitempty"`
	Metrics         map[string]any `json:"metrics,omitempty"`
	RawSource       string         `json:"raw_source,omitempty"`
	Author          string         `json:"author,omitempty"`
	AuthorFollowers int            `json:"author_followers,omitempty"`
	ContentHash     string         `json:"content_hash"`
}

// NewSignalEvent builds an event and fills in its domain and content hash.
func NewSignalEvent(ts time.Time, subtype Subtype, entities []string, text string) SignalEvent {
	e := SignalEvent{
		Timestamp: ts,
		Domain:    subtype.Domain(),
		Subtype:   subtype,
		Entities:  entities,
		Text:      text,
	}
	e.ContentHash = ComputeContentHash(e.Subtype, e.Text, e.Entities)
	return e
}

// ComputeContentHash digests (subtype, text prefix, sorted entities).
// Two events with the same digest are exact duplicates.
func ComputeContentHash(subtype Subtype, text string, entities []string) string {
	sorted := append([]string(nil), entities...)
	sort.Strings(sorted)

	content := string(subtype) + ":" + Prefix(text, hashTextPrefix) + ":" + strings.Join(sorted, ",")
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// Rehash recomputes the content hash after entities have been rewritten.
func (e SignalEvent) Rehash() SignalEvent {
	e.ContentHash = ComputeContentHash(e.Subtype, e.Text, e.Entities)
	return e
}

// EnsureHash fills in a missing hash and domain, leaving existing values alone.
func (e SignalEvent) EnsureHash() SignalEvent {
	if e.Domain == "" {
		e.Domain = e.Subtype.Domain()
	}
	if e.ContentHash == "" {
		e.ContentHash = ComputeContentHash(e.Subtype, e.Text, e.Entities)
	}
	return e
}

// IsOnchain reports whether the event is an on-chain observation.
func (e SignalEvent) IsOnchain() bool { return e.Domain == DomainOnchain }

// HasEntity reports whether the event mentions entity.
func (e SignalEvent) HasEntity(entity string) bool {
	for _, ent := range e.Entities {
		if ent == entity {
			return true
		}
	}
	return false
}

// Metric returns a numeric metric. Integers, floats and booleans are accepted
// so values decoded from JSON (always float64) and values built in code both work.
func (e SignalEvent) Metric(key string) (float64, bool) {
	v, ok := e.Metrics[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// MetricBool returns true when the metric is present and truthy.
func (e SignalEvent) MetricBool(key string) bool {
	v, ok := e.Metrics[key]
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b != ""
	}
	n, _ := e.Metric(key)
	return n != 0
}

// MetricString returns a string metric, or "" when absent.
func (e SignalEvent) MetricString(key string) string {
	if s, ok := e.Metrics[key].(string); ok {
		return s
	}
	return ""
}

// Prefix returns at most n runes of s.
func Prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
