// Package filter provides pure filter functions for signal events.
// All functions are simple: []SignalEvent in, []SignalEvent out. No side effects.
package filter

import (
	"sort"
	"time"

	"github.com/abelbrown/narratives/internal/model"
)

// Between keeps events with start <= Timestamp < end.
func Between(events []model.SignalEvent, start, end time.Time) []model.SignalEvent {
	if len(events) == 0 {
		return []model.SignalEvent{}
	}

	result := make([]model.SignalEvent, 0, len(events))
	for _, e := range events {
		if !e.Timestamp.Before(start) && e.Timestamp.Before(end) {
			result = append(result, e)
		}
	}

	return result
}

// BySubtype keeps only events of the given subtypes.
func BySubtype(events []model.SignalEvent, subtypes []model.Subtype) []model.SignalEvent {
	if len(events) == 0 || len(subtypes) == 0 {
		return []model.SignalEvent{}
	}

	// Build a set of allowed subtypes for O(1) lookup
	allowed := make(map[model.Subtype]bool, len(subtypes))
	for _, s := range subtypes {
		allowed[s] = true
	}

	result := make([]model.SignalEvent, 0, len(events))
	for _, e := range events {
		if allowed[e.Subtype] {
			result = append(result, e)
		}
	}

	return result
}

// SharingEntities keeps events naming at least one of entities.
// The result is never nil, so callers can tell "no matches" from "no data".
func SharingEntities(events []model.SignalEvent, entities []string) []model.SignalEvent {
	if len(events) == 0 || len(entities) == 0 {
		return []model.SignalEvent{}
	}

	wanted := make(map[string]bool, len(entities))
	for _, ent := range entities {
		wanted[ent] = true
	}

	result := make([]model.SignalEvent, 0)
	for _, e := range events {
		for _, ent := range e.Entities {
			if wanted[ent] {
				result = append(result, e)
				break
			}
		}
	}

	return result
}

// DedupURL removes events with a URL already seen. First occurrence wins;
// events without a URL are always kept.
func DedupURL(events []model.SignalEvent) []model.SignalEvent {
	if len(events) == 0 {
		return []model.SignalEvent{}
	}

	seen := make(map[string]bool)
	result := make([]model.SignalEvent, 0, len(events))
	for _, e := range events {
		if e.URL != "" {
			if seen[e.URL] {
				continue
			}
			seen[e.URL] = true
		}
		result = append(result, e)
	}

	return result
}

// sourceKey groups events by raw source, falling back to subtype.
func sourceKey(e model.SignalEvent) string {
	if e.RawSource != "" {
		return e.RawSource
	}
	return string(e.Subtype)
}

// LimitPerSource caps the number of events per source.
// Keeps the most recent events for each source.
// The result is sorted by Timestamp DESC to ensure deterministic order.
func LimitPerSource(events []model.SignalEvent, maxPerSource int) []model.SignalEvent {
	if len(events) == 0 || maxPerSource <= 0 {
		return []model.SignalEvent{}
	}

	// Group events by source
	bySource := make(map[string][]model.SignalEvent)
	for _, e := range events {
		key := sourceKey(e)
		bySource[key] = append(bySource[key], e)
	}

	result := make([]model.SignalEvent, 0, len(events))
	for _, sourceEvents := range bySource {
		sort.SliceStable(sourceEvents, func(i, j int) bool {
			return sourceEvents[i].Timestamp.After(sourceEvents[j].Timestamp)
		})
		result = append(result, sourceEvents[:min(maxPerSource, len(sourceEvents))]...)
	}

	// Map iteration order is random, so sort again; ties by content hash
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.After(result[j].Timestamp)
		}
		return result[i].ContentHash < result[j].ContentHash
	})

	return result
}
