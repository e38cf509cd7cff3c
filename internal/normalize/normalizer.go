// Package normalize resolves entity aliases and removes duplicate events.
package normalize

import (
	"sort"
	"strings"

	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/model"
)

const (
	// DefaultSimilarityThreshold is the fuzzy-duplicate cut-off.
	DefaultSimilarityThreshold = 0.85

	// comparePrefix is how many characters of text the fuzzy pass compares.
	comparePrefix = 200
)

// Normalizer canonicalises entities and deduplicates events.
type Normalizer struct {
	aliases   map[string]string // lower-cased alias or canonical -> canonical
	threshold float64
}

// New builds a Normalizer from a {canonical: [alias, ...]} table.
// A threshold <= 0 uses DefaultSimilarityThreshold.
func New(aliases map[string][]string, threshold float64) *Normalizer {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	m := make(map[string]string)
	for canonical, list := range aliases {
		c := strings.ToLower(strings.TrimSpace(canonical))
		m[c] = c
		for _, alias := range list {
			m[strings.ToLower(strings.TrimSpace(alias))] = c
		}
	}
	return &Normalizer{aliases: m, threshold: threshold}
}

// NormalizeEntity resolves name to its canonical form. Unknown names pass
// through lower-cased and trimmed.
func (n *Normalizer) NormalizeEntity(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := n.aliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// NormalizeEvents rewrites each event's entities through NormalizeEntity,
// dropping duplicates within an event. Inputs are not modified.
func (n *Normalizer) NormalizeEvents(events []model.SignalEvent) []model.SignalEvent {
	out := make([]model.SignalEvent, len(events))
	for i, e := range events {
		seen := make(map[string]bool, len(e.Entities))
		entities := make([]string, 0, len(e.Entities))
		for _, raw := range e.Entities {
			canonical := n.NormalizeEntity(raw)
			if canonical == "" || seen[canonical] {
				continue
			}
			seen[canonical] = true
			entities = append(entities, canonical)
		}
		sort.Strings(entities)
		e.Entities = entities
		if e.Domain == "" {
			e.Domain = e.Subtype.Domain()
		}
		out[i] = e.Rehash()
	}
	logging.Info("events_normalized", "count", len(out))
	return out
}

// Deduplicate removes exact duplicates (same content hash, first wins) and
// then near-duplicates within each subtype, and returns the survivors sorted
// by timestamp. The fuzzy pass is O(n²) per subtype.
func (n *Normalizer) Deduplicate(events []model.SignalEvent) []model.SignalEvent {
	if len(events) == 0 {
		return []model.SignalEvent{}
	}

	// Phase 1: exact hash
	seen := make(map[string]bool, len(events))
	exact := make([]model.SignalEvent, 0, len(events))
	for _, e := range events {
		e = e.EnsureHash()
		if seen[e.ContentHash] {
			continue
		}
		seen[e.ContentHash] = true
		exact = append(exact, e)
	}

	// Phase 2: fuzzy text similarity within a subtype, in original order
	var order []model.Subtype
	groups := make(map[model.Subtype][]model.SignalEvent)
	for _, e := range exact {
		if _, ok := groups[e.Subtype]; !ok {
			order = append(order, e.Subtype)
		}
		groups[e.Subtype] = append(groups[e.Subtype], e)
	}

	deduped := make([]model.SignalEvent, 0, len(exact))
	removedFuzzy := 0
	for _, subtype := range order {
		var kept []model.SignalEvent
		var keptText []string
		for _, e := range groups[subtype] {
			text := strings.ToLower(model.Prefix(e.Text, comparePrefix))
			if n.isNearDuplicate(text, keptText) {
				removedFuzzy++
				continue
			}
			kept = append(kept, e)
			keptText = append(keptText, text)
		}
		deduped = append(deduped, kept...)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Timestamp.Before(deduped[j].Timestamp)
	})

	logging.Info("deduplication_complete",
		"original", len(events),
		"after_exact", len(exact),
		"after_fuzzy", len(deduped),
		"removed_exact", len(events)-len(exact),
		"removed_fuzzy", removedFuzzy,
	)
	return deduped
}

func (n *Normalizer) isNearDuplicate(text string, kept []string) bool {
	for _, other := range kept {
		if Ratio(text, other) >= n.threshold {
			return true
		}
	}
	return false
}

// Process normalizes entities and then deduplicates.
func (n *Normalizer) Process(events []model.SignalEvent) []model.SignalEvent {
	return n.Deduplicate(n.NormalizeEvents(events))
}
