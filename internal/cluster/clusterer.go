// Package cluster groups normalized events into narrative candidates using an
// entity co-occurrence graph and TF-IDF text clustering.
package cluster

import (
	"fmt"
	"sort"

	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/model"
)

const (
	// minClusterEvents is the fewest events a candidate may start with.
	minClusterEvents = 3

	// maxKeywords is how many keywords are extracted per candidate.
	maxKeywords = 20

	// keptKeywords is how many keywords a candidate carries.
	keptKeywords = 10

	// extraClusters is added to max narratives to get the candidate cap.
	extraClusters = 5
)

// Clusterer generates narrative candidates. It holds only configuration and
// is safe to reuse across runs.
type Clusterer struct {
	maxClusters    int
	fallbackEntity string
}

// New returns a Clusterer that keeps at most maxNarratives+5 candidates and
// ignores fallbackEntity when building the co-occurrence graph.
func New(maxNarratives int, fallbackEntity string) *Clusterer {
	return &Clusterer{
		maxClusters:    maxNarratives + extraClusters,
		fallbackEntity: fallbackEntity,
	}
}

// GenerateCandidates partitions events into narrative candidates.
//
// Fewer than three events yield a single fallback candidate (none for no
// events). Otherwise entity clusters are formed first and text clusters pick
// up the events they left over. Text clustering failures degrade to one
// cluster of all events and are never returned to the caller.
func (c *Clusterer) GenerateCandidates(events []model.SignalEvent) []model.NarrativeCandidate {
	if len(events) < minClusterEvents {
		if len(events) > 0 {
			logging.Warn("too_few_events", "count", len(events))
		}
		return c.fallback(events)
	}

	entityClusters := buildGraph(events, c.fallbackEntity).components()
	logging.Info("entity_clusters", "cluster_count", len(entityClusters))

	textClusters, err := c.textClusters(events)
	if err != nil {
		logging.Warn("clustering_failed", "error", err)
		textClusters = [][]int{allIndices(len(events))}
	} else {
		logging.Info("text_clusters", "cluster_count", len(textClusters))
	}

	candidates := c.merge(entityClusters, textClusters, events)
	for i := range candidates {
		c.enrich(&candidates[i])
	}

	logging.Info("candidates_generated", "count", len(candidates))
	return candidates
}

// textClusters groups event indices by TF-IDF cosine distance. Groups with a
// single member are dropped.
func (c *Clusterer) textClusters(events []model.SignalEvent) (clusters [][]int, err error) {
	defer func() {
		if r := recover(); r != nil {
			clusters, err = nil, fmt.Errorf("text clustering panicked: %v", r)
		}
	}()

	docs := make([]string, len(events))
	for i, e := range events {
		docs[i] = preprocess(e.Text)
	}
	vectors, err := vectorize(docs)
	if err != nil {
		return nil, fmt.Errorf("vectorize: %w", err)
	}

	k := max(2, len(events)/5)
	k = min(c.maxClusters, k)
	groups, err := averageLinkage(vectors.distances(), k)
	if err != nil {
		return nil, fmt.Errorf("average linkage: %w", err)
	}

	for _, g := range groups {
		if len(g) >= 2 {
			clusters = append(clusters, g)
		}
	}
	return clusters, nil
}

// merge turns entity clusters and text clusters into candidates. Events
// matched by an entity cluster are consumed; text clusters only use the
// rest and fold into an existing candidate when at least half of their
// entities are already there.
func (c *Clusterer) merge(entityClusters [][]string, textClusters [][]int, events []model.SignalEvent) []model.NarrativeCandidate {
	var candidates []model.NarrativeCandidate
	used := make(map[int]bool)

	for i, cluster := range entityClusters {
		set := toSet(cluster)
		var matching []model.SignalEvent
		for idx, e := range events {
			if intersects(set, e.Entities) {
				matching = append(matching, e)
				used[idx] = true
			}
		}
		if len(matching) < minClusterEvents {
			continue
		}
		candidates = append(candidates, model.NarrativeCandidate{
			ID:       fmt.Sprintf("entity_%d", i),
			Events:   matching,
			Entities: orderEntities(cluster, matching, c.fallbackEntity),
		})
	}

	for i, indices := range textClusters {
		var clusterEvents []model.SignalEvent
		for _, idx := range indices {
			if !used[idx] {
				clusterEvents = append(clusterEvents, events[idx])
			}
		}
		if len(clusterEvents) < minClusterEvents {
			continue
		}

		entities := unionEntities(clusterEvents, c.fallbackEntity)
		merged := false
		for j := range candidates {
			existing := candidates[j].EntitySet()
			overlap := 0
			for _, ent := range entities {
				if existing[ent] {
					overlap++
				}
			}
			if float64(overlap) >= 0.5*float64(len(entities)) {
				candidates[j].Events = append(candidates[j].Events, clusterEvents...)
				for _, ent := range entities {
					if !existing[ent] {
						candidates[j].Entities = append(candidates[j].Entities, ent)
					}
				}
				merged = true
				break
			}
		}
		if !merged {
			candidates = append(candidates, model.NarrativeCandidate{
				ID:       fmt.Sprintf("text_%d", i),
				Events:   clusterEvents,
				Entities: orderEntities(nil, clusterEvents, c.fallbackEntity),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].Events) > len(candidates[j].Events)
	})
	if len(candidates) > c.maxClusters {
		candidates = candidates[:c.maxClusters]
	}
	return candidates
}

func (c *Clusterer) fallback(events []model.SignalEvent) []model.NarrativeCandidate {
	if len(events) == 0 {
		return []model.NarrativeCandidate{}
	}
	candidate := model.NarrativeCandidate{
		ID:          "fallback_0",
		Label:       "Solana Ecosystem Activity",
		Description: fmt.Sprintf("General ecosystem signals (%d events)", len(events)),
		Events:      append([]model.SignalEvent(nil), events...),
		Entities:    orderEntities(nil, events, c.fallbackEntity),
	}
	var texts []string
	for _, e := range events {
		texts = append(texts, e.Text)
	}
	kw := keywords(texts, maxKeywords)
	if len(kw) > keptKeywords {
		kw = kw[:keptKeywords]
	}
	candidate.ClusterKeywords = kw
	return []model.NarrativeCandidate{candidate}
}

// orderEntities returns the defining entities (sorted) followed by every
// other entity of events, most mentioned first. The fallback marker is
// left out.
func orderEntities(defining []string, events []model.SignalEvent, fallback string) []string {
	out := make([]string, 0, len(defining))
	seen := make(map[string]bool)
	for _, ent := range defining {
		if !seen[ent] && ent != fallback {
			seen[ent] = true
			out = append(out, ent)
		}
	}
	sort.Strings(out)

	counts := make(map[string]int)
	var rest []string
	for _, e := range events {
		for _, ent := range e.Entities {
			if ent == "" || ent == fallback || seen[ent] {
				continue
			}
			if counts[ent] == 0 {
				rest = append(rest, ent)
			}
			counts[ent]++
		}
	}
	sort.Strings(rest)
	sort.SliceStable(rest, func(i, j int) bool {
		return counts[rest[i]] > counts[rest[j]]
	})
	return append(out, rest...)
}

func unionEntities(events []model.SignalEvent, fallback string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range events {
		for _, ent := range e.Entities {
			if ent == "" || ent == fallback || seen[ent] {
				continue
			}
			seen[ent] = true
			out = append(out, ent)
		}
	}
	sort.Strings(out)
	return out
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}

func intersects(set map[string]bool, items []string) bool {
	for _, it := range items {
		if set[it] {
			return true
		}
	}
	return false
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
