package cluster

import (
	"sort"

	"github.com/abelbrown/narratives/internal/model"
)

const (
	// minCooccurrence is how many events must share a pair of entities
	// before the pair becomes an edge.
	minCooccurrence = 2

	// minStandaloneMentions admits an entity outside every component as its
	// own cluster.
	minStandaloneMentions = 3
)

type entityPair struct{ a, b string }

// cooccurrenceGraph is an undirected entity graph. Edges carry the number of
// events in which both endpoints appear.
type cooccurrenceGraph struct {
	order     []string // entities in first-seen order
	mentions  map[string]int
	weights   map[entityPair]int
	adjacency map[string]map[string]bool
}

func buildGraph(events []model.SignalEvent, fallback string) *cooccurrenceGraph {
	g := &cooccurrenceGraph{
		mentions:  make(map[string]int),
		weights:   make(map[entityPair]int),
		adjacency: make(map[string]map[string]bool),
	}
	for _, e := range events {
		entities := distinctEntities(e.Entities, fallback)
		for _, ent := range entities {
			if g.mentions[ent] == 0 {
				g.order = append(g.order, ent)
			}
			g.mentions[ent]++
		}
		for i := 0; i < len(entities); i++ {
			for j := i + 1; j < len(entities); j++ {
				g.weights[entityPair{entities[i], entities[j]}]++
			}
		}
	}
	for pair, count := range g.weights {
		if count < minCooccurrence {
			continue
		}
		g.link(pair.a, pair.b)
		g.link(pair.b, pair.a)
	}
	return g
}

func (g *cooccurrenceGraph) link(from, to string) {
	if g.adjacency[from] == nil {
		g.adjacency[from] = make(map[string]bool)
	}
	g.adjacency[from][to] = true
}

// components returns the connected components reachable over edges, each
// sorted, found by breadth-first search from entities in first-seen order.
// Entities with no edges are appended as singletons when mentioned often
// enough.
func (g *cooccurrenceGraph) components() [][]string {
	visited := make(map[string]bool)
	var clusters [][]string
	for _, start := range g.order {
		if visited[start] || len(g.adjacency[start]) == 0 {
			continue
		}
		var component []string
		queue := []string{start}
		visited[start] = true
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			component = append(component, node)
			neighbors := make([]string, 0, len(g.adjacency[node]))
			for n := range g.adjacency[node] {
				neighbors = append(neighbors, n)
			}
			sort.Strings(neighbors)
			for _, n := range neighbors {
				if !visited[n] {
					visited[n] = true
					queue = append(queue, n)
				}
			}
		}
		sort.Strings(component)
		clusters = append(clusters, component)
	}
	for _, ent := range g.order {
		if !visited[ent] && g.mentions[ent] >= minStandaloneMentions {
			clusters = append(clusters, []string{ent})
		}
	}
	return clusters
}

// distinctEntities returns the sorted set of entities without the fallback
// marker.
func distinctEntities(entities []string, fallback string) []string {
	seen := make(map[string]bool, len(entities))
	out := make([]string, 0, len(entities))
	for _, ent := range entities {
		if ent == "" || ent == fallback || seen[ent] {
			continue
		}
		seen[ent] = true
		out = append(out, ent)
	}
	sort.Strings(out)
	return out
}
