// Package evidence selects the events shown as evidence for a narrative and
// writes the narrative's explanation text.
package evidence

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/abelbrown/narratives/internal/model"
)

const (
	// DefaultMaxCards is the evidence cap when none is configured.
	DefaultMaxCards = 8

	summaryChars    = 200
	maxHighlights   = 3
	followerBonusAt = 5000
	starBonusAt     = 50
)

// Ranker turns a narrative's events into relevance-ranked evidence cards.
type Ranker struct {
	MaxCards int
}

// NewRanker returns a Ranker keeping at most maxCards cards.
// maxCards <= 0 uses DefaultMaxCards.
func NewRanker(maxCards int) *Ranker {
	if maxCards <= 0 {
		maxCards = DefaultMaxCards
	}
	return &Ranker{MaxCards: maxCards}
}

// RankEvidence scores every event of the candidate, sorts the cards by
// relevance (stable, highest first) and keeps the top MaxCards. Events are
// not modified.
func (r *Ranker) RankEvidence(c *model.NarrativeCandidate, score model.ScoreBreakdown) []model.EvidenceCard {
	entities := c.EntitySet()
	cards := make([]model.EvidenceCard, 0, len(c.Events))
	for _, e := range c.Events {
		cards = append(cards, model.EvidenceCard{
			Event:           e,
			RelevanceScore:  Relevance(e, entities),
			Summary:         Summary(e),
			MetricHighlight: Highlight(e),
		})
	}

	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].RelevanceScore > cards[j].RelevanceScore
	})
	if len(cards) > r.MaxCards {
		cards = cards[:r.MaxCards]
	}
	return cards
}

// Relevance scores one event against the candidate's entity set, in [0,1].
func Relevance(e model.SignalEvent, entities map[string]bool) float64 {
	relevance := 0.5

	if len(entities) > 0 {
		overlap := 0
		for _, ent := range uniq(e.Entities) {
			if entities[ent] {
				overlap++
			}
		}
		relevance += 0.2 * float64(overlap) / float64(len(entities))
	}

	if e.IsOnchain() {
		relevance += 0.1
	}

	// recency
	relevance += 0.05

	if e.URL != "" {
		relevance += 0.05
	}
	if e.AuthorFollowers > followerBonusAt {
		relevance += 0.05
	}
	if stars, _ := e.Metric("stars"); stars > starBonusAt {
		relevance += 0.05
	}
	return math.Min(1, relevance)
}

// Summary is "[Source] text", with text cut to 200 characters.
func Summary(e model.SignalEvent) string {
	text := model.Prefix(e.Text, summaryChars)
	if text != e.Text {
		text += "..."
	}
	return fmt.Sprintf("[%s] %s", e.Subtype.Label(), text)
}

// Highlight joins up to three notable metrics with " | ". It returns "" if
// the event has none.
func Highlight(e model.SignalEvent) string {
	if len(e.Metrics) == 0 {
		return ""
	}

	var parts []string
	count := func(key, unit string) {
		if v, ok := e.Metric(key); ok && v > 0 {
			parts = append(parts, humanize.Comma(int64(v))+" "+unit)
		}
	}
	count("stars", "stars")
	count("forks", "forks")
	count("likes", "likes")
	count("retweets", "RTs")
	if v, ok := e.Metric("avg_tps"); ok {
		parts = append(parts, fmt.Sprintf("%.0f TPS", v))
	}
	if v, ok := e.Metric("total_txs_sample"); ok {
		parts = append(parts, humanize.Comma(int64(v))+" txs")
	}
	if v, ok := e.Metric("balance_sol"); ok && v > 0 {
		parts = append(parts, fmt.Sprintf("%.2f SOL", v))
	}
	if e.MetricBool("is_release") {
		parts = append(parts, "Release: "+e.MetricString("tag"))
	}
	if e.MetricBool("is_new") {
		parts = append(parts, "Newly created")
	}

	if len(parts) > maxHighlights {
		parts = parts[:maxHighlights]
	}
	return strings.Join(parts, " | ")
}

func uniq(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}
