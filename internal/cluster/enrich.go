package cluster

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/abelbrown/narratives/internal/model"
)

// categoryLabels maps category entities to display names.
var categoryLabels = map[string]string{
	"defi":             "DeFi",
	"nft":              "NFT",
	"depin":            "DePIN",
	"ai-agents":        "AI Agents",
	"mev":              "MEV",
	"svm":              "SVM Expansion",
	"firedancer":       "Firedancer",
	"compressed-nft":   "Compressed NFTs",
	"token-extensions": "Token Extensions",
	"blinks":           "Blinks & Actions",
	"solana-mobile":    "Solana Mobile",
	"gaming":           "Gaming",
	"dao":              "DAOs & Governance",
	"validator":        "Validator Infrastructure",
	"payments":         "Payments",
	"grpc":             "Data Infrastructure",
}

func (c *Clusterer) enrich(candidate *model.NarrativeCandidate) {
	texts := make([]string, len(candidate.Events))
	for i, e := range candidate.Events {
		texts[i] = e.Text
	}
	kw := keywords(texts, maxKeywords)
	candidate.Label = label(candidate.Entities, kw)
	if len(kw) > keptKeywords {
		kw = kw[:keptKeywords]
	}
	candidate.ClusterKeywords = kw
	candidate.Description = describe(candidate)
}

// label names a candidate after its first two entities, or its first two
// keywords when it has no entities.
func label(entities, keywords []string) string {
	var parts []string
	for _, ent := range entities[:min(2, len(entities))] {
		parts = append(parts, displayName(ent))
	}
	if len(parts) == 0 {
		for _, kw := range keywords[:min(2, len(keywords))] {
			parts = append(parts, titleCase(kw))
		}
	}
	if len(parts) == 0 {
		return "Emerging Signal"
	}
	return strings.Join(parts, " & ")
}

func displayName(entity string) string {
	if name, ok := categoryLabels[entity]; ok {
		return name
	}
	return titleCase(strings.ReplaceAll(entity, "-", " "))
}

// titleCase upper-cases the first letter of every word.
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

// describe writes a one-sentence summary: the three most mentioned
// entities, the event count and a per-subtype breakdown.
func describe(candidate *model.NarrativeCandidate) string {
	entityCounts := make(map[string]int)
	var entityOrder []string
	subtypeCounts := make(map[string]int)
	var subtypeOrder []string
	for _, e := range candidate.Events {
		for _, ent := range e.Entities {
			if entityCounts[ent] == 0 {
				entityOrder = append(entityOrder, ent)
			}
			entityCounts[ent]++
		}
		st := string(e.Subtype)
		if subtypeCounts[st] == 0 {
			subtypeOrder = append(subtypeOrder, st)
		}
		subtypeCounts[st]++
	}

	top := topByCount(entityOrder, entityCounts, 3)
	sort.SliceStable(subtypeOrder, func(i, j int) bool {
		return subtypeCounts[subtypeOrder[i]] > subtypeCounts[subtypeOrder[j]]
	})
	sources := make([]string, len(subtypeOrder))
	for i, st := range subtypeOrder {
		sources[i] = fmt.Sprintf("%s(%d)", st, subtypeCounts[st])
	}

	return fmt.Sprintf("Narrative cluster around %s with %d signal events from sources: %s.",
		strings.Join(top, ", "), len(candidate.Events), strings.Join(sources, ", "))
}
