package cluster

import (
	"regexp"
	"sort"
	"strings"
)

// stopWords are dropped from keyword extraction and TF-IDF vocabularies.
var stopWords = map[string]bool{
	"solana": true, "sol": true, "crypto": true, "blockchain": true, "web3": true,
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true,
	"from": true, "https": true, "http": true, "com": true, "www": true,
	"just": true, "like": true, "new": true, "now": true, "get": true, "use": true,
	"make": true, "will": true, "can": true, "one": true, "also": true, "more": true,
	"been": true, "have": true, "has": true, "had": true, "about": true, "into": true,
	"than": true, "its": true, "out": true, "over": true, "all": true, "are": true,
	"but": true, "not": true, "you": true, "was": true, "they": true, "their": true,
	"what": true, "which": true, "when": true, "would": true, "there": true,
}

var (
	urlRegex     = regexp.MustCompile(`https?://\S+`)
	mentionRegex = regexp.MustCompile(`@\w+`)
	nonWordRegex = regexp.MustCompile(`[^a-z0-9\s\-]`)
	spaceRegex   = regexp.MustCompile(`\s+`)

	// tokenRegex matches runs of two or more word characters.
	tokenRegex = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)
)

// preprocess lower-cases text, strips URLs and @-mentions, replaces anything
// but ASCII letters, digits, whitespace and hyphens with a space, and
// collapses whitespace.
func preprocess(text string) string {
	text = strings.ToLower(text)
	text = urlRegex.ReplaceAllString(text, "")
	text = mentionRegex.ReplaceAllString(text, "")
	text = nonWordRegex.ReplaceAllString(text, " ")
	text = spaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// tokenize splits preprocessed text into vectorizer tokens with stop words
// removed. Hyphens separate tokens.
func tokenize(text string) []string {
	raw := tokenRegex.FindAllString(text, -1)
	tokens := raw[:0]
	for _, t := range raw {
		if !stopWords[t] {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// keywords returns up to limit of the most frequent words across texts,
// skipping stop words and words of two characters or fewer. Ties keep the
// order of first occurrence.
func keywords(texts []string, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, text := range texts {
		for _, w := range strings.Fields(preprocess(text)) {
			if stopWords[w] || len(w) <= 2 {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}
	return topByCount(order, counts, limit)
}

// topByCount orders keys by descending count, stable on the given order.
func topByCount(order []string, counts map[string]int, limit int) []string {
	ranked := append([]string(nil), order...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
