package fetch

import (
	"sort"
	"strings"
)

// EntityMatcher finds known entities in free text by whole-word keyword match.
type EntityMatcher struct {
	keywords map[string][]string // canonical -> lowercase keywords
	order    []string
	fallback string
}

// NewEntityMatcher builds a matcher from the alias table. Each canonical
// name matches itself and every alias. fallback is returned when nothing
// matches.
func NewEntityMatcher(aliases map[string][]string, fallback string) *EntityMatcher {
	m := &EntityMatcher{
		keywords: make(map[string][]string, len(aliases)),
		fallback: fallback,
	}
	for canonical, list := range aliases {
		canonical = strings.ToLower(strings.TrimSpace(canonical))
		if canonical == "" {
			continue
		}
		kws := []string{canonical}
		if spaced := strings.ReplaceAll(canonical, "-", " "); spaced != canonical {
			kws = append(kws, spaced)
		}
		for _, a := range list {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				kws = append(kws, a)
			}
		}
		if _, ok := m.keywords[canonical]; !ok {
			m.order = append(m.order, canonical)
		}
		m.keywords[canonical] = append(m.keywords[canonical], kws...)
	}
	sort.Strings(m.order)
	return m
}

// Match returns the sorted canonical entities mentioned in text, or the
// fallback entity alone when none are.
func (m *EntityMatcher) Match(text string) []string {
	lower := strings.ToLower(text)

	var found []string
	for _, canonical := range m.order {
		for _, kw := range m.keywords[canonical] {
			if containsWord(lower, kw) {
				found = append(found, canonical)
				break
			}
		}
	}

	if len(found) == 0 && m.fallback != "" {
		return []string{m.fallback}
	}
	if found == nil {
		return []string{}
	}
	return found
}

// containsWord checks if text contains word as a whole word (not substring)
func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	if idx < 0 {
		return false
	}

	// Check left boundary
	if idx > 0 && isAlphaNum(text[idx-1]) {
		// Not a word boundary, might be substring - check for other occurrences
		return containsWord(text[idx+1:], word)
	}

	// Check right boundary
	end := idx + len(word)
	if end < len(text) && isAlphaNum(text[end]) {
		return containsWord(text[idx+1:], word)
	}

	return true
}

func isAlphaNum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
