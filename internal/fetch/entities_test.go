package fetch

import (
	"reflect"
	"testing"
)

func TestEntityMatcher(t *testing.T) {
	m := NewEntityMatcher(testAliases, "solana-ecosystem")

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"canonical", "Jupiter volume is up", []string{"jupiter"}},
		{"alias", "New JUP vote", []string{"jupiter"}},
		{"multi word alias", "An AI agent on mainnet", []string{"ai-agents"}},
		{"hyphenated canonical spaced", "the ai agents meta", []string{"ai-agents"}},
		{"several sorted", "fd and jup", []string{"firedancer", "jupiter"}},
		{"substring is not a word", "jumping fdx", []string{"solana-ecosystem"}},
		{"nothing", "weekly recap", []string{"solana-ecosystem"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Match(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Match(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestEntityMatcherNoFallback(t *testing.T) {
	m := NewEntityMatcher(testAliases, "")
	got := m.Match("weekly recap")
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		text, word string
		want       bool
	}{
		{"jup is live", "jup", true},
		{"jupiter is live", "jup", false},
		{"the jupiter jup", "jup", true},
		{"(jup)", "jup", true},
		{"fdfd fd", "fd", true},
		{"", "jup", false},
	}
	for _, tt := range tests {
		if got := containsWord(tt.text, tt.word); got != tt.want {
			t.Errorf("containsWord(%q, %q) = %v, want %v", tt.text, tt.word, got, tt.want)
		}
	}
}
