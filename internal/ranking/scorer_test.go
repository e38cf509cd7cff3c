package ranking

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/narratives/internal/config"
	"github.com/abelbrown/narratives/internal/model"
)

var (
	windowEnd   = time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	windowStart = windowEnd.Add(-14 * 24 * time.Hour)
)

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(config.DefaultConfig().Scoring, 56)
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	return s
}

// spread returns n events of the given subtypes (cycled), one day apart.
func spread(n int, subtypes ...model.Subtype) []model.SignalEvent {
	events := make([]model.SignalEvent, n)
	for i := range events {
		st := subtypes[i%len(subtypes)]
		events[i] = model.NewSignalEvent(windowStart.Add(time.Duration(i)*24*time.Hour), st,
			[]string{"jupiter"}, fmt.Sprintf("event %d", i))
	}
	return events
}

func candidate(events []model.SignalEvent, entities ...string) *model.NarrativeCandidate {
	return &model.NarrativeCandidate{ID: "c", Events: events, Entities: entities}
}

func score(t *testing.T, c *model.NarrativeCandidate, baseline []model.SignalEvent) model.ScoreBreakdown {
	t.Helper()
	return newScorer(t).ScoreNarrative(c, windowStart, windowEnd, baseline)
}

func checkBounds(t *testing.T, s model.ScoreBreakdown) {
	t.Helper()
	for name, v := range s.Factors() {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v, out of [0,1]", name, v)
		}
	}
	if s.Composite < 0 || s.Composite > 1 {
		t.Errorf("composite = %v, out of [0,1]", s.Composite)
	}
}

func TestNewScorerMissingKeys(t *testing.T) {
	cfg := config.DefaultConfig().Scoring
	delete(cfg.Weights, "novelty")
	delete(cfg.Penalties, "spam")

	_, err := NewScorer(cfg, 56)
	if err == nil {
		t.Fatal("expected error for missing keys")
	}
	if !errors.Is(err, config.ErrMissingWeight) {
		t.Errorf("expected ErrMissingWeight, got %v", err)
	}
	if !strings.Contains(err.Error(), "novelty") || !strings.Contains(err.Error(), "spam") {
		t.Errorf("error should name every missing key: %v", err)
	}
}

func TestScoreEmptyCandidate(t *testing.T) {
	s := score(t, candidate(nil), nil)
	if s.Composite != 0 {
		t.Errorf("composite = %v, want 0", s.Composite)
	}
	for name, v := range s.Factors() {
		if v != 0 {
			t.Errorf("%s = %v, want 0", name, v)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	rich := spread(40, model.SubtypeGitHub, model.SubtypeTwitter, model.SubtypeTxActivity, model.SubtypeRSSBlog)
	for i := range rich {
		rich[i].URL = "https://example.com"
		rich[i].AuthorFollowers = 50000
		rich[i].Author = fmt.Sprintf("author-%d", i)
		rich[i].Entities = []string{fmt.Sprintf("e%d", i)}
	}

	tests := []struct {
		name     string
		c        *model.NarrativeCandidate
		baseline []model.SignalEvent
	}{
		{"single event", candidate(spread(1, model.SubtypeGitHub), "jupiter"), nil},
		{"rich", candidate(rich, "e0", "e1"), nil},
		{"rich with empty baseline", candidate(rich, "e0"), []model.SignalEvent{}},
		{"single source", candidate(spread(10, model.SubtypeTwitter), "jupiter"), spread(3, model.SubtypeGitHub)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkBounds(t, score(t, tt.c, tt.baseline))
		})
	}
}

func TestCrossDomainBeatsSingleDomain(t *testing.T) {
	balanced := score(t, candidate(spread(10, model.SubtypeGitHub, model.SubtypeTxActivity), "jupiter"), nil)
	single := score(t, candidate(spread(10, model.SubtypeGitHub), "jupiter"), nil)

	if balanced.CrossDomain <= single.CrossDomain {
		t.Errorf("cross_domain: balanced %v should beat single %v", balanced.CrossDomain, single.CrossDomain)
	}
	if single.CrossDomain != 0 {
		t.Errorf("single-domain cross_domain = %v, want 0", single.CrossDomain)
	}
	if balanced.Composite <= single.Composite {
		t.Errorf("composite: balanced %v should beat single %v", balanced.Composite, single.Composite)
	}
}

func TestCrossDomainFormula(t *testing.T) {
	// 2 onchain, 4 offchain over 2 offchain subtypes
	events := spread(6, model.SubtypeGitHub, model.SubtypeTwitter, model.SubtypeProgramDeploy)
	got := NewCrossDomainFactor().Score(candidate(events), NewContext(windowStart, windowEnd, nil, 56))
	want := 0.5*(2.0/4.0) + 0.5*(2.0/3.0)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("cross_domain = %v, want %v", got, want)
	}
}

func TestBurstScoresHigherSpamThanSpread(t *testing.T) {
	burst := make([]model.SignalEvent, 10)
	for i := range burst {
		burst[i] = model.NewSignalEvent(windowEnd.Add(time.Duration(i*3)*time.Minute),
			model.SubtypeTwitter, []string{"jupiter"}, fmt.Sprintf("burst %d", i))
	}
	slow := make([]model.SignalEvent, 10)
	for i := range slow {
		slow[i] = model.NewSignalEvent(windowStart.Add(time.Duration(i*33)*time.Hour),
			model.SubtypeTwitter, []string{"jupiter"}, fmt.Sprintf("slow %d", i))
	}

	b := score(t, candidate(burst, "jupiter"), nil)
	s := score(t, candidate(slow, "jupiter"), nil)
	if b.SpamPenalty <= s.SpamPenalty {
		t.Errorf("burst spam %v should exceed spread spam %v", b.SpamPenalty, s.SpamPenalty)
	}
	if b.SpamPenalty != 0.8 || s.SpamPenalty != 0 {
		t.Errorf("got burst %v, spread %v; want 0.8 and 0", b.SpamPenalty, s.SpamPenalty)
	}
}

func TestSpamAuthorFlood(t *testing.T) {
	events := spread(5, model.SubtypeTwitter)
	for i := range events[:4] {
		events[i].Author = "shill"
	}
	events[4].Author = "someone"

	got := NewSpamFactor().Score(candidate(events), NewContext(windowStart, windowEnd, nil, 56))
	if got != 0.5 {
		t.Errorf("spam = %v, want 0.5", got)
	}

	if got := NewSpamFactor().Score(candidate(events[:2]), NewContext(windowStart, windowEnd, nil, 56)); got != 0 {
		t.Errorf("fewer than 3 events should not be penalized, got %v", got)
	}
}

func TestSingleSourcePenalty(t *testing.T) {
	nineOne := append(spread(9, model.SubtypeGitHub), spread(1, model.SubtypeTwitter)...)
	split := append(append(spread(5, model.SubtypeGitHub), spread(3, model.SubtypeTwitter)...), spread(2, model.SubtypeRSSBlog)...)
	seventy := append(spread(7, model.SubtypeGitHub), spread(3, model.SubtypeTwitter)...)
	eighty := append(spread(8, model.SubtypeGitHub), spread(2, model.SubtypeTwitter)...)

	tests := []struct {
		name   string
		events []model.SignalEvent
		want   float64
	}{
		{"90% github", nineOne, 0.6667},
		{"50/30/20", split, 0},
		{"exactly 70%", seventy, 0},
		{"80% github", eighty, 0.3333},
		{"all one source", spread(4, model.SubtypeForum), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := score(t, candidate(tt.events, "jupiter"), nil)
			if math.Abs(s.SingleSourcePenalty-tt.want) > 1e-4 {
				t.Errorf("single_source_penalty = %v, want %v", s.SingleSourcePenalty, tt.want)
			}
		})
	}
}

func TestVelocity(t *testing.T) {
	events := spread(14, model.SubtypeGitHub)
	c := candidate(events, "jupiter")
	baseline := make([]model.SignalEvent, 56)

	tests := []struct {
		name     string
		baseline []model.SignalEvent
		want     float64
	}{
		{"no baseline", nil, 14.0 / 20.0},
		{"parity", baseline, 0.3},
		{"double", baseline[:28], 0.6},
		{"empty baseline", []model.SignalEvent{}, 14.0 / 20.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewVelocityFactor().Score(c, NewContext(windowStart, windowEnd, tt.baseline, 56))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("velocity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNovelty(t *testing.T) {
	old := model.NewSignalEvent(windowStart.Add(-24*time.Hour), model.SubtypeGitHub, []string{"jupiter"}, "old")
	other := model.NewSignalEvent(windowStart.Add(-24*time.Hour), model.SubtypeGitHub, []string{"tensor"}, "other")
	c := candidate(spread(3, model.SubtypeGitHub), "jupiter", "perps")

	tests := []struct {
		name     string
		baseline []model.SignalEvent
		want     float64
	}{
		{"no baseline", nil, 0.8},
		{"half new", []model.SignalEvent{old}, 0.95},
		{"all new", []model.SignalEvent{other}, 1},
		{"empty baseline", []model.SignalEvent{}, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewNoveltyFactor().Score(c, NewContext(windowStart, windowEnd, tt.baseline, 56))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("novelty = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventCredibility(t *testing.T) {
	withURL := func(e model.SignalEvent) model.SignalEvent {
		e.URL = "https://example.com"
		return e
	}
	stars := func(e model.SignalEvent, n int) model.SignalEvent {
		e.Metrics = map[string]any{"stars": n}
		return e
	}
	followers := func(e model.SignalEvent, n int) model.SignalEvent {
		e.AuthorFollowers = n
		return e
	}
	base := func(st model.Subtype) model.SignalEvent {
		return model.NewSignalEvent(windowEnd, st, nil, "x")
	}

	tests := []struct {
		name string
		e    model.SignalEvent
		want float64
	}{
		{"plain tweet", base(model.SubtypeTwitter), 0.5},
		{"onchain with url", withURL(base(model.SubtypeTxActivity)), 0.95},
		{"big account", followers(base(model.SubtypeTwitter), 20000), 0.85},
		{"mid account", followers(base(model.SubtypeTwitter), 2000), 0.7},
		{"blog", base(model.SubtypeRSSBlog), 0.75},
		{"popular repo", stars(base(model.SubtypeGitHub), 150), 0.8},
		{"small repo", stars(base(model.SubtypeGitHub), 20), 0.65},
		{"onchain outranks followers", withURL(followers(base(model.SubtypeProgramDeploy), 20000)), 0.95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := eventCredibility(tt.e); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("credibility = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContributionsSumToComposite(t *testing.T) {
	events := spread(8, model.SubtypeGitHub, model.SubtypeTwitter, model.SubtypeTxActivity)
	s := score(t, candidate(events, "jupiter"), nil)
	if s.Composite <= 0 || s.Composite >= 1 {
		t.Fatalf("composite %v is clamped; pick another fixture", s.Composite)
	}
	if len(s.FeatureContributions) != 7 {
		t.Errorf("expected 7 contributions, got %d", len(s.FeatureContributions))
	}
	if diff := math.Abs(s.ContributionSum() - s.Composite); diff > 1e-3 {
		t.Errorf("contributions sum %v differs from composite %v", s.ContributionSum(), s.Composite)
	}
	if s.FeatureContributions[model.FactorSpamPenalty] > 0 || s.FeatureContributions[model.FactorSingleSourcePenalty] > 0 {
		t.Error("penalty contributions must not be positive")
	}
}

func TestRankNarratives(t *testing.T) {
	strong := model.NarrativeCandidate{
		ID:       "strong",
		Entities: []string{"jupiter"},
		Events:   spread(12, model.SubtypeGitHub, model.SubtypeTwitter, model.SubtypeTxActivity),
	}
	weak := model.NarrativeCandidate{
		ID:       "weak",
		Entities: []string{"tensor"},
		Events:   spread(3, model.SubtypeForum),
	}
	empty := model.NarrativeCandidate{ID: "empty"}

	ranked := newScorer(t).RankNarratives([]model.NarrativeCandidate{weak, empty, strong}, windowStart, windowEnd, nil)

	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked narratives, got %d", len(ranked))
	}
	if ranked[0].Candidate.ID != "strong" || ranked[1].Candidate.ID != "weak" {
		t.Errorf("order = %s, %s", ranked[0].Candidate.ID, ranked[1].Candidate.ID)
	}
	for _, r := range ranked {
		if r.Score.Composite <= MinComposite {
			t.Errorf("%s composite %v should have been filtered", r.Candidate.ID, r.Score.Composite)
		}
	}
}

func TestRankNarrativesRestrictsBaseline(t *testing.T) {
	c := model.NarrativeCandidate{
		ID:       "jup",
		Entities: []string{"jupiter"},
		Events:   spread(5, model.SubtypeGitHub, model.SubtypeTwitter),
	}
	var baseline []model.SignalEvent
	for i := 0; i < 30; i++ {
		baseline = append(baseline, model.NewSignalEvent(windowStart.Add(-time.Duration(i+1)*time.Hour),
			model.SubtypeTwitter, []string{"tensor"}, fmt.Sprintf("unrelated %d", i)))
	}

	ranked := newScorer(t).RankNarratives([]model.NarrativeCandidate{c}, windowStart, windowEnd, baseline)
	if len(ranked) != 1 {
		t.Fatalf("expected 1 ranked narrative, got %d", len(ranked))
	}
	// No baseline event shares an entity, so the narrative scores as if
	// there were no baseline at all
	want := newScorer(t).RankNarratives([]model.NarrativeCandidate{c}, windowStart, windowEnd, nil)
	if len(want) != 1 {
		t.Fatalf("expected 1 ranked narrative without baseline, got %d", len(want))
	}
	if ranked[0].Score.Velocity != 0.25 || ranked[0].Score.Novelty != 0.8 {
		t.Errorf("velocity %v, novelty %v; want 0.25 and 0.8", ranked[0].Score.Velocity, ranked[0].Score.Novelty)
	}
	if ranked[0].Score.Composite != want[0].Score.Composite {
		t.Errorf("composite %v with unrelated baseline, %v without", ranked[0].Score.Composite, want[0].Score.Composite)
	}
}

func TestNoveltyWithoutEntities(t *testing.T) {
	c := candidate(spread(3, model.SubtypeGitHub))
	old := model.NewSignalEvent(windowStart.Add(-24*time.Hour), model.SubtypeGitHub, []string{"jupiter"}, "old")

	got := NewNoveltyFactor().Score(c, NewContext(windowStart, windowEnd, []model.SignalEvent{old}, 56))
	if got != 0.5 {
		t.Errorf("novelty = %v, want 0.5", got)
	}
}
