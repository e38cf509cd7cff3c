package ranking

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/abelbrown/narratives/internal/config"
	"github.com/abelbrown/narratives/internal/filter"
	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/model"
)

// MinComposite is the composite a narrative must exceed to be ranked.
const MinComposite = 0.05

// weighted pairs a factor with its signed weight. Penalties carry a
// negative weight.
type weighted struct {
	factor Factor
	weight float64
}

// Scorer combines factors into a composite narrative score.
// Final score = sum(weight * factor) - sum(penalty * penalty factor),
// clamped to [0, 1].
type Scorer struct {
	terms        []weighted
	baselineDays int
}

// NewScorer builds a Scorer from the scoring config. It fails if any weight
// or penalty key is missing or a threshold is out of range.
func NewScorer(cfg config.ScoringConfig, baselineDays int) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}
	s := &Scorer{baselineDays: baselineDays}
	s.add(NewVelocityFactor(), cfg.Weights["velocity"]).
		add(NewBreadthFactor(), cfg.Weights["breadth"]).
		add(NewCrossDomainFactor(), cfg.Weights["cross_domain"]).
		add(NewNoveltyFactor(), cfg.Weights["novelty"]).
		add(NewCredibilityFactor(), cfg.Weights["credibility"]).
		add(NewSpamFactor(), -cfg.Penalties["spam"]).
		add(NewSingleSourceFactor(cfg.Thresholds.SingleSourceDominance), -cfg.Penalties["single_source"])
	return s, nil
}

func (s *Scorer) add(f Factor, weight float64) *Scorer {
	s.terms = append(s.terms, weighted{factor: f, weight: weight})
	return s
}

// ScoreNarrative computes the score breakdown for one candidate. An empty
// candidate scores zero on everything. Factors, composite and
// contributions are rounded to four decimals; contributions are taken
// before the composite is clamped.
func (s *Scorer) ScoreNarrative(c *model.NarrativeCandidate, start, end time.Time, baseline []model.SignalEvent) model.ScoreBreakdown {
	if len(c.Events) == 0 {
		return model.ScoreBreakdown{FeatureContributions: map[string]float64{}}
	}

	ctx := NewContext(start, end, baseline, s.baselineDays)
	values := make(map[string]float64, len(s.terms))
	contributions := make(map[string]float64, len(s.terms))
	var composite float64
	for _, t := range s.terms {
		v := t.factor.Score(c, ctx)
		values[t.factor.Name()] = v
		composite += t.weight * v
		contributions[t.factor.Name()] = round4(t.weight * v)
	}

	return model.ScoreBreakdown{
		Velocity:             round4(values[model.FactorVelocity]),
		Breadth:              round4(values[model.FactorBreadth]),
		CrossDomain:          round4(values[model.FactorCrossDomain]),
		Novelty:              round4(values[model.FactorNovelty]),
		Credibility:          round4(values[model.FactorCredibility]),
		SpamPenalty:          round4(values[model.FactorSpamPenalty]),
		SingleSourcePenalty:  round4(values[model.FactorSingleSourcePenalty]),
		Composite:            round4(math.Max(0, math.Min(1, composite))),
		FeatureContributions: contributions,
	}
}

// RankNarratives scores every candidate and returns those with a composite
// above MinComposite, highest first. Each candidate is scored against the
// baseline events sharing at least one of its entities; a candidate with
// none of its own is scored as if no baseline were available.
func (s *Scorer) RankNarratives(candidates []model.NarrativeCandidate, start, end time.Time, baseline []model.SignalEvent) []model.ScoredCandidate {
	scored := make([]model.ScoredCandidate, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		var own []model.SignalEvent
		if baseline != nil {
			own = filter.SharingEntities(baseline, c.Entities)
		}
		scored = append(scored, model.ScoredCandidate{
			Candidate: *c,
			Score:     s.ScoreNarrative(c, start, end, own),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score.Composite > scored[j].Score.Composite
	})
	kept := scored[:0]
	for _, sc := range scored {
		if sc.Score.Composite > MinComposite {
			kept = append(kept, sc)
		}
	}

	top := 0.0
	if len(kept) > 0 {
		top = kept[0].Score.Composite
	}
	logging.Info("narratives_ranked",
		"total_candidates", len(candidates),
		"ranked", len(kept),
		"top_score", top,
	)
	return kept
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
