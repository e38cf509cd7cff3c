package ranking

import (
	"time"

	"github.com/abelbrown/narratives/internal/model"
)

// VelocityFactor compares the window event rate with the baseline rate.
// Parity with the baseline scores AccelerationScale; 1/AccelerationScale
// times the baseline rate saturates at 1.
type VelocityFactor struct {
	AccelerationScale float64
	// NoBaselineSaturation is the event count that saturates velocity
	// when no baseline is available
	NoBaselineSaturation float64
}

func NewVelocityFactor() *VelocityFactor {
	return &VelocityFactor{AccelerationScale: 0.3, NoBaselineSaturation: 20}
}

func (f *VelocityFactor) Name() string { return model.FactorVelocity }

func (f *VelocityFactor) Score(c *model.NarrativeCandidate, ctx *Context) float64 {
	count := float64(len(c.Events))
	if !ctx.HasBaseline() {
		return min(1, count/f.NoBaselineSaturation)
	}

	windowRate := count / float64(ctx.WindowDays())
	baselineRate := float64(len(ctx.Baseline)) / float64(max(1, ctx.BaselineDays))
	return min(1, windowRate/baselineRate*f.AccelerationScale)
}

// BreadthFactor rewards narratives spanning many entities, subtypes and
// authors.
type BreadthFactor struct{}

func NewBreadthFactor() *BreadthFactor { return &BreadthFactor{} }

func (f *BreadthFactor) Name() string { return model.FactorBreadth }

func (f *BreadthFactor) Score(c *model.NarrativeCandidate, ctx *Context) float64 {
	entities := make(map[string]bool)
	subtypes := make(map[model.Subtype]bool)
	authors := make(map[string]bool)
	for _, e := range c.Events {
		for _, ent := range e.Entities {
			entities[ent] = true
		}
		subtypes[e.Subtype] = true
		if e.Author != "" {
			authors[e.Author] = true
		}
	}

	entityScore := min(1, float64(len(entities))/8)
	subtypeScore := min(1, float64(len(subtypes))/4)
	authorScore := min(1, float64(len(authors))/10)
	return entityScore*0.4 + subtypeScore*0.3 + authorScore*0.3
}

// CrossDomainFactor rewards agreement between on-chain and off-chain
// evidence: half for the balance between domains, half for off-chain
// subtype variety.
type CrossDomainFactor struct{}

func NewCrossDomainFactor() *CrossDomainFactor { return &CrossDomainFactor{} }

func (f *CrossDomainFactor) Name() string { return model.FactorCrossDomain }

func (f *CrossDomainFactor) Score(c *model.NarrativeCandidate, ctx *Context) float64 {
	var onchain, offchain int
	offchainSubtypes := make(map[model.Subtype]bool)
	for _, e := range c.Events {
		if e.IsOnchain() {
			onchain++
			continue
		}
		offchain++
		offchainSubtypes[e.Subtype] = true
	}
	if onchain == 0 || offchain == 0 {
		return 0
	}

	balance := float64(min(onchain, offchain)) / float64(max(onchain, offchain))
	variety := min(1, float64(len(offchainSubtypes))/3)
	return balance*0.5 + variety*0.5
}

// NoveltyFactor measures how many of the candidate's entities are absent
// from the baseline.
type NoveltyFactor struct {
	// Default is returned when no baseline is available
	Default float64
	// NoEntities is returned when the candidate carries no entities
	NoEntities float64
}

func NewNoveltyFactor() *NoveltyFactor { return &NoveltyFactor{Default: 0.8, NoEntities: 0.5} }

func (f *NoveltyFactor) Name() string { return model.FactorNovelty }

func (f *NoveltyFactor) Score(c *model.NarrativeCandidate, ctx *Context) float64 {
	if !ctx.HasBaseline() {
		return f.Default
	}

	seen := make(map[string]bool)
	for _, e := range ctx.Baseline {
		for _, ent := range e.Entities {
			seen[ent] = true
		}
	}
	current := c.EntitySet()
	if len(current) == 0 {
		return f.NoEntities
	}
	fresh := 0
	for ent := range current {
		if !seen[ent] {
			fresh++
		}
	}
	ratio := float64(fresh) / float64(len(current))
	return min(1, ratio*1.5+0.2)
}

// CredibilityFactor averages a per-event source quality score.
type CredibilityFactor struct{}

func NewCredibilityFactor() *CredibilityFactor { return &CredibilityFactor{} }

func (f *CredibilityFactor) Name() string { return model.FactorCredibility }

func (f *CredibilityFactor) Score(c *model.NarrativeCandidate, ctx *Context) float64 {
	if len(c.Events) == 0 {
		return 0
	}
	var sum float64
	for _, e := range c.Events {
		sum += eventCredibility(e)
	}
	return sum / float64(len(c.Events))
}

func eventCredibility(e model.SignalEvent) float64 {
	score := 0.5
	if e.IsOnchain() {
		score = 0.9
	}

	switch {
	case e.AuthorFollowers > 10000:
		score = max(score, 0.85)
	case e.AuthorFollowers > 1000:
		score = max(score, 0.7)
	}

	if e.Subtype == model.SubtypeRSSBlog {
		score = max(score, 0.75)
	}

	if e.Subtype == model.SubtypeGitHub {
		stars, _ := e.Metric("stars")
		switch {
		case stars > 100:
			score = max(score, 0.8)
		case stars > 10:
			score = max(score, 0.65)
		}
	}

	// verifiable
	if e.URL != "" {
		score += 0.05
	}
	return min(1, score)
}

// SpamFactor detects bursts and single-author floods.
type SpamFactor struct {
	// BurstWindow is the span a burst must fit in
	BurstWindow time.Duration
	// BurstMinEvents is how many events a burst check needs
	BurstMinEvents int
	// BurstShare is the fraction of events a burst window must exceed
	BurstShare float64
	// AuthorShare is the fraction one author must exceed to count as a flood
	AuthorShare float64

	BurstPenalty  float64
	AuthorPenalty float64
}

func NewSpamFactor() *SpamFactor {
	return &SpamFactor{
		BurstWindow:    time.Hour,
		BurstMinEvents: 5,
		BurstShare:     0.5,
		AuthorShare:    0.6,
		BurstPenalty:   0.8,
		AuthorPenalty:  0.5,
	}
}

func (f *SpamFactor) Name() string { return model.FactorSpamPenalty }

func (f *SpamFactor) Score(c *model.NarrativeCandidate, ctx *Context) float64 {
	n := len(c.Events)
	if n < 3 {
		return 0
	}

	// Burst dominates the author check
	if n >= f.BurstMinEvents {
		events := c.EventsByTime()
		for i := 0; i+f.BurstMinEvents <= n; i++ {
			start := events[i].Timestamp
			within := 0
			for _, e := range events[i:] {
				if e.Timestamp.Sub(start) <= f.BurstWindow {
					within++
				}
			}
			if float64(within) > float64(n)*f.BurstShare {
				return f.BurstPenalty
			}
		}
	}

	authors := make(map[string]int)
	top := 0
	for _, e := range c.Events {
		if e.Author == "" {
			continue
		}
		authors[e.Author]++
		top = max(top, authors[e.Author])
	}
	if float64(top)/float64(n) > f.AuthorShare {
		return f.AuthorPenalty
	}
	return 0
}

// SingleSourceFactor penalizes narratives dominated by one subtype,
// scaling linearly from 0 at Dominance to 1 when every event shares it.
type SingleSourceFactor struct {
	Dominance float64
}

func NewSingleSourceFactor(dominance float64) *SingleSourceFactor {
	return &SingleSourceFactor{Dominance: dominance}
}

func (f *SingleSourceFactor) Name() string { return model.FactorSingleSourcePenalty }

func (f *SingleSourceFactor) Score(c *model.NarrativeCandidate, ctx *Context) float64 {
	if len(c.Events) == 0 {
		return 0
	}
	counts := make(map[model.Subtype]int)
	top := 0
	for _, e := range c.Events {
		counts[e.Subtype]++
		top = max(top, counts[e.Subtype])
	}
	share := float64(top) / float64(len(c.Events))
	if share < f.Dominance {
		return 0
	}
	return (share - f.Dominance) / (1 - f.Dominance)
}
