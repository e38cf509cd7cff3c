package model

import (
	"sort"
	"time"
)

// NarrativeCandidate is a cluster of events believed to form one theme.
type NarrativeCandidate struct {
	ID              string        `json:"id"`
	Label           string        `json:"label"`
	Description     string        `json:"description"`
	Entities        []string      `json:"entities"`
	ClusterKeywords []string      `json:"cluster_keywords"`
	Events          []SignalEvent `json:"events"`
}

// EntitySet returns the candidate's entities as a set.
func (c *NarrativeCandidate) EntitySet() map[string]bool {
	set := make(map[string]bool, len(c.Entities))
	for _, e := range c.Entities {
		set[e] = true
	}
	return set
}

// EventsByTime returns a copy of the events sorted oldest first.
func (c *NarrativeCandidate) EventsByTime() []SignalEvent {
	out := append([]SignalEvent(nil), c.Events...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Factor names, used as keys in ScoreBreakdown.FeatureContributions.
const (
	FactorVelocity            = "velocity"
	FactorBreadth             = "breadth"
	FactorCrossDomain         = "cross_domain"
	FactorNovelty             = "novelty"
	FactorCredibility         = "credibility"
	FactorSpamPenalty         = "spam_penalty"
	FactorSingleSourcePenalty = "single_source_penalty"
)

// ScoreBreakdown is the scoring output for one narrative.
// All factors are in [0,1]; Composite is clamped to [0,1].
type ScoreBreakdown struct {
	Velocity             float64            `json:"velocity"`
	Breadth              float64            `json:"breadth"`
	CrossDomain          float64            `json:"cross_domain"`
	Novelty              float64            `json:"novelty"`
	Credibility          float64            `json:"credibility"`
	SpamPenalty          float64            `json:"spam_penalty"`
	SingleSourcePenalty  float64            `json:"single_source_penalty"`
	Composite            float64            `json:"composite"`
	FeatureContributions map[string]float64 `json:"feature_contributions"`
}

// Factors returns the seven factors keyed by name.
func (s ScoreBreakdown) Factors() map[string]float64 {
	return map[string]float64{
		FactorVelocity:            s.Velocity,
		FactorBreadth:             s.Breadth,
		FactorCrossDomain:         s.CrossDomain,
		FactorNovelty:             s.Novelty,
		FactorCredibility:         s.Credibility,
		FactorSpamPenalty:         s.SpamPenalty,
		FactorSingleSourcePenalty: s.SingleSourcePenalty,
	}
}

// ContributionSum adds up the signed weighted terms (the pre-clamp composite).
func (s ScoreBreakdown) ContributionSum() float64 {
	var sum float64
	for _, v := range s.FeatureContributions {
		sum += v
	}
	return sum
}

// ScoredCandidate pairs a candidate with its score.
type ScoredCandidate struct {
	Candidate NarrativeCandidate
	Score     ScoreBreakdown
}

// EvidenceCard is one event promoted to visible evidence for a narrative.
type EvidenceCard struct {
	Event           SignalEvent `json:"event"`
	RelevanceScore  float64     `json:"relevance_score"`
	Summary         string      `json:"summary"`
	MetricHighlight string      `json:"metric_highlight,omitempty"`
}

// TimelinePoint is the event count for one calendar day.
type TimelinePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// RankedNarrative is a scored narrative with its explanation artifacts.
type RankedNarrative struct {
	Rank                int             `json:"rank"`
	NarrativeID         string          `json:"narrative_id"`
	Label               string          `json:"label"`
	Description         string          `json:"description"`
	Explanation         string          `json:"explanation"`
	WhyNow              string          `json:"why_now"`
	Score               ScoreBreakdown  `json:"score"`
	Confidence          float64         `json:"confidence"`
	ConfidenceReasoning string          `json:"confidence_reasoning"`
	EvidenceCards       []EvidenceCard  `json:"evidence_cards"`
	Entities            []string        `json:"entities"`
	Keywords            []string        `json:"keywords"`
	EventCount          int             `json:"event_count"`
	Timeline            []TimelinePoint `json:"timeline_data"`
}

// ReportMetadata carries run-level counts.
type ReportMetadata struct {
	TotalEvents    int      `json:"total_events"`
	DedupedEvents  int      `json:"deduped_events"`
	BaselineEvents int      `json:"baseline_events"`
	CandidateCount int      `json:"candidate_count"`
	SourcesUsed    []string `json:"sources_used"`
	Errors         []string `json:"errors,omitempty"`
	WindowDays     int      `json:"config_window_days"`
	BaselineDays   int      `json:"config_baseline_days"`
}

// Report is the complete output of one analysis run.
type Report struct {
	RunID         string            `json:"run_id"`
	WindowStart   time.Time         `json:"window_start"`
	WindowEnd     time.Time         `json:"window_end"`
	BaselineStart time.Time         `json:"baseline_start"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Narratives    []RankedNarrative `json:"narratives"`
	Metadata      ReportMetadata    `json:"metadata"`
}
