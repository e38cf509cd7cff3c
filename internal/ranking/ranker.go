// Package ranking scores narrative candidates and orders them.
//
// Pipeline: candidates -> factors -> composite -> rank
//
// Design principles:
// - Factors are stateless functions: (candidate, context) -> score in [0,1]
// - The composite is a weighted sum of factors minus weighted penalties
// - Factors don't mutate candidates; they just score them
package ranking

import (
	"time"

	"github.com/abelbrown/narratives/internal/model"
)

// Factor scores one aspect of a narrative candidate.
// Implementations should be stateless and return values in [0, 1].
type Factor interface {
	// Name returns the factor's key in ScoreBreakdown.FeatureContributions
	Name() string

	// Score returns the factor value for the candidate
	Score(c *model.NarrativeCandidate, ctx *Context) float64
}

// Context provides data factors may need for scoring decisions.
// Not all factors use all fields - take what you need.
type Context struct {
	// Analysis window
	WindowStart time.Time
	WindowEnd   time.Time

	// Baseline events for this candidate. Factors fall back to their
	// no-baseline scores when it is empty.
	Baseline []model.SignalEvent

	// BaselineDays is the baseline period length used for its daily rate
	BaselineDays int
}

// NewContext creates a context for one candidate.
func NewContext(start, end time.Time, baseline []model.SignalEvent, baselineDays int) *Context {
	return &Context{
		WindowStart:  start,
		WindowEnd:    end,
		Baseline:     baseline,
		BaselineDays: baselineDays,
	}
}

// HasBaseline reports whether any baseline events are available.
func (c *Context) HasBaseline() bool { return len(c.Baseline) > 0 }

// WindowDays is the window length in whole days, at least 1.
func (c *Context) WindowDays() int {
	return max(1, int(c.WindowEnd.Sub(c.WindowStart)/(24*time.Hour)))
}
