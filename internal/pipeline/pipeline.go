// Package pipeline runs one analysis: normalize, cluster, score, explain.
//
// Analyze is a pure function of its inputs apart from logging and metrics.
// Fetching events and persisting the report are the caller's job.
package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/narratives/internal/cluster"
	"github.com/abelbrown/narratives/internal/config"
	"github.com/abelbrown/narratives/internal/evidence"
	"github.com/abelbrown/narratives/internal/filter"
	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/metrics"
	"github.com/abelbrown/narratives/internal/model"
	"github.com/abelbrown/narratives/internal/normalize"
	"github.com/abelbrown/narratives/internal/ranking"
)

// Pipeline holds the configured stages. Stages keep no state between runs.
type Pipeline struct {
	cfg        *config.Config
	normalizer *normalize.Normalizer
	clusterer  *cluster.Clusterer
	scorer     *ranking.Scorer
	evidence   *evidence.Ranker
	metrics    *metrics.Recorder

	// now is swapped in tests.
	now func() time.Time
}

// New builds a pipeline from cfg. It fails when the scoring configuration
// is incomplete. rec may be nil.
func New(cfg *config.Config, rec *metrics.Recorder) (*Pipeline, error) {
	scorer, err := ranking.NewScorer(cfg.Scoring, cfg.Analysis.BaselineDays)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return &Pipeline{
		cfg:        cfg,
		normalizer: normalize.New(cfg.EntityAliases, cfg.Scoring.Thresholds.SpamSimilarity),
		clusterer:  cluster.New(cfg.Analysis.MaxNarratives, cfg.Clustering.FallbackEntity),
		scorer:     scorer,
		evidence:   evidence.NewRanker(cfg.Evidence.MaxCards),
		metrics:    rec,
		now:        time.Now,
	}, nil
}

// Window returns the analysis window ending at end, sized from the config.
func (p *Pipeline) Window(end time.Time) model.Window {
	return model.NewWindow(end, p.cfg.Analysis.WindowDays, p.cfg.Analysis.BaselineDays)
}

// Analyze produces the report for window. Events outside the window are
// ignored. baseline holds the events of the baseline period; nil means no
// baseline is available, and it is also ignored when use_baseline is off.
func (p *Pipeline) Analyze(window model.Window, events, baseline []model.SignalEvent) *model.Report {
	defer p.metrics.Stage(metrics.StageTotal)()

	runID := NewRunID(window.End)
	logging.Info("pipeline_start",
		"run_id", runID,
		"window_start", window.Start.Format(time.RFC3339),
		"window_end", window.End.Format(time.RFC3339),
	)

	inWindow := filter.Between(events, window.Start, window.End)

	done := p.metrics.Stage(metrics.StageNormalize)
	processed := p.normalizer.Process(inWindow)
	if !p.cfg.Analysis.BaselineEnabled() {
		baseline = nil
	}
	if baseline != nil {
		baseline = p.normalizer.NormalizeEvents(filter.Between(baseline, window.BaselineStart, window.Start))
	}
	done()

	done = p.metrics.Stage(metrics.StageCluster)
	candidates := p.clusterer.GenerateCandidates(processed)
	done()

	done = p.metrics.Stage(metrics.StageScore)
	ranked := p.scorer.RankNarratives(candidates, window.Start, window.End, baseline)
	if limit := p.cfg.Analysis.MaxNarratives; len(ranked) > limit {
		ranked = ranked[:limit]
	}
	done()

	done = p.metrics.Stage(metrics.StageEvidence)
	narratives := make([]model.RankedNarrative, 0, len(ranked))
	for i, sc := range ranked {
		narratives = append(narratives, p.explain(i+1, sc, window))
	}
	done()

	generated := p.now().UTC()
	report := &model.Report{
		RunID:         runID,
		WindowStart:   window.Start,
		WindowEnd:     window.End,
		BaselineStart: window.BaselineStart,
		GeneratedAt:   generated,
		Narratives:    narratives,
		Metadata: model.ReportMetadata{
			TotalEvents:    len(inWindow),
			DedupedEvents:  len(processed),
			BaselineEvents: len(baseline),
			CandidateCount: len(candidates),
			SourcesUsed:    sourcesUsed(inWindow),
			WindowDays:     window.Days(),
			BaselineDays:   window.BaselineDays(),
		},
	}

	p.metrics.SetCounts(metrics.Counts{
		Ingested:   len(inWindow),
		Deduped:    len(processed),
		Baseline:   len(baseline),
		Candidates: len(candidates),
		Ranked:     len(narratives),
	})
	if len(narratives) > 0 {
		p.metrics.SetTopComposite(narratives[0].Score.Composite)
	}
	p.metrics.MarkRun(generated)

	logging.Info("pipeline_complete", "run_id", runID, "narratives", len(narratives))
	return report
}

func (p *Pipeline) explain(rank int, sc model.ScoredCandidate, window model.Window) model.RankedNarrative {
	c := &sc.Candidate
	confidence, reasoning := evidence.Confidence(c, sc.Score)
	return model.RankedNarrative{
		Rank:                rank,
		NarrativeID:         c.ID,
		Label:               c.Label,
		Description:         c.Description,
		Explanation:         evidence.Explanation(c, sc.Score),
		WhyNow:              evidence.WhyNow(c, sc.Score, window),
		Score:               sc.Score,
		Confidence:          confidence,
		ConfidenceReasoning: reasoning,
		EvidenceCards:       p.evidence.RankEvidence(c, sc.Score),
		Entities:            c.Entities,
		Keywords:            c.ClusterKeywords,
		EventCount:          len(c.Events),
		Timeline:            Timeline(c.Events, window.Start, window.End),
	}
}

// NewRunID returns run_YYYYMMDD_<8 hex chars>.
func NewRunID(end time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "run_" + end.UTC().Format("20060102") + "_" + hex[:8]
}

// Timeline counts events per UTC calendar day for every day from start to
// end, stepping one day at a time from start. Days without events are zero.
func Timeline(events []model.SignalEvent, start, end time.Time) []model.TimelinePoint {
	daily := make(map[string]int)
	for _, e := range events {
		daily[e.Timestamp.UTC().Format(time.DateOnly)]++
	}

	points := []model.TimelinePoint{}
	for day := start.UTC(); !day.After(end.UTC()); day = day.AddDate(0, 0, 1) {
		date := day.Format(time.DateOnly)
		points = append(points, model.TimelinePoint{Date: date, Count: daily[date]})
	}
	return points
}

// sourcesUsed lists the distinct subtypes present, sorted.
func sourcesUsed(events []model.SignalEvent) []string {
	seen := make(map[string]bool)
	sources := []string{}
	for _, e := range events {
		s := string(e.Subtype)
		if !seen[s] {
			seen[s] = true
			sources = append(sources, s)
		}
	}
	sort.Strings(sources)
	return sources
}
