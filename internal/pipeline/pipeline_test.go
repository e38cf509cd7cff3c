package pipeline

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/abelbrown/narratives/internal/config"
	"github.com/abelbrown/narratives/internal/metrics"
	"github.com/abelbrown/narratives/internal/model"
)

var end = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2026, 1, d, 12, 0, 0, 0, time.UTC)
}

func event(ts time.Time, subtype model.Subtype, author, text string, entities ...string) model.SignalEvent {
	e := model.NewSignalEvent(ts, subtype, entities, text)
	e.Author = author
	return e
}

func jupiterEvents() []model.SignalEvent {
	return []model.SignalEvent{
		event(day(3), model.SubtypeGitHub, "jup-ag", "jup-ag/perps release v2 with new order types", "Jupiter", "defi"),
		event(day(4), model.SubtypeTwitter, "weremeow", "Jupiter perps volume hits a record on mainnet", "jupiter", "DeFi"),
		event(day(5), model.SubtypeTxActivity, "", "Jupiter program transactions doubled this week", "jup", "defi"),
		event(day(6), model.SubtypeRSSBlog, "Jup Blog", "[Jup Blog] Lending integrations announced", "jupiter", "defi"),
		event(day(8), model.SubtypeForum, "kash", "Proposal to expand DAO grants for builders", "jupiter", "defi"),
		event(day(10), model.SubtypeProgramDeploy, "", "New limit order program deployed", "jupiter", "defi"),
	}
}

func validatorEvents() []model.SignalEvent {
	return []model.SignalEvent{
		event(day(2), model.SubtypeGitHub, "firedancer-io", "frankendancer testnet build", "firedancer", "validator"),
		event(day(7), model.SubtypeTwitter, "anza", "Client diversity keeps improving", "firedancer", "validator"),
		event(day(9), model.SubtypeRSSBlog, "Helius Blog", "[Helius Blog] Stake weighted QoS explained", "validator", "firedancer"),
	}
}

func newPipeline(t *testing.T, cfg *config.Config, rec *metrics.Recorder) *Pipeline {
	t.Helper()
	p, err := New(cfg, rec)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	p.now = func() time.Time { return end.Add(time.Hour) }
	return p
}

func TestNewRejectsIncompleteScoring(t *testing.T) {
	cfg := config.DefaultConfig()
	delete(cfg.Scoring.Weights, "velocity")

	if _, err := New(cfg, nil); !errors.Is(err, config.ErrMissingWeight) {
		t.Errorf("expected ErrMissingWeight, got %v", err)
	}
}

func TestAnalyze(t *testing.T) {
	rec := metrics.New()
	p := newPipeline(t, config.DefaultConfig(), rec)
	window := p.Window(end)

	events := jupiterEvents()
	events = append(events,
		events[0], // exact duplicate
		event(time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC), model.SubtypeForum, "x", "before the window", "jupiter"),
	)

	report := p.Analyze(window, events, nil)

	if !regexp.MustCompile(`^run_20260115_[0-9a-f]{8}$`).MatchString(report.RunID) {
		t.Errorf("unexpected run id %q", report.RunID)
	}
	if !report.GeneratedAt.Equal(end.Add(time.Hour)) {
		t.Errorf("generated at = %v", report.GeneratedAt)
	}
	if !report.WindowStart.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("window start = %v", report.WindowStart)
	}

	meta := report.Metadata
	if meta.TotalEvents != 7 || meta.DedupedEvents != 6 || meta.CandidateCount != 1 {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.WindowDays != 14 || meta.BaselineDays != 56 {
		t.Errorf("window days = %d/%d", meta.WindowDays, meta.BaselineDays)
	}
	if len(meta.SourcesUsed) != 6 || meta.SourcesUsed[0] != "forum" {
		t.Errorf("sources used = %v", meta.SourcesUsed)
	}

	if len(report.Narratives) != 1 {
		t.Fatalf("expected 1 narrative, got %d", len(report.Narratives))
	}
	n := report.Narratives[0]
	if n.Rank != 1 || n.NarrativeID != "entity_0" || n.Label != "DeFi & Jupiter" {
		t.Errorf("narrative = %d %s %q", n.Rank, n.NarrativeID, n.Label)
	}
	if n.EventCount != 6 || len(n.EvidenceCards) != 6 {
		t.Errorf("event count = %d, cards = %d", n.EventCount, len(n.EvidenceCards))
	}
	if n.Score.Velocity != 0.3 || n.Score.Novelty != 0.8 {
		t.Errorf("no-baseline velocity/novelty = %v/%v", n.Score.Velocity, n.Score.Novelty)
	}
	if n.Confidence < 0.1 || n.Confidence > 0.95 || n.ConfidenceReasoning == "" {
		t.Errorf("confidence = %v %q", n.Confidence, n.ConfidenceReasoning)
	}
	if n.Explanation == "" || n.WhyNow == "" {
		t.Error("expected explanation and why-now text")
	}

	if len(n.Timeline) != 15 {
		t.Fatalf("expected 15 timeline days, got %d", len(n.Timeline))
	}
	total := 0
	for _, pt := range n.Timeline {
		total += pt.Count
	}
	if total != 6 || n.Timeline[2].Date != "2026-01-03" || n.Timeline[2].Count != 1 {
		t.Errorf("timeline = %+v", n.Timeline)
	}

	gauges := gather(t, rec)
	if gauges["narr_events_ingested"] != 7 || gauges["narr_narratives_ranked"] != 1 {
		t.Errorf("metrics = %v", gauges)
	}
	if gauges["narr_top_composite"] != n.Score.Composite {
		t.Errorf("top composite gauge = %v, want %v", gauges["narr_top_composite"], n.Score.Composite)
	}
}

func TestAnalyzeBaseline(t *testing.T) {
	p := newPipeline(t, config.DefaultConfig(), nil)
	window := p.Window(end)

	baseline := []model.SignalEvent{
		event(time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC), model.SubtypeTwitter, "x", "jup is quiet", "JUP"),
		event(time.Date(2025, 12, 21, 0, 0, 0, 0, time.UTC), model.SubtypeTwitter, "y", "unrelated", "nft"),
		event(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), model.SubtypeTwitter, "z", "before the baseline", "defi"),
	}

	report := p.Analyze(window, jupiterEvents(), baseline)
	if report.Metadata.BaselineEvents != 2 {
		t.Errorf("baseline events = %d, want 2", report.Metadata.BaselineEvents)
	}
	if len(report.Narratives) != 1 {
		t.Fatalf("expected 1 narrative, got %d", len(report.Narratives))
	}
	score := report.Narratives[0].Score
	// Only jupiter was seen before: half the entities are new
	if score.Novelty != 0.95 {
		t.Errorf("novelty = %v, want 0.95", score.Novelty)
	}
	if score.Velocity != 1 {
		t.Errorf("velocity = %v, want 1", score.Velocity)
	}
}

func TestAnalyzeEmptyBaselineFallsBack(t *testing.T) {
	p := newPipeline(t, config.DefaultConfig(), nil)

	report := p.Analyze(p.Window(end), jupiterEvents(), []model.SignalEvent{})
	score := report.Narratives[0].Score
	if score.Velocity != 0.3 || score.Novelty != 0.8 {
		t.Errorf("velocity/novelty = %v/%v, want 0.3/0.8", score.Velocity, score.Novelty)
	}
}

func TestAnalyzeBaselineDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	off := false
	cfg.Analysis.UseBaseline = &off
	p := newPipeline(t, cfg, nil)

	report := p.Analyze(p.Window(end), jupiterEvents(), []model.SignalEvent{})
	score := report.Narratives[0].Score
	if score.Velocity != 0.3 || score.Novelty != 0.8 {
		t.Errorf("velocity/novelty = %v/%v, want 0.3/0.8", score.Velocity, score.Novelty)
	}
	if report.Metadata.BaselineEvents != 0 {
		t.Errorf("baseline events = %d", report.Metadata.BaselineEvents)
	}
}

func TestAnalyzeMaxNarratives(t *testing.T) {
	events := append(jupiterEvents(), validatorEvents()...)

	p := newPipeline(t, config.DefaultConfig(), nil)
	report := p.Analyze(p.Window(end), events, nil)
	if len(report.Narratives) != 2 {
		t.Fatalf("expected 2 narratives, got %d", len(report.Narratives))
	}
	for i, n := range report.Narratives {
		if n.Rank != i+1 {
			t.Errorf("narrative %d has rank %d", i, n.Rank)
		}
	}
	if report.Narratives[0].Score.Composite < report.Narratives[1].Score.Composite {
		t.Error("narratives not sorted by composite")
	}

	cfg := config.DefaultConfig()
	cfg.Analysis.MaxNarratives = 1
	p = newPipeline(t, cfg, nil)
	report = p.Analyze(p.Window(end), events, nil)
	if len(report.Narratives) != 1 {
		t.Errorf("expected 1 narrative, got %d", len(report.Narratives))
	}
	if report.Metadata.CandidateCount < 2 {
		t.Errorf("candidate count = %d", report.Metadata.CandidateCount)
	}
}

func TestAnalyzeThinInput(t *testing.T) {
	p := newPipeline(t, config.DefaultConfig(), nil)

	report := p.Analyze(p.Window(end), nil, nil)
	if report.Narratives == nil || len(report.Narratives) != 0 {
		t.Errorf("expected empty non-nil narratives, got %#v", report.Narratives)
	}
	if report.Metadata.TotalEvents != 0 || report.Metadata.CandidateCount != 0 {
		t.Errorf("metadata = %+v", report.Metadata)
	}
}

func TestTimeline(t *testing.T) {
	start := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	stop := time.Date(2026, 1, 4, 6, 0, 0, 0, time.UTC)
	events := []model.SignalEvent{
		{Timestamp: time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)},
		{Timestamp: time.Date(2026, 1, 3, 1, 0, 0, 0, time.UTC)},
		{Timestamp: time.Date(2026, 1, 3, 2, 0, 0, 0, time.UTC)},
	}

	got := Timeline(events, start, stop)
	want := []model.TimelinePoint{
		{Date: "2026-01-01", Count: 1},
		{Date: "2026-01-02", Count: 0},
		{Date: "2026-01-03", Count: 2},
		{Date: "2026-01-04", Count: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if pts := Timeline(nil, stop, start); pts == nil || len(pts) != 0 {
		t.Errorf("reversed range = %#v", pts)
	}
}

func gather(t *testing.T, rec *metrics.Recorder) map[string]float64 {
	t.Helper()
	families, err := rec.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	out := make(map[string]float64)
	for _, mf := range families {
		if ms := mf.GetMetric(); len(ms) == 1 && ms[0].GetGauge() != nil {
			out[mf.GetName()] = ms[0].GetGauge().GetValue()
		}
	}
	return out
}
