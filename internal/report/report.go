// Package report renders analysis reports as JSON, Markdown and a styled
// terminal summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/abelbrown/narratives/internal/model"
)

// factorOrder is the display order of the score breakdown.
var factorOrder = []string{
	model.FactorVelocity,
	model.FactorBreadth,
	model.FactorCrossDomain,
	model.FactorNovelty,
	model.FactorCredibility,
	model.FactorSpamPenalty,
	model.FactorSingleSourcePenalty,
}

const (
	maxCardSummary = 120
	maxLinkText    = 60
)

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteMarkdown writes r as a Markdown document: run summary, ranking
// table, one section per narrative and the methodology notes.
func WriteMarkdown(w io.Writer, r *model.Report) error {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("# Solana Narrative Detection Report")
	line("## Fortnightly Analysis: %s to %s", longDate(r.WindowStart), longDate(r.WindowEnd))
	line("")
	line("**Generated**: %s", r.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"))
	line("**Run ID**: `%s`", r.RunID)
	line("**Baseline Period**: %s to %s", longDate(r.BaselineStart), longDate(r.WindowStart))
	line("")

	m := r.Metadata
	line("### Run Summary")
	line("- Total events ingested: %s", humanize.Comma(int64(m.TotalEvents)))
	line("- Events after dedup: %s", humanize.Comma(int64(m.DedupedEvents)))
	line("- Baseline events: %s", humanize.Comma(int64(m.BaselineEvents)))
	line("- Candidate narratives: %d", m.CandidateCount)
	line("- Ranked narratives: %d", len(r.Narratives))
	line("- Sources: %s", strings.Join(m.SourcesUsed, ", "))
	for _, e := range m.Errors {
		line("- Error: %s", e)
	}
	line("")

	line("---")
	line("## Top Narratives at a Glance")
	line("")
	line("| Rank | Narrative | Score | Confidence | Events |")
	line("|------|-----------|-------|------------|--------|")
	for _, n := range r.Narratives {
		line("| %d | %s | %.2f | %s | %d |", n.Rank, n.Label, n.Score.Composite, percent(n.Confidence), n.EventCount)
	}
	line("")

	for _, n := range r.Narratives {
		writeNarrative(line, n)
	}

	line("---")
	b.WriteString(methodology)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeNarrative(line func(string, ...any), n model.RankedNarrative) {
	line("---")
	line("## #%d: %s", n.Rank, n.Label)
	line("**Composite Score**: %.3f | **Confidence**: %s", n.Score.Composite, percent(n.Confidence))
	line("")

	line("### What & Why")
	line("%s", n.Explanation)
	line("")
	line("### Why Now")
	line("%s", n.WhyNow)
	line("")

	line("### Score Breakdown")
	line("| Feature | Raw | Contribution |")
	line("|---------|-----|-------------|")
	raw := n.Score.Factors()
	for _, f := range factorOrder {
		line("| %s | %.3f | %+.3f |", featureName(f), raw[f], n.Score.FeatureContributions[f])
	}
	line("")

	line("### Confidence Assessment")
	line("%s", n.ConfidenceReasoning)
	line("")

	line("### Evidence (%d signals)", len(n.EvidenceCards))
	for i, card := range n.EvidenceCards {
		line("")
		line("**%d. %s**", i+1, model.Prefix(card.Summary, maxCardSummary))
		if card.MetricHighlight != "" {
			line("   - Metrics: %s", card.MetricHighlight)
		}
		if card.Event.URL != "" {
			line("   - Link: [%s...](%s)", model.Prefix(card.Event.URL, maxLinkText), card.Event.URL)
		}
		line("   - Source: %s | Relevance: %.2f", card.Event.Subtype, card.RelevanceScore)
		line("   - Time: %s", card.Event.Timestamp.UTC().Format("2006-01-02 15:04"))
	}
	line("")
}

func featureName(f string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(f, "_", " "))
}

func longDate(t time.Time) string {
	return t.UTC().Format("January 02, 2006")
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

const methodology = `
## Methodology

### Detection Pipeline
1. **Ingestion**: Connectors fetch signals within the analysis window and the baseline period before it
2. **Normalization**: Entity names are resolved to canonical forms; exact and near-duplicate events are removed
3. **Clustering**: Entity co-occurrence analysis plus TF-IDF text clustering identifies candidate narratives
4. **Scoring**: Each narrative receives a composite score from velocity, breadth, cross-domain corroboration, novelty and credibility, minus spam and single-source penalties
5. **Explanation**: Evidence cards, "why now" notes and a confidence assessment are generated

### Limitations
- Entity extraction uses keyword matching, so novel projects without known keywords may be missed
- Clustering may merge related but distinct trends when entity overlap is high
- Narrative identity is not tracked across runs; compare labels in the run history instead
`
