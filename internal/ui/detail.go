package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/narratives/internal/model"
	"github.com/abelbrown/narratives/internal/report"
)

const factorBarWidth = 24

var factors = []struct {
	key     string
	name    string
	penalty bool
}{
	{model.FactorVelocity, "Velocity", false},
	{model.FactorBreadth, "Breadth", false},
	{model.FactorCrossDomain, "Cross-domain", false},
	{model.FactorNovelty, "Novelty", false},
	{model.FactorCredibility, "Credibility", false},
	{model.FactorSpamPenalty, "Spam penalty", true},
	{model.FactorSingleSourcePenalty, "Single-source penalty", true},
}

// renderDetail lays out one narrative for the viewport.
func renderDetail(n model.RankedNarrative, width int) string {
	text := lipgloss.NewStyle().Width(max(20, width-2))

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("#%d %s", n.Rank, n.Label)))
	b.WriteString("\n")
	b.WriteString(CardMeta.Render(fmt.Sprintf("composite %.3f · confidence %.0f%% · %d events · %s",
		n.Score.Composite, n.Confidence*100, n.EventCount, strings.Join(n.Entities, ", "))))
	b.WriteString("\n")

	b.WriteString(SectionHeader.Render("What & why"))
	b.WriteString("\n")
	b.WriteString(text.Render(n.Explanation))
	b.WriteString("\n")

	b.WriteString(SectionHeader.Render("Why now"))
	b.WriteString("\n")
	b.WriteString(text.Render(n.WhyNow))
	b.WriteString("\n")

	b.WriteString(SectionHeader.Render("Score"))
	b.WriteString("\n")
	raw := n.Score.Factors()
	for _, f := range factors {
		bar := FactorBar
		if f.penalty {
			bar = PenaltyBar
		}
		fmt.Fprintf(&b, "%s %s %.2f  %+.3f\n",
			FactorName.Render(f.name),
			bar.Render(report.Bar(raw[f.key], factorBarWidth)),
			raw[f.key],
			n.Score.FeatureContributions[f.key],
		)
	}

	b.WriteString(SectionHeader.Render("Confidence"))
	b.WriteString("\n")
	b.WriteString(text.Render(n.ConfidenceReasoning))
	b.WriteString("\n")

	b.WriteString(SectionHeader.Render(fmt.Sprintf("Evidence (%d)", len(n.EvidenceCards))))
	b.WriteString("\n")
	for i, card := range n.EvidenceCards {
		b.WriteString(text.Render(fmt.Sprintf("%d. %s", i+1, card.Summary)))
		b.WriteString("\n")
		meta := []string{
			card.Event.Timestamp.UTC().Format("2006-01-02 15:04"),
			fmt.Sprintf("relevance %.2f", card.RelevanceScore),
		}
		if card.MetricHighlight != "" {
			meta = append(meta, card.MetricHighlight)
		}
		if card.Event.URL != "" {
			meta = append(meta, card.Event.URL)
		}
		b.WriteString(CardMeta.Render("   " + strings.Join(meta, " · ")))
		b.WriteString("\n")
	}
	return b.String()
}
