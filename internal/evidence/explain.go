package evidence

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/abelbrown/narratives/internal/model"
)

// Confidence rates how much a narrative can be trusted, in [0.1, 0.95],
// rounded to two decimals, with the reasons that moved it.
func Confidence(c *model.NarrativeCandidate, score model.ScoreBreakdown) (float64, string) {
	var reasons []string
	confidence := 0.5

	n := len(c.Events)
	switch {
	case n >= 10:
		confidence += 0.15
		reasons = append(reasons, fmt.Sprintf("Strong evidence base (%d events)", n))
	case n >= 5:
		confidence += 0.08
		reasons = append(reasons, fmt.Sprintf("Moderate evidence base (%d events)", n))
	default:
		confidence -= 0.1
		reasons = append(reasons, fmt.Sprintf("Limited evidence (%d events)", n))
	}

	switch {
	case score.CrossDomain > 0.5:
		confidence += 0.15
		reasons = append(reasons, "Cross-domain corroboration (onchain + offchain)")
	case score.CrossDomain > 0:
		confidence += 0.05
		reasons = append(reasons, "Some cross-domain signal")
	default:
		confidence -= 0.05
		reasons = append(reasons, "Single-domain only (lower confidence)")
	}

	if k := len(subtypeCounts(c.Events)); k >= 3 {
		confidence += 0.1
		reasons = append(reasons, fmt.Sprintf("Diverse sources (%d types)", k))
	}
	if score.SpamPenalty > 0.3 {
		confidence -= 0.15
		reasons = append(reasons, "Spam patterns detected (reducing confidence)")
	}
	if score.SingleSourcePenalty > 0.3 {
		confidence -= 0.1
		reasons = append(reasons, "Single source dominance detected")
	}

	confidence = math.Max(0.1, math.Min(0.95, confidence))
	reasoning := strings.Join(reasons, "; ") + fmt.Sprintf(". Overall confidence: %.0f%%.", confidence*100)
	return math.Round(confidence*100) / 100, reasoning
}

// Explanation says what the narrative is, where its signals came from and
// which score factors stand out.
func Explanation(c *model.NarrativeCandidate, score model.ScoreBreakdown) string {
	title := cases.Title(language.Und)
	var names []string
	for _, ent := range c.Entities[:min(5, len(c.Entities))] {
		names = append(names, title.String(strings.ReplaceAll(ent, "-", " ")))
	}

	var sources []string
	for _, sc := range topSubtypes(c.Events, 3) {
		sources = append(sources, fmt.Sprintf("%s (%d)", strings.ReplaceAll(string(sc.subtype), "_", " "), sc.count))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** is an emerging narrative in the Solana ecosystem centered around %s. ",
		c.Label, strings.Join(names, ", "))
	fmt.Fprintf(&b, "Over the analysis window, %d signal events were detected across %s.",
		len(c.Events), strings.Join(sources, ", "))

	if score.CrossDomain > 0.5 {
		b.WriteString(" This narrative shows strong cross-domain corroboration, appearing in both onchain activity and offchain discourse.")
	}
	if score.Velocity > 0.6 {
		b.WriteString(" The signal velocity is high, indicating rapid acceleration compared to the baseline period.")
	}
	if score.Novelty > 0.7 {
		b.WriteString(" This is a relatively novel cluster, suggesting an emerging rather than established trend.")
	}
	return b.String()
}

// WhyNow explains what makes the narrative timely within the window.
func WhyNow(c *model.NarrativeCandidate, score model.ScoreBreakdown, window model.Window) string {
	var parts []string

	if score.Velocity > 0.5 {
		parts = append(parts, fmt.Sprintf(
			"Signal velocity is %.0f%% of maximum, indicating significant acceleration in the %d-day window.",
			score.Velocity*100, window.Days()))
	}

	var onchain, offchain int
	for _, e := range c.Events {
		if e.IsOnchain() {
			onchain++
		} else {
			offchain++
		}
	}
	if onchain > 0 && offchain > 0 {
		parts = append(parts, fmt.Sprintf(
			"Cross-domain corroboration: %d onchain signals and %d offchain signals align on this narrative.",
			onchain, offchain))
	}

	if events := c.EventsByTime(); len(events) > 0 {
		latest := events[len(events)-1]
		trigger := "Most recent trigger: " + model.Prefix(latest.Text, 150) + "..."
		if latest.URL != "" {
			trigger += " (" + latest.URL + ")"
		}
		parts = append(parts, trigger)
	}

	if score.Novelty > 0.6 {
		parts = append(parts, "New entities or projects have entered this cluster recently, suggesting the narrative is still forming rather than mature.")
	}

	authors := make(map[string]bool)
	for _, e := range c.Events {
		if e.Author != "" {
			authors[e.Author] = true
		}
	}
	if len(authors) > 3 {
		parts = append(parts, fmt.Sprintf(
			"%d distinct contributors are driving this signal, suggesting organic growth rather than a single promoter.",
			len(authors)))
	}

	if len(parts) == 0 {
		return "This narrative shows steady signals across the analysis window."
	}
	return strings.Join(parts, " ")
}

type subtypeCount struct {
	subtype model.Subtype
	count   int
}

func subtypeCounts(events []model.SignalEvent) map[model.Subtype]int {
	counts := make(map[model.Subtype]int)
	for _, e := range events {
		counts[e.Subtype]++
	}
	return counts
}

// topSubtypes returns the n most common subtypes; ties keep first-seen order.
func topSubtypes(events []model.SignalEvent, n int) []subtypeCount {
	counts := subtypeCounts(events)
	var out []subtypeCount
	seen := make(map[model.Subtype]bool)
	for _, e := range events {
		if !seen[e.Subtype] {
			seen[e.Subtype] = true
			out = append(out, subtypeCount{e.Subtype, counts[e.Subtype]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out[:min(n, len(out))]
}
