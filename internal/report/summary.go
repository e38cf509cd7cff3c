package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/narratives/internal/model"
)

var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(colorPrimary).
			Padding(0, 1)

	metaStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	rankStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true).
			Width(4)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Bold(true)

	barStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)
)

const barWidth = 20

// Summary renders a compact terminal view of r.
func Summary(r *model.Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Narratives " + r.WindowStart.Format(time.DateOnly) + " to " + r.WindowEnd.Format(time.DateOnly)))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(fmt.Sprintf("run %s · %s events · %s after dedup · %d candidates",
		r.RunID,
		humanize.Comma(int64(r.Metadata.TotalEvents)),
		humanize.Comma(int64(r.Metadata.DedupedEvents)),
		r.Metadata.CandidateCount,
	)))
	b.WriteString("\n\n")

	if len(r.Narratives) == 0 {
		b.WriteString(metaStyle.Render("No narratives cleared the score threshold."))
		b.WriteString("\n")
		return b.String()
	}

	var rows []string
	for _, n := range r.Narratives {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			rankStyle.Render(fmt.Sprintf("#%d", n.Rank)),
			labelStyle.Render(n.Label),
		))
		rows = append(rows, fmt.Sprintf("    %s %.3f  confidence %s  %d events",
			barStyle.Render(Bar(n.Score.Composite, barWidth)),
			n.Score.Composite,
			percent(n.Confidence),
			n.EventCount,
		))
	}
	b.WriteString(boxStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")
	return b.String()
}

// Bar draws v in [0,1] as a fixed-width bar.
func Bar(v float64, width int) string {
	v = max(0, min(1, v))
	filled := int(v*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
