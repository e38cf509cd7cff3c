package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/narratives/internal/model"
)

func testReport() *model.Report {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := model.NewSignalEvent(start.Add(24*time.Hour), model.SubtypeGitHub, []string{"jupiter"}, "jup-ag/perps released v2")
	return &model.Report{
		RunID:       "run_20260115_abcdef12",
		WindowStart: start,
		WindowEnd:   start.AddDate(0, 0, 14),
		Narratives: []model.RankedNarrative{
			{
				Rank:        1,
				Label:       "DeFi & Jupiter",
				Explanation: "Jupiter perps are taking off.",
				WhyNow:      "Volume doubled this fortnight.",
				Score:       model.ScoreBreakdown{Composite: 0.61, Velocity: 0.9},
				Confidence:  0.8,
				EvidenceCards: []model.EvidenceCard{
					{Event: e, Summary: "[GitHub] jup-ag/perps released v2", RelevanceScore: 0.9, MetricHighlight: "1,234 stars"},
				},
				EventCount: 9,
			},
			{Rank: 2, Label: "Firedancer & Validator", Score: model.ScoreBreakdown{Composite: 0.4}, EventCount: 4},
		},
	}
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func press(m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	updated, cmd := m.Update(key)
	return updated.(Model), cmd
}

func TestListView(t *testing.T) {
	m := sized(t, New(testReport()))

	view := m.View()
	for _, want := range []string{"DeFi & Jupiter", "Firedancer & Validator"} {
		if !strings.Contains(view, want) {
			t.Errorf("list view missing %q", want)
		}
	}
}

func TestOpenDetail(t *testing.T) {
	m := sized(t, New(testReport()))

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.showDetail {
		t.Fatal("expected detail pane after enter")
	}
	view := m.View()
	for _, want := range []string{"#1 DeFi & Jupiter", "Velocity", "Evidence (1)", "1,234 stars"} {
		if !strings.Contains(view, want) {
			t.Errorf("detail view missing %q", want)
		}
	}

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.showDetail {
		t.Error("expected esc to return to the list")
	}
}

func TestQuit(t *testing.T) {
	m := sized(t, New(testReport()))

	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestEmptyReport(t *testing.T) {
	r := testReport()
	r.Narratives = nil
	m := sized(t, New(r))

	if !strings.Contains(m.View(), "No narratives") {
		t.Errorf("unexpected view %q", m.View())
	}
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.showDetail {
		t.Error("enter on an empty list opened the detail pane")
	}
}
