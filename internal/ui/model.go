// Package ui is the interactive report viewer.
//
// The list shows the ranked narratives; enter opens a scrollable detail
// pane with the score breakdown and evidence cards.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/narratives/internal/model"
)

// Model is the Bubble Tea model of the viewer.
type Model struct {
	report        *model.Report
	list          list.Model
	detail        viewport.Model
	showDetail    bool
	width, height int
}

type narrativeItem struct {
	n model.RankedNarrative
}

func (i narrativeItem) Title() string {
	return fmt.Sprintf("#%d %s", i.n.Rank, i.n.Label)
}

func (i narrativeItem) Description() string {
	return fmt.Sprintf("score %.3f · confidence %.0f%% · %d events",
		i.n.Score.Composite, i.n.Confidence*100, i.n.EventCount)
}

func (i narrativeItem) FilterValue() string { return i.n.Label }

// New creates a viewer for r.
func New(r *model.Report) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(colorHighlight)

	items := make([]list.Item, 0, len(r.Narratives))
	for _, n := range r.Narratives {
		items = append(items, narrativeItem{n: n})
	}

	l := list.New(items, delegate, 0, 0)
	l.Title = fmt.Sprintf("Narratives %s to %s", r.WindowStart.Format("Jan 2"), r.WindowEnd.Format("Jan 2, 2006"))
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)

	return Model{
		report: r,
		list:   l,
		detail: viewport.New(0, 0),
	}
}

// Run starts the viewer and blocks until it exits.
func Run(r *model.Report) error {
	_, err := tea.NewProgram(New(r), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width, msg.Height-1)
		m.detail.Width = msg.Width
		m.detail.Height = msg.Height - 1
		if m.showDetail {
			m.openSelected()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.showDetail {
			switch msg.String() {
			case "q", "esc", "backspace":
				m.showDetail = false
				return m, nil
			}
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "enter":
				if m.openSelected() {
					return m, nil
				}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// openSelected renders the selected narrative into the detail pane.
func (m *Model) openSelected() bool {
	item, ok := m.list.SelectedItem().(narrativeItem)
	if !ok {
		return false
	}
	m.detail.SetContent(renderDetail(item.n, m.width))
	m.detail.GotoTop()
	m.showDetail = true
	return true
}

func (m Model) View() string {
	if m.showDetail {
		help := fmt.Sprintf("↑/↓ scroll · esc back · %3.f%%", m.detail.ScrollPercent()*100)
		return lipgloss.JoinVertical(lipgloss.Left, m.detail.View(), HelpStyle.Render(help))
	}
	if len(m.report.Narratives) == 0 {
		return StatusBar.Render("No narratives in run "+m.report.RunID) + "\n" + HelpStyle.Render("q quit")
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), HelpStyle.Render("enter open · / filter · q quit"))
}
