package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the viewer.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorPenalty   = lipgloss.Color("203") // Red
)

// TitleStyle for the detail pane header.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// SectionHeader style for headings inside the detail pane.
var SectionHeader = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	MarginTop(1)

// FactorName style for score breakdown labels.
var FactorName = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Width(22)

// FactorBar style for positive score bars.
var FactorBar = lipgloss.NewStyle().
	Foreground(colorSuccess)

// PenaltyBar style for penalty bars.
var PenaltyBar = lipgloss.NewStyle().
	Foreground(colorPenalty)

// CardMeta style for evidence card metadata lines.
var CardMeta = lipgloss.NewStyle().
	Foreground(colorMuted)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// HelpStyle for key hints.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(0, 1)
