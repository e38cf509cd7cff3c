package model

import "time"

// Window is the analysis period plus the baseline period that precedes it.
type Window struct {
	Start         time.Time
	End           time.Time
	BaselineStart time.Time
}

// NewWindow builds a window ending at end.
func NewWindow(end time.Time, windowDays, baselineDays int) Window {
	start := end.AddDate(0, 0, -windowDays)
	return Window{
		Start:         start,
		End:           end,
		BaselineStart: start.AddDate(0, 0, -baselineDays),
	}
}

// Days is the whole number of days in the window, never less than 1.
func (w Window) Days() int {
	return wholeDays(w.End.Sub(w.Start))
}

// BaselineDays is the whole number of days in the baseline, never less than 1.
func (w Window) BaselineDays() int {
	return wholeDays(w.Start.Sub(w.BaselineStart))
}

// HasBaseline reports whether the window carries a baseline period.
func (w Window) HasBaseline() bool {
	return !w.BaselineStart.IsZero() && w.BaselineStart.Before(w.Start)
}

func wholeDays(d time.Duration) int {
	days := int(d / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}
