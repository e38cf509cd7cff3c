package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/abelbrown/narratives/internal/fetch"
	"github.com/abelbrown/narratives/internal/filter"
	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/metrics"
	"github.com/abelbrown/narratives/internal/model"
	"github.com/abelbrown/narratives/internal/pipeline"
	"github.com/abelbrown/narratives/internal/report"
)

func runAnalyze() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := configFlag(fs)
	date := fs.String("date", "", "Last day of the analysis window, YYYY-MM-DD (default today)")
	jsonOut := fs.String("json", "", "Write the report as JSON to this path")
	mdOut := fs.String("markdown", "", "Write the report as Markdown to this path")
	metricsFile := fs.String("metrics-file", "", "Write Prometheus textfile metrics to this path")
	snapshot := fs.String("snapshot", "", "Analyze a JSON event snapshot instead of the store")
	subtypes := fs.String("sources", "", "Comma-separated source subtypes to analyze (default all)")
	perSource := fs.Int("per-source", 0, "Keep at most N most recent events per source (0 = no limit)")
	noSave := fs.Bool("no-save", false, "Do not store the report")
	fs.Parse(os.Args[1:])

	cfg := setup(*cfgPath)
	defer logging.Close()

	end, err := windowEnd(*date)
	if err != nil {
		fatalf("%v", err)
	}

	rec := metrics.New()
	p, err := pipeline.New(cfg, rec)
	if err != nil {
		fatalf("%v", err)
	}
	window := p.Window(end)

	var events, history []model.SignalEvent
	if *snapshot != "" {
		all, err := fetch.LoadSnapshot(*snapshot)
		if err != nil {
			fatalf("%v", err)
		}
		events = filter.Between(all, window.Start, window.End)
		history = filter.Between(all, window.BaselineStart, window.Start)
	} else {
		st := openDB(cfg)
		events, err = st.EventsBetween(window.Start, window.End)
		if err == nil {
			history, err = st.EventsBetween(window.BaselineStart, window.Start)
		}
		st.Close()
		if err != nil {
			fatalf("load events: %v", err)
		}
	}

	if *subtypes != "" {
		allowed, err := parseSubtypes(*subtypes)
		if err != nil {
			fatalf("%v", err)
		}
		events = filter.BySubtype(events, allowed)
		history = filter.BySubtype(history, allowed)
	}
	if *perSource > 0 {
		events = filter.LimitPerSource(events, *perSource)
	}

	// No stored history means no baseline, not a baseline of zero activity.
	var baseline []model.SignalEvent
	if len(history) > 0 {
		baseline = history
	} else {
		logging.Warn("baseline_empty", "baseline_start", window.BaselineStart.Format(time.DateOnly))
	}

	r := p.Analyze(window, events, baseline)

	if !*noSave && *snapshot == "" {
		st := openDB(cfg)
		err := st.SaveReport(r)
		st.Close()
		if err != nil {
			fatalf("save report: %v", err)
		}
	}

	if *jsonOut != "" {
		writeFile(*jsonOut, func(f *os.File) error { return report.WriteJSON(f, r) })
		logging.Info("json_report_exported", "path", *jsonOut)
	}
	if *mdOut != "" {
		writeFile(*mdOut, func(f *os.File) error { return report.WriteMarkdown(f, r) })
		logging.Info("markdown_report_exported", "path", *mdOut)
	}
	if *metricsFile != "" {
		if err := rec.WriteTextfile(*metricsFile); err != nil {
			fatalf("%v", err)
		}
	}

	fmt.Print(report.Summary(r))
}

// windowEnd parses the -date flag. The named day is included in the window.
func windowEnd(date string) (time.Time, error) {
	if date == "" {
		return time.Now().UTC(), nil
	}
	day, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -date %q: want YYYY-MM-DD", date)
	}
	return day.AddDate(0, 0, 1), nil
}

func parseSubtypes(list string) ([]model.Subtype, error) {
	var out []model.Subtype
	for _, s := range strings.Split(list, ",") {
		st := model.Subtype(strings.TrimSpace(s))
		if !st.Valid() {
			return nil, fmt.Errorf("unknown source subtype %q", st)
		}
		out = append(out, st)
	}
	return out, nil
}

func writeFile(path string, write func(*os.File) error) {
	f, err := os.Create(path)
	if err != nil {
		fatalf("create %s: %v", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		fatalf("write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		fatalf("close %s: %v", path, err)
	}
}
