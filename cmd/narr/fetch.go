package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/abelbrown/narratives/internal/fetch"
	"github.com/abelbrown/narratives/internal/filter"
	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/metrics"
	"github.com/abelbrown/narratives/internal/model"
)

func runFetch() {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	cfgPath := configFlag(fs)
	days := fs.Int("days", 0, "Fetch items published in the last N days (default window + baseline)")
	metricsFile := fs.String("metrics-file", "", "Write Prometheus textfile metrics to this path")
	fs.Parse(os.Args[1:])

	cfg := setup(*cfgPath)
	defer logging.Close()

	if !cfg.Sources.RSS.Enabled {
		fmt.Println("RSS connector is disabled in the config; nothing to fetch.")
		return
	}
	if *days <= 0 {
		*days = cfg.Analysis.WindowDays + cfg.Analysis.BaselineDays
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	matcher := fetch.NewEntityMatcher(cfg.EntityAliases, cfg.Clustering.FallbackEntity)
	connector := fetch.NewRSSConnector(cfg.Sources.RSS, matcher)

	since := time.Now().UTC().AddDate(0, 0, -*days)
	events, err := connector.Fetch(ctx, since)
	failures := countFeedErrors(err)
	for _, e := range feedErrors(err) {
		fmt.Fprintf(os.Stderr, "warning: %v\n", e)
	}

	events = filter.DedupURL(events)

	st := openDB(cfg)
	defer st.Close()
	added, err := st.SaveEvents(events)
	if err != nil {
		fatalf("save events: %v", err)
	}

	rec := metrics.New()
	rec.SetConnectorFailures(connector.Name(), failures)
	rec.SetCounts(metrics.Counts{Ingested: len(events)})
	if *metricsFile != "" {
		if err := rec.WriteTextfile(*metricsFile); err != nil {
			fatalf("%v", err)
		}
	}

	fmt.Printf("Fetched %s events from %d feeds (%d failed), %s new.\n",
		humanize.Comma(int64(len(events))), len(cfg.Sources.RSS.Feeds), failures,
		humanize.Comma(int64(added)))
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := configFlag(fs)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: narr import [-config file] <snapshot.json>...")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	cfg := setup(*cfgPath)
	defer logging.Close()

	st := openDB(cfg)
	defer st.Close()

	var all []model.SignalEvent
	for _, path := range fs.Args() {
		events, err := fetch.LoadSnapshot(path)
		if err != nil {
			fatalf("%v", err)
		}
		logging.Info("snapshot_loaded", "path", path, "events", len(events))
		all = append(all, events...)
	}

	added, err := st.SaveEvents(all)
	if err != nil {
		fatalf("save events: %v", err)
	}
	total, _ := st.CountEvents()
	fmt.Printf("Imported %s events, %s new (%s in store).\n",
		humanize.Comma(int64(len(all))), humanize.Comma(int64(added)), humanize.Comma(int64(total)))
}

// feedErrors unpacks the joined per-feed errors of a connector.
func feedErrors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func countFeedErrors(err error) int {
	n := 0
	for _, e := range feedErrors(err) {
		var fe *fetch.FeedError
		if errors.As(e, &fe) {
			n++
		}
	}
	return n
}
