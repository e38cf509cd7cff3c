package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/model"
	"github.com/abelbrown/narratives/internal/store"
	"github.com/abelbrown/narratives/internal/ui"
)

func runView() {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	cfgPath := configFlag(fs)
	runID := fs.String("run", "", "Run id to view (default latest)")
	file := fs.String("file", "", "View a JSON report file instead of the store")
	fs.Parse(os.Args[1:])

	cfg := setup(*cfgPath)
	defer logging.Close()

	var r *model.Report
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			fatalf("read report: %v", err)
		}
		r = &model.Report{}
		if err := json.Unmarshal(data, r); err != nil {
			fatalf("decode report %s: %v", *file, err)
		}
	} else {
		st := openDB(cfg)
		var err error
		if *runID != "" {
			r, err = st.Report(*runID)
		} else {
			r, err = st.LatestReport()
		}
		st.Close()
		if errors.Is(err, store.ErrNotFound) {
			fmt.Println("No such run. Try 'narr history'.")
			os.Exit(1)
		}
		if err != nil {
			fatalf("load report: %v", err)
		}
	}

	if err := ui.Run(r); err != nil {
		fatalf("viewer: %v", err)
	}
}
