package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/abelbrown/narratives/internal/logging"
)

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	cfgPath := configFlag(fs)
	limit := fs.Int("n", 10, "Number of runs to show")
	label := fs.String("label", "", "Show how one narrative label ranked across runs")
	fs.Parse(os.Args[1:])

	cfg := setup(*cfgPath)
	defer logging.Close()

	st := openDB(cfg)
	defer st.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if *label != "" {
		ranks, err := st.LabelHistory(*label, *limit)
		if err != nil {
			fatalf("label history: %v", err)
		}
		if len(ranks) == 0 {
			fmt.Printf("No runs ranked %q.\n", *label)
			return
		}
		fmt.Fprintln(w, "RUN\tGENERATED\tRANK\tSCORE")
		for _, r := range ranks {
			fmt.Fprintf(w, "%s\t%s\t#%d\t%.3f\n", r.RunID, humanize.Time(r.GeneratedAt), r.Rank, r.Composite)
		}
		return
	}

	runs, err := st.Runs(*limit)
	if err != nil {
		fatalf("list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs yet. Try 'narr run'.")
		return
	}
	fmt.Fprintln(w, "RUN\tGENERATED\tWINDOW\tEVENTS\tNARRATIVES\tTOP")
	for _, r := range runs {
		top := "-"
		if r.TopLabel != "" {
			top = fmt.Sprintf("%s (%.3f)", r.TopLabel, r.TopComposite)
		}
		fmt.Fprintf(w, "%s\t%s\t%s..%s\t%s\t%d\t%s\n",
			r.RunID,
			humanize.Time(r.GeneratedAt),
			r.WindowStart.Format("Jan 2"), r.WindowEnd.Format("Jan 2"),
			humanize.Comma(int64(r.TotalEvents)),
			r.NarrativeCount,
			top,
		)
	}
}
