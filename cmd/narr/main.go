// Command narr detects emerging narratives in Solana ecosystem signals.
//
// Usage:
//
//	narr                          Show help
//	narr fetch                    Fetch RSS feeds into the event store
//	narr import <snapshot.json>   Import an event snapshot into the store
//	narr run                      Analyze the current window and save the report
//	narr history                  List past runs
//	narr view                     Browse a report interactively
package main

import (
	"fmt"
	"os"
)

const usage = `narr - narrative detection for Solana ecosystem signals

Usage:
  narr <command> [flags]

Commands:
  fetch       Fetch configured RSS feeds into the event store
  import      Import JSON event snapshots into the event store
  run         Analyze the window and write the report
  history     List past runs, or one label's rank across runs
  view        Browse a stored report in the terminal

Environment:
  NARR_LOG_LEVEL        Log level override (debug, info, warn, error)
  NARR_DB               Database path override
  NARR_MAX_NARRATIVES   Maximum narratives per report

Run 'narr <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "fetch":
		runFetch()
	case "import":
		runImport()
	case "run":
		runAnalyze()
	case "history":
		runHistory()
	case "view":
		runView()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "narr: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
