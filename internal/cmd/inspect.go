package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/offlinefirst/touchtrack/pkg/runmanifest"
)

func newInspectCommand() command {
	return command{
		name:        "inspect",
		description: "Print the manifest of a replay run",
		skipInit:    true,
		run: func(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
			if len(args) != 1 {
				return errors.New("inspect requires a run directory or manifest path")
			}
			path := args[0]
			if filepath.Ext(path) != ".json" {
				path = filepath.Join(path, "manifest.json")
			}

			man, err := runmanifest.Load(path)
			if err != nil {
				return err
			}

			fmt.Fprintf(stdout, "Run %s (session %s)\n", man.RunID, man.SessionID)
			fmt.Fprintf(stdout, "  created: %s on %s (version %s)\n", man.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), man.Hostname, man.AppVersion)
			fmt.Fprintf(stdout, "  state: %s", man.Status.State)
			if man.Status.Termination != "" {
				fmt.Fprintf(stdout, " (termination: %s)", man.Status.Termination)
			}
			fmt.Fprintln(stdout)
			fmt.Fprintf(stdout, "  tracker: selective=%t long_press_ms=%d drag_threshold=%g\n", man.Tracker.Selective, man.Tracker.LongPressMS, man.Tracker.DragThreshold)
			if stats := man.Status.Tracks; stats != nil {
				fmt.Fprintf(stdout, "  tracks: %d records, %d contacts, %d long presses, %d forced, %d ignored\n", stats.Records, stats.Contacts, stats.LongPresses, stats.Forced, stats.Ignored)
			}
			printTimeline(stdout, man.Status.Controller)
			return nil
		},
	}
}
