package cmd

import (
	"flag"
	"fmt"
	"io"

	"github.com/offlinefirst/touchtrack/pkg/touch"
)

func newVersionCommand() command {
	return command{
		name:        "version",
		description: "Print the CLI version and built-in tracker thresholds",
		skipInit:    true,
		run: func(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
			if _, err := fmt.Fprintln(stdout, versionString()); err != nil {
				return err
			}
			_, err := fmt.Fprintf(stdout, "tracker defaults: long_press=%s drag_threshold=%g\n", touch.DefaultLongPressDuration, touch.DefaultDragThreshold)
			return err
		},
	}
}
