package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/offlinefirst/touchtrack/internal/buildinfo"
	"github.com/offlinefirst/touchtrack/pkg/config"
	"github.com/offlinefirst/touchtrack/pkg/logging"
	"github.com/offlinefirst/touchtrack/pkg/runmanifest"
	"github.com/offlinefirst/touchtrack/pkg/session"
)

func newReplayCommand() command {
	return command{
		name:        "replay",
		description: "Replay touch notifications through the contact tracker",
		configure: func(fs *flag.FlagSet) {
			fs.Bool("plan-only", false, "Print the resolved configuration without replaying")
			fs.String("input", "", "JSONL notification recording (default: synthetic gesture)")
		},
		run: runReplay,
	}
}

var (
	timeNow      = time.Now
	hostname     = os.Hostname
	manifestSave = runmanifest.Save
)

func runReplay(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	cfg := ctx.Config
	if input := stringFlag(fs, "input"); input != "" {
		cfg.Replay.Input = input
	}

	planOnly := boolFlag(fs, "plan-only")
	ctx.Logger.Info("replay command invoked", "plan_only", planOnly, "runs_dir", cfg.Paths.RunsDir, "config_source", cfg.Source)

	if planOnly {
		printReplayPlan(cfg, stdout)
		return nil
	}

	if err := os.MkdirAll(cfg.Paths.RunsDir, 0o755); err != nil {
		return fmt.Errorf("ensure runs directory: %w", err)
	}

	runID, err := runmanifest.ResolveRunID(cfg.Paths.RunsDir, timeNow())
	if err != nil {
		return fmt.Errorf("resolve run id: %w", err)
	}

	layout := runmanifest.BuildLayout(cfg.Paths.RunsDir, runID)
	if err := runmanifest.EnsureFilesystem(layout); err != nil {
		return fmt.Errorf("prepare run filesystem: %w", err)
	}

	host, err := hostname()
	if err != nil {
		host = "unknown"
	}

	manifest := runmanifest.New(runmanifest.Options{
		RunID:      runID,
		CreatedAt:  timeNow(),
		Hostname:   host,
		AppVersion: buildinfo.Version(),
		Config:     cfg,
		Layout:     layout,
	})

	logger := logging.ForRun(ctx.Logger, runID, manifest.SessionID)

	manifest.Status.State = runmanifest.StateRunning
	manifest.Status.Summary = "replay in progress"
	if err := manifestSave(manifest, layout.ManifestPath); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	summary, err := session.Run(context.Background(), session.Options{
		Config: cfg,
		Layout: layout,
		Logger: logger,
		Clock:  timeNow,
	})

	if summary.Lifecycle != nil {
		started := summary.Lifecycle.StartedAt.UTC()
		finished := summary.Lifecycle.FinishedAt.UTC()
		manifest.Status.StartedAt = &started
		manifest.Status.EndedAt = &finished
		manifest.Status.Termination = summary.Lifecycle.TerminationCause
		if len(summary.Lifecycle.ControllerTimeline) > 0 {
			manifest.Status.Controller = append([]runmanifest.ControllerTimelineEntry(nil), summary.Lifecycle.ControllerTimeline...)
		}
	}
	if res := summary.Replay; res != nil {
		manifest.Status.Tracks = &runmanifest.TrackStats{
			Notifications: res.NotificationCount,
			Records:       res.RecordCount,
			Contacts:      res.ContactCount,
			Forced:        res.ForcedCount,
			LongPresses:   res.LongPressCount,
			Ignored:       res.IgnoredCount,
			Detached:      res.Detached,
		}
	}

	if err != nil {
		manifest.Status.State = runmanifest.StateFailed
		manifest.Status.Summary = err.Error()
		if manifest.Status.Termination == "" {
			manifest.Status.Termination = session.TerminationError
		}
		logger.Error("replay failed", "error", err)
		if saveErr := manifestSave(manifest, layout.ManifestPath); saveErr != nil {
			return fmt.Errorf("replay touch notifications: %v (additionally failed to persist manifest: %w)", err, saveErr)
		}
		return fmt.Errorf("replay touch notifications: %w", err)
	}

	if manifest.Status.Termination == "" {
		manifest.Status.Termination = session.TerminationCompleted
	}
	manifest.Status.State = runmanifest.StateCompleted
	manifest.Status.Summary = fmt.Sprintf("replay finished (%s)", manifest.Status.Termination)
	if err := manifestSave(manifest, layout.ManifestPath); err != nil {
		return fmt.Errorf("finalise manifest: %w", err)
	}

	fmt.Fprintf(stdout, "Prepared run directory: %s\n", layout.Root)
	fmt.Fprintf(stdout, "Manifest: %s\n", layout.ManifestPath)
	fmt.Fprintf(stdout, "Capture log: %s\n", layout.CaptureLogPath)
	fmt.Fprintf(stdout, "Session: %s\n", manifest.SessionID)

	if res := summary.Replay; res != nil {
		fmt.Fprintf(stdout, "Tracks: %d records from %d notifications -> %s\n", res.RecordCount, res.NotificationCount, res.TracksPath)
		fmt.Fprintf(stdout, "  contacts: %d (%d long presses, %d forced closed, %d ignored) -> %s\n", res.ContactCount, res.LongPressCount, res.ForcedCount, res.IgnoredCount, res.ContactsPath)
	} else {
		fmt.Fprintln(stdout, "Tracks: source detached before replay started")
	}

	if summary.Lifecycle != nil {
		fmt.Fprintf(stdout, "Lifecycle: started %s, ended %s (termination: %s)\n", summary.Lifecycle.StartedAt.Format(time.RFC3339), summary.Lifecycle.FinishedAt.Format(time.RFC3339), summary.Lifecycle.TerminationCause)
		printTimeline(stdout, summary.Lifecycle.ControllerTimeline)
	}

	return nil
}

func printReplayPlan(cfg config.Config, stdout io.Writer) {
	input := cfg.Replay.Input
	if input == "" {
		input = "<synthetic>"
	}
	fmt.Fprintf(stdout, "Resolved configuration (source: %s)\n", cfg.Source)
	fmt.Fprintf(stdout, "  runs_dir: %s\n", cfg.Paths.RunsDir)
	fmt.Fprintf(stdout, "  replay.input: %s\n", input)
	fmt.Fprintf(stdout, "  tracker.selective: %t\n", cfg.Tracker.Selective)
	fmt.Fprintf(stdout, "  tracker.select_targets: %s\n", strings.Join(cfg.Tracker.SelectTargets, ","))
	fmt.Fprintf(stdout, "  tracker.long_press_ms: %d\n", cfg.Tracker.LongPressMS)
	fmt.Fprintf(stdout, "  tracker.drag_threshold: %g\n", cfg.Tracker.DragThreshold)
	fmt.Fprintf(stdout, "  logging.level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(stdout, "  logging.format: %s\n", cfg.Logging.Format)
}

func printTimeline(stdout io.Writer, timeline []runmanifest.ControllerTimelineEntry) {
	if len(timeline) == 0 {
		return
	}
	fmt.Fprintf(stdout, "  Controller timeline:\n")
	for _, entry := range timeline {
		fmt.Fprintf(stdout, "    - %s -> %s", entry.Timestamp.Format(time.RFC3339), entry.State)
		if entry.Reason != "" {
			fmt.Fprintf(stdout, " (%s)", entry.Reason)
		}
		fmt.Fprintln(stdout)
	}
}

func boolFlag(fs *flag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	value, err := strconv.ParseBool(f.Value.String())
	if err != nil {
		return false
	}
	return value
}

func stringFlag(fs *flag.FlagSet, name string) string {
	f := fs.Lookup(name)
	if f == nil {
		return ""
	}
	return strings.TrimSpace(f.Value.String())
}
