package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/offlinefirst/touchtrack/pkg/config"
	"github.com/offlinefirst/touchtrack/pkg/replay"
	"github.com/offlinefirst/touchtrack/pkg/runmanifest"
	"github.com/offlinefirst/touchtrack/pkg/touch"
)

// Termination causes recorded in the lifecycle.
const (
	TerminationCompleted = "completed"
	TerminationDetached  = "detached"
	TerminationCancelled = "cancelled"
	TerminationError     = "error"
)

// Options controls replay orchestration.
type Options struct {
	Config  config.Config
	Layout  runmanifest.Layout
	Logger  *slog.Logger
	Clock   func() time.Time
	Control *Controller
	// Source overrides the configured input.
	Source replay.Source
}

// Lifecycle captures when the run started and stopped and why.
type Lifecycle struct {
	StartedAt          time.Time
	FinishedAt         time.Time
	TerminationCause   string
	ControllerTimeline []runmanifest.ControllerTimelineEntry
}

// Summary reports the results of a run.
type Summary struct {
	Replay    *replay.Result
	Lifecycle *Lifecycle
}

// Run replays the configured source into the run layout. The lifecycle is
// populated even when an error is returned.
func Run(ctx context.Context, opts Options) (Summary, error) {
	if opts.Logger == nil {
		return Summary{}, errors.New("logger must be provided")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	logFile, err := os.OpenFile(opts.Layout.CaptureLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Summary{}, fmt.Errorf("open capture log: %w", err)
	}
	defer logFile.Close()

	controller := opts.Control
	if controller == nil {
		controller = NewControllerWithClock(clock)
	}

	lifecycle := &Lifecycle{StartedAt: clock().UTC()}
	summary := Summary{Lifecycle: lifecycle}
	finish := func(cause string) {
		lifecycle.FinishedAt = clock().UTC()
		lifecycle.TerminationCause = cause
		lifecycle.ControllerTimeline = controller.Timeline()
		writeCaptureLog(logFile, lifecycle.FinishedAt, "session", "finished (%s)", cause)
	}

	source := opts.Source
	if source == nil && opts.Config.Replay.Input != "" {
		source, err = replay.NewFileSource(opts.Config.Replay.Input)
		if err != nil {
			finish(TerminationError)
			return summary, fmt.Errorf("initialise replay source: %w", err)
		}
	}
	sourceName := "synthetic"
	if opts.Config.Replay.Input != "" {
		sourceName = opts.Config.Replay.Input
	}
	if opts.Source != nil {
		sourceName = "custom"
	}

	if err := controller.Wait(ctx); err != nil {
		if errors.Is(err, replay.ErrSourceDetached) {
			finish(TerminationDetached)
			return summary, nil
		}
		finish(causeFor(err))
		return summary, err
	}

	replayer, err := replay.NewReplayer(replay.Options{
		Selective:         opts.Config.Tracker.Selective,
		LongPressDuration: time.Duration(opts.Config.Tracker.LongPressMS) * time.Millisecond,
		DragThreshold:     opts.Config.Tracker.DragThreshold,
		Select:            selectTargets(opts.Config.Tracker.SelectTargets),
		Gate:              controller.Wait,
		Source:            source,
		Clock:             clock,
		Logger:            opts.Logger.With("component", "tracker"),
	})
	if err != nil {
		controller.Kill(err)
		finish(TerminationError)
		return summary, fmt.Errorf("initialise replayer: %w", err)
	}

	opts.Logger.Info("starting touch replay", "source", sourceName, "selective", opts.Config.Tracker.Selective)
	writeCaptureLog(logFile, clock(), "replay", "started (source=%s selective=%t)", sourceName, opts.Config.Tracker.Selective)

	res, err := replayer.Run(ctx, opts.Layout.TracksDir)
	if err != nil {
		controller.Kill(err)
		writeCaptureLog(logFile, clock(), "replay", "failed: %v", err)
		finish(causeFor(err))
		return summary, fmt.Errorf("touch replay failed: %w", err)
	}
	summary.Replay = &res

	writeCaptureLog(logFile, clock(), "replay", "emitted %d records for %d contacts (%d forced, %d long presses, %d ignored)", res.RecordCount, res.ContactCount, res.ForcedCount, res.LongPressCount, res.IgnoredCount)
	opts.Logger.Info("touch replay complete", "notifications", res.NotificationCount, "records", res.RecordCount, "contacts", res.ContactCount, "forced", res.ForcedCount, "long_presses", res.LongPressCount)

	if res.Detached {
		finish(TerminationDetached)
	} else {
		finish(TerminationCompleted)
	}
	return summary, nil
}

// selectTargets opts in contacts whose target is listed.
func selectTargets(targets []string) func(*touch.Snapshot) bool {
	if len(targets) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		allowed[target] = struct{}{}
	}
	return func(s *touch.Snapshot) bool {
		_, ok := allowed[s.Contact.Target]
		return ok
	}
}

func causeFor(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return TerminationCancelled
	}
	return TerminationError
}

func writeCaptureLog(file *os.File, timestamp time.Time, subsystem, message string, args ...any) {
	if file == nil {
		return
	}
	formatted := message
	if len(args) > 0 {
		formatted = fmt.Sprintf(message, args...)
	}
	line := fmt.Sprintf("[%s] subsystem=%s %s\n", timestamp.UTC().Format(time.RFC3339), subsystem, formatted)
	_, _ = file.WriteString(line)
}
