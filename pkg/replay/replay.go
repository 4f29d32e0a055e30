package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/offlinefirst/touchtrack/pkg/logging"
	"github.com/offlinefirst/touchtrack/pkg/touch"
)

const (
	TracksFileName   = "tracks.jsonl"
	ContactsFileName = "contacts.json"
)

// Options controls replay behaviour.
type Options struct {
	Selective         bool
	LongPressDuration time.Duration
	DragThreshold     float64
	// Select opts a contact in on trackstart when Selective is set.
	Select func(*touch.Snapshot) bool
	// Gate is consulted before each notification; returning an error stops the stream.
	Gate   func(ctx context.Context) error
	Source Source
	Clock  func() time.Time
	Logger *slog.Logger
}

// Replayer drives a tracker from a notification source.
type Replayer struct {
	opts   Options
	clock  func() time.Time
	source Source
	logger *slog.Logger
}

// Result reports the files and counts produced by a replay.
type Result struct {
	TracksPath        string
	ContactsPath      string
	NotificationCount int
	RecordCount       int
	ContactCount      int
	ForcedCount       int
	LongPressCount    int
	IgnoredCount      int
	Detached          bool
	ReplayStart       time.Time
	ReplayEnd         time.Time
}

// Record is the persisted form of one emitted track event.
type Record struct {
	Kind       touch.Kind      `json:"kind"`
	Identifier int64           `json:"identifier"`
	Origin     string          `json:"origin,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Count      int             `json:"count"`
	HistoryLen int             `json:"history_len"`
	LongPress  touch.LongPress `json:"long_press"`
	ClientX    float64         `json:"client_x"`
	ClientY    float64         `json:"client_y"`
}

// ContactSummary describes one contact lifetime, from trackstart to trackend.
type ContactSummary struct {
	Identifier int64           `json:"identifier"`
	Origin     string          `json:"origin,omitempty"`
	FirstSeen  time.Time       `json:"first_seen"`
	LastSeen   time.Time       `json:"last_seen"`
	Moves      int             `json:"moves"`
	LongPress  touch.LongPress `json:"long_press"`
	Forced     bool            `json:"forced"`
}

// NewRecord converts an emitted event into its persisted form.
func NewRecord(ev touch.Event) Record {
	s := ev.Snapshot
	return Record{
		Kind:       ev.Kind,
		Identifier: s.Identifier(),
		Origin:     s.Origin,
		Timestamp:  s.Timestamp,
		Count:      s.Count,
		HistoryLen: len(s.History),
		LongPress:  s.LongPress,
		ClientX:    s.Contact.ClientX,
		ClientY:    s.Contact.ClientY,
	}
}

// NewReplayer validates options and constructs a replayer.
func NewReplayer(opts Options) (*Replayer, error) {
	if opts.LongPressDuration < 0 {
		return nil, errors.New("long press duration must not be negative")
	}
	if opts.DragThreshold < 0 || math.IsNaN(opts.DragThreshold) || math.IsInf(opts.DragThreshold, 0) {
		return nil, errors.New("drag threshold must be a finite, non-negative distance")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	source := opts.Source
	if source == nil {
		source = defaultSource(clock)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Replayer{opts: opts, clock: clock, source: source, logger: logger}, nil
}

// Run streams every notification through a fresh tracker, writes the
// emitted records and contact summaries into destDir and returns metadata.
// Contacts still open when the stream stops are closed by forced termination.
func (r *Replayer) Run(ctx context.Context, destDir string) (Result, error) {
	if destDir == "" {
		return Result{}, errors.New("destination directory must not be empty")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("ensure destination: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tracksPath := filepath.Join(destDir, TracksFileName)
	contactsPath := filepath.Join(destDir, ContactsFileName)

	tracksFile, err := os.OpenFile(tracksPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return Result{}, fmt.Errorf("create tracks file: %w", err)
	}
	defer tracksFile.Close()

	encoder := json.NewEncoder(tracksFile)
	encoder.SetEscapeHTML(false)

	var (
		now       = r.clock().UTC()
		first     time.Time
		last      time.Time
		forcing   bool
		writeErr  error
		result    Result
		summaries []ContactSummary
	)

	tracker, err := touch.NewTracker(touch.Options{
		Selective:         r.opts.Selective,
		LongPressDuration: r.opts.LongPressDuration,
		DragThreshold:     r.opts.DragThreshold,
		Clock:             func() time.Time { return now },
		Logger:            r.logger,
	})
	if err != nil {
		return Result{}, fmt.Errorf("initialise tracker: %w", err)
	}

	tracker.Subscribe(touch.ListenerFunc(func(ev touch.Event) {
		if writeErr == nil {
			if err := encoder.Encode(NewRecord(ev)); err != nil {
				writeErr = fmt.Errorf("write track record: %w", err)
			}
		}
		result.RecordCount++

		s := ev.Snapshot
		switch ev.Kind {
		case touch.TrackStart:
			if tracker.Selective() && r.opts.Select != nil && !tracker.Tracking(s.Identifier()) && r.opts.Select(s) {
				tracker.Track(s)
			}
		case touch.TrackEnd:
			summaries = append(summaries, summarise(s, forcing))
			if forcing {
				result.ForcedCount++
			}
			if s.LongPress == touch.LongPressTrue {
				result.LongPressCount++
			}
		}
	}))

	streamErr := r.source.Stream(ctx, func(n Notification) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.opts.Gate != nil {
			if err := r.opts.Gate(ctx); err != nil {
				return err
			}
		}

		if !n.At.IsZero() {
			now = n.At.UTC()
		} else {
			now = r.clock().UTC()
		}
		if first.IsZero() {
			first = now
		}
		last = now
		result.NotificationCount++

		before := result.RecordCount
		forcing = n.Kind == touch.NotifyDetach
		if err := tracker.Dispatch(n.touchNotification()); err != nil {
			return err
		}
		forcing = false
		if emitted := result.RecordCount - before; emitted < len(n.Changed) && n.Kind != touch.NotifyStart {
			result.IgnoredCount += len(n.Changed) - emitted
		}
		return writeErr
	})

	if errors.Is(streamErr, ErrSourceDetached) {
		result.Detached = true
		streamErr = nil
	}

	// The source is gone either way; close anything still open.
	if tracker.Len() > 0 {
		if last.IsZero() {
			last = now
		}
		now = last
		forcing = true
		tracker.OnForcedTermination()
		forcing = false
		r.logger.Info("closed open contacts after source stopped", "forced", result.ForcedCount)
	}

	if err := tracksFile.Close(); err != nil {
		return Result{}, fmt.Errorf("close tracks file: %w", err)
	}
	if writeErr != nil {
		return Result{}, writeErr
	}

	if streamErr != nil {
		if errors.Is(streamErr, context.Canceled) || errors.Is(streamErr, context.DeadlineExceeded) {
			return Result{}, streamErr
		}
		return Result{}, fmt.Errorf("stream notifications: %w", streamErr)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].FirstSeen.Before(summaries[j].FirstSeen)
	})
	if summaries == nil {
		summaries = []ContactSummary{}
	}
	contactData, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("marshal contact summary: %w", err)
	}
	if err := os.WriteFile(contactsPath, contactData, 0o644); err != nil {
		return Result{}, fmt.Errorf("write contact summary: %w", err)
	}

	result.TracksPath = tracksPath
	result.ContactsPath = contactsPath
	result.ContactCount = len(summaries)
	result.ReplayStart = first
	result.ReplayEnd = last
	if first.IsZero() {
		result.ReplayStart = now
		result.ReplayEnd = now
	}
	return result, nil
}

func summarise(end *touch.Snapshot, forced bool) ContactSummary {
	firstSeen := end.Timestamp
	if len(end.History) > 0 {
		firstSeen = end.History[0].Timestamp
	}
	moves := len(end.History) - 1
	if moves < 0 {
		moves = 0
	}
	return ContactSummary{
		Identifier: end.Identifier(),
		Origin:     end.Origin,
		FirstSeen:  firstSeen,
		LastSeen:   end.Timestamp,
		Moves:      moves,
		LongPress:  end.LongPress,
		Forced:     forced,
	}
}
