package touch

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"
)

// NotificationKind names an inbound notification from the event source.
type NotificationKind string

const (
	// NotifyStart reports contacts that touched down.
	NotifyStart NotificationKind = "start"
	// NotifyMove reports contacts whose position changed.
	NotifyMove NotificationKind = "move"
	// NotifyEnd reports contacts that lifted.
	NotifyEnd NotificationKind = "end"
	// NotifyCancel reports contacts the platform cancelled; handled like NotifyEnd.
	NotifyCancel NotificationKind = "cancel"
	// NotifyDetach signals that the source stopped delivering events.
	NotifyDetach NotificationKind = "detach"
)

// Notification pairs a kind with its batch. Detach notifications carry no batch.
type Notification struct {
	Kind  NotificationKind
	Batch Batch
}

// Options controls tracker behaviour.
type Options struct {
	// Selective disables automatic tracking on start; callers opt contacts in with Track.
	Selective bool
	// LongPressDuration and DragThreshold select the package defaults when zero.
	LongPressDuration time.Duration
	DragThreshold     float64
	Clock             func() time.Time
	Logger            *slog.Logger
}

// Tracker keeps per-contact history and emits trackstart, trackmove and
// trackend events. It is not safe for concurrent use; notifications must be
// delivered from a single goroutine.
type Tracker struct {
	selective  bool
	thresholds thresholds
	clock      func() time.Time
	logger     *slog.Logger
	history    map[int64][]*Snapshot
	listeners  []Listener
}

// NewTracker validates options and constructs a tracker with an empty history table.
func NewTracker(opts Options) (*Tracker, error) {
	if opts.LongPressDuration < 0 {
		return nil, errors.New("long press duration must not be negative")
	}
	if opts.DragThreshold < 0 || math.IsNaN(opts.DragThreshold) || math.IsInf(opts.DragThreshold, 0) {
		return nil, errors.New("drag threshold must be a finite, non-negative distance")
	}
	th := thresholds{duration: opts.LongPressDuration, drag: opts.DragThreshold}
	if th.duration == 0 {
		th.duration = DefaultLongPressDuration
	}
	if th.drag == 0 {
		th.drag = DefaultDragThreshold
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{
		selective:  opts.Selective,
		thresholds: th,
		clock:      clock,
		logger:     opts.Logger,
		history:    make(map[int64][]*Snapshot),
	}, nil
}

// Subscribe registers a listener. Listeners are invoked in subscription order.
func (t *Tracker) Subscribe(l Listener) {
	if l == nil {
		return
	}
	t.listeners = append(t.listeners, l)
}

// Selective reports whether automatic tracking on start is disabled.
func (t *Tracker) Selective() bool {
	return t.selective
}

// Track seeds the history for the snapshot's contact, replacing any existing entry.
func (t *Tracker) Track(s *Snapshot) {
	if s == nil {
		return
	}
	t.history[s.Identifier()] = []*Snapshot{s}
}

// Tracking reports whether a history entry exists for id.
func (t *Tracker) Tracking(id int64) bool {
	_, ok := t.history[id]
	return ok
}

// Len returns the number of tracked contacts.
func (t *Tracker) Len() int {
	return len(t.history)
}

// History returns the stored samples for id, oldest first. Appending to the
// returned slice never affects the tracker.
func (t *Tracker) History(id int64) []*Snapshot {
	return clamp(t.history[id])
}

// OnStart emits trackstart for every changed contact and, unless selective,
// begins tracking contacts not already tracked.
func (t *Tracker) OnStart(b Batch) {
	for _, c := range b.Changed {
		s := t.snapshot(c, b.Origin, nil, len(b.Active), false)
		t.emit(TrackStart, s)
		if !t.selective && !t.Tracking(c.Identifier) {
			t.Track(s)
		}
	}
}

// OnMove appends a sample for every tracked changed contact and emits
// trackmove. Untracked contacts are ignored.
func (t *Tracker) OnMove(b Batch) {
	for _, c := range b.Changed {
		hist, ok := t.history[c.Identifier]
		if !ok {
			t.ignored(NotifyMove, c.Identifier)
			continue
		}
		s := t.snapshot(c, b.Origin, hist, len(b.Active), false)
		t.history[c.Identifier] = append(hist, s)
		t.emit(TrackMove, s)
	}
}

// OnEnd emits a terminal trackend for every tracked changed contact and drops
// its history. Untracked contacts are ignored.
func (t *Tracker) OnEnd(b Batch) {
	t.end(NotifyEnd, b)
}

// OnCancel behaves like OnEnd.
func (t *Tracker) OnCancel(b Batch) {
	t.end(NotifyCancel, b)
}

// OnForcedTermination closes every tracked contact with a synthetic trackend
// built from its last stored sample, in ascending identifier order, and
// leaves the history table empty.
func (t *Tracker) OnForcedTermination() {
	if len(t.history) == 0 {
		return
	}
	ids := make([]int64, 0, len(t.history))
	for id := range t.history {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	now := t.clock()
	for _, id := range ids {
		hist := t.history[id]
		last := hist[len(hist)-1]
		contact := last.Contact.Clone()
		s := &Snapshot{
			Contact:   contact,
			Origin:    last.Origin,
			Timestamp: now,
			Count:     0,
			History:   clamp(hist),
			LongPress: t.thresholds.classify(contact, hist, now, true),
		}
		t.emit(TrackEnd, s)
		delete(t.history, id)
	}
	if t.logger != nil {
		t.logger.Debug("forced termination closed contacts", "contacts", len(ids))
	}
}

// Detach is an alias for OnForcedTermination.
func (t *Tracker) Detach() {
	t.OnForcedTermination()
}

// Dispatch routes n to the matching handler.
func (t *Tracker) Dispatch(n Notification) error {
	switch n.Kind {
	case NotifyStart:
		t.OnStart(n.Batch)
	case NotifyMove:
		t.OnMove(n.Batch)
	case NotifyEnd:
		t.OnEnd(n.Batch)
	case NotifyCancel:
		t.OnCancel(n.Batch)
	case NotifyDetach:
		t.OnForcedTermination()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNotification, n.Kind)
	}
	return nil
}

func (t *Tracker) end(kind NotificationKind, b Batch) {
	for _, c := range b.Changed {
		hist, ok := t.history[c.Identifier]
		if !ok {
			t.ignored(kind, c.Identifier)
			continue
		}
		s := t.snapshot(c, b.Origin, hist, len(b.Active), true)
		t.emit(TrackEnd, s)
		delete(t.history, c.Identifier)
	}
}

func (t *Tracker) snapshot(c Contact, origin string, hist []*Snapshot, count int, isEnd bool) *Snapshot {
	contact := c.Clone()
	now := t.clock()
	return &Snapshot{
		Contact:   contact,
		Origin:    origin,
		Timestamp: now,
		Count:     count,
		History:   clamp(hist),
		LongPress: t.thresholds.classify(contact, hist, now, isEnd),
	}
}

func (t *Tracker) emit(kind Kind, s *Snapshot) {
	ev := Event{Kind: kind, Snapshot: s}
	for _, l := range t.listeners {
		l.HandleTrack(ev)
	}
}

func (t *Tracker) ignored(kind NotificationKind, id int64) {
	if t.logger != nil {
		t.logger.Debug("ignoring notification for untracked contact", "kind", string(kind), "identifier", id)
	}
}

// clamp limits capacity so appends to the table allocate instead of writing
// into a slice a snapshot already holds.
func clamp(hist []*Snapshot) []*Snapshot {
	if hist == nil {
		return nil
	}
	return hist[:len(hist):len(hist)]
}
