package touch

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// DefaultLongPressDuration is the minimum dwell for a long press.
	DefaultLongPressDuration = 1000 * time.Millisecond
	// DefaultDragThreshold is the largest displacement along either axis that
	// still qualifies as a long press.
	DefaultDragThreshold = 5.0
)

// LongPress classifies whether a contact began with a long press.
type LongPress uint8

const (
	// LongPressUnknown means the press has neither lasted long enough nor moved far enough to decide.
	LongPressUnknown LongPress = iota
	// LongPressFalse means the contact moved past the drag threshold or ended early.
	LongPressFalse
	// LongPressTrue means the contact dwelled past the duration threshold without dragging.
	LongPressTrue
)

// String returns the lowercase textual form.
func (l LongPress) String() string {
	switch l {
	case LongPressFalse:
		return "false"
	case LongPressTrue:
		return "true"
	default:
		return "unknown"
	}
}

// Decided reports whether the classification has left LongPressUnknown.
func (l LongPress) Decided() bool {
	return l == LongPressFalse || l == LongPressTrue
}

// MarshalText implements encoding.TextMarshaler.
func (l LongPress) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *LongPress) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "unknown":
		*l = LongPressUnknown
	case "false":
		*l = LongPressFalse
	case "true":
		*l = LongPressTrue
	default:
		return fmt.Errorf("invalid long press state %q", string(text))
	}
	return nil
}

type thresholds struct {
	duration time.Duration
	drag     float64
}

// classify decides the long-press state of contact sampled at now against the
// contact's prior history.
func (th thresholds) classify(contact Contact, history []*Snapshot, now time.Time, isEnd bool) LongPress {
	state := LongPressUnknown
	if len(history) > 0 {
		if last := history[len(history)-1].LongPress; last.Decided() {
			state = last
		} else {
			start := history[0]
			// Displacement is cumulative from the start sample.
			dragged := math.Abs(contact.ClientX-start.Contact.ClientX) > th.drag ||
				math.Abs(contact.ClientY-start.Contact.ClientY) > th.drag
			switch {
			case dragged:
				state = LongPressFalse
			case now.Sub(start.Timestamp) >= th.duration:
				state = LongPressTrue
			}
		}
	}
	if isEnd && state == LongPressUnknown {
		state = LongPressFalse
	}
	return state
}
