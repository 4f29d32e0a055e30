package touch

import "fmt"

// Kind names a track event.
type Kind uint8

const (
	// TrackStart is emitted for every contact in a start batch.
	TrackStart Kind = iota + 1
	// TrackMove is emitted for tracked contacts that moved.
	TrackMove
	// TrackEnd closes a tracked contact, carrying its final long-press decision.
	TrackEnd
)

// String returns the event name seen by consumers.
func (k Kind) String() string {
	switch k {
	case TrackStart:
		return "trackstart"
	case TrackMove:
		return "trackmove"
	case TrackEnd:
		return "trackend"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "trackstart":
		*k = TrackStart
	case "trackmove":
		*k = TrackMove
	case "trackend":
		*k = TrackEnd
	default:
		return fmt.Errorf("invalid track event kind %q", string(text))
	}
	return nil
}

// Event is one emission from a Tracker.
type Event struct {
	Kind     Kind
	Snapshot *Snapshot
}

// Listener receives track events synchronously, in emission order.
type Listener interface {
	HandleTrack(Event)
}

// ListenerFunc adapts a function literal to the Listener interface.
type ListenerFunc func(Event)

// HandleTrack calls the underlying function.
func (f ListenerFunc) HandleTrack(ev Event) {
	f(ev)
}
