package touch

import "time"

// Contact describes one physical touch or pointer at one instant.
type Contact struct {
	Identifier    int64   `json:"identifier"`
	ClientX       float64 `json:"clientX"`
	ClientY       float64 `json:"clientY"`
	ScreenX       float64 `json:"screenX,omitempty"`
	ScreenY       float64 `json:"screenY,omitempty"`
	PageX         float64 `json:"pageX,omitempty"`
	PageY         float64 `json:"pageY,omitempty"`
	RadiusX       float64 `json:"radiusX,omitempty"`
	RadiusY       float64 `json:"radiusY,omitempty"`
	RotationAngle float64 `json:"rotationAngle,omitempty"`
	Force         float64 `json:"force,omitempty"`
	Target        string  `json:"target,omitempty"`
}

// Clone returns an independent copy. Contact holds no references, so the
// value copy is already deep.
func (c Contact) Clone() Contact {
	return c
}

// Batch is one notification's worth of contacts as delivered by the event source.
type Batch struct {
	// Changed lists the contacts this notification is about, in delivery order.
	Changed []Contact
	// Active lists every contact currently on the surface.
	Active []Contact
	Origin string
}

// Snapshot is an immutable, timestamped record of one contact sample.
type Snapshot struct {
	Contact   Contact
	Origin    string
	Timestamp time.Time
	// Count is the number of active contacts when the sample was taken.
	Count int
	// History holds the earlier snapshots of the same contact, oldest first.
	// It is nil for start samples.
	History   []*Snapshot
	LongPress LongPress
}

// Identifier returns the identifier of the sampled contact.
func (s *Snapshot) Identifier() int64 {
	return s.Contact.Identifier
}
