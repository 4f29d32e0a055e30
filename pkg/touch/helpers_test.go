package touch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
}

func (r *recorder) HandleTrack(ev Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []Kind {
	out := make([]Kind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *recorder) last() Event {
	return r.events[len(r.events)-1]
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestTracker(t *testing.T, selective bool) (*Tracker, *recorder, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 14, 9, 26, 0, 0, time.UTC)}
	tracker, err := NewTracker(Options{Selective: selective, Clock: clock.Now})
	require.NoError(t, err)
	rec := &recorder{}
	tracker.Subscribe(rec)
	return tracker, rec, clock
}

func contactAt(id int64, x, y float64) Contact {
	return Contact{Identifier: id, ClientX: x, ClientY: y}
}

func single(c Contact) Batch {
	return Batch{Changed: []Contact{c}, Active: []Contact{c}, Origin: "surface"}
}
