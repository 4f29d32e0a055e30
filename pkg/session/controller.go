package session

import (
	"context"
	"sync"
	"time"

	"github.com/offlinefirst/touchtrack/pkg/replay"
	"github.com/offlinefirst/touchtrack/pkg/runmanifest"
)

// Controller coordinates pause/resume/detach signals for a replay. It may be
// driven from another goroutine while the replay runs.
type Controller struct {
	mu       sync.Mutex
	paused   bool
	stopping bool
	stopErr  error
	signal   chan struct{}
	clock    func() time.Time
	timeline []runmanifest.ControllerTimelineEntry
}

// NewController constructs a controller in the running state.
func NewController() *Controller {
	return NewControllerWithClock(time.Now)
}

// NewControllerWithClock constructs a controller whose timeline uses clock.
func NewControllerWithClock(clock func() time.Time) *Controller {
	if clock == nil {
		clock = time.Now
	}
	c := &Controller{signal: make(chan struct{}, 1), clock: clock}
	c.record("running", "created")
	return c
}

// Pause transitions the controller into a paused state.
func (c *Controller) Pause(reason string) {
	c.mu.Lock()
	if !c.paused && !c.stopping {
		c.paused = true
		c.recordLocked("paused", reason)
	}
	c.mu.Unlock()
}

// Resume clears a paused state and notifies waiters.
func (c *Controller) Resume() {
	c.mu.Lock()
	wasPaused := c.paused && !c.stopping
	c.paused = false
	if wasPaused {
		c.recordLocked("running", "resumed")
	}
	c.mu.Unlock()
	if wasPaused {
		c.notify()
	}
}

// Detach stops the replay as if the input source was unplugged. Open
// contacts are closed and the run still completes.
func (c *Controller) Detach() {
	c.Kill(replay.ErrSourceDetached)
}

// Kill requests the replay to stop and propagates an optional error.
func (c *Controller) Kill(err error) {
	c.mu.Lock()
	if !c.stopping {
		c.stopping = true
		reason := "killed"
		if err != nil {
			reason = err.Error()
		}
		c.recordLocked("stopping", reason)
	}
	if err != nil && c.stopErr == nil {
		c.stopErr = err
	}
	c.mu.Unlock()
	c.notify()
}

// Wait blocks until the controller is running or stopping.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		paused := c.paused
		stopping := c.stopping
		stopErr := c.stopErr
		c.mu.Unlock()

		if stopping {
			if stopErr != nil {
				return stopErr
			}
			if ctx != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return context.Canceled
		}
		if !paused {
			return nil
		}

		if ctx == nil {
			<-c.signal
			continue
		}

		select {
		case <-ctx.Done():
			c.Kill(ctx.Err())
			return ctx.Err()
		case <-c.signal:
			continue
		}
	}
}

// State reports the textual state for diagnostics.
func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.stopping:
		return "stopping"
	case c.paused:
		return "paused"
	default:
		return "running"
	}
}

// Timeline returns a copy of the recorded state transitions.
func (c *Controller) Timeline() []runmanifest.ControllerTimelineEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]runmanifest.ControllerTimelineEntry(nil), c.timeline...)
}

func (c *Controller) record(state, reason string) {
	c.mu.Lock()
	c.recordLocked(state, reason)
	c.mu.Unlock()
}

func (c *Controller) recordLocked(state, reason string) {
	c.timeline = append(c.timeline, runmanifest.ControllerTimelineEntry{
		State:     state,
		Reason:    reason,
		Timestamp: c.clock().UTC(),
	})
}

func (c *Controller) notify() {
	select {
	case c.signal <- struct{}{}:
	default:
	}
}
