package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/touchtrack/pkg/config"
	"github.com/offlinefirst/touchtrack/pkg/logging"
	"github.com/offlinefirst/touchtrack/pkg/replay"
	"github.com/offlinefirst/touchtrack/pkg/runmanifest"
	"github.com/offlinefirst/touchtrack/pkg/touch"
)

var base = time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)

func prepareLayout(t *testing.T) runmanifest.Layout {
	t.Helper()
	layout := runmanifest.BuildLayout(t.TempDir(), "run")
	require.NoError(t, runmanifest.EnsureFilesystem(layout))
	return layout
}

func TestRunRequiresLogger(t *testing.T) {
	_, err := Run(context.Background(), Options{Config: config.Default(), Layout: prepareLayout(t)})
	assert.Error(t, err)
}

func TestRunSyntheticCompletes(t *testing.T) {
	layout := prepareLayout(t)

	summary, err := Run(context.Background(), Options{
		Config: config.Default(),
		Layout: layout,
		Logger: logging.Discard(),
		Clock:  func() time.Time { return base },
	})
	require.NoError(t, err)
	require.NotNil(t, summary.Replay)
	require.NotNil(t, summary.Lifecycle)

	assert.Equal(t, TerminationCompleted, summary.Lifecycle.TerminationCause)
	assert.Equal(t, 4, summary.Replay.ContactCount)
	assert.Equal(t, 2, summary.Replay.ForcedCount)
	assert.NotEmpty(t, summary.Lifecycle.ControllerTimeline)

	logData, err := os.ReadFile(layout.CaptureLogPath)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "subsystem=replay emitted 12 records")
	assert.Contains(t, string(logData), "finished (completed)")
}

func TestRunSelectTargets(t *testing.T) {
	cfg := config.Default()
	cfg.Tracker.Selective = true
	cfg.Tracker.SelectTargets = []string{"toolbar"}

	summary, err := Run(context.Background(), Options{
		Config: cfg,
		Layout: prepareLayout(t),
		Logger: logging.Discard(),
		Clock:  func() time.Time { return base },
	})
	require.NoError(t, err)
	assert.Zero(t, summary.Replay.ContactCount, "synthetic contacts target the canvas")
	assert.Equal(t, 4, summary.Replay.RecordCount, "starts are still emitted")
}

func TestRunDetachMidStream(t *testing.T) {
	controller := NewControllerWithClock(func() time.Time { return base })
	source := replay.SourceFunc(func(ctx context.Context, emit func(replay.Notification) error) error {
		contact := touch.Contact{Identifier: 1, ClientX: 10, ClientY: 10}
		if err := emit(replay.Notification{Kind: touch.NotifyStart, At: base, Changed: []touch.Contact{contact}, Active: []touch.Contact{contact}}); err != nil {
			return err
		}
		controller.Detach()
		return emit(replay.Notification{Kind: touch.NotifyMove, At: base.Add(time.Second), Changed: []touch.Contact{contact}})
	})

	summary, err := Run(context.Background(), Options{
		Config:  config.Default(),
		Layout:  prepareLayout(t),
		Logger:  logging.Discard(),
		Clock:   func() time.Time { return base },
		Control: controller,
		Source:  source,
	})
	require.NoError(t, err)

	assert.Equal(t, TerminationDetached, summary.Lifecycle.TerminationCause)
	assert.True(t, summary.Replay.Detached)
	assert.Equal(t, 1, summary.Replay.NotificationCount)
	assert.Equal(t, 1, summary.Replay.ForcedCount)

	last := summary.Lifecycle.ControllerTimeline[len(summary.Lifecycle.ControllerTimeline)-1]
	assert.Equal(t, "stopping", last.State)
	assert.True(t, strings.Contains(last.Reason, "detached"))
}

func TestRunDetachedBeforeStart(t *testing.T) {
	controller := NewController()
	controller.Detach()

	summary, err := Run(context.Background(), Options{
		Config:  config.Default(),
		Layout:  prepareLayout(t),
		Logger:  logging.Discard(),
		Control: controller,
	})
	require.NoError(t, err)
	assert.Nil(t, summary.Replay)
	assert.Equal(t, TerminationDetached, summary.Lifecycle.TerminationCause)
}

func TestRunMissingInputFails(t *testing.T) {
	cfg := config.Default()
	cfg.Replay.Input = "/nonexistent/recording.jsonl"

	summary, err := Run(context.Background(), Options{
		Config: cfg,
		Layout: prepareLayout(t),
		Logger: logging.Discard(),
	})
	require.Error(t, err)
	assert.Equal(t, TerminationError, summary.Lifecycle.TerminationCause)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := Run(ctx, Options{
		Config: config.Default(),
		Layout: prepareLayout(t),
		Logger: logging.Discard(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, TerminationCancelled, summary.Lifecycle.TerminationCause)
}

func moveRecord(t *testing.T, path string) replay.Record {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec replay.Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		if rec.Kind == touch.TrackMove {
			return rec
		}
	}
	require.NoError(t, scanner.Err())
	require.FailNow(t, "no trackmove record", "tracks file %s", path)
	return replay.Record{}
}

func TestRunAppliesConfiguredDragThreshold(t *testing.T) {
	// A 3-unit drag 100ms after touch-down.
	source := replay.SourceFunc(func(ctx context.Context, emit func(replay.Notification) error) error {
		down := touch.Contact{Identifier: 1}
		moved := touch.Contact{Identifier: 1, ClientX: 3}
		if err := emit(replay.Notification{Kind: touch.NotifyStart, At: base, Changed: []touch.Contact{down}, Active: []touch.Contact{down}}); err != nil {
			return err
		}
		return emit(replay.Notification{Kind: touch.NotifyMove, At: base.Add(100 * time.Millisecond), Changed: []touch.Contact{moved}, Active: []touch.Contact{moved}})
	})

	cases := []struct {
		name string
		yaml string
		want touch.LongPress
	}{
		{name: "default threshold tolerates the drag", yaml: "", want: touch.LongPressUnknown},
		{name: "tighter threshold disqualifies the drag", yaml: "tracker:\n  drag_threshold: 2\n", want: touch.LongPressFalse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte(tc.yaml), 0o644))
			cfg, err := config.Load(cfgPath)
			require.NoError(t, err)

			summary, err := Run(context.Background(), Options{
				Config: cfg,
				Layout: prepareLayout(t),
				Logger: logging.Discard(),
				Clock:  func() time.Time { return base },
				Source: source,
			})
			require.NoError(t, err)
			require.NotNil(t, summary.Replay)

			assert.Equal(t, tc.want, moveRecord(t, summary.Replay.TracksPath).LongPress)
		})
	}
}

func TestRunRejectsUnusableDragThreshold(t *testing.T) {
	for _, value := range []string{"0", ".nan", ".inf"} {
		cfgPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("tracker:\n  drag_threshold: "+value+"\n"), 0o644))
		_, err := config.Load(cfgPath)
		assert.ErrorContains(t, err, "tracker.drag_threshold", "value %s", value)
	}
}
