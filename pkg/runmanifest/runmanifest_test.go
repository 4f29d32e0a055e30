package runmanifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/touchtrack/pkg/config"
)

func TestBuildLayoutAndRelativePaths(t *testing.T) {
	layout := BuildLayout("/tmp/runs", "20240512_093000")
	assert.Equal(t, filepath.Join("/tmp/runs", "20240512_093000"), layout.Root)

	rel := layout.RelativePaths()
	assert.Equal(t, ".", rel.Root)
	assert.Equal(t, "manifest.json", rel.Manifest)
	assert.Equal(t, "tracks", rel.Tracks)
}

func TestEnsureFilesystemCreatesDirectories(t *testing.T) {
	layout := BuildLayout(t.TempDir(), "run")
	require.NoError(t, EnsureFilesystem(layout))

	for _, p := range []string{layout.Root, layout.TracksDir} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir(), "expected directory at %s", p)
	}

	_, err := os.Stat(layout.CaptureLogPath)
	assert.NoError(t, err, "expected capture log file")
}

func TestNewManifest(t *testing.T) {
	cfg := config.Default()
	cfg.Source = "config.yaml"
	cfg.Tracker.Selective = true
	cfg.Tracker.SelectTargets = []string{"canvas"}
	cfg.Tracker.DragThreshold = 2.5
	layout := BuildLayout("/tmp/runs", "run")
	now := time.Date(2024, 5, 12, 9, 30, 0, 0, time.FixedZone("CEST", 2*60*60))

	man := New(Options{
		RunID:      "run",
		CreatedAt:  now,
		Hostname:   "host",
		AppVersion: "test",
		Config:     cfg,
		Layout:     layout,
	})

	assert.Equal(t, SchemaVersion, man.SchemaVersion)
	assert.Equal(t, time.UTC, man.CreatedAt.Location())
	_, err := uuid.Parse(man.SessionID)
	assert.NoError(t, err, "expected uuid session id, got %q", man.SessionID)
	assert.True(t, man.Tracker.Selective)
	assert.Equal(t, cfg.Tracker.LongPressMS, man.Tracker.LongPressMS)
	assert.Equal(t, 2.5, man.Tracker.DragThreshold)

	cfg.Tracker.SelectTargets[0] = "mutated"
	assert.Equal(t, "canvas", man.Tracker.SelectTargets[0], "expected select targets to be copied")
	assert.Equal(t, StatePending, man.Status.State)

	other := New(Options{RunID: "run", CreatedAt: now, Config: cfg, Layout: layout})
	assert.NotEqual(t, man.SessionID, other.SessionID)
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	layout := BuildLayout(dir, "run")
	cfg := config.Default()
	cfg.Source = "explicit"
	now := time.Now().UTC().Round(time.Second)

	man := New(Options{
		RunID:      "run",
		CreatedAt:  now,
		Hostname:   "host",
		AppVersion: "version",
		Config:     cfg,
		Layout:     layout,
	})
	man.Status.Tracks = &TrackStats{Records: 12, Forced: 2}

	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, Save(man, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, man.RunID, loaded.RunID)
	assert.Equal(t, man.SessionID, loaded.SessionID)
	require.NotNil(t, loaded.Status.Tracks)
	assert.Equal(t, 2, loaded.Status.Tracks.Forced)
}

func TestLoadRejectsMissingSessionID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version":1,"run_id":"run"}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestResolveRunID(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, now.Format("20060102_150405")), 0o755))

	id, err := ResolveRunID(dir, now)
	require.NoError(t, err)
	assert.Equal(t, now.Format("20060102_150405")+"_01", id)
}

func TestResolveRunIDEmptyRunsDir(t *testing.T) {
	_, err := ResolveRunID(" ", time.Now())
	assert.Error(t, err)
}
