package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(cwd)

	require.NoError(t, os.Chdir(dir))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "runs", cfg.Paths.RunsDir)
	assert.Equal(t, "<defaults>", cfg.Source)
	assert.Equal(t, 1000, cfg.Tracker.LongPressMS)
	assert.Equal(t, 5.0, cfg.Tracker.DragThreshold)
	assert.False(t, cfg.Tracker.Selective, "expected non-selective tracking by default")
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := `paths:
  runs_dir: " artifacts "
tracker:
  selective: true
  select_targets: [canvas, " ", toolbar]
  long_press_ms: 750
  drag_threshold: 12.5
replay:
  input: recordings/session.jsonl
logging:
  level: DEBUG
  format: text
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "artifacts", cfg.Paths.RunsDir)
	assert.True(t, cfg.Tracker.Selective)
	assert.Equal(t, []string{"canvas", "toolbar"}, cfg.Tracker.SelectTargets)
	assert.Equal(t, 750, cfg.Tracker.LongPressMS)
	assert.Equal(t, 12.5, cfg.Tracker.DragThreshold)
	assert.Equal(t, "recordings/session.jsonl", cfg.Replay.Input)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, cfgPath, cfg.Source)
}

func TestEmptyFileKeepsDefaults(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, nil, 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Tracker.LongPressMS)
	assert.Equal(t, 5.0, cfg.Tracker.DragThreshold)
}

func TestUnknownKeyReturnsError(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("tracker:\n  unsupported: true\n"), 0o644))

	_, err := Load(cfgPath)
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveDragThreshold(t *testing.T) {
	for _, value := range []string{"0", "-3", ".nan"} {
		cfgPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("tracker:\n  drag_threshold: "+value+"\n"), 0o644))

		_, err := Load(cfgPath)
		assert.ErrorContains(t, err, "tracker.drag_threshold", "value %s", value)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"negative drag":         func(c *Config) { c.Tracker.DragThreshold = -1 },
		"zero drag":             func(c *Config) { c.Tracker.DragThreshold = 0 },
		"nan drag":              func(c *Config) { c.Tracker.DragThreshold = math.NaN() },
		"infinite drag":         func(c *Config) { c.Tracker.DragThreshold = math.Inf(1) },
		"zero long press":       func(c *Config) { c.Tracker.LongPressMS = 0 },
		"targets not selective": func(c *Config) { c.Tracker.SelectTargets = []string{"canvas"} },
		"bad level":             func(c *Config) { c.Logging.Level = "loud" },
		"bad format":            func(c *Config) { c.Logging.Format = "xml" },
		"empty runs dir":        func(c *Config) { c.Paths.RunsDir = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
