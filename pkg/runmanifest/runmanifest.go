package runmanifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/offlinefirst/touchtrack/pkg/config"
)

// SchemaVersion captures the manifest version for compatibility checks.
const SchemaVersion = 1

// Layout represents the absolute filesystem locations for a run.
type Layout struct {
	Root           string
	ManifestPath   string
	CaptureLogPath string
	TracksDir      string
}

// Paths holds the relative locations stored in the manifest for portability.
type Paths struct {
	Root       string `json:"root"`
	Manifest   string `json:"manifest"`
	CaptureLog string `json:"capture_log"`
	Tracks     string `json:"tracks"`
}

// TrackerSettings records the tracker configuration a run used.
type TrackerSettings struct {
	Selective     bool     `json:"selective"`
	SelectTargets []string `json:"select_targets,omitempty"`
	LongPressMS   int      `json:"long_press_ms"`
	DragThreshold float64  `json:"drag_threshold"`
	Input         string   `json:"input,omitempty"`
}

// Status summarises the lifecycle of a replay run.
type Status struct {
	State       string                    `json:"state"`
	Summary     string                    `json:"summary,omitempty"`
	StartedAt   *time.Time                `json:"started_at,omitempty"`
	EndedAt     *time.Time                `json:"ended_at,omitempty"`
	Termination string                    `json:"termination,omitempty"`
	Controller  []ControllerTimelineEntry `json:"controller_timeline,omitempty"`
	Tracks      *TrackStats               `json:"tracks,omitempty"`
}

// ControllerTimelineEntry records controller state transitions for diagnostics.
type ControllerTimelineEntry struct {
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TrackStats summarises the emitted track records.
type TrackStats struct {
	Notifications int  `json:"notifications"`
	Records       int  `json:"records"`
	Contacts      int  `json:"contacts"`
	Forced        int  `json:"forced"`
	LongPresses   int  `json:"long_presses"`
	Ignored       int  `json:"ignored"`
	Detached      bool `json:"detached"`
}

// Run states used in manifests for downstream tooling.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Manifest is the durable metadata describing a replay run.
type Manifest struct {
	SchemaVersion int             `json:"schema_version"`
	RunID         string          `json:"run_id"`
	SessionID     string          `json:"session_id"`
	CreatedAt     time.Time       `json:"created_at"`
	Hostname      string          `json:"hostname"`
	AppVersion    string          `json:"app_version"`
	ConfigSource  string          `json:"config_source"`
	Tracker       TrackerSettings `json:"tracker"`
	Paths         Paths           `json:"paths"`
	Status        Status          `json:"status"`
}

// Options captures the knobs for creating a new manifest.
type Options struct {
	RunID      string
	CreatedAt  time.Time
	Hostname   string
	AppVersion string
	Config     config.Config
	Layout     Layout
}

// New constructs a manifest using the supplied options. Every manifest gets a
// fresh random session identifier, even when run IDs collide across hosts.
func New(opts Options) Manifest {
	tracker := opts.Config.Tracker
	return Manifest{
		SchemaVersion: SchemaVersion,
		RunID:         opts.RunID,
		SessionID:     uuid.NewString(),
		CreatedAt:     opts.CreatedAt.UTC(),
		Hostname:      opts.Hostname,
		AppVersion:    opts.AppVersion,
		ConfigSource:  opts.Config.Source,
		Tracker: TrackerSettings{
			Selective:     tracker.Selective,
			SelectTargets: append([]string(nil), tracker.SelectTargets...),
			LongPressMS:   tracker.LongPressMS,
			DragThreshold: tracker.DragThreshold,
			Input:         opts.Config.Replay.Input,
		},
		Paths:  opts.Layout.RelativePaths(),
		Status: Status{State: StatePending},
	}
}

// BuildLayout creates an absolute filesystem layout for a run.
func BuildLayout(runsDir, runID string) Layout {
	root := filepath.Join(runsDir, runID)
	return Layout{
		Root:           root,
		ManifestPath:   filepath.Join(root, "manifest.json"),
		CaptureLogPath: filepath.Join(root, "capture.log"),
		TracksDir:      filepath.Join(root, "tracks"),
	}
}

// RelativePaths exposes the manifest-friendly relative paths for the layout.
func (l Layout) RelativePaths() Paths {
	return Paths{
		Root:       ".",
		Manifest:   filepath.Base(l.ManifestPath),
		CaptureLog: filepath.Base(l.CaptureLogPath),
		Tracks:     filepath.Base(l.TracksDir),
	}
}

// EnsureFilesystem prepares the directory tree for a run layout.
func EnsureFilesystem(layout Layout) error {
	if err := os.MkdirAll(layout.Root, 0o755); err != nil {
		return fmt.Errorf("create run root: %w", err)
	}
	if err := os.MkdirAll(layout.TracksDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", layout.TracksDir, err)
	}

	file, err := os.OpenFile(layout.CaptureLogPath, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("initialise capture log: %w", err)
	}
	defer file.Close()

	return nil
}

// Save writes the manifest JSON to disk with indentation for readability.
func Save(man Manifest, path string) error {
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads a manifest JSON file from disk.
func Load(path string) (Manifest, error) {
	var man Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return man, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &man); err != nil {
		return man, fmt.Errorf("decode manifest: %w", err)
	}
	if _, err := uuid.Parse(man.SessionID); err != nil {
		return man, fmt.Errorf("decode manifest: invalid session id %q: %w", man.SessionID, err)
	}
	return man, nil
}

// ResolveRunID chooses a run identifier derived from the timestamp and avoids collisions.
func ResolveRunID(runsDir string, now time.Time) (string, error) {
	if strings.TrimSpace(runsDir) == "" {
		return "", errors.New("runs directory must not be empty")
	}

	base := now.UTC().Format("20060102_150405")
	candidate := base
	suffix := 1
	for {
		_, err := os.Stat(filepath.Join(runsDir, candidate))
		if err == nil {
			candidate = fmt.Sprintf("%s_%02d", base, suffix)
			suffix++
			continue
		}
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		return "", fmt.Errorf("inspect runs directory: %w", err)
	}
}
