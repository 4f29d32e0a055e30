package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultFileName = "config.yaml"

// Config captures the user-adjustable knobs for tracking and replay.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Tracker TrackerConfig `yaml:"tracker"`
	Replay  ReplayConfig  `yaml:"replay"`
	Logging LoggingConfig `yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-"`
}

// PathsConfig controls filesystem locations used by the CLI.
type PathsConfig struct {
	RunsDir string `yaml:"runs_dir"`
}

// TrackerConfig configures the contact tracker.
type TrackerConfig struct {
	Selective bool `yaml:"selective"`
	// SelectTargets opts contacts in by target when Selective is set.
	SelectTargets []string `yaml:"select_targets"`
	LongPressMS   int      `yaml:"long_press_ms"`
	DragThreshold float64  `yaml:"drag_threshold"`
}

// ReplayConfig configures the notification source.
type ReplayConfig struct {
	// Input is a JSONL recording; empty selects the synthetic source.
	Input string `yaml:"input"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			RunsDir: "runs",
		},
		Tracker: TrackerConfig{
			Selective:     false,
			LongPressMS:   1000,
			DragThreshold: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader attempts to read ./config.yaml but tolerates a missing file.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	file, err := os.Open(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return cfg, fmt.Errorf("config file %q not found", candidate)
			}
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config file %q: %w", candidate, err)
	}
	defer file.Close()

	if err := decodeYAML(file, &cfg); err != nil {
		return cfg, err
	}
	cfg.Source = candidate
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Paths.RunsDir) == "" {
		return errors.New("paths.runs_dir must not be empty")
	}

	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}

	if c.Tracker.LongPressMS <= 0 {
		return errors.New("tracker.long_press_ms must be positive")
	}
	if !(c.Tracker.DragThreshold > 0) || math.IsInf(c.Tracker.DragThreshold, 0) {
		return errors.New("tracker.drag_threshold must be a positive, finite distance")
	}
	if !c.Tracker.Selective && len(c.Tracker.SelectTargets) > 0 {
		return errors.New("tracker.select_targets requires tracker.selective")
	}

	return nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	defaults := Default()

	c.Paths.RunsDir = strings.TrimSpace(c.Paths.RunsDir)
	if c.Paths.RunsDir == "" {
		c.Paths.RunsDir = defaults.Paths.RunsDir
	}
	c.Replay.Input = strings.TrimSpace(c.Replay.Input)

	if level, err := NormalizeLogLevel(c.Logging.Level); err == nil {
		c.Logging.Level = level
	}
	if format, err := NormalizeFormat(c.Logging.Format); err == nil {
		c.Logging.Format = format
	}

	if c.Tracker.LongPressMS <= 0 {
		c.Tracker.LongPressMS = defaults.Tracker.LongPressMS
	}

	targets := c.Tracker.SelectTargets[:0]
	for _, target := range c.Tracker.SelectTargets {
		if trimmed := strings.TrimSpace(target); trimmed != "" {
			targets = append(targets, trimmed)
		}
	}
	if len(targets) == 0 {
		targets = nil
	}
	c.Tracker.SelectTargets = targets
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}
