package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/offlinefirst/touchtrack/pkg/touch"
)

// Notification is one recorded notification from an input surface.
type Notification struct {
	Kind    touch.NotificationKind `json:"kind"`
	At      time.Time              `json:"at"`
	Origin  string                 `json:"origin,omitempty"`
	Changed []touch.Contact        `json:"changed,omitempty"`
	Active  []touch.Contact        `json:"active,omitempty"`
}

func (n Notification) touchNotification() touch.Notification {
	return touch.Notification{
		Kind: n.Kind,
		Batch: touch.Batch{
			Changed: n.Changed,
			Active:  n.Active,
			Origin:  n.Origin,
		},
	}
}

// Source emits notifications that should be replayed through the tracker.
type Source interface {
	Stream(ctx context.Context, emit func(Notification) error) error
}

// SourceFunc adapts a function literal to the Source interface.
type SourceFunc func(ctx context.Context, emit func(Notification) error) error

// Stream calls the underlying function.
func (f SourceFunc) Stream(ctx context.Context, emit func(Notification) error) error {
	return f(ctx, emit)
}

type fileSource struct {
	path string
}

// NewFileSource reads newline-delimited JSON notifications from path.
func NewFileSource(path string) (Source, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, ErrNoSource
	}
	return fileSource{path: trimmed}, nil
}

func (s fileSource) Stream(ctx context.Context, emit func(Notification) error) error {
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open replay input: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	for index := 1; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var n Notification
		if err := decoder.Decode(&n); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode notification %d: %w", index, err)
		}
		if err := emit(n); err != nil {
			return err
		}
	}
}
