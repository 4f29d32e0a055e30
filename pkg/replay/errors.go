package replay

import "errors"

var (
	// ErrSourceDetached stops a replay as though the input source was unplugged.
	// Open contacts are closed by forced termination and the run completes normally.
	ErrSourceDetached = errors.New("touch source detached")

	// ErrNoSource indicates a file source was requested without a path.
	ErrNoSource = errors.New("replay input path must not be empty")
)
