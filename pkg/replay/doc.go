// Package replay feeds recorded or synthetic touch notifications through a
// touch.Tracker and persists every emitted track record alongside a
// per-contact summary.
package replay
