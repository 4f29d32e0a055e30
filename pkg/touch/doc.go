// Package touch tracks pointer and touch contacts across start, move and end
// notifications. A Tracker keeps one ordered history per live contact
// identifier, stamps every sample with a long-press classification and emits
// one track event per contact per notification to its listeners.
package touch
