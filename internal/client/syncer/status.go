// Package syncer drives the outbox against the backend: it reacts to
// connectivity transitions, replays pending actions in order and publishes an
// aggregate status for the UI.
package syncer

// State is the phase of the sync state machine.
type State string

const (
	StateIdle      State = "idle"
	StateSyncing   State = "syncing"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Status is the process-wide, transient sync status. It is never persisted;
// completed/failed reset to idle after a short display delay.
type Status struct {
	State State

	// Progress runs 0..1 across the items of the current pass.
	Progress float64

	// Reason holds the aggregate failure message when State is failed.
	Reason string
}
