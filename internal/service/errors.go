// Package service implements the bill synchronization pipeline: settings
// resolution, the resumable job state machine, reconciliation and progress
// streaming.
package service

import "errors"

// Sentinel errors surfaced verbatim to trigger callers. No state is mutated
// when these are returned.
var (
	// ErrSyncDisabled indicates the sync-enabled settings flag is off.
	ErrSyncDisabled = errors.New("bill sync is disabled")

	// ErrSyncAlreadyRunning indicates a RUNNING or PAUSED job already exists.
	ErrSyncAlreadyRunning = errors.New("a sync job is already active")

	// ErrJobNotFound indicates the requested job id does not exist.
	ErrJobNotFound = errors.New("sync job not found")

	// ErrInvalidTransition indicates a state-machine operation was called on
	// a job not in the expected state.
	ErrInvalidTransition = errors.New("invalid job state transition")
)
