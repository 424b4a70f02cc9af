package engine

import "errors"

// Sentinel errors surfaced by Pool methods. The facade package wraps these
// into the taxonomy described by the spec (ArgumentInvalid,
// AdmissionDenied, DispatchFailed, TaskFailed, ShutdownInProgress).
var (
	// ErrAdmissionDenied is returned by Submit when the Memory Manager
	// refuses admission (memory pressure or live-task cap).
	ErrAdmissionDenied = errors.New("taskengine: admission denied")

	// ErrDispatchFailed is returned when the platform (here: the pool's
	// internal queue) refuses to accept a task it already admitted.
	ErrDispatchFailed = errors.New("taskengine: dispatch failed")

	// ErrShutdownInProgress is returned by Submit/SubmitMany once Shutdown
	// has been called.
	ErrShutdownInProgress = errors.New("taskengine: shutdown in progress")

	// ErrUnknownTask is the sentinel returned by GetError for an id the
	// pool has no record of.
	ErrUnknownTask = errors.New("Tasklet not found.")
)
