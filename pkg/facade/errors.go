package facade

import (
	"errors"
	"fmt"

	"github.com/vasic-digital/taskengine/internal/engine"
)

// Sentinel errors in the taxonomy surfaced to hosts, matching spec.md §6/§7.
// Every facade error wraps one of these via %w so callers can errors.Is
// against a stable symbolic kind regardless of the underlying message.
var (
	ErrArgumentInvalid   = errors.New("taskengine: argument invalid")
	ErrAdmissionDenied   = errors.New("taskengine: admission denied")
	ErrDispatchFailed    = errors.New("taskengine: dispatch failed")
	ErrTaskFailed        = errors.New("taskengine: task failed")
	ErrShutdownInProgress = errors.New("taskengine: shutdown in progress")
)

// wrapEngineErr maps an internal engine sentinel onto the facade's
// public taxonomy, mirroring internal/background/worker_pool.go's
// fmt.Errorf("...: %w", err) wrapping idiom throughout the teacher.
func wrapEngineErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrAdmissionDenied):
		return fmt.Errorf("%w: %v", ErrAdmissionDenied, err)
	case errors.Is(err, engine.ErrDispatchFailed):
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	case errors.Is(err, engine.ErrShutdownInProgress):
		return fmt.Errorf("%w: %v", ErrShutdownInProgress, err)
	default:
		return err
	}
}
