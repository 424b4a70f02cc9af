package facade

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/vasic-digital/taskengine/internal/engine"
)

// RetryOptions configures SubmitWithRetry's exponential backoff, per
// spec.md §4.6's "retry-with-exponential-backoff by re-invoking submit with
// configurable attempts and base delay".
type RetryOptions struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryOptions mirrors a conservative, teacher-style default: a
// handful of attempts starting at a small base delay.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{Attempts: 3, BaseDelay: 100 * time.Millisecond}
}

// SubmitWithRetry submits callable and, if it ends in dispatch failure or
// task failure, resubmits it with exponential backoff starting at
// opts.BaseDelay, running it at most opts.Attempts times in total. It uses cenkalti/backoff/v5, the
// retry library already present in the teacher's dependency pack, rather
// than a hand-rolled sleep loop.
func (e *Engine) SubmitWithRetry(ctx context.Context, callable engine.Callable, opts RetryOptions, submitOpts engine.SubmitOptions) (TaskOutcome, error) {
	if callable == nil {
		return TaskOutcome{}, ErrArgumentInvalid
	}
	if opts.Attempts <= 0 {
		opts = DefaultRetryOptions()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = opts.BaseDelay
	if eb.InitialInterval <= 0 {
		eb.InitialInterval = 100 * time.Millisecond
	}

	operation := func() (TaskOutcome, error) {
		outcome, err := e.Submit(callable, submitOpts)
		if err != nil {
			// Dispatch-time errors (admission denied, shutdown) are
			// retryable platform failures.
			return TaskOutcome{}, err
		}
		if !outcome.Success {
			return outcome, &retryableTaskFailure{outcome: outcome}
		}
		return outcome, nil
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(opts.Attempts)),
	)
	if err != nil {
		var taskFailure *retryableTaskFailure
		if ok := asRetryableTaskFailure(err, &taskFailure); ok {
			return taskFailure.outcome, wrapEngineErr(err)
		}
		return TaskOutcome{}, wrapEngineErr(err)
	}
	return result, nil
}

// retryableTaskFailure marks a TaskOutcome whose callable ran but failed, so
// SubmitWithRetry's backoff treats it the same as a dispatch-level failure
// while still letting the caller recover the last outcome on exhaustion.
type retryableTaskFailure struct {
	outcome TaskOutcome
}

func (r *retryableTaskFailure) Error() string { return ErrTaskFailed.Error() + ": " + r.outcome.Error }

func (r *retryableTaskFailure) Unwrap() error { return ErrTaskFailed }

func asRetryableTaskFailure(err error, target **retryableTaskFailure) bool {
	for err != nil {
		if tf, ok := err.(*retryableTaskFailure); ok {
			*target = tf
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
