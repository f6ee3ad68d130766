// Package poll re-fetches a resource on a fixed interval until it reaches a
// terminal state or the caller's context ends.
//
// The loop is go-retry with a constant backoff: every non-terminal result is
// a "retryable error", so go-retry owns the timer and context handling.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultInterval is used when a zero interval is passed.
const DefaultInterval = 3 * time.Second

var errNotDone = errors.New("poll: not done")

// FetchFunc fetches the current value of the resource.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// EmitFunc receives every fetch result. A non-nil return stops polling and
// is returned by Until (e.g. the browser went away).
type EmitFunc[T any] func(v T, err error) error

// Until fetches immediately, emits the result, and repeats every interval
// until terminal reports true for a successful fetch or ctx ends.
//
// Fetch errors are emitted and polling continues; a transient backend
// failure should not end a live view.
//
// It returns nil when a terminal value was reached, ctx.Err() when the
// context ended first, or the error returned by emit.
func Until[T any](ctx context.Context, interval time.Duration, fetch FetchFunc[T], terminal func(T) bool, emit EmitFunc[T]) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return retry.Do(ctx, retry.NewConstant(interval), func(ctx context.Context) error {
		v, err := fetch(ctx)
		if ctx.Err() != nil {
			// The view is gone; whatever came back is not worth emitting.
			return ctx.Err()
		}
		if emitErr := emit(v, err); emitErr != nil {
			return emitErr
		}
		if err == nil && terminal != nil && terminal(v) {
			return nil
		}
		return retry.RetryableError(errNotDone)
	})
}

// Every polls until ctx ends. It never returns nil: the result is ctx.Err()
// or the error returned by emit.
func Every[T any](ctx context.Context, interval time.Duration, fetch FetchFunc[T], emit EmitFunc[T]) error {
	return Until(ctx, interval, fetch, nil, emit)
}
