// Package deadline bounds the wall-clock duration of a unit of work.
//
// Run derives a context with the deadline and hands it to the work function.
// Work that honors its context stops on its own; work that does not is
// abandoned: Run returns as soon as the deadline passes and the goroutine's
// eventual result is dropped.
package deadline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// ErrDeadlineExceeded is matched by every timeout returned from Run.
var ErrDeadlineExceeded = errors.New("deadline exceeded")

// TimeoutError reports an abandoned unit of work.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("deadline exceeded after %s", e.After)
}

func (e *TimeoutError) Unwrap() error { return ErrDeadlineExceeded }

// PanicError carries a panic recovered from the work function.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

type outcome[T any] struct {
	val T
	err error
	// late is set when fn returned after its deadline had passed
	late bool
}

// Run executes fn and waits at most d for it. A zero or negative d waits
// until fn returns or ctx is done.
func Run[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var expired <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		expired = timer.C

		// Abandoned work keeps its own deadline so it can observe cancellation.
		var stop context.CancelFunc
		runCtx, stop = context.WithTimeout(runCtx, d)
		defer stop()
	}

	// Buffered so an abandoned fn can always deliver and exit.
	done := make(chan outcome[T], 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: &PanicError{Value: r, Stack: debug.Stack()}}
			}
		}()
		v, err := fn(runCtx)
		late := d > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded)
		done <- outcome[T]{val: v, err: err, late: late}
	}()

	select {
	case out := <-done:
		if out.late {
			if err := ctx.Err(); err != nil {
				return zero, err
			}
			// fn saw its own deadline and returned, whatever it returned.
			return zero, &TimeoutError{After: d}
		}
		return out.val, out.err
	case <-expired:
		// A result that finished in time but raced the timer still wins.
		select {
		case out := <-done:
			if !out.late {
				return out.val, out.err
			}
		default:
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, &TimeoutError{After: d}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Do is Run for work without a result value.
func Do(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	_, err := Run(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
