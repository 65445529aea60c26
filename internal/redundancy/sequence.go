// Package redundancy issues the same logical read against several equivalent
// sources and accepts the first success.
//
// Sources are tried one at a time, in an order shuffled once per call. There
// is no retry and no backoff: failures here are assumed to be per endpoint.
package redundancy

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/vietddude/txguard/internal/metrics"
)

// ErrEmptyTaskSet is returned when there is nothing to try.
var ErrEmptyTaskSet = errors.New("redundancy: no tasks to run")

// Task is one attempt against one source.
type Task[T any] func(ctx context.Context) (T, error)

type options struct {
	shuffle func(n int, swap func(i, j int))
	metrics *metrics.Metrics
}

// Option tunes a single call.
type Option func(*options)

// WithShuffle replaces the random shuffle, e.g. with a no-op for deterministic tests.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(o *options) { o.shuffle = shuffle }
}

// WithMetrics records each pass.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// KeepOrder is a shuffle that leaves the order untouched.
func KeepOrder(int, func(i, j int)) {}

func buildOptions(opts []Option) options {
	o := options{shuffle: rand.Shuffle}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TryInSequence runs tasks one at a time in random order and returns the
// first success. When every task fails it returns the first error seen;
// later errors are dropped.
func TryInSequence[T any](ctx context.Context, tasks []Task[T], opts ...Option) (T, error) {
	var zero T
	if len(tasks) == 0 {
		return zero, ErrEmptyTaskSet
	}

	o := buildOptions(opts)

	order := make([]Task[T], len(tasks))
	copy(order, tasks)
	o.shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	var firstErr error
	attempts := 0
	for _, task := range order {
		if err := ctx.Err(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			break
		}

		attempts++
		result, err := task(ctx)
		if err == nil {
			o.metrics.RecordRedundantRead("success", attempts)
			return result, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	o.metrics.RecordRedundantRead("failure", attempts)
	return zero, firstErr
}

// QueryAllReadonlyContracts turns interchangeable read-only bindings into
// tasks and runs them with TryInSequence.
func QueryAllReadonlyContracts[B, T any](
	ctx context.Context,
	call func(ctx context.Context, binding B) (T, error),
	bindings []B,
	opts ...Option,
) (T, error) {
	tasks := make([]Task[T], len(bindings))
	for i, b := range bindings {
		tasks[i] = func(ctx context.Context) (T, error) {
			return call(ctx, b)
		}
	}
	return TryInSequence(ctx, tasks, opts...)
}
