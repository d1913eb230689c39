// Package scheduler drives steppable units of work to completion.
//
// A Task performs a bounded amount of work per Step and reports whether it
// has finished. The Runner owns the waiting between steps, so tasks never
// block or spin while they poll a remote service.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// Default delays between task steps.
const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxInterval = 30 * time.Second
)

// ErrStepBudgetExhausted is returned when the step delay policy stops
// before the task reports completion.
var ErrStepBudgetExhausted = errors.New("scheduler: task did not complete before the step policy stopped")

// Task is a resumable unit of work. Step must return promptly; a task that
// needs to wait returns done=false and is resumed by the runner later.
type Task interface {
	Step(ctx context.Context) (done bool, err error)
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func(ctx context.Context) (bool, error)

// Step calls f(ctx).
func (f TaskFunc) Step(ctx context.Context) (bool, error) {
	return f(ctx)
}

// Runner resumes tasks until they complete, fail, or the context ends.
type Runner struct {
	newBackOff func() backoff.BackOff
	timeout    time.Duration
	log        zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithBackOff sets the policy used between steps. The factory is called
// once per Run so state is never shared between tasks.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(r *Runner) { r.newBackOff = factory }
}

// WithInterval uses an exponential policy starting at initial and capped at
// max.
func WithInterval(initial, maxInterval time.Duration) Option {
	return WithBackOff(func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = maxInterval
		b.Multiplier = 1.5
		b.RandomizationFactor = 0.1
		return b
	})
}

// WithTimeout bounds the total run time of each task. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithLogger sets the runner's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// NewRunner creates a Runner with the default exponential step policy.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{log: zerolog.Nop()}
	WithInterval(DefaultInterval, DefaultMaxInterval)(r)
	for _, o := range opts {
		o(r)
	}
	return r
}

// Immediate returns a Runner that resumes tasks without delay. Used by
// tests and by dry runs against the in-memory service.
func Immediate() *Runner {
	return NewRunner(WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }))
}

// Run steps task until it reports completion or returns an error.
func (r *Runner) Run(ctx context.Context, task Task) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	b := r.newBackOff()
	b.Reset()

	for step := 1; ; step++ {
		done, err := task.Step(ctx)
		if err != nil {
			return err
		}
		if done {
			r.log.Debug().Int("steps", step).Msg("task complete")
			return nil
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return ErrStepBudgetExhausted
		}
		if err := sleep(ctx, wait); err != nil {
			return fmt.Errorf("scheduler: waiting after step %d: %w", step, err)
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
