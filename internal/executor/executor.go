// Package executor runs units of work under named operation slots, applying
// error classification, backoff retries and watchdog timeouts, and publishing
// every lifecycle transition into the operation state store.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/radrebel/fedscout/internal/classify"
	"github.com/radrebel/fedscout/internal/opstate"
)

// Work is a unit of asynchronous work. It may call report with a progress
// value in [0,1]; progress against a slot that is no longer Loading is
// silently dropped.
type Work[T any] func(ctx context.Context, report func(float64)) (T, error)

// Executor coordinates work execution with the state store.
type Executor struct {
	states *opstate.Store
	policy classify.Policy
	logger *slog.Logger

	// timeoutFor resolves the watchdog duration for a slot; overridable in
	// tests. Defaults to Slot.Timeout.
	timeoutFor func(opstate.Slot) time.Duration
}

// New creates an Executor publishing into states.
func New(states *opstate.Store, policy classify.Policy, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		states:     states,
		policy:     policy,
		logger:     logger,
		timeoutFor: opstate.Slot.Timeout,
	}
}

// States exposes the underlying state store.
func (e *Executor) States() *opstate.Store { return e.states }

// Cancel forces the slot back to Idle. Cancellation is cooperative: the
// in-flight work keeps running, but its eventual result is discarded.
func (e *Executor) Cancel(slot opstate.Slot) {
	e.states.Cancel(slot)
}

type outcome[T any] struct {
	value T
	err   error
}

// Do runs work once under the slot. Equivalent to DoWithRetry with a single
// attempt.
func Do[T any](ctx context.Context, e *Executor, slot opstate.Slot, work Work[T]) (T, *classify.Error) {
	return DoWithRetry(ctx, e, slot, 1, work)
}

// DoWithRetry runs work under the slot, retrying transient failures with
// increasing delay until maxAttempts is reached. maxAttempts <= 0 selects
// the slot's default. The slot stays Loading between attempts; it reaches
// Failed only when retries are exhausted, the error is terminal, or the
// slot's watchdog timeout fires.
func DoWithRetry[T any](ctx context.Context, e *Executor, slot opstate.Slot, maxAttempts int, work Work[T]) (T, *classify.Error) {
	var zero T
	if maxAttempts <= 0 {
		maxAttempts = slot.MaxAttempts()
	}

	gen := e.states.Begin(slot)
	report := func(p float64) { e.states.SetProgress(slot, gen, p) }

	watchdog := time.NewTimer(e.timeoutFor(slot))
	defer watchdog.Stop()

	timedOut := func() (T, *classify.Error) {
		ce := &classify.Error{Kind: classify.KindNetworkTimeout, Cause: context.DeadlineExceeded}
		e.states.Fail(slot, gen, ce)
		e.logger.Warn("operation watchdog fired",
			slog.String("slot", slot.String()),
			slog.Duration("timeout", e.timeoutFor(slot)))
		return zero, ce
	}

	for attempt := 1; ; attempt++ {
		done := make(chan outcome[T], 1)
		go func() {
			v, err := work(ctx, report)
			done <- outcome[T]{value: v, err: err}
		}()

		var res outcome[T]
		select {
		case <-watchdog.C:
			return timedOut()
		case <-ctx.Done():
			ce := classify.Classify(ctx.Err())
			e.states.Fail(slot, gen, ce)
			return zero, ce
		case res = <-done:
		}

		if res.err == nil {
			e.states.Succeed(slot, gen)
			return res.value, nil
		}

		ce := classify.Classify(res.err)
		if !e.policy.ShouldRetry(ce, attempt, maxAttempts) {
			e.states.Fail(slot, gen, ce)
			e.logger.Warn("operation failed",
				slog.String("slot", slot.String()),
				slog.String("kind", ce.Kind.String()),
				slog.Int("attempts", attempt),
				slog.String("error", res.err.Error()))
			return zero, ce
		}

		delay := e.policy.Delay(ce, attempt)
		e.logger.Debug("retrying operation",
			slog.String("slot", slot.String()),
			slog.String("kind", ce.Kind.String()),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay))

		select {
		case <-watchdog.C:
			return timedOut()
		case <-ctx.Done():
			cce := classify.Classify(ctx.Err())
			e.states.Fail(slot, gen, cce)
			return zero, cce
		case <-time.After(delay):
		}
	}
}
