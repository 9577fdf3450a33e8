// Package resilience keeps a capability available across several providers.
//
// A Chain holds the providers of one capability in a fixed rank order. Each
// call tries the healthy providers in that order and returns the first
// success. A provider that fails, times out or panics is marked failed for
// the lifetime of the chain and is never tried again; there is no retry and
// no recovery. When the last provider fails the capability is unavailable.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-assistant/internal/observability"
)

// Health is the health flag of a provider
type Health int

const (
	HealthAlive  Health = iota // Eligible for calls
	HealthFailed               // Failed once, skipped from now on
)

// String returns the human-readable name of the health flag
func (h Health) String() string {
	switch h {
	case HealthAlive:
		return "alive"
	case HealthFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry registers a provider with a chain. Lower ranks are tried first;
// entries with equal rank keep their registration order.
type Entry[T any] struct {
	Name     string
	Rank     int
	Provider T
}

// ProviderRecord is a point-in-time view of one provider
type ProviderRecord struct {
	Name    string
	Rank    int
	Health  Health
	Failure error // The failure that took the provider down, if any
}

// record is the live state of one provider. failure is written at most once
// until Reset; a non-nil value means failed.
type record[T any] struct {
	name     string
	rank     int
	provider T
	failure  atomic.Pointer[ProviderError]
}

func (r *record[T]) alive() bool {
	return r.failure.Load() == nil
}

// Chain is an ordered, self-pruning list of providers for one capability.
// It is safe for concurrent use.
type Chain[T any] struct {
	capability string
	records    []*record[T]
	logger     zerolog.Logger
}

// NewChain creates a chain for capability. It rejects an empty entry list,
// unnamed entries and duplicate names.
func NewChain[T any](capability string, entries ...Entry[T]) (*Chain[T], error) {
	if capability == "" {
		return nil, errors.New("capability name is required")
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: at least one provider is required", capability)
	}

	seen := make(map[string]bool, len(entries))
	records := make([]*record[T], 0, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("%s: provider name is required", capability)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("%s: duplicate provider %q", capability, e.Name)
		}
		seen[e.Name] = true
		records = append(records, &record[T]{name: e.Name, rank: e.Rank, provider: e.Provider})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].rank < records[j].rank
	})

	c := &Chain[T]{
		capability: capability,
		records:    records,
		logger:     observability.WithComponent("chain").With().Str("capability", capability).Logger(),
	}
	for _, r := range records {
		observability.SetProviderHealth(capability, r.name, true)
	}
	return c, nil
}

// SetLogger replaces the chain logger
func (c *Chain[T]) SetLogger(logger zerolog.Logger) {
	c.logger = logger.With().Str("capability", c.capability).Logger()
}

// Capability returns the capability name
func (c *Chain[T]) Capability() string {
	return c.capability
}

// Records returns a snapshot of every provider in rank order
func (c *Chain[T]) Records() []ProviderRecord {
	out := make([]ProviderRecord, len(c.records))
	for i, r := range c.records {
		out[i] = ProviderRecord{Name: r.name, Rank: r.rank, Health: HealthAlive}
		if f := r.failure.Load(); f != nil {
			out[i].Health = HealthFailed
			out[i].Failure = f
		}
	}
	return out
}

// Healthy reports whether at least one provider is still alive
func (c *Chain[T]) Healthy() bool {
	for _, r := range c.records {
		if r.alive() {
			return true
		}
	}
	return false
}

// Alive returns the names of the providers still eligible, in rank order
func (c *Chain[T]) Alive() []string {
	var names []string
	for _, r := range c.records {
		if r.alive() {
			names = append(names, r.name)
		}
	}
	return names
}

// Reset marks every provider alive again. A chain never recovers on its
// own; callers reset it explicitly between conversations.
func (c *Chain[T]) Reset() {
	for _, r := range c.records {
		r.failure.Store(nil)
		observability.SetProviderHealth(c.capability, r.name, true)
	}
	c.logger.Info().Msg("All providers reset to alive")
}

func (c *Chain[T]) markFailed(r *record[T], perr *ProviderError) {
	if !r.failure.CompareAndSwap(nil, perr) {
		return
	}
	observability.SetProviderHealth(c.capability, r.name, false)
	c.logger.Warn().
		Err(perr.Err).
		Str("provider", r.name).
		Int("rank", r.rank).
		Msg("Provider failed, removed from chain")
}

// Attempt describes one provider call made while serving a request
type Attempt struct {
	Provider string
	Duration time.Duration
	Err      error
}

// Result is the outcome of a successful Invoke
type Result[R any] struct {
	Value    R
	Provider string    // Provider that produced Value
	Attempts []Attempt // Every call made, the last one being the success
}

// Invoke calls fn against the healthy providers of c in rank order and
// returns the first success. Each call gets its own deadline when timeout is
// positive; a provider that does not return by then is abandoned and marked
// failed. It is a package-level function because methods cannot declare
// type parameters.
//
// If ctx ends during a call the context error is returned and the provider
// keeps its health. When no provider is left the error matches
// ErrChainExhausted.
func Invoke[T any, R any](ctx context.Context, c *Chain[T], timeout time.Duration, fn func(context.Context, T) (R, error)) (*Result[R], error) {
	var (
		attempts []Attempt
		failures []*ProviderError
	)

	for _, r := range c.records {
		if !r.alive() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", c.capability, err)
		}

		start := time.Now()
		value, err := call(ctx, timeout, r.provider, fn)
		elapsed := time.Since(start)

		if err == nil {
			attempts = append(attempts, Attempt{Provider: r.name, Duration: elapsed})
			observability.RecordAttempt(c.capability, r.name, true, elapsed)
			c.logger.Debug().
				Str("provider", r.name).
				Dur("latency", elapsed).
				Int("attempts", len(attempts)).
				Msg("Provider succeeded")
			return &Result[R]{Value: value, Provider: r.name, Attempts: attempts}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", c.capability, ctxErr)
		}

		perr := &ProviderError{Capability: c.capability, Provider: r.name, Err: err}
		attempts = append(attempts, Attempt{Provider: r.name, Duration: elapsed, Err: err})
		failures = append(failures, perr)
		observability.RecordAttempt(c.capability, r.name, false, elapsed)
		c.markFailed(r, perr)
	}

	observability.RecordChainExhausted(c.capability)
	if len(failures) > 0 {
		c.logger.Error().
			Int("attempts", len(attempts)).
			Msg("All providers failed, capability unavailable")
	}
	return nil, &ExhaustedError{Capability: c.capability, Failures: failures}
}

type outcome[R any] struct {
	value R
	err   error
}

// call runs fn in its own goroutine so a provider that ignores its context
// can still be abandoned at the deadline.
func call[T any, R any](ctx context.Context, timeout time.Duration, provider T, fn func(context.Context, T) (R, error)) (R, error) {
	attemptCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan outcome[R], 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome[R]{err: fmt.Errorf("provider panicked: %v", p)}
			}
		}()
		v, err := fn(attemptCtx, provider)
		done <- outcome[R]{value: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return out.value, fmt.Errorf("%w after %s: %v", ErrProviderTimeout, timeout, out.err)
		}
		return out.value, out.err
	case <-attemptCtx.Done():
		var zero R
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%w after %s", ErrProviderTimeout, timeout)
	}
}
