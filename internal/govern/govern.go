// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package govern wraps source client calls with per-source rate limiting,
// concurrency capping, and throttle-aware retry.
//
// Each source gets a token bucket reflecting its published rate limit and a
// semaphore bounding in-flight requests. Callers block for a token up to a
// configurable maximum wait; a throttling response from the source triggers
// exponential backoff with full jitter up to a retry budget. A circuit
// breaker per source short-circuits calls once the budget keeps being
// exhausted, so a dead source degrades the run instead of stalling it.
//
// One Governor is shared by all runs in the process: the throttling budget
// is per external service, not per run.
package govern

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/pdiddy/citegraph/internal/source"
	"github.com/pdiddy/citegraph/pkg/types"
)

// ErrRateLimitTimeout reports that no rate token became available within the
// configured maximum wait. The caller may retry later.
var ErrRateLimitTimeout = errors.New("rate limit wait budget exhausted")

// ErrSourceUnavailable reports that the retry budget for a throttled source
// was exhausted, or that the source's circuit breaker is open. Callers
// should skip the source for the remainder of the run.
var ErrSourceUnavailable = errors.New("source unavailable")

// Governor coordinates access to literature sources. Safe for concurrent
// use; per-source state is created lazily on first call.
type Governor struct {
	cfg types.GovernorConfig
	log *slog.Logger

	// sleep waits for the given duration or until the context is done.
	// Tests substitute a fake to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	states map[string]*sourceState
}

type sourceState struct {
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	breaker *gobreaker.CircuitBreaker
}

// New returns a Governor with the given limits. A nil logger discards.
func New(cfg types.GovernorConfig, log *slog.Logger) *Governor {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Governor{
		cfg:    cfg.WithDefaults(),
		log:    log,
		sleep:  sleepCtx,
		states: make(map[string]*sourceState),
	}
}

// Execute runs op under the named source's rate limit, concurrency cap, and
// circuit breaker. Throttling errors from op are retried with backoff; all
// other errors pass through unretried.
func (g *Governor) Execute(ctx context.Context, src string, op func(context.Context) error) error {
	st := g.state(src)

	if err := st.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer st.sem.Release(1)

	_, err := st.breaker.Execute(func() (any, error) {
		return nil, g.attempt(ctx, src, st, op)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s circuit open: %w", src, ErrSourceUnavailable)
	}
	return err
}

// attempt is one governed call: token wait, op, and throttle retry loop.
func (g *Governor) attempt(ctx context.Context, src string, st *sourceState, op func(context.Context) error) error {
	for retry := 0; ; retry++ {
		if err := g.waitToken(ctx, src, st.limiter); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil || !errors.Is(err, source.ErrThrottled) {
			return err
		}

		if retry >= g.cfg.MaxRetries {
			return fmt.Errorf("%s: retry budget exhausted after %d attempts: %w",
				src, retry+1, ErrSourceUnavailable)
		}

		delay := backoffDelay(g.cfg.BackoffBase, g.cfg.BackoffCap, retry)
		g.log.Warn("source throttled, backing off",
			"source", src, "delay", delay, "attempt", retry+1, "budget", g.cfg.MaxRetries)
		if err := g.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// waitToken blocks for a rate token up to MaxWait. Context cancellation
// propagates as the context's error; a pure wait timeout maps to
// ErrRateLimitTimeout.
func (g *Governor) waitToken(ctx context.Context, src string, limiter *rate.Limiter) error {
	waitCtx, cancel := context.WithTimeout(ctx, g.cfg.MaxWait)
	defer cancel()

	if err := limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("no rate token for %s within %v: %w", src, g.cfg.MaxWait, ErrRateLimitTimeout)
	}
	return nil
}

func (g *Governor) state(src string) *sourceState {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.states[src]
	if !ok {
		st = &sourceState{
			limiter: rate.NewLimiter(rate.Limit(g.cfg.RatePerSecond), g.cfg.Burst),
			sem:     semaphore.NewWeighted(g.cfg.MaxConcurrent),
			breaker: g.newBreaker(src),
		}
		g.states[src] = st
	}
	return st
}

func (g *Governor) newBreaker(src string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    src,
		Timeout: g.cfg.BackoffCap,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && ratio >= 0.6
		},
		// Only exhausted retry budgets count against the breaker;
		// not-found and malformed responses are source-health neutral.
		IsSuccessful: func(err error) bool {
			return !errors.Is(err, ErrSourceUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.log.Warn("source circuit state changed",
				"source", name, "from", from.String(), "to", to.String())
		},
	})
}

// backoffDelay returns a full-jitter delay for the given retry: uniform in
// [0, min(ceiling, base*2^retry)].
func backoffDelay(base, ceiling time.Duration, retry int) time.Duration {
	d := base << uint(retry)
	if d > ceiling || d <= 0 {
		d = ceiling
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
