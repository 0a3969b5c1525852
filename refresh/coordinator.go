package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonwraymond/authflight/credential"
	"github.com/jonwraymond/authflight/observe"
)

// LogoutFunc terminates the session after a failed refresh.
// It is invoked exactly once per failed cycle, never once per waiter.
type LogoutFunc func()

// Config configures the Coordinator.
type Config struct {
	// Store is the credential store written at settlement.
	// Required.
	Store credential.Store

	// Refresher performs the refresh call. Required.
	Refresher credential.Refresher

	// Logout is invoked exactly once when a refresh cycle fails.
	// Optional.
	Logout LogoutFunc

	// RefreshTimeout bounds one refresh call. The refresh runs on a
	// background context: a waiter abandoning its wait never cancels
	// the cycle. Default: 30 seconds.
	RefreshTimeout time.Duration

	// Logger is the structured logger. If nil, logging is disabled.
	Logger observe.Logger

	// Metrics records settled cycles. If nil, metrics are disabled.
	Metrics observe.Metrics

	// Tracer opens a span per refresh cycle. If nil, tracing is disabled.
	Tracer observe.Tracer
}

// Coordinator serializes credential refreshes: at most one refresh
// call is in flight at any time, and every caller that arrives while
// it is in flight joins the same cycle.
//
// Contract:
// - Concurrency: safe for concurrent use by any number of goroutines.
// - Writers: the coordinator's settlement path is the only writer of
//   the credential store.
type Coordinator struct {
	config Config

	mu    sync.Mutex
	cycle *cycle
}

// cycle is one in-flight refresh attempt. Waiter registration is
// append-only and guarded by the coordinator mutex; the cycle is
// retired under the same mutex before waiters are released, so no
// waiter can join a settled cycle.
type cycle struct {
	started time.Time
	waiters []chan settlement
}

// settlement is the shared outcome of one cycle. Every waiter of the
// cycle receives the same value.
type settlement struct {
	cred credential.Credential
	err  error
}

// NewCoordinator creates a refresh coordinator.
func NewCoordinator(config Config) (*Coordinator, error) {
	if config.Store == nil {
		return nil, errors.New("refresh: store is required")
	}
	if config.Refresher == nil {
		return nil, errors.New("refresh: refresher is required")
	}

	// Apply defaults
	if config.RefreshTimeout <= 0 {
		config.RefreshTimeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}
	if config.Tracer == nil {
		config.Tracer = observe.NopTracer()
	}

	return &Coordinator{config: config}, nil
}

// Await triggers a refresh, or joins the one already in flight, and
// blocks until that cycle settles. On success it returns the new
// credential shared by every waiter of the cycle; on failure it
// returns the cycle's shared error wrapping ErrSessionExpired.
//
// ctx only bounds the wait. An abandoned wait does not cancel or
// otherwise affect the cycle; it settles for the remaining waiters.
func (c *Coordinator) Await(ctx context.Context) (credential.Credential, error) {
	// Buffered so settlement never blocks on an abandoned waiter.
	ch := make(chan settlement, 1)

	c.mu.Lock()
	if c.cycle == nil {
		cy := &cycle{
			started: time.Now(),
			waiters: []chan settlement{ch},
		}
		c.cycle = cy
		c.mu.Unlock()

		c.config.Logger.Debug(ctx, "refresh cycle started")
		go c.run(cy)
	} else {
		c.cycle.waiters = append(c.cycle.waiters, ch)
		c.mu.Unlock()

		c.config.Logger.Debug(ctx, "joined in-flight refresh cycle")
	}

	select {
	case s := <-ch:
		return s.cred, s.err
	case <-ctx.Done():
		return credential.Credential{}, ctx.Err()
	}
}

// InFlight reports whether a refresh cycle is currently in flight.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycle != nil
}

// run executes one refresh cycle to settlement. The refresh call runs
// on a background context so waiter cancellation cannot interrupt it.
func (c *Coordinator) run(cy *cycle) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.RefreshTimeout)
	defer cancel()

	ctx, span := c.config.Tracer.StartCycle(ctx)

	cred, err := c.config.Refresher.Refresh(ctx)

	// Settle: write the store, retire the cycle, snapshot the waiter
	// list. All three happen under the mutex so a concurrent Await
	// either joined before settlement or starts a fresh cycle.
	c.mu.Lock()
	if err != nil {
		c.config.Store.Clear()
	} else {
		c.config.Store.Set(cred)
	}
	waiters := cy.waiters
	c.cycle = nil
	c.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSessionExpired, err)
		if c.config.Logout != nil {
			c.config.Logout()
		}
		c.config.Logger.Error(ctx, "refresh cycle failed, session terminated",
			observe.Field{Key: "waiters", Value: len(waiters)},
			observe.Field{Key: "error", Value: err.Error()},
		)
	} else {
		c.config.Logger.Info(ctx, "credential refreshed",
			observe.Field{Key: "waiters", Value: len(waiters)},
		)
	}

	c.config.Tracer.EndCycle(span, len(waiters), err)
	c.config.Metrics.RecordRefresh(ctx, time.Since(cy.started), len(waiters), err)

	// Release in FIFO registration order. Channels are buffered, so an
	// abandoned waiter cannot stall the broadcast.
	s := settlement{cred: cred, err: err}
	for _, ch := range waiters {
		ch <- s
	}
}
