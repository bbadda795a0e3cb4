// Package refresh keeps the in-memory event snapshot current.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "hrcal/internal/log"
	"hrcal/internal/model"
	"hrcal/internal/source"
)

var ErrNoSource = errors.New("refresh: no source configured")

// Snapshot is the result of one refresh. Events is never mutated after it
// has been published.
type Snapshot struct {
	Events    []model.Event
	Range     model.DateRange
	UpdatedAt time.Time
}

// Hook runs after every successful refresh, e.g. to capture a preview.
type Hook func(ctx context.Context, snap Snapshot)

// Option configures a Refresher.
type Option func(*Refresher)

// WithWindow overrides the range that is loaded on every refresh.
func WithWindow(fn func(now time.Time) model.DateRange) Option {
	return func(r *Refresher) { r.window = fn }
}

// WithHook registers a hook called after each successful refresh.
func WithHook(h Hook) Option {
	return func(r *Refresher) { r.hooks = append(r.hooks, h) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

// Refresher reloads events from src on a cron schedule and publishes them
// as an immutable snapshot.
type Refresher struct {
	src    source.Source
	loc    *time.Location
	spec   string
	window func(now time.Time) model.DateRange
	hooks  []Hook
	now    func() time.Time

	// runMu serializes refreshes; mu guards snap.
	runMu sync.Mutex
	mu    sync.RWMutex
	snap  Snapshot
}

// New returns a Refresher for src. spec is a standard five-field cron
// expression.
func New(src source.Source, spec string, loc *time.Location, opts ...Option) *Refresher {
	if loc == nil {
		loc = time.Local
	}
	r := &Refresher{src: src, loc: loc, spec: spec, now: time.Now}
	r.window = r.defaultWindow
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// defaultWindow covers the previous, current and next calendar year so the
// year view and month navigation work without refetching.
func (r *Refresher) defaultWindow(now time.Time) model.DateRange {
	y := now.In(r.loc).Year()
	return model.DateRange{
		Start: time.Date(y-1, time.January, 1, 0, 0, 0, 0, r.loc),
		End:   time.Date(y+1, time.December, 31, 23, 59, 59, 0, r.loc),
	}
}

// Snapshot returns the latest published snapshot. Callers must not modify
// the returned Events slice.
func (r *Refresher) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// RefreshNow loads the window from the source and publishes it. On error
// the previous snapshot is kept.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	if r.src == nil {
		return ErrNoSource
	}

	r.runMu.Lock()
	defer r.runMu.Unlock()

	now := r.now()
	rng := r.window(now)
	start := time.Now()

	events, err := r.src.Events(ctx, rng)
	if err != nil {
		appLog.Error("refresh failed", err, "source", r.src.ID())
		return fmt.Errorf("refresh: %w", err)
	}

	snap := Snapshot{Events: events, Range: rng, UpdatedAt: now}
	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()

	appLog.Info("refresh completed", "source", r.src.ID(), "events", len(events), "elapsed", time.Since(start).String())

	for _, h := range r.hooks {
		h(ctx, snap)
	}
	return nil
}

// Start refreshes once, then keeps refreshing on the cron schedule until
// ctx is done. It returns after the initial refresh; an initial failure is
// logged and the schedule still starts.
func (r *Refresher) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(r.loc))
	if _, err := c.AddFunc(r.spec, func() {
		// Errors are logged inside RefreshNow.
		_ = r.RefreshNow(ctx)
	}); err != nil {
		return fmt.Errorf("refresh: bad schedule %q: %w", r.spec, err)
	}

	_ = r.RefreshNow(ctx)

	c.Start()
	appLog.Info("refresh scheduled", "cron", r.spec)

	go func() {
		<-ctx.Done()
		stopped := c.Stop()
		<-stopped.Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return nil
}
