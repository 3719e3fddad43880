// Package refresh schedules dashboard refresh cycles: one at startup, then
// one per interval while auto-refresh is enabled, plus manual refreshes.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

// Cycle triggers, used as metric labels.
const (
	TriggerStartup = "startup"
	TriggerTimer   = "timer"
	TriggerManual  = "manual"
)

// State is the scheduler's externally visible state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateScheduled State = "scheduled"
	StatePaused    State = "paused"
)

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("orchestrator already started")

// Cycler runs one full refresh cycle. It must not fail; errors are handled
// inside the cycle.
type Cycler interface {
	Cycle(ctx context.Context)
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	State           State      `json:"state"`
	Enabled         bool       `json:"enabled"`
	IntervalSeconds int        `json:"interval_seconds"`
	Countdown       int        `json:"countdown"`
	CountdownLabel  string     `json:"countdown_label"`
	InFlight        int        `json:"in_flight"`
	CyclesRun       int64      `json:"cycles_run"`
	LastCycleAt     *time.Time `json:"last_cycle_at,omitempty"`
	NextCycleAt     *time.Time `json:"next_cycle_at,omitempty"`
}

// Orchestrator drives refresh cycles from two tickers: the cycle ticker
// fires every interval and the countdown ticker fires every second to
// publish the remaining time. Both are always stopped and recreated together.
type Orchestrator struct {
	cycler  Cycler
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
	ready   atomic.Bool
	wg      sync.WaitGroup

	mu          sync.Mutex
	cfg         domain.RefreshConfig
	runCtx      context.Context
	armCancel   context.CancelFunc
	cycleTicker clockwork.Ticker
	countTicker clockwork.Ticker
	nextDue     time.Time
	inFlight    int
	cyclesRun   int64
	lastCycle   time.Time
	listeners   []func(Status)
}

// New creates an Orchestrator. The interval in cfg is normalized.
func New(c Cycler, cfg domain.RefreshConfig, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Orchestrator {
	cfg.Interval = domain.NormalizeInterval(cfg.Interval)
	o := &Orchestrator{
		cycler:  c,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
	o.recordConfig(cfg)
	return o
}

// OnStatus registers a listener called after every state change and every
// countdown tick. Listeners must not block.
func (o *Orchestrator) OnStatus(fn func(Status)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

// CheckReadiness returns nil once the first cycle has completed.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if !o.ready.Load() {
		return errors.New("initial refresh cycle has not completed yet")
	}
	return nil
}

// Start runs one cycle immediately, whether or not auto-refresh is enabled,
// then arms the tickers if it is. Tickers stop when ctx is cancelled.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.runCtx != nil {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.runCtx = ctx
	o.mu.Unlock()

	cfg := o.Config()
	o.logger.Info("refresh orchestrator starting", "interval_seconds", cfg.Interval, "enabled", cfg.Enabled)
	o.runCycle(ctx, TriggerStartup)

	o.mu.Lock()
	o.armLocked()
	o.mu.Unlock()
	o.publish()
	return nil
}

// Wait stops the tickers and blocks until the tick loop and every in-flight
// cycle have returned. Call it after cancelling the context passed to Start.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	o.disarmLocked()
	o.mu.Unlock()
	o.wg.Wait()
}

// RefreshNow runs one cycle and returns when it completes. It leaves the
// tickers and the countdown untouched.
func (o *Orchestrator) RefreshNow(ctx context.Context) {
	o.runCycle(ctx, TriggerManual)
}

// SetEnabled toggles auto-refresh. Disabling cancels both tickers; enabling
// re-arms both from a fresh deadline.
func (o *Orchestrator) SetEnabled(enabled bool) Status {
	o.mu.Lock()
	o.cfg.Enabled = enabled
	o.armLocked()
	cfg := o.cfg
	o.mu.Unlock()

	o.recordConfig(cfg)
	o.logger.Info("auto-refresh toggled", "enabled", enabled)
	o.publish()
	return o.Status()
}

// SetInterval parses raw as seconds and re-arms both tickers. Invalid input
// falls back to the default interval rather than being rejected.
func (o *Orchestrator) SetInterval(raw string) Status {
	interval := domain.ParseInterval(raw)

	o.mu.Lock()
	o.cfg.Interval = interval
	o.armLocked()
	cfg := o.cfg
	o.mu.Unlock()

	o.recordConfig(cfg)
	o.logger.Info("refresh interval changed", "input", raw, "interval_seconds", interval)
	o.publish()
	return o.Status()
}

// Apply replaces the whole refresh configuration, e.g. after a config file
// reload, and re-arms the tickers.
func (o *Orchestrator) Apply(cfg domain.RefreshConfig) Status {
	cfg.Interval = domain.NormalizeInterval(cfg.Interval)

	o.mu.Lock()
	changed := cfg != o.cfg
	if changed {
		o.cfg = cfg
		o.armLocked()
	}
	o.mu.Unlock()

	if changed {
		o.recordConfig(cfg)
		o.logger.Info("refresh config applied", "interval_seconds", cfg.Interval, "enabled", cfg.Enabled)
		o.publish()
	}
	return o.Status()
}

// Config returns the current refresh configuration.
func (o *Orchestrator) Config() domain.RefreshConfig {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg
}

// Status reports the current state. The countdown is derived from the next
// cycle deadline, so it cannot drift from the cycle ticker.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusLocked()
}

func (o *Orchestrator) statusLocked() Status {
	st := Status{
		Enabled:         o.cfg.Enabled,
		IntervalSeconds: o.cfg.Interval,
		Countdown:       o.cfg.Interval,
		InFlight:        o.inFlight,
		CyclesRun:       o.cyclesRun,
	}
	if !o.lastCycle.IsZero() {
		last := o.lastCycle
		st.LastCycleAt = &last
	}

	armed := o.armCancel != nil
	switch {
	case o.inFlight > 0:
		st.State = StateRunning
	case o.runCtx == nil:
		st.State = StateIdle
	case armed:
		st.State = StateScheduled
	default:
		st.State = StatePaused
	}

	switch {
	case armed:
		st.Countdown = o.remainingLocked()
		st.CountdownLabel = fmt.Sprintf("%ds", st.Countdown)
		next := o.nextDue
		st.NextCycleAt = &next
	case o.runCtx != nil && !o.cfg.Enabled:
		st.CountdownLabel = "paused"
	}
	return st
}

// remainingLocked returns whole seconds until the next cycle, in
// [1, interval]. A deadline that has just passed wraps to the full interval.
func (o *Orchestrator) remainingLocked() int {
	secs := int(math.Ceil(o.nextDue.Sub(o.clock.Now()).Seconds()))
	if secs <= 0 || secs > o.cfg.Interval {
		return o.cfg.Interval
	}
	return secs
}

// armLocked stops both tickers and, when auto-refresh is enabled and the
// orchestrator has started, creates both afresh.
func (o *Orchestrator) armLocked() {
	o.disarmLocked()
	if !o.cfg.Enabled || o.runCtx == nil || o.runCtx.Err() != nil {
		return
	}

	interval := time.Duration(o.cfg.Interval) * time.Second
	ctx, cancel := context.WithCancel(o.runCtx)
	o.armCancel = cancel
	o.cycleTicker = o.clock.NewTicker(interval)
	o.countTicker = o.clock.NewTicker(time.Second)
	o.nextDue = o.clock.Now().Add(interval)

	o.wg.Add(1)
	go o.tickLoop(ctx, o.cycleTicker, o.countTicker, interval)
}

func (o *Orchestrator) disarmLocked() {
	if o.armCancel != nil {
		o.armCancel()
		o.armCancel = nil
	}
	if o.cycleTicker != nil {
		o.cycleTicker.Stop()
		o.cycleTicker = nil
	}
	if o.countTicker != nil {
		o.countTicker.Stop()
		o.countTicker = nil
	}
	o.nextDue = time.Time{}
}

func (o *Orchestrator) tickLoop(ctx context.Context, cycleTicker, countTicker clockwork.Ticker, interval time.Duration) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-cycleTicker.Chan():
			o.mu.Lock()
			// A tick already buffered when the tickers were replaced is stale.
			if ctx.Err() != nil {
				o.mu.Unlock()
				return
			}
			o.nextDue = o.clock.Now().Add(interval)
			runCtx := o.runCtx
			o.mu.Unlock()

			o.wg.Add(1)
			go func() {
				defer o.wg.Done()
				o.runCycle(runCtx, TriggerTimer)
			}()
		case <-countTicker.Chan():
			if ctx.Err() != nil {
				return
			}
			o.publish()
		}
	}
}

func (o *Orchestrator) runCycle(ctx context.Context, trigger string) {
	o.mu.Lock()
	o.inFlight++
	o.mu.Unlock()
	o.publish()

	o.metrics.CyclesTotal.WithLabelValues(trigger).Inc()
	start := time.Now()
	o.cycler.Cycle(ctx)
	elapsed := time.Since(start)
	o.metrics.CycleDuration.Observe(elapsed.Seconds())

	o.mu.Lock()
	o.inFlight--
	o.cyclesRun++
	o.lastCycle = o.clock.Now()
	o.mu.Unlock()

	o.ready.Store(true)
	o.logger.Debug("refresh cycle complete", "trigger", trigger, "duration", elapsed)
	o.publish()
}

func (o *Orchestrator) recordConfig(cfg domain.RefreshConfig) {
	enabled := 0.0
	if cfg.Enabled {
		enabled = 1
	}
	o.metrics.AutoRefreshEnabled.Set(enabled)
	o.metrics.RefreshInterval.Set(float64(cfg.Interval))
}

func (o *Orchestrator) publish() {
	o.mu.Lock()
	st := o.statusLocked()
	listeners := slices.Clone(o.listeners)
	o.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}
