// Package session owns the active run: it drives the one-second ticker,
// accumulates filtered location movements, writes every change through to
// durable storage and turns a stopped session into a completed run.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"stride/internal/geo"
	"stride/internal/location"
	"stride/internal/observability"
	"stride/internal/store"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrNoActiveRun         = errors.New("no active run")
	ErrSessionActive       = errors.New("a run is already in progress")
	ErrClosed              = errors.New("session controller closed")
)

// State is the controller's lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Paused
	Finalizing
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Finalizing:
		return "finalizing"
	default:
		return "idle"
	}
}

// RunStore is the durable home of the active run record.
type RunStore interface {
	Get(ctx context.Context) (*store.ActiveRunState, bool, error)
	Set(ctx context.Context, st *store.ActiveRunState) error
	Clear(ctx context.Context) error
}

// History receives completed runs.
type History interface {
	Append(ctx context.Context, run store.Run) error
}

// Snapshot is a read-only view of the session for display.
type Snapshot struct {
	State      State
	StartedAt  time.Time
	DistanceMi float64
	ElapsedSec int
	Duration   string
	Pace       string
	IsRunning  bool
	PathLen    int
	Last       *geo.Point
}

// Config tunes a Controller. Zero values select the defaults.
type Config struct {
	Sampler      location.SamplerConfig
	TickInterval time.Duration
	Clock        Clock
}

type command struct {
	ctx   context.Context
	fn    func(ctx context.Context) error
	reply chan error
}

// Controller is the run session state machine. All state is owned by a
// single goroutine; exported methods send it commands and wait for the result.
type Controller struct {
	provider location.Provider
	runs     RunStore
	history  History
	cfg      Config
	log      logrus.FieldLogger

	cmds    chan command
	updates chan Snapshot
	quit    chan struct{}
	done    chan struct{}
	closing sync.Once

	// Owned by the loop goroutine.
	state   State
	run     *store.ActiveRunState
	sampler *location.Sampler
	ticker  Ticker
}

// New creates a controller and starts its loop. Call Close to stop it.
func New(provider location.Provider, runs RunStore, history History, cfg Config, log logrus.FieldLogger) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Sampler == (location.SamplerConfig{}) {
		cfg.Sampler = location.DefaultSamplerConfig()
	}

	c := &Controller{
		provider: provider,
		runs:     runs,
		history:  history,
		cfg:      cfg,
		log:      log,
		cmds:     make(chan command),
		updates:  make(chan Snapshot, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.loop()
	return c
}

// Updates delivers a snapshot after every change. Only the latest snapshot
// is kept if the reader falls behind.
func (c *Controller) Updates() <-chan Snapshot {
	return c.updates
}

// Close stops the loop, the ticker and the location subscription. The
// durable record is left in place so the session can be recovered.
func (c *Controller) Close() {
	c.closing.Do(func() { close(c.quit) })
	<-c.done
}

// Start begins a new run.
func (c *Controller) Start(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.state != Idle {
			return ErrSessionActive
		}
		if err := c.ensurePermission(ctx); err != nil {
			return err
		}
		if err := c.startSampler(ctx, true); err != nil {
			return err
		}

		c.run = store.NewActiveRunState(c.cfg.Clock.Now())
		c.state = Running
		c.persist(ctx, "start")
		c.startTicker()
		c.log.WithField("started_at", c.run.StartedTime()).Info("run started")
		c.publish()
		return nil
	})
}

// Pause freezes the elapsed time and stops distance accumulation.
func (c *Controller) Pause(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		switch c.state {
		case Paused:
			return nil
		case Running:
			c.pause(ctx)
			return nil
		default:
			return ErrNoActiveRun
		}
	})
}

// Continue resumes a paused run.
func (c *Controller) Continue(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		switch c.state {
		case Running:
			return nil
		case Paused:
			return c.unpause(ctx)
		default:
			return ErrNoActiveRun
		}
	})
}

// PauseOrResume toggles between running and paused.
func (c *Controller) PauseOrResume(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		switch c.state {
		case Running:
			c.pause(ctx)
			return nil
		case Paused:
			return c.unpause(ctx)
		default:
			return ErrNoActiveRun
		}
	})
}

// Stop finalizes the session into a completed run and appends it to history.
// If the run cannot be saved the session is left paused with its durable
// record intact and the error is returned so the caller can retry.
func (c *Controller) Stop(ctx context.Context) (store.Run, error) {
	var run store.Run
	err := c.do(ctx, func(ctx context.Context) error {
		if c.state != Running && c.state != Paused {
			return ErrNoActiveRun
		}

		c.stopSampler()
		c.stopTicker()
		c.state = Finalizing
		c.publish()

		final := c.terminalState(ctx)
		now := c.cfg.Clock.Now()
		run = store.Run{
			Version:    store.SchemaVersion,
			ID:         store.NewRunID(),
			Distance:   final.TotalDistanceMi,
			Duration:   FormatDuration(final.ElapsedSec),
			Pace:       FormatPace(final.ElapsedSec, final.TotalDistanceMi),
			Date:       now.UTC(),
			ElapsedSec: final.ElapsedSec,
			Path:       append([]geo.Point{}, final.Path...),
		}

		if err := c.history.Append(ctx, run); err != nil {
			observability.PersistFailed("append_run")
			c.run = final
			c.run.IsRunning = false
			c.state = Paused
			c.persist(ctx, "stop_rollback")
			c.publish()
			run = store.Run{}
			return fmt.Errorf("saving run: %w", err)
		}

		if err := c.runs.Clear(ctx); err != nil {
			observability.PersistFailed("clear_active_run")
			c.log.WithError(err).Warn("run saved but active record not cleared")
		}

		c.run = nil
		c.state = Idle
		observability.RunCompleted(run.Distance)
		c.log.WithFields(logrus.Fields{
			"id":       run.ID,
			"distance": run.Distance,
			"duration": run.Duration,
		}).Info("run saved")
		c.publish()
		return nil
	})
	return run, err
}

// Cancel abandons the session without saving a run.
func (c *Controller) Cancel(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.state != Running && c.state != Paused {
			return ErrNoActiveRun
		}
		c.stopSampler()
		c.stopTicker()
		if err := c.runs.Clear(ctx); err != nil {
			observability.PersistFailed("clear_active_run")
			c.log.WithError(err).Warn("clearing cancelled run")
		}
		c.run = nil
		c.state = Idle
		c.log.Info("run cancelled")
		c.publish()
		return nil
	})
}

// Recover returns the stored session if one is worth resuming.
func (c *Controller) Recover(ctx context.Context) (*store.ActiveRunState, bool, error) {
	var (
		st *store.ActiveRunState
		ok bool
	)
	err := c.do(ctx, func(ctx context.Context) error {
		if c.state != Idle {
			return ErrSessionActive
		}
		stored, found, err := c.runs.Get(ctx)
		if err != nil {
			return err
		}
		if found && stored.Resumable() {
			st, ok = stored, true
		}
		return nil
	})
	return st, ok, err
}

// Resume rebuilds the session from a recovered record without resetting its
// totals. The session enters Running or Paused according to the record.
func (c *Controller) Resume(ctx context.Context, st *store.ActiveRunState) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.state != Idle {
			return ErrSessionActive
		}
		if st == nil {
			return ErrNoActiveRun
		}
		if err := c.ensurePermission(ctx); err != nil {
			return err
		}
		if err := c.startSampler(ctx, st.IsRunning); err != nil {
			return err
		}

		c.run = st.Clone()
		if c.run.IsRunning {
			c.state = Running
			c.startTicker()
		} else {
			c.state = Paused
		}
		c.persist(ctx, "resume")
		c.log.WithFields(logrus.Fields{
			"elapsed_sec": c.run.ElapsedSec,
			"distance":    c.run.TotalDistanceMi,
			"running":     c.run.IsRunning,
		}).Info("run recovered")
		c.publish()
		return nil
	})
}

// Discard deletes a recovered record the user chose not to resume.
func (c *Controller) Discard(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.state != Idle {
			return ErrSessionActive
		}
		return c.runs.Clear(ctx)
	})
}

// Snapshot returns the current view of the session.
func (c *Controller) Snapshot() Snapshot {
	var snap Snapshot
	if err := c.do(context.Background(), func(context.Context) error {
		snap = c.snapshot()
		return nil
	}); err != nil {
		return Snapshot{State: Idle, Duration: "0:00", Pace: "0:00"}
	}
	return snap
}

func (c *Controller) do(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := command{ctx: ctx, fn: fn, reply: make(chan error, 1)}
	select {
	case c.cmds <- cmd:
	case <-c.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-cmd.reply
}

func (c *Controller) loop() {
	defer close(c.done)
	for {
		var ticks <-chan time.Time
		if c.ticker != nil {
			ticks = c.ticker.C()
		}
		var moves <-chan location.Movement
		if c.sampler != nil {
			moves = c.sampler.Movements()
		}

		select {
		case <-c.quit:
			c.stopSampler()
			c.stopTicker()
			return
		case cmd := <-c.cmds:
			cmd.reply <- cmd.fn(cmd.ctx)
		case <-ticks:
			c.onTick()
		case m, ok := <-moves:
			if !ok {
				c.log.Warn("location updates stopped")
				c.stopSampler()
				continue
			}
			c.onMovement(m)
		}
	}
}

func (c *Controller) onTick() {
	if c.state != Running || c.run == nil {
		return
	}
	c.run.ElapsedSec++
	c.persist(context.Background(), "tick")
	c.publish()
}

func (c *Controller) onMovement(m location.Movement) {
	if c.state != Running || c.run == nil {
		return
	}
	c.run.TotalDistanceMi += m.DeltaMi
	c.run.AppendPoint(m.Sample.Point())
	c.persist(context.Background(), "location")
	c.publish()
}

func (c *Controller) pause(ctx context.Context) {
	c.stopTicker()
	if c.sampler != nil {
		c.sampler.SetActive(false)
	}
	c.run.IsRunning = false
	c.state = Paused
	c.persist(ctx, "pause")
	c.log.WithField("elapsed_sec", c.run.ElapsedSec).Info("run paused")
	c.publish()
}

func (c *Controller) unpause(ctx context.Context) error {
	if c.sampler == nil {
		if err := c.startSampler(ctx, true); err != nil {
			return err
		}
	}
	c.sampler.SetActive(true)
	c.run.IsRunning = true
	c.state = Running
	c.persist(ctx, "resume")
	c.startTicker()
	c.log.Info("run resumed")
	c.publish()
	return nil
}

// terminalState returns the record a stopped run is built from. The owner
// loop holds the authoritative copy; the durable record is only consulted
// when none is held.
func (c *Controller) terminalState(ctx context.Context) *store.ActiveRunState {
	if c.run != nil {
		return c.run.Clone()
	}
	stored, ok, err := c.runs.Get(ctx)
	if err != nil {
		c.log.WithError(err).Warn("reading final run state")
	}
	if !ok {
		return store.NewActiveRunState(c.cfg.Clock.Now())
	}
	return stored
}

func (c *Controller) ensurePermission(ctx context.Context) error {
	perm, err := c.provider.Permission(ctx)
	if err != nil {
		return fmt.Errorf("checking location permission: %w", err)
	}
	if perm == location.PermissionDenied {
		if perm, err = c.provider.RequestPermission(ctx); err != nil {
			return fmt.Errorf("requesting location permission: %w", err)
		}
	}

	switch perm {
	case location.PermissionGranted:
		return nil
	case location.PermissionUnavailable:
		return ErrLocationUnavailable
	default:
		return ErrPermissionDenied
	}
}

func (c *Controller) startSampler(ctx context.Context, active bool) error {
	// The subscription outlives the command that started it.
	s, err := location.StartSampler(context.WithoutCancel(ctx), c.provider, c.cfg.Sampler, active, c.log)
	if err != nil {
		if errors.Is(err, location.ErrNotPermitted) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	c.sampler = s
	return nil
}

func (c *Controller) stopSampler() {
	if c.sampler != nil {
		c.sampler.Stop()
		c.sampler = nil
	}
}

func (c *Controller) startTicker() {
	c.stopTicker()
	c.ticker = c.cfg.Clock.NewTicker(c.cfg.TickInterval)
}

func (c *Controller) stopTicker() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

// persist writes the in-memory record through. Failures are counted and
// logged; the session carries on.
func (c *Controller) persist(ctx context.Context, op string) {
	if c.run == nil {
		return
	}
	c.run.UpdatedAt = c.cfg.Clock.Now().UnixMilli()
	if err := c.runs.Set(ctx, c.run); err != nil {
		observability.PersistFailed("set_active_run")
		c.log.WithError(err).WithField("op", op).Warn("writing active run")
	}
}

func (c *Controller) snapshot() Snapshot {
	snap := Snapshot{State: c.state, Duration: "0:00", Pace: "0:00"}
	if c.run == nil {
		return snap
	}
	snap.StartedAt = c.run.StartedTime()
	snap.DistanceMi = c.run.TotalDistanceMi
	snap.ElapsedSec = c.run.ElapsedSec
	snap.Duration = FormatDuration(c.run.ElapsedSec)
	snap.Pace = FormatPace(c.run.ElapsedSec, c.run.TotalDistanceMi)
	snap.IsRunning = c.run.IsRunning
	snap.PathLen = len(c.run.Path)
	if p, ok := c.run.LastPoint(); ok {
		snap.Last = &p
	}
	return snap
}

func (c *Controller) publish() {
	snap := c.snapshot()
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- snap:
	default:
	}
}
