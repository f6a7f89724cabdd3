// Package engine provides the simulation, its commands, and the
// frame-driven loop that advances it.
package engine

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/talgya/civilzones/internal/config"
)

// frameInterval is how often the loop samples elapsed time.
const frameInterval = 16 * time.Millisecond

// Clock turns elapsed frame time into logic steps. At most one step runs
// per Advance; any remainder beyond a full interval is dropped so a slow
// frame never causes a burst of catch-up steps.
type Clock struct {
	Interval time.Duration
	acc      time.Duration
}

// Advance adds dt and reports whether a step is due.
func (c *Clock) Advance(dt time.Duration) bool {
	if c.Interval <= 0 {
		return false
	}
	c.acc += dt
	if c.acc < c.Interval {
		return false
	}
	c.acc = 0
	return true
}

// Pending returns the accumulated time toward the next step.
func (c *Clock) Pending() time.Duration { return c.acc }

// RenderGuard lets one frame build run at a time. A caller that fails
// TryBegin skips its frame rather than queueing it.
type RenderGuard struct {
	busy atomic.Bool
}

// TryBegin claims the guard.
func (g *RenderGuard) TryBegin() bool { return g.busy.CompareAndSwap(false, true) }

// End releases the guard.
func (g *RenderGuard) End() { g.busy.Store(false) }

// Engine drives a Simulation in real time.
type Engine struct {
	Sim   *Simulation
	Clock Clock

	AutosaveEvery uint64

	// Callbacks, populated during setup.
	OnTick     func(tick uint64)
	OnAutosave func(tick uint64)

	running atomic.Bool
	speed   atomic.Uint64 // float64 bits; 1.0 = real time, 0 = paused
}

// NewEngine creates an engine for sim using the clock settings.
func NewEngine(sim *Simulation, cfg config.ClockConfig) *Engine {
	e := &Engine{
		Sim:           sim,
		Clock:         Clock{Interval: time.Duration(cfg.TickMillis) * time.Millisecond},
		AutosaveEvery: uint64(max(cfg.AutosaveTicks, 0)),
	}
	e.SetSpeed(1)
	return e
}

// Speed returns the time multiplier. Safe to call from any goroutine.
func (e *Engine) Speed() float64 { return math.Float64frombits(e.speed.Load()) }

// SetSpeed changes the time multiplier; 0 pauses. Safe to call while Run
// is active.
func (e *Engine) SetSpeed(v float64) { e.speed.Store(math.Float64bits(v)) }

// Running reports whether Run is active.
func (e *Engine) Running() bool { return e.running.Load() }

// Frame feeds dt of wall time to the clock and runs a step when one is
// due. It reports whether a step ran.
func (e *Engine) Frame(dt time.Duration) bool {
	speed := e.Speed()
	if speed <= 0 || e.Sim.Halted() {
		return false
	}
	if !e.Clock.Advance(time.Duration(float64(dt) * speed)) {
		return false
	}
	e.Sim.Step()
	tick := e.Sim.Tick()
	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if e.AutosaveEvery > 0 && tick%e.AutosaveEvery == 0 && e.OnAutosave != nil {
		e.OnAutosave(tick)
	}
	return true
}

// Run drives frames until ctx is cancelled or the game ends. It returns
// nil when the game ended and ctx.Err() on cancellation.
func (e *Engine) Run(ctx context.Context) error {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "tick", e.Sim.Tick(), "interval", e.Clock.Interval, "speed", e.Speed())

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped", "tick", e.Sim.Tick())
			return ctx.Err()
		case now := <-ticker.C:
			e.Frame(now.Sub(last))
			last = now
			if e.Sim.Halted() {
				slog.Info("simulation halted", "tick", e.Sim.Tick(), "cause", e.Sim.Cause().String())
				if e.OnAutosave != nil {
					e.OnAutosave(e.Sim.Tick())
				}
				return nil
			}
		}
	}
}
