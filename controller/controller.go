/*
Copyright © 2026 the Spresso authors.
This file is part of Spresso.

Spresso is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Spresso is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Spresso.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package controller runs Spresso simulations in the background and
// reports on them through a command and event protocol.
//
// A Controller owns at most one simulation at a time. Commands (reset,
// start, pause, retrieve) are queued with Send or the helper methods and
// handled by the goroutine executing Run, which advances the simulation
// in bursts of Input.AnimateRate steps and checks for new commands
// between bursts. Every burst ends with an update event.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spressosim/spresso"
	"github.com/spressosim/spresso/internal/hash"
)

var (
	// ErrStopped is returned when sending to a controller whose Run
	// method has returned.
	ErrStopped = errors.New("controller: stopped")

	// ErrUnknownCommand is returned for unrecognized command names.
	ErrUnknownCommand = errors.New("controller: unknown command")

	// ErrNotReady is reported when a command needs a simulation that has
	// not been set up.
	ErrNotReady = errors.New("controller: no simulation has been reset")
)

// DefaultBackend is the name reported in the init event.
const DefaultBackend = "gonum"

// Controller drives one simulation at a time.
type Controller struct {
	cmds   chan Command
	events chan Event
	done   chan struct{}
	state  int32

	log     logrus.FieldLogger
	backend string
	metrics *Metrics
	hooks   []spresso.StepHook
	simOpts []spresso.Option

	// Only accessed by the goroutine executing Run.
	sim *spresso.Simulation
	run string
	gen int
	seq int
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Controller) { c.log = log }
}

// WithBackend sets the backend name reported in the init event.
func WithBackend(name string) Option {
	return func(c *Controller) { c.backend = name }
}

// WithMetrics records controller activity in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithStepHooks adds hooks that are called after every accepted step.
// A hook error halts the run as a failure.
func WithStepHooks(hooks ...spresso.StepHook) Option {
	return func(c *Controller) { c.hooks = append(c.hooks, hooks...) }
}

// WithSimulationOptions sets options passed to spresso.New on every reset.
func WithSimulationOptions(opts ...spresso.Option) Option {
	return func(c *Controller) { c.simOpts = append(c.simOpts, opts...) }
}

// WithBuffer sets the capacity of the command and event channels.
func WithBuffer(n int) Option {
	return func(c *Controller) {
		c.cmds = make(chan Command, n)
		c.events = make(chan Event, n)
	}
}

// New returns a controller in the Idle state. It does nothing until Run
// is called.
func New(opts ...Option) *Controller {
	c := &Controller{
		cmds:    make(chan Command, 16),
		events:  make(chan Event, 16),
		done:    make(chan struct{}),
		log:     logrus.StandardLogger(),
		backend: DefaultBackend,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Events returns the event channel. It is closed when Run returns.
func (c *Controller) Events() <-chan Event { return c.events }

// State returns the current state. It is safe to call from any goroutine.
func (c *Controller) State() State { return State(atomic.LoadInt32(&c.state)) }

// Send queues cmd. It blocks while the command queue is full.
func (c *Controller) Send(cmd Command) error {
	switch cmd.Msg {
	case CmdReset:
		if cmd.Input == nil {
			return fmt.Errorf("controller: reset without input")
		}
	case CmdStart, CmdPause, CmdRetrieve:
	default:
		return fmt.Errorf("%w %q", ErrUnknownCommand, cmd.Msg)
	}
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	select {
	case c.cmds <- cmd:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

// Reset replaces the current simulation with a new one built from in.
func (c *Controller) Reset(in *spresso.Input) error {
	return c.Send(Command{Msg: CmdReset, Input: in})
}

// Start starts or resumes the simulation.
func (c *Controller) Start() error { return c.Send(Command{Msg: CmdStart}) }

// Pause stops the simulation at the end of the current burst.
func (c *Controller) Pause() error { return c.Send(Command{Msg: CmdPause}) }

// Retrieve requests a data event holding the recorded history.
func (c *Controller) Retrieve() error { return c.Send(Command{Msg: CmdRetrieve}) }

// Run handles commands and advances the simulation until ctx is
// cancelled, and then closes the event channel. It returns ctx.Err().
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.events)
	defer close(c.done)

	c.emit(ctx, Event{Type: EventInit, Backend: c.backend})
	for {
		if c.State() == Running {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case cmd := <-c.cmds:
				c.handle(ctx, cmd)
			default:
				c.burst(ctx)
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-c.cmds:
			c.handle(ctx, cmd)
		}
	}
}

func (c *Controller) emit(ctx context.Context, e Event) {
	select {
	case c.events <- e:
	case <-ctx.Done():
	}
}

func (c *Controller) setState(s State) {
	old := State(atomic.SwapInt32(&c.state, int32(s)))
	if old != s {
		c.log.WithFields(logrus.Fields{
			"run":   c.run,
			"from":  old.String(),
			"state": s.String(),
		}).Debug("controller: state change")
	}
}

func (c *Controller) handle(ctx context.Context, cmd Command) {
	c.metrics.command(cmd.Msg)
	switch cmd.Msg {
	case CmdReset:
		c.reset(ctx, cmd.Input)
	case CmdStart:
		c.start(ctx)
	case CmdPause:
		if c.State() == Running {
			c.setState(Paused)
		}
	case CmdRetrieve:
		if c.sim == nil {
			c.log.WithField("command", cmd.Msg).Warn(ErrNotReady)
			return
		}
		c.emit(ctx, Event{Type: EventData, Run: c.run, Bundle: c.sim.Result().Bundle()})
	}
}

func (c *Controller) reset(ctx context.Context, in *spresso.Input) {
	prior := c.State()
	c.setState(Initializing)
	sim, err := spresso.New(in, c.simOpts...)
	if err != nil {
		var verrs spresso.ValidationErrors
		if errors.As(err, &verrs) {
			c.metrics.invalid()
			c.log.WithError(err).Warn("controller: invalid input")
			c.emit(ctx, Event{Type: EventInvalid, Fields: verrs.Fields(), Error: err.Error()})
			c.setState(prior)
			return
		}
		c.sim = nil
		c.fail(ctx, err)
		return
	}
	c.gen++
	c.sim = sim
	c.run = fmt.Sprintf("%s-%d", hash.Short(in, 12), c.gen)
	c.seq = 0
	c.log.WithFields(logrus.Fields{
		"run":     c.run,
		"species": len(in.Species),
		"grid":    in.NumGrids,
		"simTime": in.SimTime,
		"dt":      sim.State.Dt,
	}).Info("controller: reset")
	c.setState(Ready)
	c.emit(ctx, Event{Type: EventUpdate, Snapshot: c.snapshot()})
}

func (c *Controller) start(ctx context.Context) {
	switch s := c.State(); s {
	case Ready, Paused:
		if c.sim.Done() {
			c.finish(ctx)
			return
		}
		c.setState(Running)
	case Running:
	default:
		c.log.WithField("state", s.String()).Warn("controller: start ignored")
	}
}

// burst advances the simulation by up to AnimateRate steps.
func (c *Controller) burst(ctx context.Context) {
	begin := time.Now()
	before := c.sim.Stats()
	var err error
	for i := 0; i < c.sim.Input.AnimateRate && ctx.Err() == nil; i++ {
		var cont bool
		if cont, err = c.sim.SimulateStep(); err != nil || !cont {
			break
		}
		for _, h := range c.hooks {
			if err = h(c.sim); err != nil {
				break
			}
		}
		if err != nil {
			break
		}
	}
	c.metrics.burst(before, c.sim.Stats(), c.sim.State.T, time.Since(begin))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	c.emit(ctx, Event{Type: EventUpdate, Snapshot: c.snapshot()})
	if c.sim.Done() {
		c.finish(ctx)
	}
}

func (c *Controller) finish(ctx context.Context) {
	c.setState(Finished)
	st := c.sim.Stats()
	c.log.WithFields(logrus.Fields{
		"run":      c.run,
		"steps":    st.Accepted,
		"rejected": st.Rejected,
		"t":        c.sim.State.T,
	}).Info("controller: finished")
	c.emit(ctx, Event{Type: EventFinished, Run: c.run})
	c.setState(Ready)
}

func (c *Controller) fail(ctx context.Context, err error) {
	c.metrics.failure()
	c.log.WithError(err).WithField("run", c.run).Error("controller: run failed")
	c.setState(Failed)
	c.emit(ctx, Event{Type: EventError, Run: c.run, Error: err.Error()})
}

// snapshot copies the latest committed state.
func (c *Controller) snapshot() *Snapshot {
	st := c.sim.State
	s := &Snapshot{
		Run:   c.run,
		Seq:   c.seq,
		Time:  st.T,
		PH:    st.PH(),
		Field: append([]float64(nil), st.E...),
	}
	if c.seq == 0 {
		s.Species = c.sim.Names()
		s.X = c.sim.Grid.Points()
	}
	c.seq++
	s.Concentrations = make([][]float64, len(c.sim.Input.Species))
	for i := range s.Concentrations {
		s.Concentrations[i] = st.Concentration(i)
	}
	return s
}
