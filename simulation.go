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

package spresso

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Simulation is a single run: the parsed input, the grid, the species
// coefficients and the history of committed states.
type Simulation struct {
	Input *Input
	Grid  Grid
	Coef  *Coefficients

	// State is the latest committed state.
	State   *FieldState
	History *History

	transport  *Transport
	integrator *Integrator
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithMemoryPolicy sets which states the history keeps.
func WithMemoryPolicy(p MemoryPolicy) Option {
	return func(s *Simulation) { s.History.Policy = p }
}

// WithStepController modifies the step size controller.
func WithStepController(f func(*StepController)) Option {
	return func(s *Simulation) { f(&s.integrator.StepController) }
}

// WithInitialStep overrides the initial time step [s]. New fails for a
// step that is not positive and finite.
func WithInitialStep(dt float64) Option {
	return func(s *Simulation) { s.State.Dt = dt }
}

// New validates in and builds the initial state of a simulation. Invalid
// input results in a ValidationErrors error.
func New(in *Input, opts ...Option) (*Simulation, error) {
	props, err := in.Validate()
	if err != nil {
		return nil, err
	}
	j, err := in.currentDensity()
	if err != nil {
		return nil, fmt.Errorf("spresso: current density: %v", err)
	}
	s := &Simulation{
		Input:   in,
		Grid:    in.Grid(),
		Coef:    NewCoefficients(props),
		History: new(History),
	}
	s.transport = &Transport{Grid: s.Grid, J: j, Scheme: in.scheme()}
	sys := chemSystem{EquilibriumSolver: NewEquilibriumSolver(s.Coef), Transport: s.transport}
	sc := DefaultStepController(in.Tolerance)
	sc.MinStep = 1.e-12 * in.SimTime
	s.integrator = NewIntegrator(sys, sc)

	c0 := InitialConcentrations(in.Species, s.Grid, in.InterfaceWidth, in.Area)
	eq, err := sys.Solve(c0, nil)
	if err != nil {
		return nil, fmt.Errorf("spresso: initial state: %w", err)
	}
	dt := s.transport.StableStep(eq)
	if math.IsInf(dt, 1) || dt > in.SimTime {
		dt = in.SimTime
	}
	s.State = &FieldState{
		T:  0,
		Dt: dt,
		C:  c0,
		CH: eq.CH,
		E:  s.transport.Field(eq),
		eq: eq,
	}
	for _, o := range opts {
		o(s)
	}
	if dt := s.State.Dt; !(dt > 0) || math.IsInf(dt, 1) {
		return nil, fmt.Errorf("spresso: initial time step %g s must be positive and finite", dt)
	}
	s.History.Add(s.State)
	return s, nil
}

// Names returns the species names.
func (s *Simulation) Names() []string {
	o := make([]string, len(s.Input.Species))
	for i, sp := range s.Input.Species {
		o[i] = sp.Name
	}
	return o
}

// Done reports whether the simulation has reached its end time.
func (s *Simulation) Done() bool { return s.State.T >= s.Input.SimTime }

// SimulateStep advances the simulation by one accepted time step and
// reports whether the simulation should continue. When the end time has
// already been reached it returns false without doing anything. A fatal
// equilibrium or step size failure is returned as a *StepError, and the
// state is left as it was.
func (s *Simulation) SimulateStep() (bool, error) {
	if s.Done() {
		return false, nil
	}
	st, err := s.integrator.Step(s.State, s.Input.SimTime)
	if err != nil {
		return false, err
	}
	s.State = st
	s.History.Add(st)
	return true, nil
}

// Stats returns the integrator statistics.
func (s *Simulation) Stats() Statistics { return s.integrator.Stats }

// Result is the recorded output of a simulation.
type Result struct {
	Input *Input
	X     []float64    // grid positions [m]
	T     []float64    // times [s]
	C     []mat.Matrix // concentrations [mM] at each time, species × grid
	CH    [][]float64  // hydrogen ion concentration [mol/L]
	E     [][]float64  // electric field [V/m]
}

// Result returns the recorded history.
func (s *Simulation) Result() *Result {
	st := s.History.States()
	r := &Result{
		Input: s.Input,
		X:     s.Grid.Points(),
		T:     make([]float64, len(st)),
		C:     make([]mat.Matrix, len(st)),
		CH:    make([][]float64, len(st)),
		E:     make([][]float64, len(st)),
	}
	for i, f := range st {
		r.T[i], r.C[i], r.CH[i], r.E[i] = f.T, f.C, f.CH, f.E
	}
	return r
}

// Names returns the species names of the result.
func (r *Result) Names() []string {
	o := make([]string, len(r.Input.Species))
	for i, sp := range r.Input.Species {
		o[i] = sp.Name
	}
	return o
}

// Index returns the index of the named species, or -1.
func (r *Result) Index(name string) int {
	for i, sp := range r.Input.Species {
		if sp.Name == name {
			return i
		}
	}
	return -1
}
