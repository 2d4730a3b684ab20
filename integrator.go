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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// System is a set of conservation laws advanced by an Integrator.
type System interface {
	// Equilibrate returns the chemical state of concentrations c,
	// starting from hydrogen ion concentrations guess (which may be nil).
	Equilibrate(c *mat.Dense, guess []float64) (*Equilibrium, error)

	// Rate sets dst to dc/dt.
	Rate(dst, c *mat.Dense, eq *Equilibrium)

	// Field returns the electric field at equilibrium eq.
	Field(eq *Equilibrium) []float64
}

// chemSystem couples the equilibrium solver and the transport model.
type chemSystem struct {
	*EquilibriumSolver
	*Transport
}

func (s chemSystem) Equilibrate(c *mat.Dense, guess []float64) (*Equilibrium, error) {
	return s.Solve(c, guess)
}

// StepController holds the step size control parameters.
type StepController struct {
	// Tolerance is the allowed local error, measured as the Frobenius
	// norm of the concentration error [mM].
	Tolerance float64

	// The step size is scaled by Safety*(Tolerance/err)^(1/5),
	// limited to [MinScale, MaxScale].
	Safety, MinScale, MaxScale float64

	// MinStep is the smallest step size [s] tried before giving up.
	MinStep float64

	// MaxRejects is the number of successive rejections allowed.
	MaxRejects int
}

// DefaultStepController returns the default controller for tolerance tol.
func DefaultStepController(tol float64) StepController {
	return StepController{
		Tolerance:  tol,
		Safety:     0.9,
		MinScale:   0.1,
		MaxScale:   10,
		MinStep:    1.e-12,
		MaxRejects: 50,
	}
}

// Scale returns the factor by which to multiply the step size after a step
// with error estimate err.
func (sc StepController) Scale(err float64) float64 {
	switch {
	case math.IsNaN(err) || math.IsInf(err, 0):
		return sc.MinScale
	case err == 0:
		return sc.MaxScale
	}
	f := sc.Safety * math.Pow(sc.Tolerance/err, 0.2)
	return math.Max(sc.MinScale, math.Min(sc.MaxScale, f))
}

// Statistics counts integrator work.
type Statistics struct {
	Accepted, Rejected    int
	Evaluations           int // right hand side evaluations
	EquilibriumIterations int
	LastStep, NextStep    float64
}

// Candidate is a proposed step that has not been committed.
type Candidate struct {
	From *FieldState
	Dt   float64

	// C is the result of two half steps and Full the result of one
	// full step.
	C, Full *mat.Dense

	// Err is the local error estimate, set by Evaluate.
	Err float64
}

// Integrator advances a System with classical fourth order Runge–Kutta
// steps, estimating the local error by step doubling.
type Integrator struct {
	StepController
	Stats Statistics

	sys System
}

// NewIntegrator returns an integrator for sys.
func NewIntegrator(sys System, sc StepController) *Integrator {
	return &Integrator{StepController: sc, sys: sys}
}

func (it *Integrator) equilibrate(c *mat.Dense, guess []float64) (*Equilibrium, error) {
	eq, err := it.sys.Equilibrate(c, guess)
	if err != nil {
		return nil, err
	}
	if eq != nil {
		it.Stats.EquilibriumIterations += eq.Iterations
	}
	return eq, nil
}

func (it *Integrator) rate(c *mat.Dense, eq *Equilibrium) *mat.Dense {
	r, n := c.Dims()
	k := mat.NewDense(r, n, nil)
	it.sys.Rate(k, c, eq)
	it.Stats.Evaluations++
	return k
}

func guessOf(eq *Equilibrium) []float64 {
	if eq == nil {
		return nil
	}
	return eq.CH
}

// rk4 takes one step of size dt from c, whose equilibrium is eq and rate
// is k1.
func (it *Integrator) rk4(c *mat.Dense, eq *Equilibrium, k1 *mat.Dense, dt float64) (*mat.Dense, error) {
	r, n := c.Dims()
	y := mat.NewDense(r, n, nil)
	stage := func(k *mat.Dense, h float64) (*mat.Dense, error) {
		y.Scale(h, k)
		y.Add(c, y)
		eqs, err := it.equilibrate(y, guessOf(eq))
		if err != nil {
			return nil, err
		}
		return it.rate(y, eqs), nil
	}
	k2, err := stage(k1, dt/2)
	if err != nil {
		return nil, err
	}
	k3, err := stage(k2, dt/2)
	if err != nil {
		return nil, err
	}
	k4, err := stage(k3, dt)
	if err != nil {
		return nil, err
	}
	o := mat.NewDense(r, n, nil)
	o.Add(k2, k3)
	o.Scale(2, o)
	o.Add(o, k1)
	o.Add(o, k4)
	o.Scale(dt/6, o)
	o.Add(c, o)
	return o, nil
}

// Propose computes a candidate step of size dt from st. st is not
// modified.
func (it *Integrator) Propose(st *FieldState, dt float64) (*Candidate, error) {
	eq := st.eq
	if eq == nil {
		var err error
		if eq, err = it.equilibrate(st.C, st.CH); err != nil {
			return nil, err
		}
	}
	k1 := it.rate(st.C, eq)
	full, err := it.rk4(st.C, eq, k1, dt)
	if err != nil {
		return nil, err
	}
	half, err := it.rk4(st.C, eq, k1, dt/2)
	if err != nil {
		return nil, err
	}
	eqh, err := it.equilibrate(half, guessOf(eq))
	if err != nil {
		return nil, err
	}
	c, err := it.rk4(half, eqh, it.rate(half, eqh), dt/2)
	if err != nil {
		return nil, err
	}
	return &Candidate{From: st, Dt: dt, C: c, Full: full}, nil
}

// Evaluate estimates the local error of cd and reports whether it is
// within tolerance together with the next step size to try.
func (it *Integrator) Evaluate(cd *Candidate) (ok bool, next float64) {
	r, n := cd.C.Dims()
	diff := mat.NewDense(r, n, nil)
	diff.Sub(cd.C, cd.Full)
	// The two-half-step error is about 1/15 of the difference for a
	// fourth order method.
	cd.Err = mat.Norm(diff, 2) / 15
	if floats.HasNaN(diff.RawMatrix().Data) {
		cd.Err = math.NaN()
	}
	return cd.Err <= it.Tolerance, cd.Dt * it.Scale(cd.Err)
}

// Accept commits cd as a new state at time t with next proposed step next.
func (it *Integrator) Accept(cd *Candidate, t, next float64) (*FieldState, error) {
	eq, err := it.equilibrate(cd.C, guessOf(cd.From.eq))
	if err != nil {
		return nil, err
	}
	it.Stats.Accepted++
	it.Stats.LastStep, it.Stats.NextStep = cd.Dt, next
	st := &FieldState{T: t, Dt: next, C: cd.C, eq: eq}
	if eq != nil {
		st.CH = eq.CH
		st.E = it.sys.Field(eq)
	}
	return st, nil
}

// Reject discards cd.
func (it *Integrator) Reject(cd *Candidate, next float64) {
	it.Stats.Rejected++
	it.Stats.NextStep = next
}

// Step advances st by one accepted step, not going past time end. The
// returned state is new; st is unchanged.
func (it *Integrator) Step(st *FieldState, end float64) (*FieldState, error) {
	dt := st.Dt
	for rejects := 0; ; rejects++ {
		t := st.T + dt
		if t >= end {
			dt, t = end-st.T, end
		}
		cd, err := it.Propose(st, dt)
		if err != nil {
			return nil, &StepError{T: st.T, Dt: dt, Err: err}
		}
		ok, next := it.Evaluate(cd)
		if ok {
			nst, err := it.Accept(cd, t, next)
			if err != nil {
				return nil, &StepError{T: st.T, Dt: dt, Err: err}
			}
			return nst, nil
		}
		it.Reject(cd, next)
		if next < it.MinStep || rejects >= it.MaxRejects {
			return nil, &StepError{T: st.T, Dt: next,
				Err: fmt.Errorf("%w: error %.3g > tolerance %.3g after %d rejections",
					ErrStepSizeUnderflow, cd.Err, it.Tolerance, rejects+1)}
		}
		dt = next
	}
}
