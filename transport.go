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
	"math"

	"github.com/ctessum/atmos/advect"
	"github.com/ctessum/unit"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Transport computes electromigration and diffusion fluxes between grid
// points. Both domain ends are insulating: no mass crosses them.
type Transport struct {
	Grid Grid

	// J is the current density [A/m2].
	J float64

	Scheme Scheme
}

// limiter is the ELED limiter with q = 2.
func limiter(x, y float64) float64 {
	den := math.Abs(x) + math.Abs(y)
	if den == 0 {
		return 0
	}
	r := (x - y) / den
	return 0.5 * (1 - r*r) * (x + y)
}

// Field returns the electric field [V/m] implied by current continuity,
// E = (j + dS/dx) / σ.
func (t *Transport) Field(eq *Equilibrium) []float64 {
	n := t.Grid.N
	e := make([]float64, n)
	s := eq.DiffCurrent
	for i := range e {
		var dsdx float64
		switch {
		case n == 1:
		case i == 0:
			dsdx = (s[1] - s[0]) / t.Grid.Dx
		case i == n-1:
			dsdx = (s[n-1] - s[n-2]) / t.Grid.Dx
		default:
			dsdx = (s[i+1] - s[i-1]) / (2 * t.Grid.Dx)
		}
		e[i] = (t.J + dsdx) / eq.Conductivity[i]
	}
	return e
}

// Rate sets dst to dc/dt for concentrations c [mM] at equilibrium eq.
// dst must have the dimensions of c.
func (t *Transport) Rate(dst, c *mat.Dense, eq *Equilibrium) {
	ns, n := c.Dims()
	dx := t.Grid.Dx
	nf := n - 1 // interior faces

	// Drift per unit current density, μ/σ.
	a := mat.NewDense(ns, n, nil)
	for s := 0; s < ns; s++ {
		mu := eq.Mobility.RawRowView(s)
		as := a.RawRowView(s)
		for i := range as {
			as[i] = mu[i] / eq.Conductivity[i]
		}
	}
	dS := make([]float64, nf)
	for m := range dS {
		dS[m] = (eq.DiffCurrent[m+1] - eq.DiffCurrent[m]) / dx
	}

	var vmax []float64
	if t.Scheme != SchemeUpwind {
		vmax = make([]float64, nf)
		for s := 0; s < ns; s++ {
			as := a.RawRowView(s)
			for m := range vmax {
				vmax[m] = math.Max(vmax[m], math.Abs(0.5*t.J*(as[m]+as[m+1])))
			}
		}
	}

	flux := make([]float64, n+1)
	for s := 0; s < ns; s++ {
		cs := c.RawRowView(s)
		as := a.RawRowView(s)
		ds := eq.Diffusivity.RawRowView(s)
		// flux[m+1] is the flux through the face between m and m+1;
		// flux[0] and flux[n] stay zero.
		for m := 0; m < nf; m++ {
			diffusion := (ds[m+1]*cs[m+1] - ds[m]*cs[m]) / dx
			if t.Scheme == SchemeUpwind {
				v := 0.5 * (as[m] + as[m+1]) * (t.J + dS[m])
				flux[m+1] = advect.UpwindFlux(v, cs[m], cs[m+1], dx)*dx - diffusion
				continue
			}
			ac := 0.5 * (as[m]*cs[m] + as[m+1]*cs[m+1])
			var left, right float64
			if m > 0 {
				left = cs[m] - cs[m-1]
			}
			if m+2 < n {
				right = cs[m+2] - cs[m+1]
			}
			dc := cs[m+1] - cs[m]
			dissipation := 0.5 * vmax[m] * (dc - limiter(right, left))
			flux[m+1] = t.J*ac + ac*dS[m] - diffusion - dissipation
		}
		r := dst.RawRowView(s)
		for i := range r {
			r[i] = -(flux[i+1] - flux[i]) / dx
		}
	}
}

// StableStep estimates the largest stable explicit time step for the
// given state from the Courant–Friedrichs–Lewy condition for
// electromigration and von Neumann stability for diffusion, whichever is
// smaller. It returns +Inf for a state with no transport.
func (t *Transport) StableStep(eq *Equilibrium) float64 {
	const Cmax = 1.
	e := t.Field(eq)
	ns, _ := eq.Mobility.Dims()
	// Mobility and field at the fastest drift.
	var muMax, eMax float64
	for s := 0; s < ns; s++ {
		mu := eq.Mobility.RawRowView(s)
		for i, ei := range e {
			if math.Abs(mu[i]*ei) > math.Abs(muMax*eMax) {
				muMax, eMax = mu[i], ei
			}
		}
	}
	dmax := floats.Max(eq.Diffusivity.RawMatrix().Data)
	dx := unit.New(t.Grid.Dx, unit.Meter)
	dt := math.Inf(1)
	if muMax*eMax != 0 {
		v := unit.Mul(unit.New(math.Abs(muMax), mobilityDims), unit.New(math.Abs(eMax), fieldDims))
		dt = Cmax * mustChecked("migration step", unit.Div(dx, v), unit.Second)
	}
	if dmax > 0 {
		d := unit.New(2*dmax, diffusivityDims)
		dt = math.Min(dt, Cmax*mustChecked("diffusion step", unit.Div(unit.Mul(dx, dx), d), unit.Second))
	}
	return dt
}
