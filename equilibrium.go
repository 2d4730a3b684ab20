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
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Equilibrium is the acid-base state of every grid point.
type Equilibrium struct {
	// CH is the hydrogen ion concentration [mol/L].
	CH []float64

	// Mobility and Diffusivity are the effective (charge-state
	// averaged) mobility [m2/(V s)] and diffusivity [m2/s],
	// species × grid.
	Mobility, Diffusivity *mat.Dense

	// Conductivity is σ [S/m] and DiffCurrent the diffusion current
	// coefficient S [A/m] at each grid point.
	Conductivity, DiffCurrent []float64

	// Iterations is the total number of root-finding iterations.
	Iterations int
}

// PH returns -log10 of the hydrogen ion concentration at each point.
func (e *Equilibrium) PH() []float64 { return PH(e.CH) }

// PH converts hydrogen ion concentrations [mol/L] to pH.
func PH(cH []float64) []float64 {
	o := make([]float64, len(cH))
	for i, v := range cH {
		o[i] = -math.Log10(v)
	}
	return o
}

// EquilibriumSolver resolves electroneutrality at each grid point.
type EquilibriumSolver struct {
	coef   *Coefficients
	nprocs int

	// MaxIter bounds the root-finding iterations at a single point.
	MaxIter int
	// Tol is the convergence threshold in ln[H+].
	Tol float64
}

// NewEquilibriumSolver returns a solver for species with the given
// coefficients.
func NewEquilibriumSolver(coef *Coefficients) *EquilibriumSolver {
	return &EquilibriumSolver{
		coef:    coef,
		nprocs:  runtime.GOMAXPROCS(0),
		MaxIter: 200,
		Tol:     1.e-12,
	}
}

// Solve computes the equilibrium for concentrations c [mM], species × grid.
// guess, if not nil, holds hydrogen ion concentrations used as starting
// points. Grid points are solved concurrently.
func (e *EquilibriumSolver) Solve(c mat.Matrix, guess []float64) (*Equilibrium, error) {
	ns, n := c.Dims()
	if ns != e.coef.NumSpecies() {
		panic(fmt.Errorf("spresso: %d concentration rows for %d species", ns, e.coef.NumSpecies()))
	}
	eq := &Equilibrium{
		CH:           make([]float64, n),
		Mobility:     mat.NewDense(ns, n, nil),
		Diffusivity:  mat.NewDense(ns, n, nil),
		Conductivity: make([]float64, n),
		DiffCurrent:  make([]float64, n),
	}
	var iters int64

	nprocs := e.nprocs
	if nprocs > n {
		nprocs = n
	}
	var g errgroup.Group
	for pp := 0; pp < nprocs; pp++ {
		pp := pp
		g.Go(func() error {
			p := newPointSolver(e.coef)
			cTot := make([]float64, ns)
			var it int
			for i := pp; i < n; i += nprocs {
				for s := 0; s < ns; s++ {
					cTot[s] = c.At(s, i)
				}
				g0 := 0.
				if guess != nil {
					g0 = guess[i]
				}
				cH, k, err := p.solve(cTot, g0, e.MaxIter, e.Tol)
				it += k
				if err != nil {
					return fmt.Errorf("%w at grid point %d: %v", ErrEquilibrium, i, err)
				}
				p.properties(eq, i, cTot, cH)
			}
			atomic.AddInt64(&iters, int64(it))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	eq.Iterations = int(iters)
	return eq, nil
}

// pointSolver holds scratch space for the solution at a single point.
type pointSolver struct {
	coef  *Coefficients
	z     [][]float64
	u, d  [][]float64
	g     [][]float64 // charge-state fractions
	x     float64     // ln[H+] at which g was evaluated
	valid bool
}

func newPointSolver(coef *Coefficients) *pointSolver {
	ns, nz := coef.NumSpecies(), coef.NumStates()
	p := &pointSolver{
		coef: coef,
		z:    make([][]float64, ns),
		u:    make([][]float64, ns),
		d:    make([][]float64, ns),
		g:    make([][]float64, ns),
	}
	for s := 0; s < ns; s++ {
		p.z[s] = coef.Z.RawRowView(s)
		p.u[s] = coef.U.RawRowView(s)
		p.d[s] = coef.D.RawRowView(s)
		p.g[s] = make([]float64, nz)
	}
	return p
}

// fractions sets the charge-state fractions at ln[H+] = x.
func (p *pointSolver) fractions(x float64) {
	for s, logL := range p.coef.logL {
		g := p.g[s]
		wmax := math.Inf(-1)
		for k, l := range logL {
			g[k] = l + float64(k)*x
			if g[k] > wmax {
				wmax = g[k]
			}
		}
		var sum float64
		for k := range g {
			g[k] = math.Exp(g[k] - wmax)
			sum += g[k]
		}
		for k := range g {
			g[k] /= sum
		}
	}
	p.x, p.valid = x, true
}

// charge returns the net charge f [mol/L] and df/dln[H+] at ln[H+] = x for
// total concentrations c [mM].
func (p *pointSolver) charge(c []float64, x float64) (f, df float64) {
	p.fractions(x)
	for s, g := range p.g {
		var mz, mz2 float64
		for k, gk := range g {
			z := p.z[s][k]
			mz += z * gk
			mz2 += z * z * gk
		}
		cs := c[s] / litToM3
		f += cs * mz
		df += cs * (mz2 - mz*mz)
	}
	cH := math.Exp(x)
	f += cH - Kw/cH
	df += cH + Kw/cH
	return f, df
}

// solve finds [H+] by safeguarded Newton iteration in ln[H+], falling back
// to bisection whenever the Newton step leaves the bracket.
func (p *pointSolver) solve(c []float64, guess float64, maxIter int, tol float64) (float64, int, error) {
	for s, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, fmt.Errorf("non-finite concentration %g for species %d", v, s)
		}
		if v < 0 {
			c[s] = 0
		}
	}
	a, b := math.Log(minCH), math.Log(maxCH)
	fa, _ := p.charge(c, a)
	fb, _ := p.charge(c, b)
	if fa > 0 || fb < 0 {
		return 0, 0, fmt.Errorf("no sign change of net charge in [%g, %g] mol/L (%g, %g)", minCH, maxCH, fa, fb)
	}
	x := 0.5 * (a + b)
	if guess > minCH && guess < maxCH {
		x = math.Log(guess)
	}
	for i := 1; i <= maxIter; i++ {
		f, df := p.charge(c, x)
		if f == 0 {
			return math.Exp(x), i, nil
		}
		if f < 0 {
			a = x
		} else {
			b = x
		}
		xn := x - f/df
		if !(xn > a && xn < b) {
			xn = 0.5 * (a + b)
		}
		if math.Abs(xn-x) < tol || b-a < tol {
			return math.Exp(xn), i, nil
		}
		x = xn
	}
	return 0, maxIter, fmt.Errorf("no convergence after %d iterations", maxIter)
}

// properties stores the transport properties of point i at [H+] = cH.
func (p *pointSolver) properties(eq *Equilibrium, i int, c []float64, cH float64) {
	x := math.Log(cH)
	if !p.valid || p.x != x {
		p.fractions(x)
	}
	var sigma, sdiff float64
	for s, g := range p.g {
		var u, d, zu, zd float64
		for k, gk := range g {
			u += p.u[s][k] * gk
			d += p.d[s][k] * gk
			zu += p.z[s][k] * p.u[s][k] * gk
			zd += p.z[s][k] * p.d[s][k] * gk
		}
		eq.Mobility.Set(s, i, u)
		eq.Diffusivity.Set(s, i, d)
		sigma += Faraday * zu * c[s]
		sdiff += Faraday * zd * c[s]
	}
	cOH := Kw / cH
	eq.CH[i] = cH
	eq.Conductivity[i] = sigma + Faraday*litToM3*(MobilityH*cH+MobilityOH*cOH)
	eq.DiffCurrent[i] = sdiff + litToM3*GasConst*Temp*(MobilityH*cH-MobilityOH*cOH)
}
