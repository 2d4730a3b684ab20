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
	"strings"

	"gonum.org/v1/gonum/mat"
)

// FieldState is the state of the simulation at one time. A committed
// FieldState is never modified; each accepted step produces a new one.
type FieldState struct {
	T  float64 // time [s]
	Dt float64 // proposed size of the next step [s]

	// C holds concentrations [mM], species × grid.
	C *mat.Dense

	// CH is the hydrogen ion concentration [mol/L] and E the electric
	// field [V/m] at each grid point.
	CH, E []float64

	eq *Equilibrium
}

// PH returns the pH at each grid point.
func (f *FieldState) PH() []float64 { return PH(f.CH) }

// Concentration returns a copy of the concentrations of species s.
func (f *FieldState) Concentration(s int) []float64 {
	return mat.Row(nil, s, f.C)
}

// Mass returns the discrete integral of each species' concentration
// [mM m].
func (f *FieldState) Mass(g Grid) []float64 {
	ns, _ := f.C.Dims()
	o := make([]float64, ns)
	for s := range o {
		o[s] = g.Integrate(f.C.RawRowView(s))
	}
	return o
}

// MemoryPolicy sets which states a History retains.
type MemoryPolicy int

// Memory policies
const (
	// KeepAll retains every committed state.
	KeepAll MemoryPolicy = iota
	// KeepLatest retains only the initial and the latest state.
	KeepLatest
)

func (m MemoryPolicy) String() string {
	switch m {
	case KeepAll:
		return "all"
	case KeepLatest:
		return "latest"
	}
	return fmt.Sprintf("MemoryPolicy(%d)", int(m))
}

// ParseMemoryPolicy parses "all" or "latest".
func ParseMemoryPolicy(s string) (MemoryPolicy, error) {
	switch strings.ToLower(s) {
	case "all", "":
		return KeepAll, nil
	case "latest":
		return KeepLatest, nil
	}
	return KeepAll, fmt.Errorf("spresso: invalid memory policy %q", s)
}

// History is the time-ordered record of committed states.
type History struct {
	Policy MemoryPolicy
	states []*FieldState
}

// Add appends f, which must be later than every recorded state.
func (h *History) Add(f *FieldState) {
	if n := len(h.states); n > 0 && f.T <= h.states[n-1].T {
		panic(fmt.Errorf("spresso: state at t=%g is not later than t=%g", f.T, h.states[n-1].T))
	}
	if h.Policy == KeepLatest && len(h.states) == 2 {
		h.states[1] = f
		return
	}
	h.states = append(h.states, f)
}

// States returns the recorded states in time order.
func (h *History) States() []*FieldState { return h.states }

// Len returns the number of recorded states.
func (h *History) Len() int { return len(h.states) }

// Latest returns the most recent state, or nil.
func (h *History) Latest() *FieldState {
	if len(h.states) == 0 {
		return nil
	}
	return h.states[len(h.states)-1]
}
