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
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Properties holds the parsed charge-state data of one species, sorted by
// ascending valence. The neutral state is not included.
type Properties struct {
	Valence  []int
	Mobility []float64 // absolute mobility [m2/(V s)]
	PKa      []float64
}

// splitList splits a comma-separated list, ignoring surrounding
// whitespace and brackets.
func splitList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return nil
	}
	f := strings.Split(s, ",")
	for i := range f {
		f[i] = strings.TrimSpace(f[i])
	}
	return f
}

func parseFloats(field, s string) ([]float64, error) {
	f := splitList(s)
	if len(f) == 0 {
		return nil, &FieldError{Field: field, Err: errors.New("empty list")}
	}
	o := make([]float64, len(f))
	for i, v := range f {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, &FieldError{Field: field, Err: fmt.Errorf("%q is not a number", v)}
		}
		o[i] = x
	}
	return o, nil
}

// ParseProperties parses comma-separated valence, mobility and pKa lists.
// Returned errors are *FieldError values naming the offending list.
func ParseProperties(valence, mobility, pKa string) (Properties, error) {
	var p Properties
	zf := splitList(valence)
	if len(zf) == 0 {
		return p, &FieldError{Field: "valence", Err: errors.New("empty list")}
	}
	z := make([]int, len(zf))
	for i, v := range zf {
		zi, err := strconv.Atoi(v)
		if err != nil {
			return p, &FieldError{Field: "valence", Err: fmt.Errorf("%q is not an integer", v)}
		}
		if zi == 0 {
			return p, &FieldError{Field: "valence", Err: errors.New("the neutral state is implied and must not be listed")}
		}
		z[i] = zi
	}
	mob, err := parseFloats("mobility", mobility)
	if err != nil {
		return p, err
	}
	pk, err := parseFloats("pKa", pKa)
	if err != nil {
		return p, err
	}
	if len(mob) != len(z) {
		return p, &FieldError{Field: "mobility", Err: fmt.Errorf("%d values for %d valences", len(mob), len(z))}
	}
	if len(pk) != len(z) {
		return p, &FieldError{Field: "pKa", Err: fmt.Errorf("%d values for %d valences", len(pk), len(z))}
	}
	for _, m := range mob {
		if m <= 0 {
			return p, &FieldError{Field: "mobility", Err: fmt.Errorf("mobility %g must be > 0", m)}
		}
	}

	idx := make([]int, len(z))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return z[idx[a]] < z[idx[b]] })
	p.Valence = make([]int, len(z))
	p.Mobility = make([]float64, len(z))
	p.PKa = make([]float64, len(z))
	for i, j := range idx {
		p.Valence[i] = z[j]
		p.Mobility[i] = mob[j]
		p.PKa[i] = pk[j]
	}

	for i, z := range p.Valence {
		if _, err := checked("diffusivity", nernstEinstein(p.Mobility[i], float64(z)), diffusivityDims); err != nil {
			return p, &FieldError{Field: "mobility", Err: err}
		}
	}

	// Together with the neutral state the valences must be contiguous.
	lo, hi := minInt(p.Valence[0], 0), maxInt(p.Valence[len(z)-1], 0)
	for i := 1; i < len(z); i++ {
		if p.Valence[i] == p.Valence[i-1] {
			return p, &FieldError{Field: "valence", Err: fmt.Errorf("valence %d is repeated", p.Valence[i])}
		}
	}
	if hi-lo != len(z) {
		return p, &FieldError{Field: "valence", Err: fmt.Errorf("valences %v are not contiguous with the neutral state", p.Valence)}
	}
	return p, nil
}

// NumStates is the number of charge states including the neutral one.
func (p Properties) NumStates() int { return len(p.Valence) + 1 }

// neutralIndex is the position of the neutral state among all states.
func (p Properties) neutralIndex() int {
	m := 0
	for _, z := range p.Valence {
		if z < 0 {
			m++
		}
	}
	return m
}

// Coefficients holds the charge-state coefficients of every species in a
// run, each row padded to the same number of states. Rows are species and
// columns are charge states ordered by ascending valence.
type Coefficients struct {
	// Z is valence, U signed mobility [m2/(V s)], D diffusivity [m2/s]
	// and L the equilibrium coefficient relative to the neutral state.
	Z, U, D, L *mat.Dense

	// logL is ln(L), -Inf for padding states.
	logL [][]float64

	// counts holds the number of real states per species.
	counts []int
}

// NewCoefficients derives the stacked coefficient matrices for the given
// species properties.
func NewCoefficients(props []Properties) *Coefficients {
	maxStates := 0
	for _, p := range props {
		if n := p.NumStates(); n > maxStates {
			maxStates = n
		}
	}
	ns := len(props)
	c := &Coefficients{
		Z:      mat.NewDense(ns, maxStates, nil),
		U:      mat.NewDense(ns, maxStates, nil),
		D:      mat.NewDense(ns, maxStates, nil),
		L:      mat.NewDense(ns, maxStates, nil),
		logL:   make([][]float64, ns),
		counts: make([]int, ns),
	}
	for s, p := range props {
		z, u, d, l := speciesCoefficients(p)
		c.Z.SetRow(s, pad(z, maxStates))
		c.U.SetRow(s, pad(u, maxStates))
		c.D.SetRow(s, pad(d, maxStates))
		c.L.SetRow(s, pad(l, maxStates))
		c.counts[s] = len(z)
		c.logL[s] = make([]float64, maxStates)
		for k := range c.logL[s] {
			if k < len(l) {
				c.logL[s][k] = math.Log(l[k])
			} else {
				c.logL[s][k] = math.Inf(-1)
			}
		}
	}
	return c
}

// NumSpecies is the number of species.
func (c *Coefficients) NumSpecies() int { return len(c.counts) }

// NumStates is the padded number of charge states.
func (c *Coefficients) NumStates() int {
	_, n := c.Z.Dims()
	return n
}

// speciesCoefficients computes the unpadded valence, signed mobility,
// diffusivity and equilibrium coefficients of a single species.
func speciesCoefficients(p Properties) (z, u, d, l []float64) {
	n := p.NumStates()
	m := p.neutralIndex()
	z = make([]float64, n)
	u = make([]float64, n)
	d = make([]float64, n)
	l = make([]float64, n)

	// Insert the neutral state at index m.
	for i, k := 0, 0; k < n; k++ {
		if k == m {
			continue
		}
		z[k] = float64(p.Valence[i])
		u[k] = math.Abs(p.Mobility[i]) * sign(z[k])
		d[k] = mustChecked("diffusivity", nernstEinstein(u[k], z[k]), diffusivityDims)
		i++
	}
	var dsum float64
	for k := range d {
		if k != m {
			dsum += d[k]
		}
	}
	d[m] = dsum / float64(n-1)

	K := make([]float64, len(p.PKa))
	for j, pk := range p.PKa {
		K[j] = math.Pow(10, -pk)
	}
	for k := 0; k < n; k++ {
		switch {
		case k < m:
			l[k] = floats.Prod(K[k:m])
		case k == m:
			l[k] = 1
		default:
			l[k] = 1 / floats.Prod(K[m:k])
		}
	}
	return z, u, d, l
}

func pad(v []float64, n int) []float64 {
	o := make([]float64, n)
	copy(o, v)
	return o
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
