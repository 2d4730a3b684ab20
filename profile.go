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

	"gonum.org/v1/gonum/mat"
)

// Profile returns an erfc step that reaches Concentration for x > Location.
func (i LeadingElectrolyte) Profile(g Grid, w, _ float64) []float64 {
	c := make([]float64, g.N)
	for k := range c {
		c[k] = i.Concentration * 0.5 * math.Erfc(-(g.X(k)-i.Location)/w)
	}
	return c
}

// Profile returns an erfc step that reaches Concentration for x < Location.
func (i TrailingElectrolyte) Profile(g Grid, w, _ float64) []float64 {
	c := make([]float64, g.N)
	for k := range c {
		c[k] = i.Concentration * 0.5 * math.Erfc((g.X(k)-i.Location)/w)
	}
	return c
}

// Profile returns a smoothed top-hat band scaled so that its discrete
// integral times area equals Amount.
func (i Peak) Profile(g Grid, w, area float64) []float64 {
	c := make([]float64, g.N)
	for k := range c {
		x := g.X(k) - i.Location
		c[k] = 0.5 * (math.Erf((x+i.Width/2)/w) - math.Erf((x-i.Width/2)/w))
		if c[k] < 0 {
			c[k] = 0
		}
	}
	mass := g.Integrate(c) * area
	if mass == 0 {
		return c
	}
	// Amount is in mol and c in mol/m3.
	f := i.Amount / mass
	for k := range c {
		c[k] *= f
	}
	return c
}

// Profile returns a uniform profile.
func (i Background) Profile(g Grid, _, _ float64) []float64 {
	c := make([]float64, g.N)
	for k := range c {
		c[k] = i.Concentration
	}
	return c
}

// InitialConcentrations stacks the initial profile of every species into a
// species × grid matrix.
func InitialConcentrations(species []SpeciesSpec, g Grid, interfaceWidth, area float64) *mat.Dense {
	c := mat.NewDense(len(species), g.N, nil)
	for s, sp := range species {
		c.SetRow(s, sp.Injection.Profile(g, interfaceWidth, area))
	}
	return c
}
