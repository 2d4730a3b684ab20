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

// Grid is a uniform one-dimensional mesh of N points over [0, Len).
type Grid struct {
	N   int
	Len float64 // [m]
	Dx  float64 // [m]
}

// NewGrid returns a grid of n points spanning length.
func NewGrid(n int, length float64) Grid {
	return Grid{N: n, Len: length, Dx: length / float64(n)}
}

// X returns the position of point i.
func (g Grid) X(i int) float64 { return float64(i) * g.Dx }

// Points returns the positions of all grid points.
func (g Grid) Points() []float64 {
	x := make([]float64, g.N)
	for i := range x {
		x[i] = g.X(i)
	}
	return x
}

// Integrate returns the discrete integral of c over the grid.
func (g Grid) Integrate(c []float64) float64 {
	var sum float64
	for _, v := range c {
		sum += v
	}
	return sum * g.Dx
}
