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

	"github.com/ctessum/unit"
)

// amountDim is amount of substance. "mol" is reserved by the unit package.
var amountDim = unit.NewDimension("mole")

// Dimensions of the derived transport quantities.
var (
	// m2/(V s)
	mobilityDims = unit.Dimensions{unit.CurrentDim: 1, unit.TimeDim: 2, unit.MassDim: -1}
	// m2/s
	diffusivityDims = unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -1}
	// A/m2
	currentDensityDims = unit.Dimensions{unit.CurrentDim: 1, unit.LengthDim: -2}
	// V/m
	fieldDims = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 1, unit.TimeDim: -3, unit.CurrentDim: -1}
)

func faraday() *unit.Unit {
	return unit.New(Faraday, unit.Dimensions{unit.CurrentDim: 1, unit.TimeDim: 1, amountDim: -1})
}

func gasConstant() *unit.Unit {
	return unit.New(GasConst, unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2,
		unit.TimeDim: -2, unit.TemperatureDim: -1, amountDim: -1})
}

func temperature() *unit.Unit { return unit.New(Temp, unit.Kelvin) }

// checked returns the value of u if it has dimensions d and is finite.
func checked(name string, u *unit.Unit, d unit.Dimensions) (float64, error) {
	if err := u.Check(d); err != nil {
		return 0, fmt.Errorf("%s: %v", name, err)
	}
	v := u.Value()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s %g is not finite", name, v)
	}
	return v, nil
}

// mustChecked is checked for quantities whose inputs are already known
// to be valid.
func mustChecked(name string, u *unit.Unit, d unit.Dimensions) float64 {
	if err := u.Check(d); err != nil {
		panic(fmt.Errorf("spresso: %s: %v", name, err))
	}
	return u.Value()
}

// nernstEinstein is the diffusivity RT|μ|/(|z|F) of a charge state with
// mobility mu [m2/(V s)] and valence z.
func nernstEinstein(mu, z float64) *unit.Unit {
	return unit.Div(
		unit.Mul(gasConstant(), temperature(), unit.New(math.Abs(mu), mobilityDims)),
		faraday(),
		unit.New(math.Abs(z), unit.Dimless),
	)
}
