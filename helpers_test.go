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

import "math"

func different(a, b, tolerance float64) bool {
	if a == b {
		return false
	}
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func absDifferent(a, b, tolerance float64) bool {
	if math.Abs(a-b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

// itpInput is an anionic isotachophoresis setup: chloride leading,
// HEPES trailing, meeting at 12 mm.
func itpInput() *Input {
	return &Input{
		SimTime:        1,
		AnimateRate:    5,
		NumGrids:       1000,
		Tolerance:      1.e-2,
		InterfaceWidth: 2.e-4,
		DomainLen:      40.e-3,
		Current:        -1.e-9,
		Area:           1.e-9,
		Species: []SpeciesSpec{
			{
				Name:      "HCl",
				Injection: LeadingElectrolyte{Location: 12.e-3, Concentration: 100},
				Valence:   "-1", Mobility: "79.1e-9", PKa: "-2",
			},
			{
				Name:      "HEPES",
				Injection: TrailingElectrolyte{Location: 12.e-3, Concentration: 10},
				Valence:   "-1", Mobility: "23.5e-9", PKa: "7.5",
			},
		},
	}
}

// diffusionInput is a single practically uncharged species spreading
// with no applied current.
func diffusionInput() *Input {
	return &Input{
		SimTime:        5,
		AnimateRate:    1,
		NumGrids:       200,
		Tolerance:      1.e-3,
		InterfaceWidth: 1.e-4,
		DomainLen:      10.e-3,
		Current:        0,
		Area:           1.e-9,
		Species: []SpeciesSpec{
			{
				Name:      "sample",
				Injection: Peak{Location: 5.e-3, Width: 1.e-3, Amount: 1.e-12},
				Valence:   "-1", Mobility: "30e-9", PKa: "16",
			},
		},
	}
}
