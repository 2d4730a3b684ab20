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
	"math"
	"testing"

	"github.com/kr/pretty"
)

func TestParseProperties(t *testing.T) {
	p, err := ParseProperties(" 1, -1 ", "29.5e-9, 42.4e-9", "8.1, 4.76")
	if err != nil {
		t.Fatal(err)
	}
	want := Properties{
		Valence:  []int{-1, 1},
		Mobility: []float64{42.4e-9, 29.5e-9},
		PKa:      []float64{4.76, 8.1},
	}
	if diff := pretty.Diff(p, want); len(diff) != 0 {
		t.Errorf("properties differ: %v", diff)
	}
	if p.NumStates() != 3 {
		t.Errorf("states: got %d, want 3", p.NumStates())
	}
}

func TestParsePropertiesInvalid(t *testing.T) {
	for _, test := range []struct {
		name              string
		valence, mobility string
		pKa               string
		field             string
	}{
		{name: "empty valence", valence: "", mobility: "1e-9", pKa: "4", field: "valence"},
		{name: "empty mobility", valence: "-1", mobility: " ", pKa: "4", field: "mobility"},
		{name: "non-numeric pKa", valence: "-1", mobility: "1e-9", pKa: "four", field: "pKa"},
		{name: "fractional valence", valence: "-1.5", mobility: "1e-9", pKa: "4", field: "valence"},
		{name: "neutral listed", valence: "0,-1", mobility: "1e-9,1e-9", pKa: "4,5", field: "valence"},
		{name: "gap", valence: "-2", mobility: "1e-9", pKa: "4", field: "valence"},
		{name: "gap with neutral", valence: "-2,1", mobility: "1e-9,1e-9", pKa: "4,5", field: "valence"},
		{name: "repeated", valence: "-1,-1", mobility: "1e-9,1e-9", pKa: "4,5", field: "valence"},
		{name: "length mismatch", valence: "-1,-2", mobility: "1e-9", pKa: "4,5", field: "mobility"},
		{name: "pKa mismatch", valence: "-1,-2", mobility: "1e-9,2e-9", pKa: "4", field: "pKa"},
		{name: "negative mobility", valence: "-1", mobility: "-1e-9", pKa: "4", field: "mobility"},
		{name: "overflowing diffusivity", valence: "-1", mobility: "1e308", pKa: "4", field: "mobility"},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseProperties(test.valence, test.mobility, test.pKa)
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("got %v, want a *FieldError", err)
			}
			if fe.Field != test.field {
				t.Errorf("field: got %q, want %q (%v)", fe.Field, test.field, err)
			}
		})
	}
}

func mustParse(t *testing.T, valence, mobility, pKa string) Properties {
	t.Helper()
	p, err := ParseProperties(valence, mobility, pKa)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestEquilibriumCoefficients(t *testing.T) {
	const tolerance = 1.e-12
	K := func(pKa float64) float64 { return math.Pow(10, -pKa) }
	for _, test := range []struct {
		name                   string
		valence, mobility, pKa string
		want                   []float64
	}{
		{name: "monoprotic acid", valence: "-1", mobility: "42.4e-9", pKa: "4.76",
			want: []float64{K(4.76), 1}},
		{name: "diprotic acid", valence: "-2,-1", mobility: "60e-9,30e-9", pKa: "6.4,3.1",
			want: []float64{K(6.4) * K(3.1), K(3.1), 1}},
		{name: "monoprotic base", valence: "1", mobility: "29.5e-9", pKa: "8.076",
			want: []float64{1, 1 / K(8.076)}},
		{name: "diprotic base", valence: "2,1", mobility: "50e-9,25e-9", pKa: "3,9",
			want: []float64{1, 1 / K(9), 1 / (K(9) * K(3))}},
		{name: "ampholyte", valence: "-1,1", mobility: "20e-9,20e-9", pKa: "9.6,2.3",
			want: []float64{K(9.6), 1, 1 / K(2.3)}},
	} {
		t.Run(test.name, func(t *testing.T) {
			p := mustParse(t, test.valence, test.mobility, test.pKa)
			_, _, _, l := speciesCoefficients(p)
			if len(l) != len(test.want) {
				t.Fatalf("got %d coefficients, want %d", len(l), len(test.want))
			}
			for i := range l {
				if different(l[i], test.want[i], tolerance) {
					t.Errorf("L[%d]: got %g, want %g", i, l[i], test.want[i])
				}
			}
			if l[p.neutralIndex()] != 1 {
				t.Errorf("neutral coefficient: got %g, want exactly 1", l[p.neutralIndex()])
			}
		})
	}
}

func TestMobilityAndDiffusivity(t *testing.T) {
	const tolerance = 1.e-12
	p := mustParse(t, "-2,-1", "60e-9,30e-9", "6.4,3.1")
	z, u, d, _ := speciesCoefficients(p)
	wantZ := []float64{-2, -1, 0}
	wantU := []float64{-60e-9, -30e-9, 0}
	for i := range z {
		if z[i] != wantZ[i] || u[i] != wantU[i] {
			t.Errorf("state %d: got z=%g u=%g, want z=%g u=%g", i, z[i], u[i], wantZ[i], wantU[i])
		}
	}
	d0 := GasConst * Temp * 60e-9 / (2 * Faraday)
	d1 := GasConst * Temp * 30e-9 / Faraday
	for i, want := range []float64{d0, d1, (d0 + d1) / 2} {
		if different(d[i], want, tolerance) {
			t.Errorf("D[%d]: got %g, want %g", i, d[i], want)
		}
	}
}

func TestCoefficientsPadding(t *testing.T) {
	c := NewCoefficients([]Properties{
		mustParse(t, "-1", "79.1e-9", "-2"),
		mustParse(t, "-2,-1", "60e-9,30e-9", "6.4,3.1"),
	})
	if c.NumSpecies() != 2 || c.NumStates() != 3 {
		t.Fatalf("dims: got %d×%d, want 2×3", c.NumSpecies(), c.NumStates())
	}
	if c.L.At(0, 2) != 0 || c.U.At(0, 2) != 0 || c.D.At(0, 2) != 0 || c.Z.At(0, 2) != 0 {
		t.Errorf("padding entries should be zero")
	}
	if !math.IsInf(c.logL[0][2], -1) {
		t.Errorf("padding log coefficient: got %g, want -Inf", c.logL[0][2])
	}
	if c.L.At(0, 1) != 1 || c.L.At(1, 2) != 1 {
		t.Errorf("neutral coefficients should be 1")
	}
}
