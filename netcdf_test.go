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
	"context"
	"io/ioutil"
	"os"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/kr/pretty"
	"gonum.org/v1/gonum/mat"
)

func TestNetCDFRoundTrip(t *testing.T) {
	in := diffusionInput()
	in.SimTime = 0.3
	s, err := New(in, WithInitialStep(0.1))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	r := s.Result()

	f, err := ioutil.TempFile("", "spresso_netcdf")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()
	if err := WriteNetCDF(f, r); err != nil {
		t.Fatal(err)
	}

	got, err := ReadNetCDF(f)
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(got.T, r.T); len(diff) != 0 {
		t.Errorf("times: %v", diff)
	}
	if diff := pretty.Diff(got.X, r.X); len(diff) != 0 {
		t.Errorf("grid: %v", diff)
	}
	for i := range r.C {
		if !mat.Equal(got.C[i], r.C[i]) {
			t.Errorf("concentrations differ at time %d", i)
		}
		if diff := pretty.Diff(got.E[i], r.E[i]); len(diff) != 0 {
			t.Errorf("field at time %d: %v", i, diff)
		}
	}
	if got.Input.SimTime != in.SimTime || got.Names()[0] != "sample" {
		t.Errorf("input: got %+v", got.Input)
	}
}

// writeRawNetCDF writes a file with one time, one species and three grid
// points, with cH declared over dims and the given input attribute.
func writeRawNetCDF(t *testing.T, input string, cHDims []string) *os.File {
	t.Helper()
	f, err := ioutil.TempFile("", "spresso_netcdf")
	if err != nil {
		t.Fatal(err)
	}
	h := cdf.NewHeader([]string{"time", "species", "x"}, []int{1, 1, 3})
	dims := map[string][]string{
		"time":          {"time"},
		"x":             {"x"},
		"concentration": {"time", "species", "x"},
		"cH":            cHDims,
		"field":         {"time", "x"},
	}
	for _, v := range []string{"time", "x", "concentration", "cH", "field"} {
		h.AddVariable(v, dims[v], []float64{0})
	}
	h.AddAttribute("", "input", input)
	h.Define()
	cf, err := cdf.Create(f, h)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []string{"time", "x", "concentration", "cH", "field"} {
		n := 1
		for _, l := range h.Lengths(v) {
			n *= l
		}
		if _, err := cf.Writer(v, nil, nil).Write(make([]float64, n)); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func TestReadNetCDFInconsistent(t *testing.T) {
	for _, test := range []struct {
		name, input string
		cHDims      []string
	}{
		{name: "no species", input: `{"species":[]}`, cHDims: []string{"time", "x"}},
		{name: "short cH", input: `{"species":[{"name":"a","type":"Background","initConcentration":1}]}`,
			cHDims: []string{"time"}},
	} {
		t.Run(test.name, func(t *testing.T) {
			f := writeRawNetCDF(t, test.input, test.cHDims)
			defer os.Remove(f.Name())
			defer f.Close()
			if _, err := ReadNetCDF(f); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}
