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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ctessum/cdf"
	"gonum.org/v1/gonum/mat"
)

var netcdfVars = []struct {
	name, description, units string
	dims                     []string
}{
	{"time", "simulation time", "s", []string{"time"}},
	{"x", "grid point position", "m", []string{"x"}},
	{"concentration", "species concentration", "mol m-3", []string{"time", "species", "x"}},
	{"cH", "hydrogen ion concentration", "mol L-1", []string{"time", "x"}},
	{"field", "electric field", "V m-1", []string{"time", "x"}},
}

// WriteNetCDF writes r to rw in NetCDF format.
func WriteNetCDF(rw cdf.ReaderWriterAt, r *Result) error {
	b := r.Bundle()
	nt, ns, nn := len(r.T), len(r.Input.Species), len(r.X)

	h := cdf.NewHeader([]string{"time", "species", "x"}, []int{nt, ns, nn})
	for _, v := range netcdfVars {
		h.AddVariable(v.name, v.dims, []float64{0})
		h.AddAttribute(v.name, "description", v.description)
		h.AddAttribute(v.name, "units", v.units)
	}
	in, err := json.Marshal(r.Input)
	if err != nil {
		return fmt.Errorf("spresso: writing netcdf: %v", err)
	}
	h.AddAttribute("", "species", strings.Join(r.Names(), ","))
	h.AddAttribute("", "input", string(in))
	h.AddAttribute("", "version", Version)
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("spresso: creating netcdf header: %v", err)
	}

	f, err := cdf.Create(rw, h)
	if err != nil {
		return fmt.Errorf("spresso: creating netcdf file: %v", err)
	}
	data := map[string]NDArray{
		"time":          b.Time,
		"x":             b.Grid,
		"concentration": b.Concentration,
		"cH":            b.CH,
		"field":         b.Field,
	}
	for _, v := range netcdfVars {
		w := f.Writer(v.name, nil, nil)
		if _, err := w.Write(data[v.name].Data); err != nil {
			return fmt.Errorf("spresso: writing variable %s to netcdf file: %v", v.name, err)
		}
	}
	return nil
}

// ReadNetCDF reads a Result written by WriteNetCDF.
func ReadNetCDF(rw cdf.ReaderWriterAt) (*Result, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("spresso: opening netcdf file: %v", err)
	}
	attr, ok := f.Header.GetAttribute("", "input").(string)
	if !ok {
		return nil, fmt.Errorf("spresso: netcdf file has no input attribute")
	}
	r := &Result{Input: new(Input)}
	if err := json.Unmarshal([]byte(attr), r.Input); err != nil {
		return nil, fmt.Errorf("spresso: decoding netcdf input attribute: %v", err)
	}
	read := func(v string) ([]float64, error) {
		n := 1
		for _, l := range f.Header.Lengths(v) {
			n *= l
		}
		buf := make([]float64, n)
		if _, err := f.Reader(v, nil, nil).Read(buf); err != nil {
			return nil, fmt.Errorf("spresso: reading variable %s from netcdf file: %v", v, err)
		}
		return buf, nil
	}
	if r.T, err = read("time"); err != nil {
		return nil, err
	}
	if r.X, err = read("x"); err != nil {
		return nil, err
	}
	c, err := read("concentration")
	if err != nil {
		return nil, err
	}
	ch, err := read("cH")
	if err != nil {
		return nil, err
	}
	e, err := read("field")
	if err != nil {
		return nil, err
	}
	nt, ns, nn := len(r.T), len(r.Input.Species), len(r.X)
	if nt == 0 || ns == 0 || nn == 0 {
		return nil, fmt.Errorf("spresso: netcdf file has %d times, %d species and %d grid points", nt, ns, nn)
	}
	if len(c) != nt*ns*nn {
		return nil, fmt.Errorf("spresso: netcdf concentration has %d values; want %d", len(c), nt*ns*nn)
	}
	if len(ch) != nt*nn || len(e) != nt*nn {
		return nil, fmt.Errorf("spresso: netcdf cH and field have %d and %d values; want %d", len(ch), len(e), nt*nn)
	}
	r.C = make([]mat.Matrix, nt)
	r.CH = make([][]float64, nt)
	r.E = make([][]float64, nt)
	for i := 0; i < nt; i++ {
		r.C[i] = mat.NewDense(ns, nn, c[i*ns*nn:(i+1)*ns*nn])
		r.CH[i] = ch[i*nn : (i+1)*nn]
		r.E[i] = e[i*nn : (i+1)*nn]
	}
	return r, nil
}
