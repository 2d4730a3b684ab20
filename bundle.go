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
	"io"

	"gonum.org/v1/gonum/mat"
)

// Bundle is the serialized form of a Result. Array names carry their
// dimensions as a suffix: t time, s species, n grid point.
type Bundle struct {
	Input         *Input  `json:"input"`
	Time          NDArray `json:"time_t"`
	Concentration NDArray `json:"concentration_tsn"`
	CH            NDArray `json:"cH_tn"`
	Field         NDArray `json:"field_tn"`
	Grid          NDArray `json:"grid_n"`
}

// Bundle flattens r into a Bundle.
func (r *Result) Bundle() *Bundle {
	nt, nn := len(r.T), len(r.X)
	ns := len(r.Input.Species)
	c := make([]float64, 0, nt*ns*nn)
	ch := make([]float64, 0, nt*nn)
	e := make([]float64, 0, nt*nn)
	for i := range r.T {
		for s := 0; s < ns; s++ {
			c = append(c, mat.Row(nil, s, r.C[i])...)
		}
		ch = append(ch, padTo(r.CH[i], nn)...)
		e = append(e, padTo(r.E[i], nn)...)
	}
	return &Bundle{
		Input:         r.Input,
		Time:          NDArray{Data: append([]float64(nil), r.T...), Shape: []int{nt}},
		Concentration: NDArray{Data: c, Shape: []int{nt, ns, nn}},
		CH:            NDArray{Data: ch, Shape: []int{nt, nn}},
		Field:         NDArray{Data: e, Shape: []int{nt, nn}},
		Grid:          NDArray{Data: append([]float64(nil), r.X...), Shape: []int{nn}},
	}
}

func padTo(v []float64, n int) []float64 {
	if len(v) == n {
		return v
	}
	return make([]float64, n)
}

// Result rebuilds the Result that b was made from.
func (b *Bundle) Result() (*Result, error) {
	if b.Input == nil {
		return nil, fmt.Errorf("spresso: bundle has no input")
	}
	if len(b.Concentration.Shape) != 3 {
		return nil, fmt.Errorf("spresso: concentration shape %v should have 3 dimensions", b.Concentration.Shape)
	}
	nt, ns, nn := b.Concentration.Shape[0], b.Concentration.Shape[1], b.Concentration.Shape[2]
	if nt <= 0 || ns <= 0 || nn <= 0 {
		return nil, fmt.Errorf("spresso: bundle concentration shape %v has no data", b.Concentration.Shape)
	}
	if ns != len(b.Input.Species) {
		return nil, fmt.Errorf("spresso: bundle has %d species but input has %d", ns, len(b.Input.Species))
	}
	for name, a := range map[string]NDArray{"time_t": b.Time, "grid_n": b.Grid, "cH_tn": b.CH, "field_tn": b.Field} {
		want := nt
		switch name {
		case "grid_n":
			want = nn
		case "cH_tn", "field_tn":
			want = nt * nn
		}
		if a.Size() != want {
			return nil, fmt.Errorf("spresso: bundle array %s has %d elements; want %d", name, a.Size(), want)
		}
	}
	c := b.Concentration.Float64s()
	ch := b.CH.Float64s()
	e := b.Field.Float64s()
	r := &Result{
		Input: b.Input,
		X:     b.Grid.Float64s(),
		T:     b.Time.Float64s(),
		C:     make([]mat.Matrix, nt),
		CH:    make([][]float64, nt),
		E:     make([][]float64, nt),
	}
	for i := 0; i < nt; i++ {
		r.C[i] = mat.NewDense(ns, nn, c[i*ns*nn:(i+1)*ns*nn])
		r.CH[i] = ch[i*nn : (i+1)*nn]
		r.E[i] = e[i*nn : (i+1)*nn]
	}
	return r, nil
}

// WriteBundle writes r to w as a JSON bundle.
func WriteBundle(w io.Writer, r *Result) error {
	if err := json.NewEncoder(w).Encode(r.Bundle()); err != nil {
		return fmt.Errorf("spresso: writing bundle: %v", err)
	}
	return nil
}

// ReadBundle reads a JSON bundle written by WriteBundle.
func ReadBundle(rd io.Reader) (*Result, error) {
	var b Bundle
	if err := json.NewDecoder(rd).Decode(&b); err != nil {
		return nil, fmt.Errorf("spresso: reading bundle: %v", err)
	}
	return b.Result()
}
