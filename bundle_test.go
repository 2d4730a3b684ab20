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
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kr/pretty"
	"gonum.org/v1/gonum/mat"
)

func TestNDArrayRoundTrip(t *testing.T) {
	for _, data := range []interface{}{
		[]int8{-128, 0, 127, 5, 6, 7},
		[]uint8{0, 255, 1, 2, 3, 4},
		[]int16{-32768, 32767, 0, 1, 2, 3},
		[]uint16{65535, 0, 1, 2, 3, 4},
		[]int32{-1 << 31, 1<<31 - 1, 0, 1, 2, 3},
		[]uint32{1<<32 - 1, 0, 1, 2, 3, 4},
		[]float32{1.5, -2.25, 3, 0, 1.e-30, 7},
		[]float64{1.e-300, -2, 3.14159, 0, 6.02e23, -0.5},
	} {
		for _, shape := range [][]int{{6}, {2, 3}, {3, 1, 2}} {
			a, err := NewNDArray(data, shape...)
			if err != nil {
				t.Fatal(err)
			}
			b, err := json.Marshal(a)
			if err != nil {
				t.Fatal(err)
			}
			var got NDArray
			if err := json.Unmarshal(b, &got); err != nil {
				t.Fatalf("%T %v: %v", data, shape, err)
			}
			if diff := pretty.Diff(got, a); len(diff) != 0 {
				t.Errorf("%T %v: %v", data, shape, diff)
			}
		}
	}
}

func TestNDArrayWireFormat(t *testing.T) {
	a, err := NewNDArray([]uint16{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	// Little-endian bytes 01 00 02 00.
	const want = `{"data":"AQACAA==","shape":[2],"dtype":"Uint16Array"}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

func TestNDArrayTypeAlias(t *testing.T) {
	var a NDArray
	if err := json.Unmarshal([]byte(`{"data":"AQACAA==","shape":[2],"type":"Uint16Array"}`), &a); err != nil {
		t.Fatal(err)
	}
	if d, ok := a.Data.([]uint16); !ok || d[0] != 1 || d[1] != 2 {
		t.Errorf("got %#v", a.Data)
	}
}

func TestNDArrayInvalid(t *testing.T) {
	for name, s := range map[string]string{
		"shape mismatch": `{"data":"AQACAA==","shape":[3],"dtype":"Uint16Array"}`,
		"partial":        `{"data":"AQACAA==","shape":[1],"dtype":"Float64Array"}`,
		"unknown dtype":  `{"data":"AQACAA==","shape":[2],"dtype":"BigInt64Array"}`,
		"bad base64":     `{"data":"%%%","shape":[2],"dtype":"Uint16Array"}`,
	} {
		var a NDArray
		if err := json.Unmarshal([]byte(s), &a); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
	if _, err := NewNDArray([]float64{1, 2, 3}, 2, 2); err == nil {
		t.Errorf("expected an error for a mismatched shape")
	}
	if _, err := NewNDArray([]int{1}); err == nil {
		t.Errorf("expected an error for an unsupported element type")
	}
}

func TestNDArrayScalar(t *testing.T) {
	a := NDArray{Data: []float64{42}}
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"shape":[]`) {
		t.Errorf("scalar shape: got %s", b)
	}
	var got NDArray
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Size() != 1 || got.Float64s()[0] != 42 {
		t.Errorf("got %#v", got)
	}
}

func TestBundleRoundTrip(t *testing.T) {
	in := diffusionInput()
	in.SimTime = 0.5
	s, err := New(in, WithInitialStep(0.1))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	r := s.Result()
	var buf bytes.Buffer
	if err := WriteBundle(&buf, r); err != nil {
		t.Fatal(err)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &keys); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"input", "time_t", "concentration_tsn", "cH_tn", "field_tn", "grid_n"} {
		if _, ok := keys[k]; !ok {
			t.Errorf("bundle is missing %q", k)
		}
	}

	got, err := ReadBundle(&buf)
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
		if diff := pretty.Diff(got.CH[i], r.CH[i]); len(diff) != 0 {
			t.Errorf("cH at time %d: %v", i, diff)
		}
	}
	if got.Input.Species[0].Injection != in.Species[0].Injection {
		t.Errorf("injection: got %+v, want %+v", got.Input.Species[0].Injection, in.Species[0].Injection)
	}
}

func TestBundleInvalid(t *testing.T) {
	in := diffusionInput()
	b := &Bundle{
		Input:         in,
		Time:          NDArray{Data: []float64{0, 1}, Shape: []int{2}},
		Concentration: NDArray{Data: make([]float64, 2*1*3), Shape: []int{2, 1, 3}},
		CH:            NDArray{Data: make([]float64, 6), Shape: []int{2, 3}},
		Field:         NDArray{Data: make([]float64, 6), Shape: []int{2, 3}},
		Grid:          NDArray{Data: make([]float64, 3), Shape: []int{3}},
	}
	if _, err := b.Result(); err != nil {
		t.Fatalf("valid bundle: %v", err)
	}
	b.Grid = NDArray{Data: make([]float64, 4), Shape: []int{4}}
	if _, err := b.Result(); err == nil {
		t.Errorf("expected an error for a mismatched grid")
	}
	b.Grid = NDArray{Data: make([]float64, 3), Shape: []int{3}}
	b.Concentration.Shape = []int{6}
	if _, err := b.Result(); err == nil {
		t.Errorf("expected an error for a flat concentration array")
	}
}

func TestBundleEmpty(t *testing.T) {
	noSpecies := diffusionInput()
	noSpecies.Species = nil
	for name, b := range map[string]*Bundle{
		"no species": {
			Input:         noSpecies,
			Time:          NDArray{Data: []float64{0}, Shape: []int{1}},
			Concentration: NDArray{Data: []float64{}, Shape: []int{1, 0, 3}},
			CH:            NDArray{Data: make([]float64, 3), Shape: []int{1, 3}},
			Field:         NDArray{Data: make([]float64, 3), Shape: []int{1, 3}},
			Grid:          NDArray{Data: make([]float64, 3), Shape: []int{3}},
		},
		"no grid points": {
			Input:         diffusionInput(),
			Time:          NDArray{Data: []float64{0}, Shape: []int{1}},
			Concentration: NDArray{Data: []float64{}, Shape: []int{1, 1, 0}},
			CH:            NDArray{Data: []float64{}, Shape: []int{1, 0}},
			Field:         NDArray{Data: []float64{}, Shape: []int{1, 0}},
			Grid:          NDArray{Data: []float64{}, Shape: []int{0}},
		},
	} {
		if _, err := b.Result(); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(`{"input":{"species":[]},"time_t":{"data":"AAAAAAAAAAA=","shape":[1],"dtype":"Float64Array"},` +
		`"concentration_tsn":{"data":"","shape":[1,0,0],"dtype":"Float64Array"},` +
		`"cH_tn":{"data":"","shape":[1,0],"dtype":"Float64Array"},` +
		`"field_tn":{"data":"","shape":[1,0],"dtype":"Float64Array"},` +
		`"grid_n":{"data":"","shape":[0],"dtype":"Float64Array"}}`)
	if _, err := ReadBundle(&buf); err == nil {
		t.Errorf("reading an empty bundle should fail")
	}
}

func TestNDArrayUint8Clamped(t *testing.T) {
	var a NDArray
	if err := json.Unmarshal([]byte(`{"data":"AP8H","shape":[3],"dtype":"Uint8ClampedArray"}`), &a); err != nil {
		t.Fatal(err)
	}
	d, ok := a.Data.([]uint8)
	if !ok || d[0] != 0 || d[1] != 255 || d[2] != 7 {
		t.Fatalf("got %#v", a.Data)
	}
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"dtype":"Uint8Array"`) {
		t.Errorf("re-encoded: %s", b)
	}
}
