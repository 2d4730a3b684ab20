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
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// DType is the element type tag of a serialized array.
type DType string

// Element types
const (
	Int8    DType = "Int8Array"
	Uint8   DType = "Uint8Array"
	Int16   DType = "Int16Array"
	Uint16  DType = "Uint16Array"
	Int32   DType = "Int32Array"
	Uint32  DType = "Uint32Array"
	Float32 DType = "Float32Array"
	Float64 DType = "Float64Array"

	// Uint8Clamped is decoded as []uint8 and re-encoded as Uint8.
	Uint8Clamped DType = "Uint8ClampedArray"
)

// NDArray is a multi-dimensional array stored as a flat row-major buffer.
// Data is one of []int8, []uint8, []int16, []uint16, []int32, []uint32,
// []float32 or []float64.
type NDArray struct {
	Data  interface{}
	Shape []int
}

// NewNDArray returns an array with the given data and shape. If no shape
// is given the array is one-dimensional.
func NewNDArray(data interface{}, shape ...int) (NDArray, error) {
	a := NDArray{Data: data, Shape: shape}
	n, err := length(data)
	if err != nil {
		return a, err
	}
	if len(shape) == 0 {
		a.Shape = []int{n}
	}
	if size := a.Size(); size != n {
		return a, fmt.Errorf("spresso: shape %v holds %d elements but data has %d", a.Shape, size, n)
	}
	return a, nil
}

// Size is the number of elements implied by the shape.
func (a NDArray) Size() int {
	n := 1
	for _, s := range a.Shape {
		n *= s
	}
	return n
}

func length(data interface{}) (int, error) {
	switch d := data.(type) {
	case []int8:
		return len(d), nil
	case []uint8:
		return len(d), nil
	case []int16:
		return len(d), nil
	case []uint16:
		return len(d), nil
	case []int32:
		return len(d), nil
	case []uint32:
		return len(d), nil
	case []float32:
		return len(d), nil
	case []float64:
		return len(d), nil
	}
	return 0, fmt.Errorf("spresso: unsupported array type %T", data)
}

// DType returns the element type tag of a.
func (a NDArray) DType() (DType, error) {
	switch a.Data.(type) {
	case []int8:
		return Int8, nil
	case []uint8:
		return Uint8, nil
	case []int16:
		return Int16, nil
	case []uint16:
		return Uint16, nil
	case []int32:
		return Int32, nil
	case []uint32:
		return Uint32, nil
	case []float32:
		return Float32, nil
	case []float64:
		return Float64, nil
	}
	return "", fmt.Errorf("spresso: unsupported array type %T", a.Data)
}

// alloc returns a zeroed slice for n elements of type t and the element
// size in bytes.
func alloc(t DType, n int) (interface{}, int, error) {
	switch t {
	case Int8:
		return make([]int8, n), 1, nil
	case Uint8, Uint8Clamped:
		return make([]uint8, n), 1, nil
	case Int16:
		return make([]int16, n), 2, nil
	case Uint16:
		return make([]uint16, n), 2, nil
	case Int32:
		return make([]int32, n), 4, nil
	case Uint32:
		return make([]uint32, n), 4, nil
	case Float32:
		return make([]float32, n), 4, nil
	case Float64:
		return make([]float64, n), 8, nil
	}
	return nil, 0, fmt.Errorf("spresso: unsupported dtype %q", t)
}

type ndarrayJSON struct {
	Data  string `json:"data"`
	Shape []int  `json:"shape"`
	DType DType  `json:"dtype,omitempty"`
	Type  DType  `json:"type,omitempty"`
}

// MarshalJSON encodes a as {data, shape, dtype} with data a base64
// little-endian buffer.
func (a NDArray) MarshalJSON() ([]byte, error) {
	t, err := a.DType()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, a.Data); err != nil {
		return nil, fmt.Errorf("spresso: encoding array: %v", err)
	}
	shape := a.Shape
	if shape == nil {
		shape = []int{}
	}
	return json.Marshal(ndarrayJSON{
		Data:  base64.StdEncoding.EncodeToString(buf.Bytes()),
		Shape: shape,
		DType: t,
	})
}

// UnmarshalJSON decodes an array written by MarshalJSON. The element type
// may be given under either "dtype" or "type".
func (a *NDArray) UnmarshalJSON(b []byte) error {
	var j ndarrayJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	t := j.DType
	if t == "" {
		t = j.Type
	}
	raw, err := base64.StdEncoding.DecodeString(j.Data)
	if err != nil {
		return fmt.Errorf("spresso: decoding array data: %v", err)
	}
	_, size, err := alloc(t, 0)
	if err != nil {
		return err
	}
	if len(raw)%size != 0 {
		return fmt.Errorf("spresso: %d bytes is not a whole number of %s elements", len(raw), t)
	}
	data, _, _ := alloc(t, len(raw)/size)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, data); err != nil {
		return fmt.Errorf("spresso: decoding array data: %v", err)
	}
	v := NDArray{Data: data, Shape: j.Shape}
	if n, _ := length(data); v.Size() != n {
		return fmt.Errorf("spresso: shape %v holds %d elements but data has %d", v.Shape, v.Size(), n)
	}
	*a = v
	return nil
}

// Float64s returns the elements of a converted to float64.
func (a NDArray) Float64s() []float64 {
	n, _ := length(a.Data)
	o := make([]float64, n)
	switch d := a.Data.(type) {
	case []int8:
		for i, v := range d {
			o[i] = float64(v)
		}
	case []uint8:
		for i, v := range d {
			o[i] = float64(v)
		}
	case []int16:
		for i, v := range d {
			o[i] = float64(v)
		}
	case []uint16:
		for i, v := range d {
			o[i] = float64(v)
		}
	case []int32:
		for i, v := range d {
			o[i] = float64(v)
		}
	case []uint32:
		for i, v := range d {
			o[i] = float64(v)
		}
	case []float32:
		for i, v := range d {
			o[i] = float64(v)
		}
	case []float64:
		copy(o, d)
	}
	return o
}
