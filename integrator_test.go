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

	"gonum.org/v1/gonum/mat"
)

// decay is dc/dt = -k c with no chemistry.
type decay struct{ k float64 }

func (d decay) Equilibrate(*mat.Dense, []float64) (*Equilibrium, error) { return nil, nil }
func (d decay) Rate(dst, c *mat.Dense, _ *Equilibrium)                  { dst.Scale(-d.k, c) }
func (d decay) Field(*Equilibrium) []float64                            { return nil }

// broken produces a non-finite rate.
type broken struct{ decay }

func (broken) Rate(dst, c *mat.Dense, _ *Equilibrium) {
	r, n := dst.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < n; j++ {
			dst.Set(i, j, math.NaN())
		}
	}
}

func decayState(dt float64) *FieldState {
	return &FieldState{Dt: dt, C: mat.NewDense(1, 2, []float64{1, 2})}
}

func TestStepShrinksOnLargeError(t *testing.T) {
	it := NewIntegrator(decay{k: 1}, DefaultStepController(1.e-8))
	const dt = 2.
	cd, err := it.Propose(decayState(dt), dt)
	if err != nil {
		t.Fatal(err)
	}
	ok, next := it.Evaluate(cd)
	if ok {
		t.Fatalf("error %g should exceed tolerance %g", cd.Err, it.Tolerance)
	}
	if !(next < dt) {
		t.Errorf("next dt: got %g, want < %g", next, dt)
	}
	if next < dt*it.MinScale {
		t.Errorf("next dt %g shrank by more than %g", next, it.MinScale)
	}
}

func TestStepGrowsOnSmallError(t *testing.T) {
	it := NewIntegrator(decay{k: 1}, DefaultStepController(1.e-2))
	const dt = 1.e-3
	cd, err := it.Propose(decayState(dt), dt)
	if err != nil {
		t.Fatal(err)
	}
	ok, next := it.Evaluate(cd)
	if !ok {
		t.Fatalf("error %g should be within tolerance %g", cd.Err, it.Tolerance)
	}
	if !(next > dt) {
		t.Errorf("next dt: got %g, want > %g", next, dt)
	}
	if next > dt*it.MaxScale {
		t.Errorf("next dt %g grew by more than %g", next, it.MaxScale)
	}
}

func TestScale(t *testing.T) {
	sc := DefaultStepController(1)
	for _, test := range []struct{ err, want float64 }{
		{err: 0, want: sc.MaxScale},
		{err: 1.e-20, want: sc.MaxScale},
		{err: 1, want: sc.Safety},
		{err: 1.e20, want: sc.MinScale},
		{err: math.NaN(), want: sc.MinScale},
	} {
		if got := sc.Scale(test.err); different(got, test.want, 1.e-12) {
			t.Errorf("Scale(%g): got %g, want %g", test.err, got, test.want)
		}
	}
}

func TestRK4Accuracy(t *testing.T) {
	it := NewIntegrator(decay{k: 2}, DefaultStepController(1.e-10))
	st := decayState(0.01)
	for st.T < 1 {
		var err error
		if st, err = it.Step(st, 1); err != nil {
			t.Fatal(err)
		}
	}
	if st.T != 1 {
		t.Errorf("final time: got %.17g, want exactly 1", st.T)
	}
	for j, c0 := range []float64{1, 2} {
		want := c0 * math.Exp(-2)
		if different(st.C.At(0, j), want, 1.e-7) {
			t.Errorf("c[%d]: got %g, want %g", j, st.C.At(0, j), want)
		}
	}
	if it.Stats.Accepted == 0 || it.Stats.Evaluations < 11*it.Stats.Accepted {
		t.Errorf("statistics: %+v", it.Stats)
	}
}

func TestRejectedStepLeavesStateUnchanged(t *testing.T) {
	it := NewIntegrator(decay{k: 1}, DefaultStepController(1.e-8))
	st := decayState(5)
	before := mat.DenseCopyOf(st.C)
	nst, err := it.Step(st, 10)
	if err != nil {
		t.Fatal(err)
	}
	if it.Stats.Rejected == 0 {
		t.Fatalf("expected at least one rejection")
	}
	if !mat.Equal(st.C, before) || st.T != 0 {
		t.Errorf("starting state was modified")
	}
	if nst.C == st.C {
		t.Errorf("accepted state shares the starting matrix")
	}
	if nst.T >= 5 {
		t.Errorf("accepted step %g should be smaller than the rejected one", nst.T)
	}
}

func TestStepSizeUnderflow(t *testing.T) {
	it := NewIntegrator(broken{}, DefaultStepController(1.e-3))
	_, err := it.Step(decayState(1), 10)
	if !errors.Is(err, ErrStepSizeUnderflow) {
		t.Fatalf("got %v, want ErrStepSizeUnderflow", err)
	}
	var se *StepError
	if !errors.As(err, &se) {
		t.Errorf("got %T, want *StepError", err)
	}
}
