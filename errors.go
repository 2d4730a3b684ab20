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
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is returned (wrapped) for malformed simulation input.
	ErrInvalidInput = errors.New("spresso: invalid input")

	// ErrEquilibrium is returned when no hydrogen ion concentration
	// satisfies electroneutrality within the search range.
	ErrEquilibrium = errors.New("spresso: no equilibrium solution")

	// ErrStepSizeUnderflow is returned when the adaptive time step shrinks
	// below its floor without meeting the error tolerance.
	ErrStepSizeUnderflow = errors.New("spresso: time step underflow")
)

// FieldError marks a single invalid input field. Species is empty for
// fields that are not attached to a species.
type FieldError struct {
	Species string
	Field   string
	Err     error
}

func (e *FieldError) Error() string {
	if e.Species == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("species %q: %s: %v", e.Species, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ValidationErrors holds every invalid field found in an input.
type ValidationErrors []*FieldError

func (v ValidationErrors) Error() string {
	s := make([]string, len(v))
	for i, e := range v {
		s[i] = e.Error()
	}
	return "spresso: invalid input: " + strings.Join(s, "; ")
}

// Is makes errors.Is(v, ErrInvalidInput) hold.
func (v ValidationErrors) Is(target error) bool { return target == ErrInvalidInput }

// Fields returns a validity flag for each invalid field, keyed by
// "species.field" or "field".
func (v ValidationErrors) Fields() map[string]string {
	o := make(map[string]string, len(v))
	for _, e := range v {
		k := e.Field
		if e.Species != "" {
			k = e.Species + "." + e.Field
		}
		o[k] = e.Err.Error()
	}
	return o
}

// StepError is a fatal failure while advancing the simulation.
type StepError struct {
	T, Dt float64
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("spresso: step at t=%.6g s (dt=%.3g s): %v", e.T, e.Dt, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
