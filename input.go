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
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/unit"
)

// InjectionType identifies how a species is placed in the channel at t=0.
type InjectionType string

// Injection types
const (
	InjectLE         InjectionType = "LE"
	InjectTE         InjectionType = "TE"
	InjectPeak       InjectionType = "Peak"
	InjectBackground InjectionType = "Background"
)

// Injection describes the initial placement of a species. It is one of
// LeadingElectrolyte, TrailingElectrolyte, Peak or Background.
type Injection interface {
	Type() InjectionType

	// Profile returns the initial concentration [mM] at every grid point.
	Profile(g Grid, interfaceWidth, area float64) []float64

	validate(g Grid) []*FieldError
}

// LeadingElectrolyte is a plateau of Concentration [mM] for x > Location [m].
type LeadingElectrolyte struct {
	Location, Concentration float64
}

// TrailingElectrolyte is a plateau of Concentration [mM] for x < Location [m].
type TrailingElectrolyte struct {
	Location, Concentration float64
}

// Peak is a band of Width [m] centred at Location [m] holding Amount [mol].
type Peak struct {
	Location, Width, Amount float64
}

// Background is a uniform Concentration [mM].
type Background struct {
	Concentration float64
}

func (LeadingElectrolyte) Type() InjectionType  { return InjectLE }
func (TrailingElectrolyte) Type() InjectionType { return InjectTE }
func (Peak) Type() InjectionType                { return InjectPeak }
func (Background) Type() InjectionType          { return InjectBackground }

func checkLocation(loc float64, g Grid) *FieldError {
	if loc < 0 || loc >= g.Len || math.IsNaN(loc) {
		return &FieldError{Field: "injectionLoc", Err: fmt.Errorf("location %g m is outside of the domain [0, %g)", loc, g.Len)}
	}
	return nil
}

func checkConcentration(c float64) *FieldError {
	if !(c > 0) || math.IsInf(c, 0) {
		return &FieldError{Field: "initConcentration", Err: fmt.Errorf("concentration %g must be > 0", c)}
	}
	return nil
}

func collect(errs ...*FieldError) []*FieldError {
	var o []*FieldError
	for _, e := range errs {
		if e != nil {
			o = append(o, e)
		}
	}
	return o
}

func (i LeadingElectrolyte) validate(g Grid) []*FieldError {
	return collect(checkLocation(i.Location, g), checkConcentration(i.Concentration))
}

func (i TrailingElectrolyte) validate(g Grid) []*FieldError {
	return collect(checkLocation(i.Location, g), checkConcentration(i.Concentration))
}

func (i Peak) validate(g Grid) []*FieldError {
	errs := collect(checkLocation(i.Location, g))
	if !(i.Width > 0) {
		errs = append(errs, &FieldError{Field: "injectionWidth", Err: fmt.Errorf("width %g must be > 0", i.Width)})
	} else if i.Location-i.Width/2 < 0 || i.Location+i.Width/2 > g.Len {
		errs = append(errs, &FieldError{Field: "injectionWidth",
			Err: fmt.Errorf("band [%g, %g] m extends beyond the domain [0, %g)", i.Location-i.Width/2, i.Location+i.Width/2, g.Len)})
	}
	if !(i.Amount > 0) || math.IsInf(i.Amount, 0) {
		errs = append(errs, &FieldError{Field: "injectionAmount", Err: fmt.Errorf("amount %g must be > 0", i.Amount)})
	}
	return errs
}

func (i Background) validate(g Grid) []*FieldError {
	return collect(checkConcentration(i.Concentration))
}

// SpeciesSpec is the user description of a species.
type SpeciesSpec struct {
	Name      string
	Injection Injection

	// Valence, Mobility and PKa are comma-separated lists with one
	// entry per charged state.
	Valence, Mobility, PKa string

	// rawType keeps an unrecognized injection type for error reporting.
	rawType string
}

// speciesRecord is the flat encoding of a SpeciesSpec.
type speciesRecord struct {
	Name          string        `json:"name" toml:"Name"`
	Type          InjectionType `json:"type" toml:"Type"`
	Location      float64       `json:"injectionLoc,omitempty" toml:"InjectionLoc"`
	Width         float64       `json:"injectionWidth,omitempty" toml:"InjectionWidth"`
	Amount        float64       `json:"injectionAmount,omitempty" toml:"InjectionAmount"`
	Concentration float64       `json:"initConcentration,omitempty" toml:"InitConcentration"`
	Valence       string        `json:"valence" toml:"Valence"`
	Mobility      string        `json:"mobility" toml:"Mobility"`
	PKa           string        `json:"pKa" toml:"PKa"`
}

func (s SpeciesSpec) record() speciesRecord {
	r := speciesRecord{Name: s.Name, Valence: s.Valence, Mobility: s.Mobility, PKa: s.PKa}
	switch i := s.Injection.(type) {
	case LeadingElectrolyte:
		r.Type, r.Location, r.Concentration = InjectLE, i.Location, i.Concentration
	case TrailingElectrolyte:
		r.Type, r.Location, r.Concentration = InjectTE, i.Location, i.Concentration
	case Peak:
		r.Type, r.Location, r.Width, r.Amount = InjectPeak, i.Location, i.Width, i.Amount
	case Background:
		r.Type, r.Concentration = InjectBackground, i.Concentration
	default:
		r.Type = InjectionType(s.rawType)
	}
	return r
}

func (r speciesRecord) spec() SpeciesSpec {
	s := SpeciesSpec{Name: r.Name, Valence: r.Valence, Mobility: r.Mobility, PKa: r.PKa}
	switch r.Type {
	case InjectLE:
		s.Injection = LeadingElectrolyte{Location: r.Location, Concentration: r.Concentration}
	case InjectTE:
		s.Injection = TrailingElectrolyte{Location: r.Location, Concentration: r.Concentration}
	case InjectPeak:
		s.Injection = Peak{Location: r.Location, Width: r.Width, Amount: r.Amount}
	case InjectBackground:
		s.Injection = Background{Concentration: r.Concentration}
	default:
		s.rawType = string(r.Type)
	}
	return s
}

// MarshalJSON implements json.Marshaler.
func (s SpeciesSpec) MarshalJSON() ([]byte, error) { return json.Marshal(s.record()) }

// UnmarshalJSON implements json.Unmarshaler. An unknown injection type is
// not a decoding error; it is reported by Input.Validate.
func (s *SpeciesSpec) UnmarshalJSON(b []byte) error {
	var r speciesRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	*s = r.spec()
	return nil
}

// Scheme selects the numerical flux.
type Scheme string

// Numerical flux schemes
const (
	// SchemeSLIP is a limited central scheme with local dissipation.
	SchemeSLIP Scheme = "slip"
	// SchemeUpwind is the first order upwind scheme.
	SchemeUpwind Scheme = "upwind"
)

// Input holds the parameters of a simulation.
type Input struct {
	SimTime        float64       `json:"simTime" toml:"SimTime"`               // [s]
	AnimateRate    int           `json:"animateRate" toml:"AnimateRate"`       // steps per snapshot
	NumGrids       int           `json:"numGrids" toml:"NumGrids"`             // grid points
	Tolerance      float64       `json:"tolerance" toml:"Tolerance"`           // [mM]
	InterfaceWidth float64       `json:"interfaceWidth" toml:"InterfaceWidth"` // [m]
	DomainLen      float64       `json:"domainLen" toml:"DomainLen"`           // [m]
	Current        float64       `json:"current" toml:"Current"`               // [A]
	Area           float64       `json:"area" toml:"Area"`                     // [m2]
	Scheme         Scheme        `json:"scheme,omitempty" toml:"Scheme"`
	Species        []SpeciesSpec `json:"species" toml:"-"`
}

type tomlInput struct {
	Input
	Species []speciesRecord `toml:"Species"`
}

// DecodeInputTOML reads an Input from TOML. Species are given as an
// array of tables:
//
//	[[Species]]
//	Name = "HCl"
//	Type = "LE"
//	InjectionLoc = 12e-3
//	InitConcentration = 100
//	Valence = "-1"
//	Mobility = "79.1e-9"
//	PKa = "-2"
func DecodeInputTOML(r io.Reader) (*Input, error) {
	var t tomlInput
	if _, err := toml.DecodeReader(r, &t); err != nil {
		return nil, fmt.Errorf("spresso: decoding TOML input: %v", err)
	}
	in := t.Input
	in.Species = make([]SpeciesSpec, len(t.Species))
	for i, r := range t.Species {
		in.Species[i] = r.spec()
	}
	return &in, nil
}

// EncodeTOML writes in as TOML.
func (in *Input) EncodeTOML(w io.Writer) error {
	t := tomlInput{Input: *in, Species: make([]speciesRecord, len(in.Species))}
	for i, s := range in.Species {
		t.Species[i] = s.record()
	}
	return toml.NewEncoder(w).Encode(t)
}

// Grid returns the simulation grid.
func (in *Input) Grid() Grid { return NewGrid(in.NumGrids, in.DomainLen) }

func (in *Input) scheme() Scheme {
	if in.Scheme == "" {
		return SchemeSLIP
	}
	return in.Scheme
}

// currentDensity is the current per unit channel cross-section [A/m2].
func (in *Input) currentDensity() (float64, error) {
	j := unit.Div(
		unit.New(in.Current, unit.Dimensions{unit.CurrentDim: 1}),
		unit.New(in.Area, unit.Meter2),
	)
	return checked("current density", j, currentDensityDims)
}

func positive(field string, v float64) *FieldError {
	if !(v > 0) || math.IsInf(v, 0) {
		return &FieldError{Field: field, Err: fmt.Errorf("%g must be > 0", v)}
	}
	return nil
}

// Validate checks the input and parses the species properties. A non-nil
// error is always a ValidationErrors.
func (in *Input) Validate() ([]Properties, error) {
	var errs ValidationErrors
	add := func(e ...*FieldError) {
		for _, ee := range e {
			if ee != nil {
				errs = append(errs, ee)
			}
		}
	}
	add(positive("simTime", in.SimTime),
		positive("tolerance", in.Tolerance),
		positive("interfaceWidth", in.InterfaceWidth),
		positive("domainLen", in.DomainLen),
		positive("area", in.Area))
	if in.AnimateRate <= 0 {
		add(&FieldError{Field: "animateRate", Err: fmt.Errorf("%d must be > 0", in.AnimateRate)})
	}
	if in.NumGrids < 3 {
		add(&FieldError{Field: "numGrids", Err: fmt.Errorf("%d must be at least 3", in.NumGrids)})
	}
	if math.IsNaN(in.Current) || math.IsInf(in.Current, 0) {
		add(&FieldError{Field: "current", Err: fmt.Errorf("%g is not finite", in.Current)})
	} else if in.Area > 0 {
		if _, err := in.currentDensity(); err != nil {
			add(&FieldError{Field: "current", Err: err})
		}
	}
	switch in.scheme() {
	case SchemeSLIP, SchemeUpwind:
	default:
		add(&FieldError{Field: "scheme", Err: fmt.Errorf("unknown scheme %q", in.Scheme)})
	}
	if len(in.Species) == 0 {
		add(&FieldError{Field: "species", Err: errors.New("at least one species is required")})
	}

	g := in.Grid()
	props := make([]Properties, len(in.Species))
	names := make(map[string]bool)
	for i, s := range in.Species {
		var serrs []*FieldError
		if s.Name == "" {
			serrs = append(serrs, &FieldError{Field: "name", Err: errors.New("empty name")})
		} else if names[s.Name] {
			serrs = append(serrs, &FieldError{Field: "name", Err: errors.New("duplicate name")})
		}
		names[s.Name] = true
		if s.Injection == nil {
			serrs = append(serrs, &FieldError{Field: "type", Err: fmt.Errorf("unknown injection type %q", s.rawType)})
		} else if g.Len > 0 {
			serrs = append(serrs, s.Injection.validate(g)...)
		}
		p, err := ParseProperties(s.Valence, s.Mobility, s.PKa)
		if err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				serrs = append(serrs, fe)
			} else {
				serrs = append(serrs, &FieldError{Field: "properties", Err: err})
			}
		}
		props[i] = p
		for _, e := range serrs {
			e.Species = s.Name
			if e.Species == "" {
				e.Species = fmt.Sprintf("#%d", i)
			}
		}
		errs = append(errs, serrs...)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return props, nil
}
