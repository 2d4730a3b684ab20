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
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ProfileStats summarizes the concentration profile of one species.
type ProfileStats struct {
	Species string
	Time    float64 // [s]

	Max    float64 // maximum concentration [mM]
	MaxLoc float64 // position of the maximum [m]

	// Mean, Std and Skewness are the concentration-weighted mean
	// position [m], its standard deviation [m] and skewness.
	Mean, Std, Skewness float64

	// Travel is the distance [m] the steepest gradient of the profile
	// has moved since t=0. It is only computed for leading electrolytes
	// and is NaN otherwise.
	Travel float64
}

// Analyze returns statistics for every species at time index ti of r.
func Analyze(r *Result, ti int) ([]ProfileStats, error) {
	if ti < 0 || ti >= len(r.T) {
		return nil, fmt.Errorf("spresso: time index %d out of range [0, %d)", ti, len(r.T))
	}
	o := make([]ProfileStats, len(r.Input.Species))
	for s := range o {
		o[s] = AnalyzeProfile(r, s, ti)
	}
	return o, nil
}

// AnalyzeProfile returns statistics for species s at time index ti.
func AnalyzeProfile(r *Result, s, ti int) ProfileStats {
	c := mat.Row(nil, s, r.C[ti])
	p := ProfileStats{
		Species: r.Input.Species[s].Name,
		Time:    r.T[ti],
		Travel:  math.NaN(),
	}
	imax := floats.MaxIdx(c)
	p.Max, p.MaxLoc = c[imax], r.X[imax]

	w := make([]float64, len(c))
	for i, v := range c {
		w[i] = math.Max(v, 0)
	}
	if floats.Sum(w) > 0 {
		// Population moments; the weights are concentrations, not counts.
		p.Mean = stat.Mean(r.X, w)
		p.Std = math.Sqrt(stat.Moment(2, r.X, w))
		p.Skewness = stat.Moment(3, r.X, w) / math.Pow(p.Std, 3)
	} else {
		p.Mean, p.Std, p.Skewness = math.NaN(), math.NaN(), math.NaN()
	}

	if inj := r.Input.Species[s].Injection; inj != nil && inj.Type() == InjectLE {
		x0 := steepest(mat.Row(nil, s, r.C[0]), r.X)
		p.Travel = steepest(c, r.X) - x0
	}
	return p
}

// steepest returns the position of the largest concentration gradient,
// at the midpoint between grid points.
func steepest(c, x []float64) float64 {
	if len(c) < 2 {
		return math.NaN()
	}
	d := make([]float64, len(c)-1)
	for i := range d {
		d[i] = math.Abs(c[i+1] - c[i])
	}
	i := floats.MaxIdx(d)
	return 0.5 * (x[i] + x[i+1])
}

// Merit holds the dimensionless figures of merit of a detection window
// for an analyte separated from an impurity, evaluated when the analyte
// peak first reaches the window center.
type Merit struct {
	TimeIndex int
	Time      float64 // [s]

	// LImp is the distance from the window's left edge back to the
	// impurity front, per window width.
	LImp float64

	// Alpha and Beta are the fractions of the analyte and of the
	// impurity inside the window.
	Alpha, Beta float64

	// Gamma is the length of the combined injection bands per distance
	// from the start of the injection to the window's right edge.
	Gamma float64
}

// FigureOfMerit evaluates a window of width winWidth [m] centred at
// winPos [m] for the named analyte and impurity. Both species must be
// injected as peaks.
func FigureOfMerit(r *Result, winPos, winWidth float64, analyte, impurity string) (Merit, error) {
	var m Merit
	ia, ii := r.Index(analyte), r.Index(impurity)
	for name, i := range map[string]int{analyte: ia, impurity: ii} {
		if i < 0 {
			return m, fmt.Errorf("spresso: species %q not found; choose from %v", name, r.Names())
		}
	}
	if !(winWidth > 0) {
		return m, fmt.Errorf("spresso: window width %g must be > 0", winWidth)
	}
	nn := len(r.X)
	if nn < 2 {
		return m, fmt.Errorf("spresso: %d grid points are too few for a window", nn)
	}
	dx := r.X[1] - r.X[0]
	left, right := winPos-winWidth/2, winPos+winWidth/2
	if left < r.X[0] || right > r.X[nn-1]+dx {
		return m, fmt.Errorf("spresso: window [%g, %g] m is outside of the domain", left, right)
	}
	pa, okA := r.Input.Species[ia].Injection.(Peak)
	pi, okI := r.Input.Species[ii].Injection.(Peak)
	if !okA || !okI {
		return m, fmt.Errorf("spresso: %s and %s must both be injected as peaks", analyte, impurity)
	}

	m.TimeIndex = -1
	for ti, c := range r.C {
		if r.X[floats.MaxIdx(mat.Row(nil, ia, c))] >= winPos {
			m.TimeIndex = ti
			break
		}
	}
	if m.TimeIndex < 0 {
		return m, fmt.Errorf("spresso: %s never reaches the window at %g m", analyte, winPos)
	}
	m.Time = r.T[m.TimeIndex]
	ca := mat.Row(nil, ia, r.C[m.TimeIndex])
	ci := mat.Row(nil, ii, r.C[m.TimeIndex])

	front := r.X[floats.MinIdx(gradient(ci))]
	m.LImp = (left - front) / winWidth

	lo, hi := gridIndex(left, dx, nn), gridIndex(right, dx, nn)
	m.Alpha = floats.Sum(ca[lo:hi]) / floats.Sum(ca)
	m.Beta = floats.Sum(ci[lo:hi]) / floats.Sum(ci)

	injLeft := math.Min(pa.Location-pa.Width/2, pi.Location-pi.Width/2)
	injRight := math.Max(pa.Location+pa.Width/2, pi.Location+pi.Width/2)
	m.Gamma = (injRight - injLeft) / (right - injLeft)
	return m, nil
}

// gridIndex is the index of the grid cell holding x, clamped to [0, n].
func gridIndex(x, dx float64, n int) int {
	i := int(math.Floor(x/dx + 1.e-9))
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// gradient returns the per-point differences of c: central in the
// interior and one-sided at the ends.
func gradient(c []float64) []float64 {
	n := len(c)
	d := make([]float64, n)
	if n < 2 {
		return d
	}
	d[0], d[n-1] = c[1]-c[0], c[n-1]-c[n-2]
	for i := 1; i < n-1; i++ {
		d[i] = (c[i+1] - c[i-1]) / 2
	}
	return d
}
