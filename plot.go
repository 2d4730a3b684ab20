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
	"io"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// WritePlot draws the concentration profiles (top) and pH (bottom) at time
// index ti of r as a PNG image.
func WritePlot(w io.Writer, r *Result, ti int) error {
	if ti < 0 || ti >= len(r.T) {
		return fmt.Errorf("spresso: time index %d out of range [0, %d)", ti, len(r.T))
	}
	xmm := make([]float64, len(r.X))
	for i, x := range r.X {
		xmm[i] = x * 1000
	}
	xy := func(y []float64) plotter.XYs {
		o := make(plotter.XYs, len(y))
		for i := range y {
			o[i].X, o[i].Y = xmm[i], y[i]
		}
		return o
	}

	pc, err := plot.New()
	if err != nil {
		return fmt.Errorf("spresso: plotting: %v", err)
	}
	pc.Title.Text = fmt.Sprintf("t = %.4g s", r.T[ti])
	pc.Y.Label.Text = "Concentration [mM]"
	for s, name := range r.Names() {
		l, err := plotter.NewLine(xy(mat.Row(nil, s, r.C[ti])))
		if err != nil {
			return fmt.Errorf("spresso: plotting %s: %v", name, err)
		}
		l.Color = plotutil.Color(s)
		pc.Add(l)
		pc.Legend.Add(name, l)
	}
	pc.Legend.Top = true

	ph, err := plot.New()
	if err != nil {
		return fmt.Errorf("spresso: plotting: %v", err)
	}
	ph.X.Label.Text = "x [mm]"
	ph.Y.Label.Text = "pH"
	l, err := plotter.NewLine(xy(PH(r.CH[ti])))
	if err != nil {
		return fmt.Errorf("spresso: plotting pH: %v", err)
	}
	ph.Add(l)

	img := vgimg.New(8*vg.Inch, 6*vg.Inch)
	dc := draw.New(img)
	top, bottom := splitVertical(dc, (dc.Max.Y-dc.Min.Y)/3)
	pc.Draw(top)
	ph.Draw(bottom)
	return writePNG(w, img)
}

func writePNG(w io.Writer, img *vgimg.Canvas) error {
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("spresso: writing plot: %v", err)
	}
	return nil
}

// splitVertical splits c at height y above its bottom.
func splitVertical(c draw.Canvas, y vg.Length) (top, bottom draw.Canvas) {
	return draw.Crop(c, 0, 0, y, 0), draw.Crop(c, 0, 0, 0, c.Min.Y-c.Max.Y+y)
}

// spaceTime is a quantity over position (columns) and time (rows).
type spaceTime struct {
	x, t []float64
	z    func(ti, i int) float64
}

func (g spaceTime) Dims() (c, r int)   { return len(g.x), len(g.t) }
func (g spaceTime) Z(c, r int) float64 { return g.z(r, c) }
func (g spaceTime) X(c int) float64    { return g.x[c] * 1000 }
func (g spaceTime) Y(r int) float64    { return g.t[r] }

// SpaceTimePH is the quantity name WriteSpaceTimePlot uses for pH.
const SpaceTimePH = "pH"

// WriteSpaceTimePlot draws a map of quantity over position and time as a
// PNG image. quantity is a species name or SpaceTimePH.
func WriteSpaceTimePlot(w io.Writer, r *Result, quantity string) error {
	if len(r.T) < 2 || len(r.X) < 2 {
		return fmt.Errorf("spresso: a space-time plot needs at least 2 times and 2 grid points; have %d and %d", len(r.T), len(r.X))
	}
	g := spaceTime{x: r.X, t: r.T}
	label := quantity + " [mM]"
	if s := r.Index(quantity); s >= 0 {
		g.z = func(ti, i int) float64 { return r.C[ti].At(s, i) }
	} else if quantity == SpaceTimePH {
		ph := make([][]float64, len(r.CH))
		for ti, ch := range r.CH {
			ph[ti] = PH(ch)
		}
		g.z = func(ti, i int) float64 { return ph[ti][i] }
		label = "pH"
	} else {
		return fmt.Errorf("spresso: cannot plot %q; choose %s or one of %v", quantity, SpaceTimePH, r.Names())
	}

	p, err := plot.New()
	if err != nil {
		return fmt.Errorf("spresso: plotting: %v", err)
	}
	p.Title.Text = label
	p.X.Label.Text = "x [mm]"
	p.Y.Label.Text = "t [s]"
	hm := plotter.NewHeatMap(g, palette.Heat(64, 1))
	if hm.Max == hm.Min {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	img := vgimg.New(8*vg.Inch, 6*vg.Inch)
	p.Draw(draw.New(img))
	return writePNG(w, img)
}
