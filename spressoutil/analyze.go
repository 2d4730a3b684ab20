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

package spressoutil

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spressosim/spresso"
	"github.com/tealeg/xlsx"
	"gonum.org/v1/gonum/mat"
)

// timeIndex resolves negative indices relative to the end of r.T.
func timeIndex(r *spresso.Result, ti int) (int, error) {
	if ti < 0 {
		ti += len(r.T)
	}
	if ti < 0 || ti >= len(r.T) {
		return 0, fmt.Errorf("spresso: time index out of range; the results hold %d times", len(r.T))
	}
	return ti, nil
}

// AnalyzeFile prints profile statistics for the results in resultFile at
// time index ti to w. If xlsxFile is not empty the statistics and the
// profiles are also written to it as a spreadsheet.
func AnalyzeFile(w io.Writer, resultFile string, ti int, xlsxFile string) error {
	r, err := readResult(resultFile)
	if err != nil {
		return err
	}
	if ti, err = timeIndex(r, ti); err != nil {
		return err
	}
	stats, err := spresso.Analyze(r, ti)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "t = %g s (%d of %d)\n", r.T[ti], ti+1, len(r.T))
	fmt.Fprintf(w, "%-12s %12s %12s %12s %12s %10s %12s\n",
		"species", "max [mM]", "at [mm]", "mean [mm]", "std [mm]", "skewness", "travel [mm]")
	for _, p := range stats {
		fmt.Fprintf(w, "%-12s %12.4g %12.4g %12.4g %12.4g %10.3g %12.4g\n",
			p.Species, p.Max, p.MaxLoc*1000, p.Mean*1000, p.Std*1000, p.Skewness, p.Travel*1000)
	}
	if xlsxFile == "" {
		return nil
	}
	f, err := os.Create(xlsxFile)
	if err != nil {
		return fmt.Errorf("spresso: creating spreadsheet: %v", err)
	}
	if err := WriteXLSX(f, r, ti, stats); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// MeritFile prints the figures of merit of a detection window of width
// winWidth centred at winPos for the analyte and impurity in the results in
// resultFile to w.
func MeritFile(w io.Writer, resultFile string, winPos, winWidth float64, analyte, impurity string) error {
	r, err := readResult(resultFile)
	if err != nil {
		return err
	}
	m, err := spresso.FigureOfMerit(r, winPos, winWidth, analyte, impurity)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "window %g ± %g mm: %s reaches it at t = %g s (%d of %d)\n",
		winPos*1000, winWidth*500, analyte, m.Time, m.TimeIndex+1, len(r.T))
	fmt.Fprintf(w, "%-8s %12s %12s %12s\n", "Limp*", "alpha", "beta", "gamma")
	fmt.Fprintf(w, "%-8.4g %12.4g %12.4g %12.4g\n", m.LImp, m.Alpha, m.Beta, m.Gamma)
	return nil
}

// WriteXLSX writes stats to a "statistics" sheet and the profiles at time
// index ti to a "profiles" sheet.
func WriteXLSX(w io.Writer, r *spresso.Result, ti int, stats []spresso.ProfileStats) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("statistics")
	if err != nil {
		return fmt.Errorf("spresso: writing spreadsheet: %v", err)
	}
	addStrings(sheet.AddRow(), "species", "time [s]", "max [mM]", "max location [m]",
		"mean [m]", "std [m]", "skewness", "travel [m]")
	for _, p := range stats {
		row := sheet.AddRow()
		row.AddCell().SetString(p.Species)
		addFloats(row, p.Time, p.Max, p.MaxLoc, p.Mean, p.Std, p.Skewness, p.Travel)
	}

	sheet, err = file.AddSheet("profiles")
	if err != nil {
		return fmt.Errorf("spresso: writing spreadsheet: %v", err)
	}
	names := r.Names()
	addStrings(sheet.AddRow(), append([]string{"x [m]", "pH"}, names...)...)
	c, ph := r.C[ti], spresso.PH(r.CH[ti])
	for i, x := range r.X {
		row := sheet.AddRow()
		addFloats(row, x, ph[i])
		addFloats(row, mat.Col(nil, i, c)...)
	}
	return file.Write(w)
}

func addStrings(row *xlsx.Row, s ...string) {
	for _, v := range s {
		row.AddCell().SetString(v)
	}
}

// addFloats adds a cell for each value, leaving non-finite values blank.
func addFloats(row *xlsx.Row, v ...float64) {
	for _, f := range v {
		cell := row.AddCell()
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			cell.SetFloat(f)
		}
	}
}

// PlotFile plots the results in resultFile at time index ti to a PNG
// file at out.
func PlotFile(resultFile string, ti int, out string) error {
	r, err := readResult(resultFile)
	if err != nil {
		return err
	}
	if ti, err = timeIndex(r, ti); err != nil {
		return err
	}
	return writePlotFile(out, r, ti)
}

// SpaceTimePlotFile draws a map of quantity, a species name or "pH",
// over position and time from the results in resultFile to a PNG file at
// out.
func SpaceTimePlotFile(resultFile, quantity, out string) error {
	r, err := readResult(resultFile)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("spresso: creating plot file: %v", err)
	}
	if err := spresso.WriteSpaceTimePlot(f, r, quantity); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writePlotFile(path string, r *spresso.Result, ti int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("spresso: creating plot file: %v", err)
	}
	if err := spresso.WritePlot(f, r, ti); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
