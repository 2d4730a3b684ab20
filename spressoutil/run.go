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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spressosim/spresso"
)

// Run runs the simulation described by in and writes the results to out.
// Progress is written to w and to logFile every in.AnimateRate steps.
// If massTolerance > 0, the run stops when the total amount of a species
// drifts by more than that relative amount.
func Run(ctx context.Context, w io.Writer, in *spresso.Input, out outputs, logFile string,
	policy spresso.MemoryPolicy, massTolerance float64) error {

	startTime := time.Now()

	logfile, err := os.Create(logFile)
	if err != nil {
		return fmt.Errorf("spresso: problem creating log file: %v", err)
	}
	defer logfile.Close()
	mw := io.MultiWriter(w, logfile)

	s, err := spresso.New(in, spresso.WithMemoryPolicy(policy))
	if err != nil {
		return err
	}
	fmt.Fprintf(mw, "Simulating %s for %g s on %d grid points (dt0=%.3g s)\n",
		strings.Join(s.Names(), ", "), in.SimTime, in.NumGrids, s.State.Dt)

	hooks := []spresso.StepHook{spresso.Log(mw, in.AnimateRate)}
	if massTolerance > 0 {
		hooks = append(hooks, spresso.MassBalanceCheck(massTolerance))
	}
	if err := s.Run(ctx, hooks...); err != nil {
		return err
	}
	st := s.Stats()
	fmt.Fprintf(mw, "Finished %d steps (%d rejected, %d evaluations) in %v\n",
		st.Accepted, st.Rejected, st.Evaluations, time.Since(startTime))

	if err := out.write(s.Result()); err != nil {
		return err
	}
	fmt.Fprintf(mw, "Wrote %s\n", out)
	return nil
}

func (o outputs) String() string {
	var files []string
	for _, f := range []string{o.Bundle, o.NetCDF, o.Plot} {
		if f != "" {
			files = append(files, f)
		}
	}
	return strings.Join(files, ", ")
}

// write saves r to each of the output files.
func (o outputs) write(r *spresso.Result) error {
	if o.Bundle != "" {
		f, err := os.Create(o.Bundle)
		if err != nil {
			return fmt.Errorf("spresso: creating output file: %v", err)
		}
		if err := spresso.WriteBundle(f, r); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if o.NetCDF != "" {
		f, err := os.Create(o.NetCDF)
		if err != nil {
			return fmt.Errorf("spresso: creating NetCDF file: %v", err)
		}
		if err := spresso.WriteNetCDF(f, r); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if o.Plot != "" {
		if err := writePlotFile(o.Plot, r, len(r.T)-1); err != nil {
			return err
		}
	}
	return nil
}

// readResult reads a NetCDF file if path ends in ".nc" and a JSON bundle
// otherwise.
func readResult(path string) (*spresso.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("spresso: opening results: %v", err)
	}
	defer f.Close()
	if strings.ToLower(filepath.Ext(path)) == ".nc" {
		return spresso.ReadNetCDF(f)
	}
	return spresso.ReadBundle(f)
}
