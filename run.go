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
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// StepHook is called after each accepted step.
type StepHook func(s *Simulation) error

// Run advances s to its end time, calling hooks after each step. It
// returns ctx.Err() if ctx is cancelled first.
func (s *Simulation) Run(ctx context.Context, hooks ...StepHook) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		cont, err := s.SimulateStep()
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		for _, h := range hooks {
			if err := h(s); err != nil {
				return err
			}
		}
	}
}

// Log returns a hook that writes a status line to w every n steps.
func Log(w io.Writer, n int) StepHook {
	startTime := time.Now()
	stepTime := time.Now()
	return func(s *Simulation) error {
		st := s.Stats()
		if n > 1 && st.Accepted%n != 0 && !s.Done() {
			return nil
		}
		fmt.Fprintf(w, "Step %-5d  walltime=%6.3gs  Δwalltime=%4.2gs  "+
			"t=%.4gs  dt=%.3gs  rejected=%d\n",
			st.Accepted, time.Since(startTime).Seconds(),
			time.Since(stepTime).Seconds(), s.State.T, st.LastStep, st.Rejected)
		stepTime = time.Now()
		return nil
	}
}

// LogFields returns a hook that logs progress to log every n steps.
func LogFields(log logrus.FieldLogger, n int) StepHook {
	startTime := time.Now()
	return func(s *Simulation) error {
		st := s.Stats()
		if n > 1 && st.Accepted%n != 0 && !s.Done() {
			return nil
		}
		log.WithFields(logrus.Fields{
			"step":        st.Accepted,
			"rejected":    st.Rejected,
			"t":           s.State.T,
			"dt":          st.LastStep,
			"evaluations": st.Evaluations,
			"walltime":    time.Since(startTime).Seconds(),
		}).Info("spresso: step")
		return nil
	}
}

// MassBalanceCheck returns a hook that fails when the total amount of any
// species differs from its initial amount by more than tolerance
// (relative). Amounts are only conserved to within the integration
// tolerance, so tolerance should be set accordingly.
func MassBalanceCheck(tolerance float64) StepHook {
	var initial []float64
	return func(s *Simulation) error {
		if initial == nil {
			initial = s.History.States()[0].Mass(s.Grid)
		}
		names := s.Names()
		for i, m := range s.State.Mass(s.Grid) {
			if !checkConservation(m, initial[i], tolerance) {
				return fmt.Errorf("spresso: mass of %s changed from %g to %g mM m at t=%g s",
					names[i], initial[i], m, s.State.T)
			}
		}
		return nil
	}
}

// checkConservation reports whether newSum is within tolerance of oldSum.
func checkConservation(newSum, oldSum, tolerance float64) bool {
	if oldSum == newSum {
		return true
	}
	bias := (newSum - oldSum) / oldSum
	return math.Abs(bias) <= tolerance
}
