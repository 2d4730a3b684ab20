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

package controller

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spressosim/spresso"
)

// Metrics holds the prometheus collectors updated by controllers. One
// Metrics value may be shared by any number of controllers.
type Metrics struct {
	Steps    *prometheus.CounterVec // by result: accepted, rejected
	Evals    prometheus.Counter
	EqIters  prometheus.Counter
	Bursts   prometheus.Histogram
	Commands *prometheus.CounterVec // by command
	Failures prometheus.Counter
	Invalid  prometheus.Counter
	SimTime  prometheus.Gauge
	Timestep prometheus.Gauge
}

// NewMetrics creates the controller collectors and registers them with
// reg, if reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spresso",
			Name:      "steps_total",
			Help:      "Integration steps by result.",
		}, []string{"result"}),
		Evals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spresso",
			Name:      "rhs_evaluations_total",
			Help:      "Transport right hand side evaluations.",
		}),
		EqIters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spresso",
			Name:      "equilibrium_iterations_total",
			Help:      "Newton iterations of the equilibrium solver, summed over grid points.",
		}),
		Bursts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "spresso",
			Name:      "burst_duration_seconds",
			Help:      "Wall time of one burst of integration steps.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spresso",
			Name:      "commands_total",
			Help:      "Commands received by controllers.",
		}, []string{"command"}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spresso",
			Name:      "failures_total",
			Help:      "Runs halted by a numerical failure.",
		}),
		SimTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spresso",
			Name:      "simulation_time_seconds",
			Help:      "Simulated time of the most recently advanced run.",
		}),
		Timestep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spresso",
			Name:      "timestep_seconds",
			Help:      "Last accepted step size.",
		}),
		Invalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spresso",
			Name:      "invalid_inputs_total",
			Help:      "Reset commands rejected for invalid input.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Steps, m.Evals, m.EqIters, m.Bursts, m.Commands,
			m.Failures, m.Invalid, m.SimTime, m.Timestep)
	}
	return m
}

// burst records the work done between integrator statistics before and
// after.
func (m *Metrics) burst(before, after spresso.Statistics, t float64, d time.Duration) {
	if m == nil {
		return
	}
	m.Steps.WithLabelValues("accepted").Add(float64(after.Accepted - before.Accepted))
	m.Steps.WithLabelValues("rejected").Add(float64(after.Rejected - before.Rejected))
	m.Evals.Add(float64(after.Evaluations - before.Evaluations))
	m.EqIters.Add(float64(after.EquilibriumIterations - before.EquilibriumIterations))
	m.Bursts.Observe(d.Seconds())
	m.SimTime.Set(t)
	m.Timestep.Set(after.LastStep)
}

func (m *Metrics) command(name string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(name).Inc()
}

func (m *Metrics) failure() {
	if m == nil {
		return
	}
	m.Failures.Inc()
}

func (m *Metrics) invalid() {
	if m == nil {
		return
	}
	m.Invalid.Inc()
}
