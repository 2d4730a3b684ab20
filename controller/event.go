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
	"fmt"

	"github.com/spressosim/spresso"
)

// State is the state of a Controller.
type State int32

// Controller states
const (
	Idle State = iota
	Initializing
	Ready
	Running
	Paused
	Finished
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Command names
const (
	CmdReset    = "reset"
	CmdStart    = "start"
	CmdPause    = "pause"
	CmdRetrieve = "retrieve"
)

// Command is a request to the controller. Input is only used by reset.
type Command struct {
	Msg   string         `json:"msg"`
	Input *spresso.Input `json:"input,omitempty"`
}

// EventType names an event.
type EventType string

// Event types
const (
	EventInit     EventType = "init"
	EventUpdate   EventType = "update"
	EventFinished EventType = "finished"
	EventData     EventType = "data"
	EventInvalid  EventType = "invalid"
	EventError    EventType = "error"
)

// Event is a message from the controller. Which fields are set depends
// on Type:
//
//	init      Backend
//	update    Snapshot
//	finished  Run
//	data      Run, Bundle
//	invalid   Fields, Error
//	error     Run, Error
type Event struct {
	Type     EventType         `json:"msg"`
	Run      string            `json:"run,omitempty"`
	Backend  string            `json:"backend,omitempty"`
	Snapshot *Snapshot         `json:"snapshot,omitempty"`
	Bundle   *spresso.Bundle   `json:"bundle,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Snapshot is the state of the running simulation after a burst of steps.
// Seq counts snapshots since the last reset. X and Species are only set
// on the first snapshot of a run.
type Snapshot struct {
	Run            string      `json:"run"`
	Seq            int         `json:"seq"`
	Time           float64     `json:"time"`
	Species        []string    `json:"species,omitempty"`
	X              []float64   `json:"x,omitempty"`
	Concentrations [][]float64 `json:"concentrations"`
	PH             []float64   `json:"pH"`
	Field          []float64   `json:"field,omitempty"`
}
