/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tools

import (
	"sort"

	"github.com/BenIlies/NoPASARAN-sub000/core"
)

// ChartAnalysis summarizes a chart and lists its likely problems.
type ChartAnalysis struct {
	Errors      []string
	StateCount  int
	Transitions int
	Conditions  int
	Actions     int

	// TerminalStates handle no events.
	TerminalStates []string

	// Unreachable states can't be reached from the initial state.
	Unreachable []string

	// Events are the handled event names.
	Events []string

	// Primitives are the names used by action and condition lines.
	Primitives []string

	// Unknown are primitive names the registry doesn't have.
	Unknown []string
}

// Analyze looks at a chart.  If reg is nil, primitive names aren't
// checked.
func Analyze(c *core.Chart, reg *core.Registry) (*ChartAnalysis, error) {
	a := ChartAnalysis{
		StateCount: len(c.States),
		Errors:     make([]string, 0, 8),
	}

	var (
		terminal   = make([]string, 0, len(c.States))
		events     = make(map[string]bool)
		primitives = make(map[string]bool)
		unknown    = make(map[string]bool)
	)

	check := func(line string, condition bool) {
		cmd, err := core.ParseCommand(line)
		if err != nil {
			a.Errors = append(a.Errors, err.Error())
			return
		}
		primitives[cmd.Name] = true
		if reg == nil {
			return
		}
		if condition {
			if reg.FindCondition(cmd.Name) == nil {
				unknown[cmd.Name] = true
			}
		} else if reg.Find(cmd.Name) == nil {
			unknown[cmd.Name] = true
		}
	}

	for _, name := range c.AllStateNames() {
		s := c.States[name]
		for _, line := range s.Entry {
			a.Actions++
			check(line, false)
		}
		for _, line := range s.Exit {
			a.Actions++
			check(line, false)
		}
		if len(s.On) == 0 {
			terminal = append(terminal, name)
		}
		for event, cs := range s.On {
			events[event] = true
			for _, t := range cs {
				a.Transitions++
				if t.Cond != "" {
					a.Conditions++
					check(t.Cond, true)
				}
				for _, line := range t.Actions {
					check(line, false)
				}
			}
		}
	}

	a.TerminalStates = terminal
	a.Unreachable = unreachable(c)
	a.Events = keys(events)
	a.Primitives = keys(primitives)
	a.Unknown = keys(unknown)

	return &a, nil
}

// unreachable walks transitions from the initial state.
//
// Redirections are registered at run time, so a state that's only a
// redirection target shows up here.
func unreachable(c *core.Chart) []string {
	seen := map[string]bool{c.Initial: true}
	pending := []string{c.Initial}
	for 0 < len(pending) {
		name := pending[0]
		pending = pending[1:]
		s, have := c.States[name]
		if !have {
			continue
		}
		for _, cs := range s.On {
			for _, t := range cs {
				if !seen[t.Target] {
					seen[t.Target] = true
					pending = append(pending, t.Target)
				}
			}
		}
	}

	var acc []string
	for _, name := range c.AllStateNames() {
		if !seen[name] {
			acc = append(acc, name)
		}
	}
	return acc
}

func keys(m map[string]bool) []string {
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}
