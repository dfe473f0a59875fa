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

package core

import (
	"encoding/json"
	"sort"

	"gopkg.in/yaml.v2"
)

// Chart is the static definition of a test script: its states, their
// entry and exit actions, and their event-triggered transitions.
//
// A Chart is read-only once loaded.  Every Machine built from it,
// including nested ones, shares the same Chart.
type Chart struct {
	// Id names the chart.  Machine ids are derived from it.
	Id string `json:"id" yaml:"id"`

	// Doc is optional Markdown documentation.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Initial is the name of the state a Machine starts in.
	Initial string `json:"initial" yaml:"initial"`

	// States is the structure of the chart.
	States map[string]*StateDef `json:"states" yaml:"states"`
}

// StateDef represents one state of a chart.
type StateDef struct {
	Doc   string `json:"doc,omitempty" yaml:"doc,omitempty"`
	Entry Lines  `json:"entry,omitempty" yaml:"entry,omitempty"`
	Exit  Lines  `json:"exit,omitempty" yaml:"exit,omitempty"`

	// On maps an event name to its transition candidates, which
	// are considered in order.
	On map[string][]*TransitionCandidate `json:"on,omitempty" yaml:"on,omitempty"`
}

// TransitionCandidate is one possible transition for an event.
type TransitionCandidate struct {
	// Target is the name of the next state.
	Target string `json:"target" yaml:"target"`

	// Cond is an optional condition line.  An empty Cond is
	// always true.
	Cond string `json:"cond,omitempty" yaml:"cond,omitempty"`

	// Actions are assign lines ("assign(src)(dst)") that build
	// the environment of the next state.
	Actions Lines `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// Lines is a sequence of action lines.  In chart data a single string
// is accepted as a one-element sequence.
type Lines []string

func (ls *Lines) UnmarshalJSON(js []byte) error {
	var s string
	if err := json.Unmarshal(js, &s); err == nil {
		*ls = Lines{s}
		return nil
	}
	var ss []string
	if err := json.Unmarshal(js, &ss); err != nil {
		return &MalformedChartError{Problem: "actions must be a string or a list of strings"}
	}
	*ls = ss
	return nil
}

func (ls *Lines) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		*ls = Lines{s}
		return nil
	}
	var ss []string
	if err := unmarshal(&ss); err != nil {
		return &MalformedChartError{Problem: "actions must be a string or a list of strings"}
	}
	*ls = ss
	return nil
}

// ParseChart reads a chart from its JSON representation.
//
// The chart is validated before it's returned.
func ParseChart(js []byte) (*Chart, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(js, &raw); err != nil {
		return nil, &MalformedChartError{Problem: err.Error()}
	}
	for _, p := range []string{"id", "initial", "states"} {
		if _, have := raw[p]; !have {
			return nil, &MalformedChartError{Problem: `missing "` + p + `"`}
		}
	}

	var c Chart
	if err := json.Unmarshal(js, &c); err != nil {
		if mce, is := err.(*MalformedChartError); is {
			return nil, mce
		}
		return nil, &MalformedChartError{Problem: err.Error()}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// ParseChartYAML reads a chart written in YAML.  The structure is the
// same as for JSON.
//
// The YAML is decoded straight into a Chart so that keys keep their
// text.  Going through interface{} would turn "on" into true.
func ParseChartYAML(bs []byte) (*Chart, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(bs, &raw); err != nil {
		return nil, &MalformedChartError{Problem: err.Error()}
	}
	for _, p := range []string{"id", "initial", "states"} {
		if _, have := raw[p]; !have {
			return nil, &MalformedChartError{Problem: `missing "` + p + `"`}
		}
	}

	var c Chart
	if err := yaml.Unmarshal(bs, &c); err != nil {
		if mce, is := err.(*MalformedChartError); is {
			return nil, mce
		}
		return nil, &MalformedChartError{Problem: err.Error()}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Validate checks that the initial state and all transition targets
// exist.
func (c *Chart) Validate() error {
	if c.Id == "" {
		return &MalformedChartError{Problem: `empty "id"`}
	}
	if c.States == nil {
		return &MalformedChartError{ChartId: c.Id, Problem: `missing "states"`}
	}
	if _, have := c.States[c.Initial]; !have {
		return &MalformedChartError{ChartId: c.Id, Problem: `initial state "` + c.Initial + `" not defined`}
	}
	for name, s := range c.States {
		if s == nil {
			c.States[name] = &StateDef{}
			continue
		}
		for event, cs := range s.On {
			for _, candidate := range cs {
				if candidate == nil {
					return &MalformedChartError{ChartId: c.Id, Problem: `null transition for "` + event + `" in "` + name + `"`}
				}
				if _, have := c.States[candidate.Target]; !have {
					return &MalformedChartError{
						ChartId: c.Id,
						Problem: `state "` + name + `" event "` + event + `" targets unknown state "` + candidate.Target + `"`,
					}
				}
			}
		}
	}
	return nil
}

// InitialState returns the name of the initial state.
func (c *Chart) InitialState() string {
	return c.Initial
}

// HasState reports whether the chart defines the named state.
func (c *Chart) HasState(name string) bool {
	_, have := c.States[name]
	return have
}

// EntryActions returns the state's entry lines (nil if none).
func (c *Chart) EntryActions(state string) []string {
	if s, have := c.States[state]; have && 0 < len(s.Entry) {
		return s.Entry
	}
	return nil
}

// ExitActions returns the state's exit lines (nil if none).
func (c *Chart) ExitActions(state string) []string {
	if s, have := c.States[state]; have && 0 < len(s.Exit) {
		return s.Exit
	}
	return nil
}

// TransitionsFor returns the candidates for the event in the given
// state, or nil if the state doesn't handle the event.
func (c *Chart) TransitionsFor(state, event string) []*TransitionCandidate {
	s, have := c.States[state]
	if !have || s.On == nil {
		return nil
	}
	cs, have := s.On[event]
	if !have {
		return nil
	}
	return cs
}

// AllStateNames returns the sorted names of all states.
func (c *Chart) AllStateNames() []string {
	acc := make([]string, 0, len(c.States))
	for name := range c.States {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// Events returns the sorted names of the events handled by the state.
func (s *StateDef) Events() []string {
	acc := make([]string, 0, len(s.On))
	for event := range s.On {
		acc = append(acc, event)
	}
	sort.Strings(acc)
	return acc
}

// Condition returns the condition line, which is empty when the
// candidate is unconditional.
func (t *TransitionCandidate) Condition() string {
	return t.Cond
}

// TargetState returns the name of the target state.
func (t *TransitionCandidate) TargetState() string {
	return t.Target
}

// AssignActions returns the assign lines (nil if none).
func (t *TransitionCandidate) AssignActions() []string {
	if len(t.Actions) == 0 {
		return nil
	}
	return t.Actions
}

// Copy makes a deep copy of the Chart.
func (c *Chart) Copy() *Chart {
	ss := make(map[string]*StateDef, len(c.States))
	for name, s := range c.States {
		ss[name] = s.Copy()
	}
	return &Chart{
		Id:      c.Id,
		Doc:     c.Doc,
		Initial: c.Initial,
		States:  ss,
	}
}

// Copy makes a deep copy of the StateDef.
func (s *StateDef) Copy() *StateDef {
	if s == nil {
		return nil
	}
	var on map[string][]*TransitionCandidate
	if s.On != nil {
		on = make(map[string][]*TransitionCandidate, len(s.On))
	}
	for event, cs := range s.On {
		acc := make([]*TransitionCandidate, len(cs))
		for i, t := range cs {
			acc[i] = &TransitionCandidate{
				Target:  t.Target,
				Cond:    t.Cond,
				Actions: append(Lines(nil), t.Actions...),
			}
		}
		on[event] = acc
	}
	return &StateDef{
		Doc:   s.Doc,
		Entry: append(Lines(nil), s.Entry...),
		Exit:  append(Lines(nil), s.Exit...),
		On:    on,
	}
}
