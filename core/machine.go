/* Copyright 2019 Comcast Cable Communications Management, LLC
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
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Standard events.
const (
	EventStarted         = "STARTED"
	EventDone            = "DONE"
	EventReady           = "READY"
	EventTimeout         = "TIMEOUT"
	EventSyncSent        = "SYNC_SENT"
	EventSyncAvailable   = "SYNC_AVAILABLE"
	EventDisconnected    = "DISCONNECTED"
	EventPacketAvailable = "PACKET_AVAILABLE"
	EventCron            = "CRON"
)

// Env is the gear shared by a top-level Machine and all of the
// machines it spawns.
type Env struct {
	// Registry resolves action and condition lines.
	Registry *Registry

	// Charts resolves chart names for nested calls.
	Charts ChartProvider

	// Observer (optional) sees every Step.
	Observer Observer

	// Logger defaults to logrus.StandardLogger().
	Logger *logrus.Logger

	// Verbose turns on per-action debug logging.
	Verbose bool
}

// Machine is one running execution of a Chart.
//
// A Machine's variables, state, and queue are only touched by the
// goroutine that runs it.  Nested machines run synchronously on their
// parent's goroutine.
type Machine struct {
	// Id is the chart id plus a random suffix.
	Id string

	Chart *Chart

	// State is the name of the current state.
	State string

	// Vars is the variable environment.  A transition with assign
	// actions replaces it.
	Vars Variables

	// Parameters are given by the caller of a nested machine.
	Parameters []interface{}

	// Returned holds the names of the variables this machine
	// returns to its caller.
	Returned []string

	// Redirections maps an event to a fallback state.
	Redirections map[string]string

	Queue *Queue

	env   *Env
	root  *Machine
	depth int

	// handles is only used on the root.
	handles sync.Map
}

// NewMachine makes a top-level Machine at the chart's initial state.
func NewMachine(chart *Chart, env *Env, vars Variables) *Machine {
	if env == nil {
		env = &Env{}
	}
	if env.Registry == nil {
		env.Registry = NewRegistry()
	}
	if env.Logger == nil {
		env.Logger = logrus.StandardLogger()
	}
	if vars == nil {
		vars = NewVariables()
	}
	m := &Machine{
		Id:           chart.Id + "-" + Gensym(8),
		Chart:        chart,
		State:        chart.InitialState(),
		Vars:         vars,
		Redirections: make(map[string]string),
		Queue:        NewQueue(),
		env:          env,
	}
	m.root = m
	return m
}

// Spawn makes a child Machine for the given chart.  The child shares
// this machine's root and Env.
//
// The child isn't started.
func (m *Machine) Spawn(chart *Chart, params []interface{}) *Machine {
	return &Machine{
		Id:           chart.Id + "-" + Gensym(8),
		Chart:        chart,
		State:        chart.InitialState(),
		Vars:         NewVariables(),
		Parameters:   params,
		Redirections: make(map[string]string),
		Queue:        NewQueue(),
		env:          m.env,
		root:         m.root,
		depth:        m.depth + 1,
	}
}

// Call finds the named chart, spawns a child with the given
// parameters, and runs it to completion.
func (m *Machine) Call(ctx context.Context, chartName string, params []interface{}) (*Machine, error) {
	if m.env.Charts == nil {
		return nil, NoChartProvider
	}
	chart, err := m.env.Charts.FindChart(ctx, chartName)
	if err != nil {
		return nil, errors.Wrapf(err, "call %s", chartName)
	}
	child := m.Spawn(chart, params)
	m.logf("calling %s", child.Id)
	if err = child.Start(ctx); err != nil {
		return child, err
	}
	m.logf("returned from %s", child.Id)
	return child, nil
}

// Root returns the top-level machine.
func (m *Machine) Root() *Machine {
	return m.root
}

// Depth is zero for a top-level machine.
func (m *Machine) Depth() int {
	return m.depth
}

// Env returns the shared environment.
func (m *Machine) Env() *Env {
	return m.env
}

// SetHandle stores a value (a control link, a sniffer, ...) on the
// root, where every nested machine can find it.
func (m *Machine) SetHandle(key string, x interface{}) {
	m.root.handles.Store(key, x)
}

// Handle returns the value stored with SetHandle.
func (m *Machine) Handle(key string) (interface{}, bool) {
	return m.root.handles.Load(key)
}

// Get returns a variable's value.
func (m *Machine) Get(name string) (interface{}, bool) {
	x, have := m.Vars[name]
	return x, have
}

// Set binds a variable.
func (m *Machine) Set(name string, x interface{}) {
	m.Vars[name] = x
}

// Redirect registers a fallback state for an event.  The redirection
// lasts for the rest of the machine's life.
func (m *Machine) Redirect(event, state string) error {
	if !m.Chart.HasState(state) {
		return &UnknownStateError{ChartId: m.Chart.Id, State: state}
	}
	m.Redirections[event] = state
	return nil
}

// Start triggers STARTED and then runs until the queue is empty.
func (m *Machine) Start(ctx context.Context) error {
	err := m.TriggerEvent(ctx, EventStarted)
	if err == nil {
		err = m.Drain(ctx)
	}
	m.observe(ctx, &Step{
		Kind: StepStopped,
		From: m.State,
		Vars: m.Vars.Portable(),
		Err:  errString(err),
	})
	return err
}

// Drain executes pending actions until the queue is empty.
//
// Executing an action can trigger events, which enqueue more
// actions.  The first error stops the loop.
func (m *Machine) Drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		a := m.Queue.PopFront()
		if a == nil {
			return nil
		}
		if err := m.Execute(ctx, a); err != nil {
			return err
		}
	}
}

// Execute performs one PendingAction.
func (m *Machine) Execute(ctx context.Context, a *PendingAction) error {
	from := m.State
	switch a.Kind {
	case ExecuteAction:
		if m.env.Verbose {
			m.log().WithField("action", a.Line).Debug("execute")
		}
		if err := m.env.Registry.Dispatch(ctx, a.Line, m); err != nil {
			return err
		}
		m.observe(ctx, &Step{Kind: StepExecute, From: from, Line: a.Line})
	case AssignVariables:
		m.Vars = a.Vars
		m.observe(ctx, &Step{Kind: StepAssign, From: from, Vars: m.Vars.Portable()})
	case SetState:
		m.State = a.State
		m.observe(ctx, &Step{Kind: StepState, From: from, To: a.State})
	default:
		return errors.Errorf("unknown action kind %d", a.Kind)
	}
	return nil
}

// TriggerEvent selects a transition for the event and enqueues its
// effects.  Nothing is executed here.
//
// The first candidate whose condition holds in the current
// environment wins.  Its effects are: the current state's exit
// actions, an AssignVariables (only if the candidate has assign
// actions), a SetState, and the target's entry actions.
//
// If no candidate applies, a redirection for the event (if any) is
// used instead.  Otherwise the event is logged and ignored.
//
// Only a broken condition returns an error.
func (m *Machine) TriggerEvent(ctx context.Context, event string) error {
	for _, c := range m.Chart.TransitionsFor(m.State, event) {
		if cond := c.Condition(); cond != "" {
			ok, err := m.env.Registry.Evaluate(ctx, cond, m)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}

		var assign *PendingAction
		if lines := c.AssignActions(); lines != nil {
			vs, err := m.assigned(lines)
			if err != nil {
				return err
			}
			assign = Assign(vs)
		}
		m.transition(ctx, event, c.TargetState(), assign, false)
		return nil
	}

	if target, have := m.Redirections[event]; have {
		m.transition(ctx, event, target, nil, true)
		return nil
	}

	m.log().WithField("event", event).Warn("no matching transition")
	m.observe(ctx, &Step{Kind: StepUnmatched, From: m.State, Event: event})

	return nil
}

func (m *Machine) transition(ctx context.Context, event, target string, assign *PendingAction, redirected bool) {
	m.observe(ctx, &Step{
		Kind:       StepEvent,
		From:       m.State,
		To:         target,
		Event:      event,
		Redirected: redirected,
	})

	for _, line := range m.Chart.ExitActions(m.State) {
		m.Queue.Append(Execute(line))
	}
	if assign != nil {
		m.Queue.Append(assign)
	}
	m.Queue.Append(GoTo(target))
	for _, line := range m.Chart.EntryActions(target) {
		m.Queue.Append(Execute(line))
	}
}

// assigned builds a new environment from the current one.  Only the
// names bound by the assign lines survive.
func (m *Machine) assigned(lines []string) (Variables, error) {
	vs := NewVariables()
	for _, line := range lines {
		c, err := ParseCommand(line)
		if err != nil {
			return nil, err
		}
		if c.Name != "assign" {
			return nil, &InvalidCommandError{Line: line, Problem: `transition actions must be "assign"`}
		}
		inputs, outputs, err := c.Bind(Arity{Inputs: 1, Outputs: 1})
		if err != nil {
			return nil, err
		}
		vs[outputs[0]] = m.Vars[inputs[0]]
	}
	return vs, nil
}

func (m *Machine) observe(ctx context.Context, s *Step) {
	if m.env.Observer == nil {
		return
	}
	s.Machine = m.Id
	s.Chart = m.Chart.Id
	s.Depth = m.depth
	if s.At.IsZero() {
		s.At = time.Now().UTC()
	}
	m.env.Observer.Observe(ctx, s)
}

func (m *Machine) log() *logrus.Entry {
	return m.env.Logger.WithFields(logrus.Fields{
		"machine": m.Id,
		"state":   m.State,
	})
}

// logf logs at debug level if Verbose.
func (m *Machine) logf(format string, args ...interface{}) {
	if !m.env.Verbose {
		return
	}
	m.log().Debugf(format, args...)
}

// Logger gives primitives a logger that carries this machine's
// fields.
func (m *Machine) Logger() *logrus.Entry {
	return m.log()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
