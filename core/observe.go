package core

import (
	"context"
	"time"
)

// StepKind says what happened in a Step.
type StepKind string

const (
	// StepEvent: an event was triggered and a transition (or
	// redirection) was selected.
	StepEvent StepKind = "event"

	// StepUnmatched: an event was triggered but nothing handled
	// it.
	StepUnmatched StepKind = "unmatched"

	// StepExecute: an action line was executed.
	StepExecute StepKind = "execute"

	// StepAssign: the variable environment was replaced.
	StepAssign StepKind = "assign"

	// StepState: the current state changed.
	StepState StepKind = "state"

	// StepStopped: the machine's run loop returned.
	StepStopped StepKind = "stopped"
)

// Step is a record of something a Machine did.  Observers get one
// for every triggered event and every executed PendingAction.
type Step struct {
	Machine string    `json:"machine"`
	Chart   string    `json:"chart"`
	Depth   int       `json:"depth,omitempty"`
	Kind    StepKind  `json:"kind"`
	At      time.Time `json:"at"`

	// From is the current state when the step happened.
	From string `json:"from,omitempty"`

	// To is the target for StepEvent and StepState.
	To string `json:"to,omitempty"`

	Event string `json:"event,omitempty"`
	Line  string `json:"line,omitempty"`

	// Redirected is true when a StepEvent used a redirection.
	Redirected bool `json:"redirected,omitempty"`

	// Vars are the (portable) variables after a StepAssign or
	// StepStopped.
	Vars Variables `json:"vars,omitempty"`

	// Err is the error (if any) that stopped the machine.
	Err string `json:"err,omitempty"`
}

// Observer receives Steps.
//
// Observe is called synchronously from the machine's run loop, so it
// should be quick.
type Observer interface {
	Observe(ctx context.Context, s *Step)
}

// ObserverFunc makes a function an Observer.
type ObserverFunc func(ctx context.Context, s *Step)

func (f ObserverFunc) Observe(ctx context.Context, s *Step) {
	f(ctx, s)
}

// Observers fans Steps out to several Observers in order.
type Observers []Observer

func (os Observers) Observe(ctx context.Context, s *Step) {
	for _, o := range os {
		if o != nil {
			o.Observe(ctx, s)
		}
	}
}
