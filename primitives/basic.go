package primitives

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/BenIlies/NoPASARAN-sub000/core"

	"github.com/sirupsen/logrus"
)

// Basic primitives work on events, variables, and redirections.
var Basic = []*core.Primitive{
	{
		Name: "done",
		Doc:  "triggers DONE",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			return m.TriggerEvent(ctx, core.EventDone)
		},
	},
	{
		Name:  "trigger",
		Arity: core.Arity{Inputs: 1},
		Doc:   "triggers the given event",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			return m.TriggerEvent(ctx, inputs[0])
		},
	},
	{
		Name:  "set",
		Arity: core.Arity{Inputs: 1, Outputs: 1},
		Doc:   "binds a string literal",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			m.Set(outputs[0], inputs[0])
			return nil
		},
	},
	{
		Name:  "set_number",
		Arity: core.Arity{Inputs: 1, Outputs: 1},
		Doc:   "binds a numeric literal",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			n, err := parseNumber(inputs[0])
			if err != nil {
				return err
			}
			m.Set(outputs[0], n)
			return nil
		},
	},
	{
		Name:  "set_bool",
		Arity: core.Arity{Inputs: 1, Outputs: 1},
		Doc:   "binds a boolean literal",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			b, err := strconv.ParseBool(inputs[0])
			if err != nil {
				return fmt.Errorf(`"%s" isn't a boolean`, inputs[0])
			}
			m.Set(outputs[0], b)
			return nil
		},
	},
	{
		Name:  "copy",
		Arity: core.Arity{Inputs: 1, Outputs: 1},
		Doc:   "copies a variable",
		F:     copyVar,
	},
	{
		Name:  "assign",
		Arity: core.Arity{Inputs: 1, Outputs: 1},
		Doc:   "copies a variable (as an action)",
		F:     copyVar,
	},
	{
		Name:  "unset",
		Arity: core.Arity{OptionalInputs: true},
		Doc:   "removes variables",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			m.Vars.Remove(inputs...)
			return nil
		},
	},
	{
		Name:  "print",
		Arity: core.Arity{OptionalInputs: true},
		Doc:   "logs variables",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			fs := make(logrus.Fields, len(inputs))
			for _, name := range inputs {
				x, have := m.Get(name)
				if !have {
					x = "<unbound>"
				}
				fs["var."+name] = x
			}
			m.Logger().WithFields(fs).Info("print")
			return nil
		},
	},
	{
		Name:  "increment",
		Arity: core.Arity{Inputs: 1},
		Doc:   "adds one to a numeric variable (which starts at zero)",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			x, have := m.Get(inputs[0])
			if !have {
				m.Set(inputs[0], 1)
				return nil
			}
			switch vv := x.(type) {
			case int:
				m.Set(inputs[0], vv+1)
			case float64:
				m.Set(inputs[0], vv+1)
			default:
				return fmt.Errorf(`"%s" (%T) isn't a number`, inputs[0], x)
			}
			return nil
		},
	},
	{
		Name:  "append",
		Arity: core.Arity{Inputs: 2},
		Doc:   "appends a variable's value to a list variable",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			x, err := lookup(m, inputs[1])
			if err != nil {
				return err
			}
			var list []interface{}
			if current, have := m.Get(inputs[0]); have {
				var is bool
				if list, is = current.([]interface{}); !is {
					return fmt.Errorf(`"%s" (%T) isn't a list`, inputs[0], current)
				}
			}
			// Always a fresh slice: other variables might share the
			// old one.
			acc := make([]interface{}, len(list), len(list)+1)
			copy(acc, list)
			m.Set(inputs[0], append(acc, x))
			return nil
		},
	},
	{
		Name:  "sleep",
		Arity: core.Arity{Inputs: 1},
		Doc:   "blocks for a number of seconds",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			d, err := timeout(m, inputs[0])
			if err != nil {
				return err
			}
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	},
	{
		Name:  "redirect",
		Arity: core.Arity{Inputs: 2},
		Doc:   "sends an event that isn't otherwise handled to a state",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			return m.Redirect(inputs[0], inputs[1])
		},
	},
}

func copyVar(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
	x, err := lookup(m, inputs[0])
	if err != nil {
		return err
	}
	m.Set(outputs[0], x)
	return nil
}
