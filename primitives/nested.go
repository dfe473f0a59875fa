package primitives

import (
	"context"

	"github.com/BenIlies/NoPASARAN-sub000/core"
)

// Nested primitives run other charts.
var Nested = []*core.Primitive{
	{
		Name:  "call",
		Arity: core.Arity{Inputs: 1, OptionalInputs: true, OptionalOutputs: true},
		Doc:   "runs a chart to completion and binds its returned values",
		F:     call,
	},
	{
		Name:  "return_values",
		Arity: core.Arity{OptionalInputs: true},
		Doc:   "names the variables returned to the caller",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			m.Returned = append([]string(nil), inputs...)
			return nil
		},
	},
	{
		Name:  "get_parameters",
		Arity: core.Arity{OptionalOutputs: true},
		Doc:   "binds the caller's parameters positionally",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			for i, name := range outputs {
				if len(m.Parameters) <= i {
					return &core.IndexError{What: "parameters", Index: i, Len: len(m.Parameters)}
				}
				m.Set(name, m.Parameters[i])
			}
			return nil
		},
	},
}

// call runs call(chart params...)(outputs...).
//
// The first input is the chart's name.  The rest are variables whose
// values become the child's parameters (unbound variables give nil).
// After the child finishes, the value of each of its returned names
// is bound to the corresponding output.
func call(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
	if len(inputs) == 0 {
		return &core.InvalidCommandError{Line: "call", Problem: "no chart name"}
	}

	params := make([]interface{}, 0, len(inputs)-1)
	for _, name := range inputs[1:] {
		x, _ := m.Get(name)
		params = append(params, x)
	}

	child, err := m.Call(ctx, inputs[0], params)
	if err != nil {
		return err
	}

	for i, name := range child.Returned {
		if len(outputs) <= i {
			return &core.IndexError{What: "call outputs", Index: i, Len: len(outputs)}
		}
		x, _ := child.Get(name)
		m.Set(outputs[i], x)
	}

	return nil
}
