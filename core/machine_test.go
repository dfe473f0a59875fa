package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRegistry has just enough primitives to drive machines.
func testRegistry() *Registry {
	r := NewRegistry()
	r.Add(
		&Primitive{
			Name: "done",
			F: func(ctx context.Context, inputs, outputs []string, m *Machine) error {
				return m.TriggerEvent(ctx, EventDone)
			},
		},
		&Primitive{
			Name:  "trigger",
			Arity: Arity{Inputs: 1},
			F: func(ctx context.Context, inputs, outputs []string, m *Machine) error {
				return m.TriggerEvent(ctx, inputs[0])
			},
		},
		&Primitive{
			Name:  "set",
			Arity: Arity{Inputs: 1, Outputs: 1},
			F: func(ctx context.Context, inputs, outputs []string, m *Machine) error {
				m.Set(outputs[0], inputs[0])
				return nil
			},
		},
		&Primitive{
			Name:  "redirect",
			Arity: Arity{Inputs: 2},
			F: func(ctx context.Context, inputs, outputs []string, m *Machine) error {
				return m.Redirect(inputs[0], inputs[1])
			},
		},
		&Primitive{
			Name:  "fail",
			Arity: Arity{},
			F: func(ctx context.Context, inputs, outputs []string, m *Machine) error {
				return io.ErrUnexpectedEOF
			},
		},
		&Primitive{
			Name:  "return_values",
			Arity: Arity{OptionalInputs: true},
			F: func(ctx context.Context, inputs, outputs []string, m *Machine) error {
				m.Returned = inputs
				return nil
			},
		},
		&Primitive{
			Name:  "get_parameters",
			Arity: Arity{OptionalOutputs: true},
			F: func(ctx context.Context, inputs, outputs []string, m *Machine) error {
				for i, name := range outputs {
					if len(m.Parameters) <= i {
						return &IndexError{What: "parameters", Index: i, Len: len(m.Parameters)}
					}
					m.Set(name, m.Parameters[i])
				}
				return nil
			},
		},
	)
	r.AddCondition(&Condition{
		Name:   "equal",
		Inputs: 2,
		F: func(ctx context.Context, inputs []string, m *Machine) (bool, error) {
			x, _ := m.Get(inputs[0])
			y, _ := m.Get(inputs[1])
			return fmt.Sprint(x) == fmt.Sprint(y), nil
		},
	})
	return r
}

type stepLog struct {
	steps []Step
}

func (l *stepLog) Observe(ctx context.Context, s *Step) {
	l.steps = append(l.steps, *s)
}

// trace renders the steps without times or machine ids.
func (l *stepLog) trace() []string {
	acc := make([]string, 0, len(l.steps))
	for _, s := range l.steps {
		acc = append(acc, fmt.Sprintf("%d %s %s %s %s %s %v", s.Depth, s.Kind, s.From, s.To, s.Event, s.Line, s.Redirected))
	}
	return acc
}

func (l *stepLog) events(kind StepKind) []string {
	var acc []string
	for _, s := range l.steps {
		if s.Kind == kind {
			acc = append(acc, s.Event)
		}
	}
	return acc
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func newTestMachine(t *testing.T, src string, vars Variables, charts ChartProvider) (*Machine, *stepLog) {
	c, err := ParseChartBytes([]byte(src))
	require.NoError(t, err)
	l := &stepLog{}
	env := &Env{
		Registry: testRegistry(),
		Charts:   charts,
		Observer: l,
		Logger:   quietLogger(),
	}
	return NewMachine(c, env, vars), l
}

func TestMachineSimpleTransition(t *testing.T) {
	m, l := newTestMachine(t, `{
  "id": "simple",
  "initial": "A",
  "states": {
    "A": {"on": {"GO": [{"target": "B"}]}},
    "B": {"entry": ["done()"]}
  }
}`, nil, nil)

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	assert.Equal(t, "A", m.State)

	require.NoError(t, m.TriggerEvent(ctx, "GO"))
	assert.Equal(t, "A", m.State, "TriggerEvent only enqueues")
	assert.Equal(t, 2, m.Queue.Len())

	require.NoError(t, m.Drain(ctx))
	assert.Equal(t, "B", m.State)
	assert.Equal(t, 0, m.Queue.Len())

	assert.Equal(t, []string{"GO"}, l.events(StepEvent))
	assert.Equal(t, []string{"STARTED", "DONE"}, l.events(StepUnmatched))
}

func TestMachineActionOrder(t *testing.T) {
	m, _ := newTestMachine(t, `{
  "id": "order",
  "initial": "A",
  "states": {
    "A": {
      "exit": ["set(1)(x)", "set(2)(y)"],
      "on": {"GO": [{"target": "B", "actions": ["assign(x)(z)"]}]}
    },
    "B": {"entry": ["set(3)(w)"]}
  }
}`, nil, nil)

	ctx := context.Background()
	require.NoError(t, m.TriggerEvent(ctx, "GO"))

	var kinds []string
	for _, a := range m.Queue.Pending() {
		kinds = append(kinds, a.String())
	}
	assert.Equal(t, []string{
		"execute set(1)(x)",
		"execute set(2)(y)",
		"assign",
		"state B",
		"execute set(3)(w)",
	}, kinds)
}

func TestMachineRedirect(t *testing.T) {
	m, l := newTestMachine(t, `{
  "id": "redirect",
  "initial": "A",
  "states": {
    "A": {
      "entry": ["redirect(TIMEOUT Failed)"],
      "on": {"STARTED": [{"target": "B"}]}
    },
    "B": {
      "on": {"TIMEOUT": [{"target": "C", "cond": "equal(x y)"}]}
    },
    "C": {},
    "Failed": {"entry": "set(yes)(failed)"}
  }
}`, Variables{"x": "1", "y": "2"}, nil)

	ctx := context.Background()

	// The entry actions of the initial state aren't run by Start.
	require.NoError(t, m.Execute(ctx, Execute("redirect(TIMEOUT Failed)")))
	require.NoError(t, m.Start(ctx))
	assert.Equal(t, "B", m.State)

	// B handles TIMEOUT, but the condition doesn't hold.
	require.NoError(t, m.TriggerEvent(ctx, EventTimeout))
	require.NoError(t, m.Drain(ctx))
	assert.Equal(t, "Failed", m.State)
	assert.Equal(t, "yes", m.Vars["failed"])

	last := l.steps[0]
	for _, s := range l.steps {
		if s.Kind == StepEvent {
			last = s
		}
	}
	assert.True(t, last.Redirected)
	assert.Equal(t, "Failed", last.To)
}

func TestMachineRedirectUnknownState(t *testing.T) {
	m, _ := newTestMachine(t, `{"id":"x","initial":"A","states":{"A":{}}}`, nil, nil)
	err := m.Redirect("E", "Nowhere")
	var use *UnknownStateError
	require.True(t, errors.As(err, &use))
	assert.Equal(t, "Nowhere", use.State)
}

func TestMachineUnmatchedEvent(t *testing.T) {
	m, l := newTestMachine(t, `{"id":"x","initial":"A","states":{"A":{"on":{"GO":[{"target":"A"}]}}}}`,
		Variables{"x": 1}, nil)

	ctx := context.Background()
	require.NoError(t, m.TriggerEvent(ctx, "NOPE"))
	assert.Equal(t, "A", m.State)
	assert.Equal(t, 0, m.Queue.Len())
	assert.Equal(t, Variables{"x": 1}, m.Vars)
	assert.Equal(t, []string{"NOPE"}, l.events(StepUnmatched))
}

func TestMachineConditionUsesCurrentVariables(t *testing.T) {
	m, _ := newTestMachine(t, `{
  "id": "cond",
  "initial": "A",
  "states": {
    "A": {
      "exit": "set(1)(y)",
      "on": {"GO": [
        {"target": "Equal", "cond": "equal(x y)"},
        {"target": "Different"}
      ]}
    },
    "Equal": {},
    "Different": {}
  }
}`, Variables{"x": "1", "y": "2"}, nil)

	ctx := context.Background()
	require.NoError(t, m.TriggerEvent(ctx, "GO"))
	require.NoError(t, m.Drain(ctx))
	assert.Equal(t, "Different", m.State)
	assert.Equal(t, "1", m.Vars["y"])
}

func TestMachineFirstMatchWins(t *testing.T) {
	m, _ := newTestMachine(t, `{
  "id": "first",
  "initial": "A",
  "states": {
    "A": {"on": {"GO": [
      {"target": "B", "cond": "equal(x x)"},
      {"target": "C", "cond": "bogus(x)"},
      {"target": "C", "cond": "fail"}
    ]}},
    "B": {},
    "C": {}
  }
}`, Variables{"x": 1}, nil)

	ctx := context.Background()
	require.NoError(t, m.TriggerEvent(ctx, "GO"))
	require.NoError(t, m.Drain(ctx))
	assert.Equal(t, "B", m.State)

	// The same candidates in the other order do fail.
	m, _ = newTestMachine(t, `{
  "id": "first",
  "initial": "A",
  "states": {
    "A": {"on": {"GO": [
      {"target": "C", "cond": "bogus(x)"},
      {"target": "B"}
    ]}},
    "B": {},
    "C": {}
  }
}`, Variables{"x": 1}, nil)
	err := m.TriggerEvent(ctx, "GO")
	var upe *UnknownPrimitiveError
	assert.True(t, errors.As(err, &upe), "got %v", err)
}

func TestMachineAssignReplaces(t *testing.T) {
	src := `{
  "id": "assign",
  "initial": "A",
  "states": {
    "A": {"on": {
      "GO": [{"target": "B", "actions": ["assign(a)(c)", "assign(missing)(d)"]}],
      "STAY": [{"target": "B"}]
    }},
    "B": {}
  }
}`
	ctx := context.Background()

	m, _ := newTestMachine(t, src, Variables{"a": "one", "b": "two"}, nil)
	require.NoError(t, m.TriggerEvent(ctx, "GO"))
	require.NoError(t, m.Drain(ctx))
	assert.Equal(t, Variables{"c": "one", "d": nil}, m.Vars)

	m, _ = newTestMachine(t, src, Variables{"a": "one", "b": "two"}, nil)
	require.NoError(t, m.TriggerEvent(ctx, "STAY"))
	require.NoError(t, m.Drain(ctx))
	assert.Equal(t, Variables{"a": "one", "b": "two"}, m.Vars)
}

func TestMachineAssignMustBeAssign(t *testing.T) {
	m, _ := newTestMachine(t, `{
  "id": "assign",
  "initial": "A",
  "states": {
    "A": {"on": {"GO": [{"target": "B", "actions": ["set(1)(x)"]}]}},
    "B": {}
  }
}`, nil, nil)

	err := m.TriggerEvent(context.Background(), "GO")
	var ice *InvalidCommandError
	assert.True(t, errors.As(err, &ice))
}

var childChart = `{
  "id": "child",
  "initial": "S",
  "states": {
    "S": {"on": {"STARTED": [{"target": "T"}]}},
    "T": {"entry": ["get_parameters()(q)", "set(extra)(e)", "return_values(q e)"]}
  }
}`

func TestMachineCall(t *testing.T) {
	child, err := ParseChartBytes([]byte(childChart))
	require.NoError(t, err)

	m, l := newTestMachine(t, `{"id":"parent","initial":"A","states":{"A":{}}}`,
		Variables{"p": "hello"}, MapProvider{"child": child})

	ctx := context.Background()
	c, err := m.Call(ctx, "child", []interface{}{"hello"})
	require.NoError(t, err)

	assert.Equal(t, "T", c.State)
	assert.Equal(t, []string{"q", "e"}, c.Returned)
	assert.Equal(t, "hello", c.Vars["q"])
	assert.Equal(t, 1, c.Depth())
	assert.Equal(t, m, c.Root())

	// The parent is untouched.
	assert.Equal(t, "A", m.State)
	assert.Equal(t, Variables{"p": "hello"}, m.Vars)

	var depths []int
	for _, s := range l.steps {
		depths = append(depths, s.Depth)
	}
	assert.Contains(t, depths, 1)
}

func TestMachineCallMissingParameter(t *testing.T) {
	child, err := ParseChartBytes([]byte(childChart))
	require.NoError(t, err)

	m, _ := newTestMachine(t, `{"id":"parent","initial":"A","states":{"A":{}}}`,
		nil, MapProvider{"child": child})

	_, err = m.Call(context.Background(), "child", nil)
	var ie *IndexError
	require.True(t, errors.As(err, &ie), "got %v", err)
	assert.True(t, IsFatal(err))
}

func TestMachineCallNoProvider(t *testing.T) {
	m, _ := newTestMachine(t, `{"id":"parent","initial":"A","states":{"A":{}}}`, nil, nil)
	_, err := m.Call(context.Background(), "child", nil)
	assert.Equal(t, NoChartProvider, err)
}

func TestMachineHandlesLiveOnRoot(t *testing.T) {
	child, err := ParseChartBytes([]byte(childChart))
	require.NoError(t, err)

	m, _ := newTestMachine(t, `{"id":"parent","initial":"A","states":{"A":{}}}`, nil, nil)
	c := m.Spawn(child, nil)
	c.SetHandle("link", 42)

	x, have := m.Handle("link")
	require.True(t, have)
	assert.Equal(t, 42, x)
}

func TestMachineFatalErrors(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		check func(error) bool
	}{
		{"unknown", "nope()", func(err error) bool {
			var e *UnknownPrimitiveError
			return errors.As(err, &e)
		}},
		{"invalid", "set(1)", func(err error) bool {
			var e *InvalidCommandError
			return errors.As(err, &e)
		}},
		{"failed", "fail()", func(err error) bool {
			return errors.Is(err, io.ErrUnexpectedEOF)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := `{"id":"fatal","initial":"A","states":{"A":{"on":{"STARTED":[{"target":"B"}]}},"B":{"entry":"` + tt.entry + `"}}}`
			m, l := newTestMachine(t, src, nil, nil)
			err := m.Start(context.Background())
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
			assert.True(t, IsFatal(err))

			last := l.steps[len(l.steps)-1]
			assert.Equal(t, StepStopped, last.Kind)
			assert.NotEmpty(t, last.Err)
		})
	}
}

func TestMachineCanceled(t *testing.T) {
	m, _ := newTestMachine(t, `{"id":"x","initial":"A","states":{"A":{"on":{"GO":[{"target":"A"}]}}}}`, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.TriggerEvent(ctx, "GO"))
	cancel()
	assert.Equal(t, context.Canceled, m.Drain(ctx))
}

func TestMachineDeterministic(t *testing.T) {
	src := `{
  "id": "det",
  "initial": "A",
  "states": {
    "A": {"on": {"STARTED": [{"target": "B", "actions": "assign(x)(x)"}]}},
    "B": {"entry": ["set(2)(y)", "trigger(NEXT)"], "on": {"NEXT": [{"target": "C"}]}},
    "C": {"entry": "done()"}
  }
}`
	var traces [][]string
	for i := 0; i < 2; i++ {
		m, l := newTestMachine(t, src, Variables{"x": 1}, nil)
		require.NoError(t, m.Start(context.Background()))
		assert.Equal(t, "C", m.State)
		assert.Equal(t, Variables{"x": 1, "y": "2"}, m.Vars)
		traces = append(traces, l.trace())
	}
	assert.Equal(t, traces[0], traces[1])
}
