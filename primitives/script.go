package primitives

import (
	"context"
	"fmt"
	"time"

	"github.com/BenIlies/NoPASARAN-sub000/core"
	"github.com/BenIlies/NoPASARAN-sub000/interpreters/goja"

	"github.com/gorhill/cronexpr"
)

// Interpreter runs eval's code unless the root machine has an
// InterpreterHandle.
var Interpreter = goja.NewInterpreter()

func interpreter(m *core.Machine) *goja.Interpreter {
	if x, have := m.Handle(InterpreterHandle); have {
		if i, is := x.(*goja.Interpreter); is {
			return i
		}
	}
	return Interpreter
}

// Script primitives escape into ECMAScript and cron schedules.
var Script = []*core.Primitive{
	{
		Name:  "eval",
		Arity: core.Arity{Inputs: 1, Outputs: 1},
		Doc:   "runs the code held by a variable and binds its result",
		F: func(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
			src, err := lookup(m, inputs[0])
			if err != nil {
				return err
			}
			i := interpreter(m)
			p, err := i.Compile(ctx, src)
			if err != nil {
				return err
			}
			x, err := i.Exec(ctx, m, p)
			if err != nil {
				return err
			}
			m.Set(outputs[0], x)
			return nil
		},
	},
	{
		Name:  "wait_cron",
		Arity: core.Arity{Inputs: 2},
		Doc:   "CRON at the schedule's next activation if it comes within the timeout, else TIMEOUT",
		F:     waitCron,
	},
}

// now is replaced by tests.
var now = time.Now

func waitCron(ctx context.Context, inputs, outputs []string, m *core.Machine) error {
	x := valueOrLiteral(m, inputs[0])
	expr, is := x.(string)
	if !is {
		return fmt.Errorf(`cron expression "%s" (%T) isn't a string`, inputs[0], x)
	}
	sched, err := cronexpr.Parse(expr)
	if err != nil {
		return err
	}
	d, err := timeout(m, inputs[1])
	if err != nil {
		return err
	}

	t := now()
	next := sched.Next(t)
	if next.IsZero() || d < next.Sub(t) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		return m.TriggerEvent(ctx, core.EventTimeout)
	}

	timer := time.NewTimer(next.Sub(t))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return m.TriggerEvent(ctx, core.EventCron)
}
