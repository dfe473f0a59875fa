package primitives

import (
	"context"
	"fmt"
	"reflect"

	"github.com/BenIlies/NoPASARAN-sub000/core"
)

// Conditions are usable in a transition's "cond".
//
// Comparisons are numeric when both values are numbers, lexical when
// both are strings, and otherwise only "equal" works.  An unbound
// variable is nil.  Nothing is ordered with respect to nil, so the
// ordered comparisons are false when either side is nil.
var Conditions = []*core.Condition{
	{
		Name:   "equal",
		Inputs: 2,
		Doc:    "values are equal",
		F: func(ctx context.Context, inputs []string, m *core.Machine) (bool, error) {
			x, y := pair(m, inputs)
			if a, b, ok := numbers(x, y); ok {
				return a == b, nil
			}
			return reflect.DeepEqual(x, y), nil
		},
	},
	compare("gt", func(c int) bool { return 0 < c }),
	compare("gte", func(c int) bool { return 0 <= c }),
	compare("lt", func(c int) bool { return c < 0 }),
	compare("lte", func(c int) bool { return c <= 0 }),
	{
		Name:   "no_value",
		Inputs: 1,
		Doc:    "variable is unbound or nil",
		F: func(ctx context.Context, inputs []string, m *core.Machine) (bool, error) {
			x, have := m.Get(inputs[0])
			return !have || x == nil, nil
		},
	},
}

func pair(m *core.Machine, inputs []string) (interface{}, interface{}) {
	x, _ := m.Get(inputs[0])
	y, _ := m.Get(inputs[1])
	return x, y
}

// numbers succeeds only if neither value is a string.  Numeric
// strings are compared as strings.
func numbers(x, y interface{}) (float64, float64, bool) {
	if _, is := x.(string); is {
		return 0, 0, false
	}
	if _, is := y.(string); is {
		return 0, 0, false
	}
	a, ok := number(x)
	if !ok {
		return 0, 0, false
	}
	b, ok := number(y)
	return a, b, ok
}

func compare(name string, f func(int) bool) *core.Condition {
	return &core.Condition{
		Name:   name,
		Inputs: 2,
		Doc:    "ordered comparison",
		F: func(ctx context.Context, inputs []string, m *core.Machine) (bool, error) {
			x, y := pair(m, inputs)
			if x == nil || y == nil {
				return false, nil
			}
			if a, b, ok := numbers(x, y); ok {
				switch {
				case a < b:
					return f(-1), nil
				case a > b:
					return f(1), nil
				default:
					return f(0), nil
				}
			}
			s, sok := x.(string)
			t, tok := y.(string)
			if sok && tok {
				switch {
				case s < t:
					return f(-1), nil
				case s > t:
					return f(1), nil
				default:
					return f(0), nil
				}
			}
			return false, fmt.Errorf("can't compare %T with %T", x, y)
		},
	}
}
