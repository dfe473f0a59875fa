package primitives

import (
	"context"
	"testing"

	"github.com/BenIlies/NoPASARAN-sub000/core"
	. "github.com/BenIlies/NoPASARAN-sub000/util/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditions(t *testing.T) {
	m := newMachine(t, core.Variables{
		"one":    1,
		"onef":   1.0,
		"two":    2.0,
		"a":      "a",
		"b":      "b",
		"s1":     "1",
		"nil":    nil,
		"list":   []interface{}{1.0},
		"list2":  []interface{}{1.0},
		"bool":   true,
		"object": map[string]interface{}{"x": 1.0},
	})
	reg := Standard()

	tests := []struct {
		cond string
		want bool
		bad  bool
	}{
		{cond: "equal(one onef)", want: true},
		{cond: "equal(one two)", want: false},
		{cond: "equal(a a)", want: true},
		{cond: "equal(one s1)", want: false},
		{cond: "equal(list list2)", want: true},
		{cond: "equal(bool bool)", want: true},
		{cond: "gt(two one)", want: true},
		{cond: "gt(one two)", want: false},
		{cond: "gte(one onef)", want: true},
		{cond: "lt(a b)", want: true},
		{cond: "lte(b a)", want: false},
		{cond: "no_value(missing)", want: true},
		{cond: "no_value(nil)", want: true},
		{cond: "no_value(one)", want: false},
		{cond: "gt(object one)", bad: true},
		{cond: "equal(one missing)", want: false},
		{cond: "equal(missing one)", want: false},
		{cond: "equal(missing nil)", want: true},
		{cond: "equal(missing other)", want: true},
		{cond: "gt(one missing)", want: false},
		{cond: "lte(missing one)", want: false},
		{cond: "lt(nil two)", want: false},
		{cond: "equal(one)", bad: true},
		{cond: "tacos(one)", bad: true},
	}

	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			ok, err := reg.Evaluate(context.Background(), tt.cond, m)
			if tt.bad {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestConditionUnboundIsNil(t *testing.T) {
	m := Machine(t, `
id: unbound
initial: A
states:
  A:
    on:
      GO:
        - target: Same
          cond: equal(missing x)
        - target: Other
  Same: {}
  Other: {}
`, Standard(), core.Variables{"x": 1})

	require.NoError(t, m.TriggerEvent(context.Background(), "GO"))
	require.NoError(t, m.Drain(context.Background()))
	assert.Equal(t, "Other", m.State)
}
