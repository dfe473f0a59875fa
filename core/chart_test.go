package core

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var twoStates = `{
  "id": "two",
  "doc": "Two states.",
  "initial": "A",
  "states": {
    "A": {
      "exit": "print(x)",
      "on": {
        "GO": [
          {"target": "B", "cond": "equal(x y)", "actions": "assign(x)(z)"},
          {"target": "B"}
        ]
      }
    },
    "B": {"entry": ["done()", "print(z)"]}
  }
}`

func TestParseChart(t *testing.T) {
	c, err := ParseChart([]byte(twoStates))
	require.NoError(t, err)

	assert.Equal(t, "A", c.InitialState())
	assert.Equal(t, []string{"A", "B"}, c.AllStateNames())
	assert.Equal(t, []string{"print(x)"}, c.ExitActions("A"))
	assert.Nil(t, c.EntryActions("A"))
	assert.Equal(t, []string{"done()", "print(z)"}, c.EntryActions("B"))
	assert.Nil(t, c.TransitionsFor("A", "NOPE"))
	assert.Nil(t, c.TransitionsFor("B", "GO"))

	cs := c.TransitionsFor("A", "GO")
	require.Len(t, cs, 2)
	assert.Equal(t, "equal(x y)", cs[0].Condition())
	assert.Equal(t, "B", cs[0].TargetState())
	assert.Equal(t, []string{"assign(x)(z)"}, cs[0].AssignActions())
	assert.Equal(t, "", cs[1].Condition())
	assert.Nil(t, cs[1].AssignActions())
}

func TestParseChartMalformed(t *testing.T) {
	tests := []struct {
		name string
		js   string
	}{
		{"no id", `{"initial":"A","states":{"A":{}}}`},
		{"no initial", `{"id":"x","states":{"A":{}}}`},
		{"no states", `{"id":"x","initial":"A"}`},
		{"bad initial", `{"id":"x","initial":"Q","states":{"A":{}}}`},
		{"bad target", `{"id":"x","initial":"A","states":{"A":{"on":{"E":[{"target":"Z"}]}}}}`},
		{"bad actions", `{"id":"x","initial":"A","states":{"A":{"entry":42}}}`},
		{"not json", `{"id":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChart([]byte(tt.js))
			if err == nil {
				t.Fatal("expected an error")
			}
			var mce *MalformedChartError
			if !errors.As(err, &mce) {
				t.Fatalf("wanted a MalformedChartError, got %T: %v", err, err)
			}
		})
	}
}

func TestParseChartYAML(t *testing.T) {
	src := `
id: two
initial: A
states:
  A:
    on:
      GO:
        - target: B
  B:
    entry: done()
`
	c, err := ParseChartBytes([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"done()"}, c.EntryActions("B"))
	assert.Equal(t, "B", c.TransitionsFor("A", "GO")[0].Target)
}

func TestParseChartYAMLBooleanWords(t *testing.T) {
	// YAML 1.1 reads these bare words as booleans.
	src := `
id: words
initial: "yes"
states:
  "yes":
    on:
      on:
        - target: off
          cond: equal(on off)
          actions: assign(on)(off)
      no:
        - target: off
  off:
    entry: [done()]
`
	c, err := ParseChartYAML([]byte(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"off", "yes"}, c.AllStateNames())
	assert.Equal(t, []string{"no", "on"}, c.States["yes"].Events())

	cs := c.TransitionsFor("yes", "on")
	require.Len(t, cs, 1)
	assert.Equal(t, "off", cs[0].TargetState())
	assert.Equal(t, "equal(on off)", cs[0].Condition())
	assert.Equal(t, []string{"assign(on)(off)"}, cs[0].AssignActions())
}

func TestParseChartYAMLSameAsJSON(t *testing.T) {
	src := `
id: two
doc: Two states.
initial: A
states:
  A:
    exit: print(x)
    on:
      GO:
        - target: B
          cond: equal(x y)
          actions: assign(x)(z)
        - target: B
  B:
    entry:
      - done()
      - print(z)
`
	fromYAML, err := ParseChartYAML([]byte(src))
	require.NoError(t, err)
	fromJSON, err := ParseChart([]byte(twoStates))
	require.NoError(t, err)

	if !reflect.DeepEqual(fromJSON, fromYAML) {
		t.Fatalf("%s\n!=\n%s", JS(fromJSON), JS(fromYAML))
	}
}

func TestParseChartYAMLMalformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no id", "initial: A\nstates: {A: {}}\n"},
		{"no states", "id: x\ninitial: A\n"},
		{"bad target", "id: x\ninitial: A\nstates:\n  A:\n    on:\n      E: [{target: Z}]\n"},
		{"bad actions", "id: x\ninitial: A\nstates:\n  A:\n    entry: {x: 1}\n"},
		{"not yaml", "id: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChartYAML([]byte(tt.src))
			var mce *MalformedChartError
			if !errors.As(err, &mce) {
				t.Fatalf("wanted a MalformedChartError, got %T: %v", err, err)
			}
		})
	}
}

func TestStringMapsScalarKeys(t *testing.T) {
	x, err := StringMaps(map[interface{}]interface{}{
		"a":  map[interface{}]interface{}{1: "one", true: "yes"},
		"bs": []interface{}{map[interface{}]interface{}{"c": 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"a":  map[string]interface{}{"1": "one", "true": "yes"},
		"bs": []interface{}{map[string]interface{}{"c": 2}},
	}, x)
}

func TestChartRoundTrip(t *testing.T) {
	c, err := ParseChart([]byte(twoStates))
	require.NoError(t, err)

	js, err := json.Marshal(c)
	require.NoError(t, err)

	c2, err := ParseChart(js)
	require.NoError(t, err)

	if !reflect.DeepEqual(c, c2) {
		t.Fatalf("%s\n!=\n%s", JS(c), JS(c2))
	}
	if !reflect.DeepEqual(c, c.Copy()) {
		t.Fatal("Copy isn't equal")
	}
}

func JS(x interface{}) string {
	js, err := json.Marshal(&x)
	if err != nil {
		return err.Error()
	}
	return string(js)
}
