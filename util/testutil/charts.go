package testutil

import (
	"io"
	"testing"

	"github.com/BenIlies/NoPASARAN-sub000/core"

	"github.com/sirupsen/logrus"
)

// QuietLogger is a logrus.Logger that writes nowhere.
func QuietLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

// Chart parses a chart (JSON or YAML) or fails the test.
func Chart(t testing.TB, src string) *core.Chart {
	t.Helper()
	c, err := core.ParseChartBytes([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// OneState is a chart with a single state that handles nothing.
const OneState = `{"id":"one","initial":"start","states":{"start":{}}}`

// Machine makes a top-level machine for the chart with a quiet
// logger.
func Machine(t testing.TB, src string, reg *core.Registry, vars core.Variables) *core.Machine {
	t.Helper()
	env := &core.Env{
		Registry: reg,
		Logger:   QuietLogger(),
	}
	return core.NewMachine(Chart(t, src), env, vars)
}
