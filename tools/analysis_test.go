package tools

import (
	"testing"

	"github.com/BenIlies/NoPASARAN-sub000/primitives"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	a, err := Analyze(chart(t), primitives.Standard())
	require.NoError(t, err)

	assert.Empty(t, a.Errors)
	assert.Equal(t, 5, a.StateCount)
	assert.Equal(t, 4, a.Transitions)
	assert.Equal(t, 1, a.Conditions)
	assert.Equal(t, 4, a.Actions)
	assert.Equal(t, []string{"done", "failed", "orphan"}, a.TerminalStates)
	assert.Equal(t, []string{"orphan"}, a.Unreachable)
	assert.Equal(t, []string{"READY", "STARTED", "TIMEOUT"}, a.Events)
	assert.Equal(t, []string{"tacos"}, a.Unknown)
	assert.Contains(t, a.Primitives, "wait_ready_signal")
	assert.Contains(t, a.Primitives, "equal")
	assert.Contains(t, a.Primitives, "assign")
}

func TestAnalyzeNoRegistry(t *testing.T) {
	a, err := Analyze(chart(t), nil)
	require.NoError(t, err)
	assert.Empty(t, a.Unknown)
}
