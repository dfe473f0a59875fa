package tools

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMermaid(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Mermaid(chart(t), &buf, nil))
	got := buf.String()

	assert.True(t, strings.HasPrefix(got, "graph TB\n"))
	assert.Contains(t, got, `s0("start")`)
	assert.Contains(t, got, `["waiting"]`)
	assert.Contains(t, got, `-- "READY [equal(role client)]" -->`)
	assert.Contains(t, got, `-- "STARTED" -->`)
	assert.Equal(t, 4, strings.Count(got, " --> "))

	buf.Reset()
	require.NoError(t, Mermaid(chart(t), &buf, &MermaidOpts{}))
	assert.NotContains(t, buf.String(), "equal(role client)")
	assert.NotContains(t, buf.String(), "style ")
}
