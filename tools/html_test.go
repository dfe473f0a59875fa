package tools

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderChartPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderChartPage(chart(t), &buf, nil, true))
	got := buf.String()

	assert.Contains(t, got, "<title>handshake</title>")
	assert.Contains(t, got, "<strong>syncs</strong>")
	assert.Contains(t, got, `<span id="waiting" class="stateName">waiting</span>`)
	assert.Contains(t, got, `<a href="#failed"><code>failed</code></a>`)
	assert.Contains(t, got, "<code>equal(role client)</code>")
	assert.Contains(t, got, `<pre class="mermaid">`)
	assert.Contains(t, got, "/static/chart-html.css")
}
