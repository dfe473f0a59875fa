package tools

import (
	"encoding/json"
	"fmt"
	"html"
	"io"

	"github.com/BenIlies/NoPASARAN-sub000/core"

	md "github.com/russross/blackfriday/v2"
)

// RenderChartHTML writes an HTML fragment documenting the chart.  Doc
// strings are Markdown.
func RenderChartHTML(c *core.Chart, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	f(`<div class="chartDoc doc">%s</div>`, md.Run([]byte(c.Doc)))

	f(`<div class="states"><table>`)
	for _, name := range orderedStates(c) {
		s := c.States[name]
		id := html.EscapeString(name)
		f(`<tr class="state"><td><span id="%s" class="stateName">%s</span></td><td>`, id, id)

		if s.Doc != "" {
			f(`<div class="stateDoc doc">%s</div>`, md.Run([]byte(s.Doc)))
		}
		lines := func(class string, ls core.Lines) {
			if len(ls) == 0 {
				return
			}
			f(`<div class="%s"><span class="label">%s</span><pre>`, class, class)
			for _, line := range ls {
				f(`%s`, html.EscapeString(line))
			}
			f(`</pre></div>`)
		}
		lines("entry", s.Entry)
		lines("exit", s.Exit)

		if 0 < len(s.On) {
			f(`<div class="transitions"><table>`)
			for _, event := range s.Events() {
				for i, t := range s.On[event] {
					f(`<tr><td><span class="event">%s</span> <span class="candidate">%d</span></td><td><table>`,
						html.EscapeString(event), i)
					if t.Cond != "" {
						f(`<tr><td>cond</td><td><code>%s</code></td></tr>`, html.EscapeString(t.Cond))
					}
					for _, line := range t.Actions {
						f(`<tr><td>assign</td><td><code>%s</code></td></tr>`, html.EscapeString(line))
					}
					target := html.EscapeString(t.Target)
					f(`<tr><td>target</td><td><a href="#%s"><code>%s</code></a></td></tr>`, target, target)
					f(`</table></td></tr>`)
				}
			}
			f(`</table></div>`)
		}
		f(`</td></tr>`)
	}
	f(`</table></div>`)

	return nil
}

// RenderChartPage writes a complete HTML page for the chart.  When
// includeGraph is true, the page embeds a Mermaid rendering.
func RenderChartPage(c *core.Chart, out io.Writer, cssFiles []string, includeGraph bool) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/chart-html.css"}
	}

	title := html.EscapeString(c.Id)

	fmt.Fprintf(out, `<!DOCTYPE html>
<html>
  <head>
  <meta charset="utf-8">
  <title>%s</title>
`, title)

	if includeGraph {
		js, err := json.Marshal(c)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, `  <script src="https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"></script>
  <script>
  var thisChart = %s;
  mermaid.initialize({startOnLoad: true});
  </script>
`, js)
	}

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", html.EscapeString(cssFile))
	}

	fmt.Fprintf(out, `  </head>
  <body>
    <h1>%s</h1>
`, title)

	if includeGraph {
		fmt.Fprintf(out, `<pre class="mermaid">`+"\n")
		if err := Mermaid(c, out, nil); err != nil {
			return err
		}
		fmt.Fprintf(out, "</pre>\n")
	}

	if err := RenderChartHTML(c, out); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, `
  </body>
</html>
`)
	return err
}
