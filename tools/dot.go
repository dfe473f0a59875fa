/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/BenIlies/NoPASARAN-sub000/core"
)

// Dot writes a Graphviz dot graph for the chart.
//
// The optional fromState and toState can name the states of a
// transition.  If given, the toState is red and so is the edge
// between them.
func Dot(c *core.Chart, w io.Writer, fromState, toState string) error {
	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	nids := stateIds(c)

	for _, name := range orderedStates(c) {
		s := c.States[name]

		label := htmlEscape(name)
		if s.Doc != "" {
			label += "<BR/><FONT POINT-SIZE='8'>" + htmlEscape(firstSentence(s.Doc)) + "</FONT>"
		}

		shape := "record"
		if 0 < len(s.Entry) || 0 < len(s.Exit) {
			shape = "note"
			label += `<FONT POINT-SIZE="6"><BR/>`
			for _, line := range s.Entry {
				label += htmlEscape(line) + `<BR ALIGN="LEFT"/>`
			}
			for _, line := range s.Exit {
				label += "exit: " + htmlEscape(line) + `<BR ALIGN="LEFT"/>`
			}
			label += `</FONT>`
		}

		style := "filled"
		if name == c.Initial {
			style += ",bold"
		}
		if len(s.On) == 0 {
			style += ",dashed"
		}

		color, fillcolor := "black", "#99ddc8"
		if name == toState {
			color, fillcolor = "red", "#f98b8b"
		}

		fmt.Fprintf(w, "  %s [shape=\"%s\", style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			nids[name], shape, style, color, fillcolor, label)
	}

	for _, name := range orderedStates(c) {
		s := c.States[name]
		for _, event := range s.Events() {
			cs := s.On[event]
			for i, t := range cs {
				label := `<FONT COLOR="#2d93ad">` + htmlEscape(event) + `</FONT>`
				if 1 < len(cs) {
					label = fmt.Sprintf("%d/%d ", i+1, len(cs)) + label
				}
				if t.Cond != "" {
					label += `<FONT POINT-SIZE="8"><BR ALIGN="LEFT"/>[` + htmlEscape(t.Cond) + `]</FONT>`
				}
				if 0 < len(t.Actions) {
					label += `<FONT POINT-SIZE="6"><BR ALIGN="LEFT"/>` +
						htmlEscape(strings.Join(t.Actions, "; ")) + `</FONT>`
				}

				color := "black"
				if fromState == name && toState == t.Target {
					color = "red"
				}
				fmt.Fprintf(w, "  %s -> %s [ color=\"%s\" label = <%s> ]\n",
					nids[name], nids[t.Target], color, label)
			}
		}
	}

	_, err := fmt.Fprintf(w, "}\n")
	return err
}

// PNG generates a PNG image based on output from Dot.
//
// This function writes two files: basename.dot and basename.png.
// It needs Graphviz's "dot" command.
func PNG(c *core.Chart, basename string, fromState, toState string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err = Dot(c, dotfile, fromState, toState); err != nil {
		dotfile.Close()
		return pngname, err
	}
	if err = dotfile.Close(); err != nil {
		return pngname, err
	}
	if err = exec.Command("dot", "-Tpng", "-Gstart=1", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}

// orderedStates puts the initial state first and the rest in name
// order.
func orderedStates(c *core.Chart) []string {
	acc := make([]string, 0, len(c.States))
	acc = append(acc, c.Initial)
	for _, name := range c.AllStateNames() {
		if name != c.Initial {
			acc = append(acc, name)
		}
	}
	return acc
}

// stateIds gives each state a safe graph identifier.
func stateIds(c *core.Chart) map[string]string {
	nids := make(map[string]string, len(c.States))
	for i, name := range orderedStates(c) {
		nids[name] = fmt.Sprintf("s%d", i)
	}
	return nids
}

func firstSentence(doc string) string {
	if 40 < len(doc) {
		if period := strings.Index(doc, ". "); 0 < period {
			return doc[0 : period+1]
		}
	}
	return doc
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func htmlEscape(s string) string {
	return htmlEscaper.Replace(s)
}
