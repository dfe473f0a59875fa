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

import (
	"fmt"
	"io"
	"strings"

	"github.com/BenIlies/NoPASARAN-sub000/core"
)

type MermaidOpts struct {
	// ShowConditions adds a transition's condition to its label.
	ShowConditions bool `json:"showConditions"`

	// ActionFill is the fill color for states with entry or exit
	// actions.
	ActionFill string `json:"actionFill,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaid.js.org/) flowchart for the
// chart.
func Mermaid(c *core.Chart, w io.Writer, opts *MermaidOpts) error {
	if opts == nil {
		opts = &MermaidOpts{
			ShowConditions: true,
			ActionFill:     "#bcf2db",
		}
	}

	fmt.Fprintf(w, "graph TB\n")

	nids := stateIds(c)

	for _, name := range orderedStates(c) {
		s := c.States[name]
		nid := nids[name]
		if len(s.Entry) == 0 && len(s.Exit) == 0 {
			fmt.Fprintf(w, "  %s(\"%s\")\n", nid, mermaidEscape(name))
			continue
		}
		fmt.Fprintf(w, "  %s[\"%s\"]\n", nid, mermaidEscape(name))
		if opts.ActionFill != "" {
			fmt.Fprintf(w, "  style %s fill:%s\n", nid, opts.ActionFill)
		}
	}

	for _, name := range orderedStates(c) {
		s := c.States[name]
		for _, event := range s.Events() {
			for _, t := range s.On[event] {
				label := event
				if opts.ShowConditions && t.Cond != "" {
					label += " [" + t.Cond + "]"
				}
				fmt.Fprintf(w, "  %s -- \"%s\" --> %s\n", nids[name], mermaidEscape(label), nids[t.Target])
			}
		}
	}

	_, err := fmt.Fprintf(w, "\n")
	return err
}

func mermaidEscape(s string) string {
	return strings.Replace(s, `"`, "#quot;", -1)
}
