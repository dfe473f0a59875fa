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

package core

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Variables is a machine's variable environment: a map from a
// variable name to a dynamically typed value.
//
// Values can be anything: numbers, strings, booleans, maps, slices,
// or opaque handles (packets, sockets, ...).
type Variables map[string]interface{}

// NewVariables makes an empty environment.
func NewVariables() Variables {
	return make(Variables, 8)
}

// Remove removes the given names.
//
// The Variables are modified.
func (vs Variables) Remove(names ...string) Variables {
	for _, name := range names {
		delete(vs, name)
	}
	return vs
}

// Names returns the sorted variable names.
func (vs Variables) Names() []string {
	acc := make([]string, 0, len(vs))
	for name := range vs {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// Portable returns a copy that can be marshalled as JSON.
//
// Values that can't be marshalled (handles, channels, funcs) are
// replaced by their "%v" rendering.
func (vs Variables) Portable() Variables {
	acc := make(Variables, len(vs))
	for k, v := range vs {
		if _, err := json.Marshal(v); err != nil {
			acc[k] = fmt.Sprintf("%v", v)
			continue
		}
		acc[k] = v
	}
	return acc
}
