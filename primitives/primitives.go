/* Copyright 2019 Comcast Cable Communications Management, LLC
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

// Package primitives is the standard library of action and condition
// primitives.
//
// Inputs and outputs are variable names.  Most primitives look their
// inputs up as variables.  A few (set, trigger, redirect, call's
// chart name) take literals.  Timeouts accept either a variable that
// holds a number of seconds or a numeric literal.
package primitives

import (
	"fmt"
	"strconv"
	"time"

	"github.com/BenIlies/NoPASARAN-sub000/core"
)

// Handle keys on the root machine.
const (
	// LinkHandle holds the *control.Link.
	LinkHandle = "control.link"

	// ControlConfigHandle holds the default *control.Config.
	ControlConfigHandle = "control.config"

	// SnifferHandle holds the sniff.Sniffer.
	SnifferHandle = "sniffer"

	// InterpreterHandle holds the *goja.Interpreter for eval.
	InterpreterHandle = "interpreter"
)

// Standard returns a registry with every standard primitive and
// condition.
func Standard() *core.Registry {
	r := core.NewRegistry()
	r.Add(Basic...)
	r.Add(Nested...)
	r.Add(Control...)
	r.Add(Sniffing...)
	r.Add(Script...)
	r.AddCondition(Conditions...)
	return r
}

// lookup returns a variable's value.
func lookup(m *core.Machine, name string) (interface{}, error) {
	x, have := m.Get(name)
	if !have {
		return nil, fmt.Errorf(`variable "%s" not bound`, name)
	}
	return x, nil
}

// number coerces a value to a float64.
func number(x interface{}) (float64, bool) {
	switch vv := x.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case uint16:
		return float64(vv), true
	case string:
		f, err := strconv.ParseFloat(vv, 64)
		return f, err == nil
	}
	return 0, false
}

// parseNumber parses a literal, preferring an int.
func parseNumber(s string) (interface{}, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf(`"%s" isn't a number`, s)
	}
	return f, nil
}

// timeout resolves a timeout token: a variable holding a number of
// seconds or a numeric literal.
func timeout(m *core.Machine, token string) (time.Duration, error) {
	x, have := m.Get(token)
	if !have {
		x = token
	}
	secs, ok := number(x)
	if !ok || secs < 0 {
		return 0, fmt.Errorf(`timeout "%s" (%v) isn't a non-negative number of seconds`, token, x)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// valueOrLiteral returns the variable's value if it's bound and the
// token itself otherwise.
func valueOrLiteral(m *core.Machine, token string) interface{} {
	if x, have := m.Get(token); have {
		return x
	}
	return token
}
