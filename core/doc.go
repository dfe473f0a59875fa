/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

// Package core provides the core gear for chart-driven network tests.
//
// A Chart is a static state machine definition: states with entry
// and exit action lines, and per-event transition candidates with
// optional conditions and assign actions.  A Machine is one running
// execution of a Chart.
//
// Action lines look like "name(in1 in2)(out1)".  A Registry maps a
// name to a Primitive (or a Condition) with a declared Arity.
// Inputs and outputs are variable names.  Primitives decide how to
// use them.
//
// TriggerEvent never executes anything.  It selects the first
// transition candidate whose condition holds and appends its effects
// to the machine's Queue: exit actions, an optional variable
// replacement, the state change, and entry actions.  Drain then
// executes the queue in order.  A primitive that triggers an event
// only appends more work, so everything runs on one goroutine and in
// a deterministic order.
//
// A transition with assign actions replaces the whole variable
// environment.  Variables that aren't explicitly carried over are
// gone.
//
// A Machine can call another chart by name.  The child runs to
// completion on the caller's goroutine and then returns the values of
// the variables it named with "return_values".
//
// To use this package, load a Chart with ParseChartBytes or a
// ChartProvider, build a Registry (see package primitives), make a
// Machine with NewMachine, and Start it.
package core
