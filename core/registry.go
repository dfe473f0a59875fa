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
	"context"
	"sort"
)

// PrimitiveFunc is the body of a primitive.
//
// Inputs and outputs are variable names, not values.  A primitive
// decides for itself whether to look a name up with m.Get or to treat
// it as a literal.
type PrimitiveFunc func(ctx context.Context, inputs, outputs []string, m *Machine) error

// ConditionFunc is the body of a condition.  Conditions only have
// inputs.
type ConditionFunc func(ctx context.Context, inputs []string, m *Machine) (bool, error)

// Primitive is a named, arity-checked action.
type Primitive struct {
	Name string
	Arity
	F PrimitiveFunc

	// Doc is an optional one-liner for listings.
	Doc string
}

// Condition is a named predicate usable in a transition's "cond".
type Condition struct {
	Name   string
	Inputs int
	F      ConditionFunc
	Doc    string
}

// Registry maps names to primitives and conditions.
//
// A Registry is built once at startup and then only read, so it
// isn't locked.
type Registry struct {
	primitives map[string]*Primitive
	conditions map[string]*Condition
}

// NewRegistry makes an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		primitives: make(map[string]*Primitive, 32),
		conditions: make(map[string]*Condition, 8),
	}
}

// Add registers primitives, replacing any with the same names.
func (r *Registry) Add(ps ...*Primitive) *Registry {
	for _, p := range ps {
		r.primitives[p.Name] = p
	}
	return r
}

// AddCondition registers conditions, replacing any with the same
// names.
func (r *Registry) AddCondition(cs ...*Condition) *Registry {
	for _, c := range cs {
		r.conditions[c.Name] = c
	}
	return r
}

// Find returns the named primitive or nil.
func (r *Registry) Find(name string) *Primitive {
	return r.primitives[name]
}

// FindCondition returns the named condition or nil.
func (r *Registry) FindCondition(name string) *Condition {
	return r.conditions[name]
}

// Names returns the sorted names of primitives and of conditions.
func (r *Registry) Names() (primitives []string, conditions []string) {
	for name := range r.primitives {
		primitives = append(primitives, name)
	}
	for name := range r.conditions {
		conditions = append(conditions, name)
	}
	sort.Strings(primitives)
	sort.Strings(conditions)
	return
}

// Dispatch parses the line and calls the primitive it names.
//
// Every error is fatal for the run: an unknown name, a bad line, or
// an error returned by the primitive (which is wrapped in a
// PrimitiveExecutionError).
func (r *Registry) Dispatch(ctx context.Context, line string, m *Machine) error {
	c, err := ParseCommand(line)
	if err != nil {
		return err
	}
	p := r.Find(c.Name)
	if p == nil {
		return &UnknownPrimitiveError{Name: c.Name}
	}
	inputs, outputs, err := c.Bind(p.Arity)
	if err != nil {
		return err
	}
	if err = p.F(ctx, inputs, outputs, m); err != nil {
		return &PrimitiveExecutionError{
			MachineId: m.Id,
			Line:      c.Line,
			Err:       err,
		}
	}
	return nil
}

// Evaluate parses a condition line and calls the condition it names.
//
// A primitive name that isn't a registered condition is an error.
func (r *Registry) Evaluate(ctx context.Context, line string, m *Machine) (bool, error) {
	c, err := ParseCommand(line)
	if err != nil {
		return false, err
	}
	cond := r.FindCondition(c.Name)
	if cond == nil {
		return false, &UnknownPrimitiveError{Name: c.Name, Condition: true}
	}
	inputs, _, err := c.Bind(Arity{Inputs: cond.Inputs})
	if err != nil {
		return false, err
	}
	ok, err := cond.F(ctx, inputs, m)
	if err != nil {
		return false, &PrimitiveExecutionError{
			MachineId: m.Id,
			Line:      c.Line,
			Err:       err,
		}
	}
	return ok, nil
}
