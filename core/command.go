package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Command is a parsed action or condition line.
//
// A line looks like "name(in1 in2)(out1)".  Each parenthesized group
// holds whitespace-separated variable names.  Which groups a line
// must have depends on the primitive it names, so a Command only
// records what's there.  See Registry.Bind.
type Command struct {
	Line   string
	Name   string
	Groups [][]string
}

// ParseCommand parses a line.
//
// Parentheses must balance and can't nest, and nothing other than
// whitespace can appear outside of them.
func ParseCommand(line string) (*Command, error) {
	line = strings.TrimSpace(line)
	bad := func(problem string) (*Command, error) {
		return nil, &InvalidCommandError{Line: line, Problem: problem}
	}

	open := strings.IndexByte(line, '(')
	name := line
	if 0 <= open {
		name = line[:open]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return bad("no primitive name")
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 || strings.ContainsRune(name, ')') {
		return bad("token outside of parentheses")
	}

	c := &Command{
		Line:   line,
		Name:   name,
		Groups: make([][]string, 0, 2),
	}

	if open < 0 {
		return c, nil
	}

	rest := line[open:]
	for i := 0; i < len(rest); {
		ch := rest[i]
		switch {
		case ch == '(':
			end := strings.IndexAny(rest[i+1:], "()")
			if end < 0 {
				return bad("unbalanced parentheses")
			}
			end += i + 1
			if rest[end] == '(' {
				return bad("nested parentheses")
			}
			c.Groups = append(c.Groups, strings.Fields(rest[i+1:end]))
			i = end + 1
		case ch == ')':
			return bad("unbalanced parentheses")
		case unicode.IsSpace(rune(ch)):
			i++
		default:
			return bad("token outside of parentheses")
		}
	}

	return c, nil
}

// Arity declares the shape of a primitive's arguments.
//
// A side that's Optional accepts any number of names.  Otherwise the
// number of names must match exactly.
type Arity struct {
	Inputs          int
	Outputs         int
	OptionalInputs  bool
	OptionalOutputs bool
}

func (a Arity) hasInputs() bool {
	return 0 < a.Inputs || a.OptionalInputs
}

func (a Arity) hasOutputs() bool {
	return 0 < a.Outputs || a.OptionalOutputs
}

// Groups returns the number of parenthesized groups the arity
// expects.
func (a Arity) Groups() int {
	n := 0
	if a.hasInputs() {
		n++
	}
	if a.hasOutputs() {
		n++
	}
	return n
}

// Bind splits the command's groups into inputs and outputs according
// to the given arity.
//
// An empty group is tolerated where the arity expects nothing, so
// "done()", "done()()" and "get_parameters()(a b)" are fine.  A lone group is
// taken as inputs when outputs are optional, as in "call(sub)".
func (c *Command) Bind(a Arity) (inputs []string, outputs []string, err error) {
	bad := func(problem string) ([]string, []string, error) {
		return nil, nil, &InvalidCommandError{Line: c.Line, Problem: problem}
	}

	hasIn, hasOut := a.hasInputs(), a.hasOutputs()

	if a.OptionalInputs && !hasOut && 1 < len(c.Groups) {
		// Every group holds inputs: "return_values(x)(y)()".
		inputs = []string{}
		for _, g := range c.Groups {
			inputs = append(inputs, g...)
		}
		return inputs, []string{}, nil
	}

	switch len(c.Groups) {
	case 0:
		if hasIn || hasOut {
			return bad(groupsProblem(a.Groups(), 0))
		}
	case 1:
		g := c.Groups[0]
		switch {
		case hasIn && hasOut:
			if !a.OptionalOutputs {
				return bad(groupsProblem(2, 1))
			}
			inputs = g
		case hasIn:
			inputs = g
		case hasOut:
			outputs = g
		default:
			if 0 < len(g) {
				return bad(groupsProblem(0, 1))
			}
		}
	case 2:
		if !hasIn && 0 < len(c.Groups[0]) {
			return bad(groupsProblem(a.Groups(), 2))
		}
		if !hasOut && 0 < len(c.Groups[1]) {
			return bad(groupsProblem(a.Groups(), 2))
		}
		inputs, outputs = c.Groups[0], c.Groups[1]
	default:
		return bad(groupsProblem(a.Groups(), len(c.Groups)))
	}

	if !a.OptionalInputs && len(inputs) != a.Inputs {
		return bad("expected " + plural(a.Inputs, "input") + ", got " + strconv.Itoa(len(inputs)))
	}
	if !a.OptionalOutputs && len(outputs) != a.Outputs {
		return bad("expected " + plural(a.Outputs, "output") + ", got " + strconv.Itoa(len(outputs)))
	}

	if inputs == nil {
		inputs = []string{}
	}
	if outputs == nil {
		outputs = []string{}
	}

	return inputs, outputs, nil
}

func groupsProblem(want, got int) string {
	return "expected " + plural(want, "argument group") + ", got " + strconv.Itoa(got)
}

func plural(n int, what string) string {
	if n == 1 {
		return "1 " + what
	}
	return strconv.Itoa(n) + " " + what + "s"
}
