package core

// These errors are fatal for a worker: a malformed chart or a buggy
// action line stops the whole run.  Unmatched events and timeouts are
// not errors at all.

import (
	"errors"
	"strconv"
)

// MalformedChartError occurs when chart data is structurally wrong:
// missing "id", "initial", or "states", or a reference to a state
// that doesn't exist.
type MalformedChartError struct {
	ChartId string
	Problem string
}

func (e *MalformedChartError) Error() string {
	if e.ChartId == "" {
		return "malformed chart: " + e.Problem
	}
	return `malformed chart "` + e.ChartId + `": ` + e.Problem
}

// InvalidCommandError occurs when an action or condition line
// doesn't parse or doesn't match the primitive's declared arity.
type InvalidCommandError struct {
	Line    string
	Problem string
}

func (e *InvalidCommandError) Error() string {
	return `invalid command "` + e.Line + `": ` + e.Problem
}

// UnknownPrimitiveError occurs when a line names a primitive that
// isn't in the registry.
type UnknownPrimitiveError struct {
	Name      string
	Condition bool
}

func (e *UnknownPrimitiveError) Error() string {
	if e.Condition {
		return `unknown condition "` + e.Name + `"`
	}
	return `unknown primitive "` + e.Name + `"`
}

// PrimitiveExecutionError wraps an error returned by a primitive body.
type PrimitiveExecutionError struct {
	MachineId string
	Line      string
	Err       error
}

func (e *PrimitiveExecutionError) Error() string {
	return `machine "` + e.MachineId + `" action "` + e.Line + `": ` + e.Err.Error()
}

func (e *PrimitiveExecutionError) Unwrap() error {
	return e.Err
}

// UnknownStateError occurs when a machine is asked to work with a
// state its chart doesn't define.
type UnknownStateError struct {
	ChartId string
	State   string
}

func (e *UnknownStateError) Error() string {
	return `state "` + e.State + `" not found in chart "` + e.ChartId + `"`
}

// IndexError occurs when positional binding runs out of names, as
// when a caller gives fewer outputs than a child returns.
type IndexError struct {
	What  string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return e.What + ": index " + strconv.Itoa(e.Index) + " out of range (" + strconv.Itoa(e.Len) + ")"
}

// NoChartProvider occurs when a machine needs to load a chart by
// name but nothing was given to find it.
var NoChartProvider = errors.New("no chart provider")

// IsFatal reports whether the error is one of the unrecoverable
// categories.  Everything that reaches the top of a run is fatal, so
// this is mostly useful for logging.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var (
		mce *MalformedChartError
		ice *InvalidCommandError
		upe *UnknownPrimitiveError
		pee *PrimitiveExecutionError
	)
	return errors.As(err, &mce) || errors.As(err, &ice) || errors.As(err, &upe) || errors.As(err, &pee)
}
