// Package nopasaran runs chart-driven network tests between pairs of
// workers.
//
// The core state machine is in package 'core', the action primitives
// are in 'primitives', and the command-line tool is in `cmd/nopasaran`.
package nopasaran
