// Package storage persists run reports.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/BenIlies/NoPASARAN-sub000/core"
)

// NotFound is returned by GetReport for an unknown id.
var NotFound = errors.New("report not found")

// Report is the outcome of one top-level run.
type Report struct {
	// Id is the run id.
	Id string `json:"id"`

	Chart   string `json:"chart"`
	Machine string `json:"machine"`

	// State is the state the machine stopped in.
	State string `json:"state"`

	// Variables are the final variables in portable form.
	Variables core.Variables `json:"variables,omitempty"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// Error is the fatal error (if any) that stopped the run.
	Error string `json:"error,omitempty"`

	// Steps is the top-level machine's history.
	Steps []*core.Step `json:"steps,omitempty"`
}

// Storage is a persistence interface for Reports.
type Storage interface {
	Open(ctx context.Context) error

	Close(ctx context.Context) error

	WriteReport(ctx context.Context, r *Report) error

	GetReport(ctx context.Context, id string) (*Report, error)

	// ListReports returns reports without their steps, oldest
	// first.
	ListReports(ctx context.Context) ([]*Report, error)
}

// Summary returns a copy of the report without its steps.
func (r *Report) Summary() *Report {
	s := *r
	s.Steps = nil
	return &s
}
