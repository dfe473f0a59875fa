package sio

import (
	"context"
	"sync"
	"time"

	"github.com/BenIlies/NoPASARAN-sub000/core"
	"github.com/BenIlies/NoPASARAN-sub000/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Recorder builds a storage.Report from the top-level machine's
// Steps and writes it when that machine stops.
type Recorder struct {
	sync.Mutex

	Storage storage.Storage
	Logger  logrus.FieldLogger

	// MaxSteps limits the recorded history.  Zero means no
	// limit.
	MaxSteps int

	report  *storage.Report
	written bool
	done    chan struct{}
}

// NewRecorder makes a Recorder with a fresh run id.
func NewRecorder(s storage.Storage, logger logrus.FieldLogger) *Recorder {
	if s == nil {
		s = &storage.NoopStorage{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Recorder{
		Storage: s,
		Logger:  logger,
		report: &storage.Report{
			Id: uuid.NewString(),
		},
		done: make(chan struct{}),
	}
}

// Id returns the run id.
func (r *Recorder) Id() string {
	return r.report.Id
}

func (r *Recorder) Observe(ctx context.Context, s *core.Step) {
	if s.Depth != 0 {
		return
	}

	r.Lock()
	if r.written {
		r.Unlock()
		return
	}
	rep := r.report
	if rep.Started.IsZero() {
		rep.Started = s.At
		rep.Chart = s.Chart
		rep.Machine = s.Machine
	}
	if r.MaxSteps == 0 || len(rep.Steps) < r.MaxSteps {
		rep.Steps = append(rep.Steps, s)
	}
	stopped := s.Kind == core.StepStopped
	if stopped {
		rep.State = s.From
		rep.Variables = s.Vars
		rep.Error = s.Err
		rep.Finished = s.At
		r.written = true
	}
	r.Unlock()

	if !stopped {
		return
	}

	if err := r.Storage.WriteReport(ctx, rep); err != nil {
		r.Logger.WithError(err).WithField("run", rep.Id).Error("couldn't write report")
	} else {
		r.Logger.WithField("run", rep.Id).Info("wrote report")
	}
	close(r.done)
}

// Wait blocks until the report has been written or the timeout
// passes.
func (r *Recorder) Wait(timeout time.Duration) bool {
	select {
	case <-r.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Report returns the report so far.
func (r *Recorder) Report() *storage.Report {
	r.Lock()
	defer r.Unlock()
	rep := *r.report
	rep.Steps = append([]*core.Step(nil), r.report.Steps...)
	return &rep
}
