// Package sio couples a running machine to the outside world through
// core.Observers.
package sio

import (
	"context"

	"github.com/BenIlies/NoPASARAN-sub000/core"

	"github.com/sirupsen/logrus"
)

// Logger logs Steps.  Events and stops are logged at Info, and
// everything else at Debug.
type Logger struct {
	Log logrus.FieldLogger
}

// NewLogger makes a Logger that uses the given logger (or the
// standard one).
func NewLogger(l logrus.FieldLogger) *Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Logger{Log: l}
}

func (l *Logger) Observe(ctx context.Context, s *core.Step) {
	e := l.Log.WithFields(logrus.Fields{
		"machine": s.Machine,
		"chart":   s.Chart,
		"depth":   s.Depth,
		"state":   s.From,
	})

	switch s.Kind {
	case core.StepEvent:
		e = e.WithField("event", s.Event).WithField("target", s.To)
		if s.Redirected {
			e = e.WithField("redirected", true)
		}
		e.Info("transition")
	case core.StepUnmatched:
		e.WithField("event", s.Event).Debug("unmatched")
	case core.StepExecute:
		e.WithField("action", s.Line).Debug("executed")
	case core.StepAssign:
		e.WithField("vars", s.Vars.Names()).Debug("assigned")
	case core.StepState:
		e.WithField("target", s.To).Debug("state")
	case core.StepStopped:
		if s.Err != "" {
			e.WithField("error", s.Err).Error("stopped")
			return
		}
		e.Info("stopped")
	}
}
