package sio

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/BenIlies/NoPASARAN-sub000/core"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Firehose sends every Step to every connected WebSocket client.
//
// A client that can't keep up misses Steps.
type Firehose struct {
	Logger logrus.FieldLogger

	upgrader websocket.Upgrader
	in       chan *core.Step

	// conns maps a client's remote address to its channel.
	conns sync.Map
}

// NewFirehose makes a Firehose.  Call Run to start broadcasting.
func NewFirehose(logger logrus.FieldLogger) *Firehose {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Firehose{
		Logger: logger,
		in:     make(chan *core.Step, 1024),
	}
}

func (f *Firehose) Observe(ctx context.Context, s *core.Step) {
	select {
	case f.in <- s:
	default:
		f.Logger.Warn("firehose blocked")
	}
}

// Run broadcasts until the context is done.
func (f *Firehose) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-f.in:
			f.conns.Range(func(k, v interface{}) bool {
				c := v.(chan *core.Step)
				select {
				case c <- s:
				default:
					f.Logger.WithField("client", k).Warn("firehose client blocked")
				}
				return true
			})
		}
	}
}

// Clients returns the number of connected clients.
func (f *Firehose) Clients() int {
	n := 0
	f.conns.Range(func(k, v interface{}) bool {
		n++
		return true
	})
	return n
}

// ServeHTTP upgrades the request and streams Steps as JSON text
// messages until the client goes away.
func (f *Firehose) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.Logger.WithError(err).Warn("firehose upgrade")
		return
	}
	defer c.Close()

	ctl := make(chan bool)
	defer close(ctl)

	steps := make(chan *core.Step, 32)

	id := r.RemoteAddr
	f.conns.Store(id, steps)
	defer f.conns.Delete(id)

	go func() {
	LOOP:
		for {
			select {
			case <-ctl:
				break LOOP
			case <-r.Context().Done():
				break LOOP
			case s := <-steps:
				js, err := json.Marshal(s)
				if err != nil {
					f.Logger.WithError(err).Warn("firehose marshal")
					continue
				}
				if err = c.WriteMessage(websocket.TextMessage, js); err != nil {
					f.Logger.WithError(err).Debug("firehose write")
					break LOOP
				}
			}
		}
	}()

	// Only reading to notice when the client goes away.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

// Serve exposes the firehose at /steps on the address until the
// context is done.
func (f *Firehose) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/steps", f)
	return serve(ctx, addr, mux, "firehose", f.Logger)
}
