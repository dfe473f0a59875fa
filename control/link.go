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

package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// NotConnected is returned when a message is sent before the link has
// a transport (or after it's gone).
var NotConnected = errors.New("control link not connected")

// Link is the control channel connection between two workers.
//
// The link's reader goroutine updates it as messages arrive, and
// machine goroutines read it, send through it, and wait on it.
// Everything is protected by the Link's mutex.  Waiters block on a
// channel that's closed (and replaced) on every change.
type Link struct {
	sync.Mutex

	local   Status
	remote  Status
	active  bool
	inbound [][]interface{}
	changed chan struct{}

	t       Transport
	closing bool

	// cancel stops a pending Open.
	cancel context.CancelFunc

	Logger logrus.FieldLogger
}

// NewLink makes a disconnected Link.
func NewLink(logger logrus.FieldLogger) *Link {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Link{
		local:   Disconnected,
		remote:  Disconnected,
		changed: make(chan struct{}),
		Logger:  logger,
	}
}

// notify wakes up all waiters.  Caller must hold the lock.
func (l *Link) notify() {
	close(l.changed)
	l.changed = make(chan struct{})
}

// Attach starts using the transport: the local status becomes
// CONNECTED, a reader goroutine starts, and the status is sent to the
// peer.
func (l *Link) Attach(t Transport) error {
	l.Lock()
	if l.t != nil {
		l.Unlock()
		return errors.New("control link already attached")
	}
	l.t = t
	l.closing = false
	l.active = true
	l.local = Connected
	l.notify()
	l.Unlock()

	go l.read(t)

	return l.send(StatusMessage(Connected))
}

// Open connects (or listens) according to the Config in the
// background and attaches the resulting transport.
//
// Failures are logged.  A waiter will then see a timeout.
func (l *Link) Open(ctx context.Context, cfg *Config) {
	ctx, cancel := context.WithCancel(ctx)
	l.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.cancel = cancel
	l.Unlock()

	go func() {
		t, err := Dial(ctx, cfg)
		if err != nil {
			l.Logger.WithError(err).WithField("address", cfg.Address).Error("control link failed")
			return
		}
		if err = l.Attach(t); err != nil {
			l.Logger.WithError(err).Error("control link attach failed")
		}
	}()
}

func (l *Link) read(t Transport) {
	for {
		bs, err := t.ReadMessage()
		if err != nil {
			l.lost(t, err)
			return
		}
		m, err := Decode(bs)
		if err != nil {
			l.Logger.WithError(err).Warn("dropping control message")
			continue
		}
		l.receive(m)
	}
}

func (l *Link) receive(m *Message) {
	l.Lock()
	defer l.Unlock()

	if m.Status != "" {
		l.remote = m.Status
		if l.local == Connected && l.remote == Connected {
			l.local, l.remote = Ready, Ready
		}
		l.Logger.WithFields(logrus.Fields{
			"local":  l.local,
			"remote": l.remote,
		}).Debug("control status")
		l.maybeFinish()
	}
	if m.Sync != nil {
		l.inbound = append(l.inbound, m.Sync)
	}
	l.notify()
}

// maybeFinish closes the transport once both sides are
// DISCONNECTING.  Caller must hold the lock.
func (l *Link) maybeFinish() {
	if l.local != Disconnecting || l.remote != Disconnecting || l.closing {
		return
	}
	l.closing = true
	l.active = false
	if l.t != nil {
		go l.t.Close()
	}
	l.notify()
}

// lost is called when the transport fails or is closed.
func (l *Link) lost(t Transport, err error) {
	l.Lock()
	defer l.Unlock()
	if l.t != t {
		return
	}
	if !l.closing {
		l.Logger.WithError(err).Info("control link lost")
		t.Close()
	}
	l.t = nil
	l.active = false
	l.local, l.remote = Disconnected, Disconnected
	l.notify()
}

func (l *Link) send(m *Message) error {
	bs, err := Encode(m)
	if err != nil {
		return err
	}
	l.Lock()
	t := l.t
	l.Unlock()
	if t == nil {
		return NotConnected
	}
	return t.WriteMessage(bs)
}

// Sync sends values to the peer, which queues them.
func (l *Link) Sync(vals []interface{}) error {
	return l.send(SyncMessage(vals))
}

// Disconnect starts the disconnection handshake.
func (l *Link) Disconnect() error {
	l.Lock()
	l.local = Disconnecting
	l.notify()
	l.Unlock()

	if err := l.send(StatusMessage(Disconnecting)); err != nil {
		return err
	}

	l.Lock()
	l.maybeFinish()
	l.Unlock()

	return nil
}

// Close drops the transport without a handshake.
func (l *Link) Close() error {
	l.Lock()
	t := l.t
	l.closing = true
	l.active = false
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.notify()
	l.Unlock()
	if t == nil {
		return nil
	}
	return t.Close()
}

// Status returns the local and remote statuses.
func (l *Link) Status() (local, remote Status) {
	l.Lock()
	defer l.Unlock()
	return l.local, l.remote
}

// Active reports whether the link has a live transport that hasn't
// finished the disconnection handshake.
func (l *Link) Active() bool {
	l.Lock()
	defer l.Unlock()
	return l.active
}

// Pending returns the number of queued sync payloads.
func (l *Link) Pending() int {
	l.Lock()
	defer l.Unlock()
	return len(l.inbound)
}

// wait blocks until the predicate (called with the lock held) is
// true, the timeout expires, or the context is done.
func (l *Link) wait(ctx context.Context, timeout time.Duration, pred func() bool) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		l.Lock()
		if pred() {
			l.Unlock()
			return true
		}
		changed := l.changed
		l.Unlock()

		select {
		case <-changed:
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// WaitReady waits until both sides are READY.
func (l *Link) WaitReady(ctx context.Context, timeout time.Duration) bool {
	return l.wait(ctx, timeout, func() bool {
		return l.local == Ready && l.remote == Ready
	})
}

// WaitSync waits for a sync payload and removes it from the queue.
func (l *Link) WaitSync(ctx context.Context, timeout time.Duration) ([]interface{}, bool) {
	var vals []interface{}
	ok := l.wait(ctx, timeout, func() bool {
		if len(l.inbound) == 0 {
			return false
		}
		vals = l.inbound[0]
		l.inbound[0] = nil
		l.inbound = l.inbound[1:]
		return true
	})
	return vals, ok
}

// WaitInactive waits until the link isn't active.  A link that was
// never attached is inactive.
func (l *Link) WaitInactive(ctx context.Context, timeout time.Duration) bool {
	return l.wait(ctx, timeout, func() bool {
		return !l.active
	})
}
