package sniff

import (
	"context"
	"sync"
	"time"
)

// Queue is where a Sniffer puts captured packets.
//
// The capture goroutine appends and a machine goroutine waits and
// pops, so a Queue is locked.
type Queue struct {
	sync.Mutex

	packets []interface{}
	changed chan struct{}

	// Limit (if positive) bounds the queue.  The oldest packets are
	// dropped first.
	Limit int

	dropped int
}

// NewQueue makes an empty Queue.
func NewQueue(limit int) *Queue {
	return &Queue{
		changed: make(chan struct{}),
		Limit:   limit,
	}
}

// Append adds a packet and wakes up waiters.
func (q *Queue) Append(p interface{}) {
	q.Lock()
	defer q.Unlock()
	q.packets = append(q.packets, p)
	if 0 < q.Limit && q.Limit < len(q.packets) {
		n := len(q.packets) - q.Limit
		q.packets = append(q.packets[:0], q.packets[n:]...)
		q.dropped += n
	}
	close(q.changed)
	q.changed = make(chan struct{})
}

// Len returns the number of queued packets.
func (q *Queue) Len() int {
	q.Lock()
	defer q.Unlock()
	return len(q.packets)
}

// Dropped returns the number of packets dropped because of the Limit.
func (q *Queue) Dropped() int {
	q.Lock()
	defer q.Unlock()
	return q.dropped
}

// Head returns the oldest packet without removing it.
func (q *Queue) Head() (interface{}, bool) {
	q.Lock()
	defer q.Unlock()
	if len(q.packets) == 0 {
		return nil, false
	}
	return q.packets[0], true
}

// Pop removes and returns the oldest packet.
func (q *Queue) Pop() (interface{}, bool) {
	q.Lock()
	defer q.Unlock()
	return q.pop()
}

func (q *Queue) pop() (interface{}, bool) {
	if len(q.packets) == 0 {
		return nil, false
	}
	p := q.packets[0]
	q.packets[0] = nil
	q.packets = q.packets[1:]
	return p, true
}

// Clear drops everything.
func (q *Queue) Clear() {
	q.Lock()
	q.packets = nil
	q.Unlock()
}

// Wait pops the oldest packet, waiting up to the timeout for one to
// arrive.
func (q *Queue) Wait(ctx context.Context, timeout time.Duration) (interface{}, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.Lock()
		if p, ok := q.pop(); ok {
			q.Unlock()
			return p, true
		}
		changed := q.changed
		q.Unlock()

		select {
		case <-changed:
		case <-timer.C:
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}
