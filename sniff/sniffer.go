package sniff

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Sniffer captures packets into its Queue.
//
// Machines only look at the Queue's length and head.  They never
// interpret what's in it.
type Sniffer interface {
	Start(ctx context.Context) error
	Stop() error
	SetFilter(expr string) error
	Queue() *Queue
}

// Source opens something that yields link-layer frames.
type Source func() (gopacket.PacketDataSource, layers.LinkType, io.Closer, error)

// PacketSniffer decodes frames from a Source with gopacket and queues
// the ones that pass its Filter.
type PacketSniffer struct {
	sync.Mutex

	Name   string
	Logger logrus.FieldLogger

	open   Source
	queue  *Queue
	filter *Filter
	closer io.Closer
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPacketSniffer makes a stopped sniffer.
func NewPacketSniffer(name string, open Source, q *Queue, logger logrus.FieldLogger) *PacketSniffer {
	if q == nil {
		q = NewQueue(0)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PacketSniffer{
		Name:   name,
		Logger: logger,
		open:   open,
		queue:  q,
	}
}

// FileSource replays a pcap file.
func FileSource(filename string) Source {
	return func() (gopacket.PacketDataSource, layers.LinkType, io.Closer, error) {
		f, err := os.Open(filename)
		if err != nil {
			return nil, 0, nil, err
		}
		r, err := pcapgo.NewReader(f)
		if err != nil {
			f.Close()
			return nil, 0, nil, errors.Wrap(err, filename)
		}
		return r, r.LinkType(), f, nil
	}
}

// NewFileSniffer makes a sniffer that replays a pcap file.
func NewFileSniffer(filename string, logger logrus.FieldLogger) *PacketSniffer {
	return NewPacketSniffer(filename, FileSource(filename), nil, logger)
}

// NewLiveSniffer makes a sniffer on a network interface.
func NewLiveSniffer(iface string, logger logrus.FieldLogger) *PacketSniffer {
	return NewPacketSniffer(iface, LiveSource(iface), nil, logger)
}

func (s *PacketSniffer) Queue() *Queue {
	return s.queue
}

// SetFilter changes the filter.  It takes effect for the next
// packet, even while running.
func (s *PacketSniffer) SetFilter(expr string) error {
	f, err := ParseFilter(expr)
	if err != nil {
		return err
	}
	s.Lock()
	s.filter = f
	s.Unlock()
	return nil
}

func (s *PacketSniffer) currentFilter() *Filter {
	s.Lock()
	defer s.Unlock()
	return s.filter
}

// Start opens the source and captures in a goroutine until Stop, the
// context is done, or the source runs dry.
func (s *PacketSniffer) Start(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if s.cancel != nil {
		return errors.New("sniffer already started")
	}

	src, lt, closer, err := s.open()
	if err != nil {
		return errors.Wrapf(err, "sniffer %s", s.Name)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.closer = closer
	s.done = make(chan struct{})

	go s.capture(ctx, src, lt, s.done)

	return nil
}

func (s *PacketSniffer) capture(ctx context.Context, src gopacket.PacketDataSource, lt layers.LinkType, done chan struct{}) {
	defer close(done)

	ps := gopacket.NewPacketSource(src, lt)
	ps.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p, err := ps.NextPacket()
		if err == io.EOF {
			s.Logger.WithField("sniffer", s.Name).Debug("capture source exhausted")
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.Logger.WithError(err).WithField("sniffer", s.Name).Warn("capture error")
			return
		}
		if !s.currentFilter().Match(p) {
			continue
		}
		s.queue.Append(p)
	}
}

// Stop ends the capture.  Packets already queued stay queued.
func (s *PacketSniffer) Stop() error {
	s.Lock()
	cancel, closer, done := s.cancel, s.closer, s.done
	s.cancel, s.closer, s.done = nil, nil, nil
	s.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	var err error
	if closer != nil {
		err = closer.Close()
	}
	<-done
	return err
}

// Wait waits for the capture goroutine to finish.
func (s *PacketSniffer) Wait() {
	s.Lock()
	done := s.done
	s.Unlock()
	if done != nil {
		<-done
	}
}
