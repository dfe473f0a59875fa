//go:build linux

package sniff

import (
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// LiveSource captures from a network interface with an AF_PACKET
// socket.  Needs CAP_NET_RAW.
func LiveSource(iface string) Source {
	return func() (gopacket.PacketDataSource, layers.LinkType, io.Closer, error) {
		h, err := pcapgo.NewEthernetHandle(iface)
		if err != nil {
			return nil, 0, nil, err
		}
		return h, layers.LinkTypeEthernet, closerFunc(func() error {
			h.Close()
			return nil
		}), nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
