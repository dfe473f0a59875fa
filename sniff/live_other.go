//go:build !linux

package sniff

import (
	"errors"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// LiveSource is only available on Linux.
func LiveSource(iface string) Source {
	return func() (gopacket.PacketDataSource, layers.LinkType, io.Closer, error) {
		return nil, 0, nil, errors.New("live capture is only supported on linux")
	}
}
