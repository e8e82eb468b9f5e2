package routing

import (
	"net"
	"strconv"
)

// Backend is one downstream endpoint: either a TCP host/port pair or a
// unix domain socket path (HostUnix set, Port unused). Backends are plain
// values; every group pool owns its own copies.
type Backend struct {
	Host     string
	Port     uint16
	HostUnix bool
}

// Network returns the dial network for this backend ("tcp" or "unix").
func (b Backend) Network() string {
	if b.HostUnix {
		return "unix"
	}
	return "tcp"
}

// Address returns the dial address: the socket path for unix backends,
// "host:port" otherwise.
func (b Backend) Address() string {
	if b.HostUnix {
		return b.Host
	}
	return net.JoinHostPort(b.Host, strconv.Itoa(int(b.Port)))
}

// String returns a loggable representation of the backend.
func (b Backend) String() string {
	if b.HostUnix {
		return "unix:" + b.Host
	}
	return b.Address()
}
