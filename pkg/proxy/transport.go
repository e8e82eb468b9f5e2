package proxy

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/ops-gateway/pkg/routing"
)

// DialBackend opens a connection to a backend, honoring its network type
// (tcp host:port or unix socket path).
func DialBackend(ctx context.Context, b routing.Backend, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, b.Network(), b.Address())
}

// NewTransport builds an HTTP transport pinned to one backend. The
// request URL's host is ignored at dial time, so unix socket backends
// work through the same reverse proxy path as TCP ones.
func NewTransport(b routing.Backend, dialTimeout, responseTimeout, idleTimeout time.Duration) *http.Transport {
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return DialBackend(ctx, b, dialTimeout)
		},
		ResponseHeaderTimeout: responseTimeout,
		IdleConnTimeout:       idleTimeout,
		MaxIdleConnsPerHost:   16,
	}
}
