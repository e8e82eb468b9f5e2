package server

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"sync/atomic"
	"time"

	"github.com/ops-gateway/pkg/logging"
	"github.com/ops-gateway/pkg/proxy"
	"github.com/ops-gateway/pkg/routing"
	"github.com/pires/go-proxyproto"
)

// StartListener starts the frontend proxy listener
func (g *Gateway) StartListener(bindAddr string) error {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %v", bindAddr, err)
	}

	if g.cfg.Frontend.AcceptProxyProtocol {
		ln = &proxyproto.Listener{
			Listener:          ln,
			ReadHeaderTimeout: g.cfg.GetReadHeaderTimeout(),
		}
	}

	tlsEnabled := g.cfg.TLS.CertFile != "" && g.cfg.TLS.KeyFile != ""
	if tlsEnabled {
		cert, err := tls.LoadX509KeyPair(g.cfg.TLS.CertFile, g.cfg.TLS.KeyFile)
		if err != nil {
			return fmt.Errorf("failed to load TLS key pair: %v", err)
		}
		tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}}
		if g.ticketKeys != nil {
			tlsCfg.SetSessionTicketKeys(g.ticketKeys.SessionKeys())
		}
		ln = tls.NewListener(ln, tlsCfg)
	}

	g.httpSrv = &http.Server{
		Handler:           g,
		ReadHeaderTimeout: g.cfg.GetReadHeaderTimeout(),
	}

	logging.Logf("[listen] gateway addr=%s tls=%v proxy_protocol=%v",
		bindAddr, tlsEnabled, g.cfg.Frontend.AcceptProxyProtocol)
	return g.httpSrv.Serve(ln)
}

// ServeHTTP routes one request through the published table and forwards
// it to a backend picked round-robin from the matched group's pool.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gen := g.gen.Load()
	idx := gen.table.Match(r.Host, r.RequestURI)
	group := gen.table.Group(idx)
	backend := nextBackend(gen, idx)

	if logging.DebugEnabled() {
		logging.Debugf("[request][debug] matched (host=%q target=%q pattern=%q backend=%s)",
			r.Host, r.RequestURI, group.Pattern, backend)
	}

	if r.Method == http.MethodConnect {
		g.serveConnect(w, r, group.Pattern, backend)
		return
	}

	g.serveProxied(w, r, group.Pattern, backend)
}

// nextBackend advances the group's round-robin cursor and returns the
// selected backend. Cursors live in the generation, so a reload resets
// rotation together with the table.
func nextBackend(gen *generation, idx int) routing.Backend {
	pool := gen.table.Group(idx).Backends
	n := atomic.AddUint64(&gen.rr[idx], 1)
	return pool[(n-1)%uint64(len(pool))]
}

// transportFor returns the cached transport for a backend, creating it
// on first use.
func (g *Gateway) transportFor(b routing.Backend) *http.Transport {
	key := b.Network() + "," + b.Address()

	g.transportsLock.Lock()
	defer g.transportsLock.Unlock()
	if t, ok := g.transports[key]; ok {
		return t
	}
	t := proxy.NewTransport(b, g.cfg.GetDialTimeout(), g.cfg.GetReadTimeout(), g.cfg.GetIdleConnTimeout())
	g.transports[key] = t
	return t
}

// countingWriter tracks bytes written to the client for metrics.
type countingWriter struct {
	http.ResponseWriter
	n int64
}

func (cw *countingWriter) Write(b []byte) (int, error) {
	n, err := cw.ResponseWriter.Write(b)
	cw.n += int64(n)
	return n, err
}

func (g *Gateway) serveProxied(w http.ResponseWriter, r *http.Request, pattern string, backend routing.Backend) {
	start := time.Now()
	g.collector.IncActiveRequest(pattern)
	defer g.collector.DecActiveRequest(pattern)

	failed := false
	rp := &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.URL.Scheme = "http"
			if backend.HostUnix {
				// The transport dials the socket; the URL host is
				// only used for the outgoing Host header default.
				req.URL.Host = "localhost"
			} else {
				req.URL.Host = backend.Address()
			}
			// Preserve the client-supplied Host for the backend.
			req.Host = r.Host
		},
		Transport: g.transportFor(backend),
		ErrorHandler: func(rw http.ResponseWriter, req *http.Request, err error) {
			failed = true
			logging.Errorf("[reverse] backend error (pattern=%q backend=%s err=%v)", pattern, backend, err)
			rw.WriteHeader(http.StatusBadGateway)
		},
	}

	cw := &countingWriter{ResponseWriter: w}
	rp.ServeHTTP(cw, r)

	bytesTx := r.ContentLength
	if bytesTx < 0 {
		bytesTx = 0
	}
	g.collector.UpdateRequestMetrics(pattern, "http", !failed, bytesTx, cw.n, time.Since(start))
}

// serveConnect handles authority-form requests: the router already
// resolved them through its degenerate "/" tier, so all that is left is
// dialing the pool backend and splicing bytes.
func (g *Gateway) serveConnect(w http.ResponseWriter, r *http.Request, pattern string, backend routing.Backend) {
	start := time.Now()
	g.collector.IncActiveRequest(pattern)
	defer g.collector.DecActiveRequest(pattern)

	backendConn, err := proxy.DialBackend(r.Context(), backend, g.cfg.GetDialTimeout())
	if err != nil {
		logging.Errorf("[tunnel] dial failed (pattern=%q backend=%s err=%v)", pattern, backend, err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		g.collector.UpdateRequestMetrics(pattern, "connect", false, 0, 0, time.Since(start))
		return
	}
	defer backendConn.Close()

	hj, ok := w.(http.Hijacker)
	if !ok {
		logging.Errorf("[tunnel] hijack unsupported (pattern=%q)", pattern)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		g.collector.UpdateRequestMetrics(pattern, "connect", false, 0, 0, time.Since(start))
		return
	}
	clientConn, brw, err := hj.Hijack()
	if err != nil {
		logging.Errorf("[tunnel] hijack failed (pattern=%q err=%v)", pattern, err)
		g.collector.UpdateRequestMetrics(pattern, "connect", false, 0, 0, time.Since(start))
		return
	}
	defer clientConn.Close()

	// Pipelined bytes already sitting in the server's read buffer must
	// reach the backend too.
	if n := brw.Reader.Buffered(); n > 0 {
		peeked, _ := brw.Reader.Peek(n)
		clientConn = &proxy.BufferedConn{Conn: clientConn, Buf: append([]byte(nil), peeked...)}
	}

	if _, err := clientConn.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		g.collector.UpdateRequestMetrics(pattern, "connect", false, 0, 0, time.Since(start))
		return
	}

	bytesTx, bytesRx, err := proxy.Tunnel(clientConn, backendConn)
	if err != nil && logging.DebugEnabled() {
		logging.Debugf("[tunnel][debug] closed with error (pattern=%q err=%v)", pattern, err)
	}
	g.collector.UpdateRequestMetrics(pattern, "connect", err == nil, bytesTx, bytesRx, time.Since(start))
}
