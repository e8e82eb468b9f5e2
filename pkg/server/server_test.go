package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/ops-gateway/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startBackend runs an HTTP backend that answers with its own tag and
// returns a backend directive address fragment ("127.0.0.1,port").
func startBackend(t *testing.T, tag string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tag)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return "127.0.0.1," + u.Port()
}

func newTestGateway(t *testing.T, backends ...string) *Gateway {
	t.Helper()
	cfg := &config.Config{Backend: backends}
	cfg.SetDefaults()

	g, err := NewGateway(cfg)
	require.NoError(t, err)
	t.Cleanup(g.Close)
	return g
}

func get(t *testing.T, g *Gateway, host, path string) (int, string) {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.Host = host
	w := httptest.NewRecorder()
	g.ServeHTTP(w, r)
	resp := w.Result()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestGatewayRoutesByHostAndPath(t *testing.T) {
	def := startBackend(t, "default")
	api := startBackend(t, "api")

	g := newTestGateway(t,
		def,
		api+";example.com/api/",
	)

	status, body := get(t, g, "example.com", "/api/users")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "api", body)

	status, body = get(t, g, "example.com", "/other")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "default", body)

	status, body = get(t, g, "other.example", "/api/users")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "default", body)
}

func TestGatewayRoundRobinWithinGroup(t *testing.T) {
	a := startBackend(t, "a")
	b := startBackend(t, "b")

	g := newTestGateway(t,
		a+";/pool/",
		b+";/pool/",
		startBackend(t, "default"),
	)

	seen := make(map[string]int)
	for i := 0; i < 4; i++ {
		_, body := get(t, g, "example.com", "/pool/x")
		seen[body]++
	}
	assert.Equal(t, 2, seen["a"])
	assert.Equal(t, 2, seen["b"])
}

func TestGatewayBadBackendIs502(t *testing.T) {
	// Port 1 on localhost should refuse connections.
	g := newTestGateway(t, "127.0.0.1,1")

	status, _ := get(t, g, "example.com", "/")
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestGatewayReloadSwapsTable(t *testing.T) {
	first := startBackend(t, "first")
	second := startBackend(t, "second")

	g := newTestGateway(t, first)

	_, body := get(t, g, "example.com", "/")
	assert.Equal(t, "first", body)

	cfg := &config.Config{Backend: []string{second}}
	cfg.SetDefaults()
	require.NoError(t, g.Reload(cfg))

	_, body = get(t, g, "example.com", "/")
	assert.Equal(t, "second", body)
}

func TestGatewayReloadRejectsBadConfigKeepsOldTable(t *testing.T) {
	first := startBackend(t, "first")
	g := newTestGateway(t, first)

	bad := &config.Config{Backend: []string{"not-a-directive"}}
	assert.Error(t, g.Reload(bad))

	_, body := get(t, g, "example.com", "/")
	assert.Equal(t, "first", body)
}

func TestNewGatewayRejectsMalformedBackend(t *testing.T) {
	cfg := &config.Config{Backend: []string{"127.0.0.1:80"}}
	_, err := NewGateway(cfg)
	assert.Error(t, err)
}

func TestNextBackendCursorWraps(t *testing.T) {
	g := newTestGateway(t, "127.0.0.1,8001;/", "127.0.0.1,8002;/", "127.0.0.1,8003;/")
	gen := g.gen.Load()

	var ports []uint16
	for i := 0; i < 6; i++ {
		ports = append(ports, nextBackend(gen, 0).Port)
	}
	assert.Equal(t, []uint16{8001, 8002, 8003, 8001, 8002, 8003}, ports)
}

func TestGatewayConnectTunnel(t *testing.T) {
	// Raw TCP echo backend registered under the catch-all; CONNECT
	// requests resolve through the authority-form tier.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.Copy(conn, conn)
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	g := newTestGateway(t, fmt.Sprintf("127.0.0.1,%d", port))

	front := httptest.NewServer(g)
	t.Cleanup(front.Close)

	conn, err := net.Dial("tcp", front.Listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = fmt.Fprintf(conn, "CONNECT example.com:443 HTTP/1.1\r\nHost: example.com:443\r\n\r\n")
	require.NoError(t, err)

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, status, "200")
	// Skip remaining response headers.
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			break
		}
	}

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(br, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
}

func TestGatewayPreservesHostHeader(t *testing.T) {
	var gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
	}))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	g := newTestGateway(t, fmt.Sprintf("127.0.0.1,%d", port))

	status, _ := get(t, g, "example.com", "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "example.com", gotHost)
}
