package server

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/ops-gateway/pkg/config"
	"github.com/ops-gateway/pkg/metrics"
	"github.com/ops-gateway/pkg/routing"
	"github.com/ops-gateway/pkg/secrets"
	"github.com/prometheus/client_golang/prometheus"
)

// generation is one published configuration generation: the frozen
// routing table plus the round-robin cursors that belong to it. The two
// are swapped together so cursor indices always line up with the table.
type generation struct {
	table *routing.Table
	rr    []uint64
}

// Gateway proxies requests against the currently published routing
// table. The table is replaced wholesale on reload via an atomic pointer
// swap; in-flight requests keep the generation they captured.
type Gateway struct {
	cfg       *config.Config
	gen       atomic.Pointer[generation]
	registry  *prometheus.Registry
	collector *metrics.Collector

	// transports caches one HTTP transport per backend address so
	// connection pools survive reloads that keep a backend.
	transportsLock sync.Mutex
	transports     map[string]*http.Transport

	ticketKeys *secrets.TicketKeys

	httpSrv    *http.Server
	metricsSrv *http.Server
}

// Table returns the currently published routing table.
func (g *Gateway) Table() *routing.Table {
	return g.gen.Load().table
}
