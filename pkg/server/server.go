package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ops-gateway/pkg/config"
	"github.com/ops-gateway/pkg/logging"
	"github.com/ops-gateway/pkg/metrics"
	"github.com/ops-gateway/pkg/secrets"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewGateway creates a gateway from the configuration: the routing table
// is built once here and only replaced by Reload.
func NewGateway(cfg *config.Config) (*Gateway, error) {
	table, err := cfg.BuildTable()
	if err != nil {
		return nil, fmt.Errorf("failed to build routing table: %v", err)
	}

	g := &Gateway{
		cfg:        cfg,
		registry:   prometheus.NewRegistry(),
		transports: make(map[string]*http.Transport),
	}
	g.gen.Store(&generation{table: table, rr: make([]uint64, table.Len())})

	if len(cfg.TLS.TicketKeyFiles) > 0 {
		keys, err := secrets.ReadTicketKeyFiles(cfg.TLS.TicketKeyFiles)
		if err != nil {
			return nil, err
		}
		g.ticketKeys = keys
		logging.Logf("[tls] loaded %d session ticket key(s)", len(keys.Keys))
	}

	collector := metrics.NewCollector(g.Table)
	g.collector = collector
	g.registry.MustRegister(collector)

	logging.Logf("[routing] table built groups=%d catch_all=%q",
		table.Len(), table.Group(table.CatchAll()).Pattern)

	return g, nil
}

// Close releases resources held by the gateway, wiping any loaded key
// material.
func (g *Gateway) Close() {
	if g.ticketKeys != nil {
		g.ticketKeys.Zero()
	}
}

// StartMetricsServer starts the metrics server
func (g *Gateway) StartMetricsServer(metricsAddr, metricsPath string) error {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>
<head><title>Ops Gateway Exporter</title></head>
<body>
<h1>Ops Gateway Exporter</h1>
<p><a href="` + metricsPath + `">Metrics</a></p>
</body>
</html>`))
	})

	g.metricsSrv = &http.Server{Addr: metricsAddr, Handler: mux}
	logging.Logf("[listen] metrics addr=%s path=%s health=/healthz", metricsAddr, metricsPath)
	return g.metricsSrv.ListenAndServe()
}

// Shutdown stops the frontend and metrics listeners gracefully.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var first error
	if g.httpSrv != nil {
		if err := g.httpSrv.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
	}
	if g.metricsSrv != nil {
		if err := g.metricsSrv.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
