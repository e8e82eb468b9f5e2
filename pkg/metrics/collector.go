package metrics

import (
	"os"
	"sync"
	"time"

	"github.com/ops-gateway/pkg/routing"
	"github.com/prometheus/client_golang/prometheus"
)

// requestKey keys per-pattern/per-protocol counters. Patterns may contain
// ':' (bracketed IPv6 hosts), so a struct key is used instead of a joined
// string.
type requestKey struct {
	pattern  string
	protocol string
}

// Collector Prometheus metrics collector
type Collector struct {
	// GetTable returns the currently published routing table.
	GetTable func() *routing.Table

	// Info metric (always 1)
	gatewayInfo *prometheus.Desc

	// Routing table metrics
	routingGroups   *prometheus.Desc
	routingBackends *prometheus.Desc

	// Request metrics
	requestsTotal         *prometheus.Desc
	requestsFailed        *prometheus.Desc
	requestsActive        *prometheus.Desc
	requestLatencySeconds *prometheus.Desc
	requestBytesTx        *prometheus.Desc
	requestBytesRx        *prometheus.Desc

	// Reload metrics
	configReloads        *prometheus.Desc
	configReloadFailures *prometheus.Desc

	// Metrics counters (protected by mutex)
	metricsLock       sync.RWMutex
	requestsCount     map[requestKey]float64
	requestsFailedMap map[requestKey]float64
	latencySum        map[requestKey]float64
	latencyCount      map[requestKey]float64
	bytesTxByPattern  map[string]float64
	bytesRxByPattern  map[string]float64
	activeByPattern   map[string]float64
	reloadsTotal      float64
	reloadFailures    float64
}

// NewCollector creates a new metrics collector
func NewCollector(getTable func() *routing.Table) *Collector {
	return &Collector{
		GetTable: getTable,
		gatewayInfo: prometheus.NewDesc(
			"ops_gateway_info",
			"Gateway process info metric (always 1)",
			[]string{"node", "pod"},
			nil,
		),
		routingGroups: prometheus.NewDesc(
			"ops_gateway_routing_groups",
			"Number of backend groups in the published routing table",
			[]string{"node", "pod"},
			nil,
		),
		routingBackends: prometheus.NewDesc(
			"ops_gateway_routing_backends",
			"Total number of backend addresses across all groups",
			[]string{"node", "pod"},
			nil,
		),
		requestsTotal: prometheus.NewDesc(
			"ops_gateway_requests_total",
			"Total number of proxied requests by matched pattern",
			[]string{"pattern", "protocol", "node", "pod"},
			nil,
		),
		requestsFailed: prometheus.NewDesc(
			"ops_gateway_requests_failed_total",
			"Total number of failed proxied requests by matched pattern",
			[]string{"pattern", "protocol", "node", "pod"},
			nil,
		),
		requestsActive: prometheus.NewDesc(
			"ops_gateway_requests_active",
			"Number of in-flight requests by matched pattern",
			[]string{"pattern", "node", "pod"},
			nil,
		),
		requestLatencySeconds: prometheus.NewDesc(
			"ops_gateway_request_latency_seconds",
			"Average request latency in seconds by matched pattern",
			[]string{"pattern", "protocol", "node", "pod"},
			nil,
		),
		requestBytesTx: prometheus.NewDesc(
			"ops_gateway_request_bytes_tx_total",
			"Total bytes transmitted to backends",
			[]string{"pattern", "node", "pod"},
			nil,
		),
		requestBytesRx: prometheus.NewDesc(
			"ops_gateway_request_bytes_rx_total",
			"Total bytes received from backends",
			[]string{"pattern", "node", "pod"},
			nil,
		),
		configReloads: prometheus.NewDesc(
			"ops_gateway_config_reloads_total",
			"Total number of successful configuration reloads",
			[]string{"node", "pod"},
			nil,
		),
		configReloadFailures: prometheus.NewDesc(
			"ops_gateway_config_reload_failures_total",
			"Total number of failed configuration reloads",
			[]string{"node", "pod"},
			nil,
		),
		requestsCount:     make(map[requestKey]float64),
		requestsFailedMap: make(map[requestKey]float64),
		latencySum:        make(map[requestKey]float64),
		latencyCount:      make(map[requestKey]float64),
		bytesTxByPattern:  make(map[string]float64),
		bytesRxByPattern:  make(map[string]float64),
		activeByPattern:   make(map[string]float64),
	}
}

// IncActiveRequest increments the in-flight gauge for a pattern.
func (c *Collector) IncActiveRequest(pattern string) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.activeByPattern[pattern]++
}

// DecActiveRequest decrements the in-flight gauge for a pattern.
func (c *Collector) DecActiveRequest(pattern string) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	if c.activeByPattern[pattern] > 0 {
		c.activeByPattern[pattern]--
	}
}

// UpdateRequestMetrics updates request counters for one finished request
func (c *Collector) UpdateRequestMetrics(pattern, protocol string, success bool, bytesTx, bytesRx int64, duration time.Duration) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	key := requestKey{pattern: pattern, protocol: protocol}
	c.requestsCount[key]++
	c.bytesTxByPattern[pattern] += float64(bytesTx)
	c.bytesRxByPattern[pattern] += float64(bytesRx)

	if success {
		c.latencySum[key] += duration.Seconds()
		c.latencyCount[key]++
	} else {
		c.requestsFailedMap[key]++
	}
}

// RecordReload records a configuration reload attempt
func (c *Collector) RecordReload(success bool) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	if success {
		c.reloadsTotal++
	} else {
		c.reloadFailures++
	}
}

// Describe implements prometheus.Collector interface
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.gatewayInfo
	ch <- c.routingGroups
	ch <- c.routingBackends
	ch <- c.requestsTotal
	ch <- c.requestsFailed
	ch <- c.requestsActive
	ch <- c.requestLatencySeconds
	ch <- c.requestBytesTx
	ch <- c.requestBytesRx
	ch <- c.configReloads
	ch <- c.configReloadFailures
}

// Collect implements prometheus.Collector interface
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	nodeName := os.Getenv("NODE_NAME")
	if nodeName == "" {
		nodeName = "unknown"
	}

	podName := os.Getenv("POD_NAME")
	if podName == "" {
		podName = os.Getenv("HOSTNAME")
		if podName == "" {
			podName = "unknown"
		}
	}

	ch <- prometheus.MustNewConstMetric(
		c.gatewayInfo,
		prometheus.GaugeValue,
		1,
		nodeName, podName,
	)

	if c.GetTable != nil {
		table := c.GetTable()
		if table != nil {
			backends := 0
			for i := 0; i < table.Len(); i++ {
				backends += len(table.Group(i).Backends)
			}
			ch <- prometheus.MustNewConstMetric(
				c.routingGroups,
				prometheus.GaugeValue,
				float64(table.Len()),
				nodeName, podName,
			)
			ch <- prometheus.MustNewConstMetric(
				c.routingBackends,
				prometheus.GaugeValue,
				float64(backends),
				nodeName, podName,
			)
		}
	}

	// Collect metrics from counters
	c.metricsLock.RLock()
	defer c.metricsLock.RUnlock()

	for key, value := range c.requestsCount {
		ch <- prometheus.MustNewConstMetric(
			c.requestsTotal,
			prometheus.CounterValue,
			value,
			key.pattern, key.protocol, nodeName, podName,
		)
	}

	for key, value := range c.requestsFailedMap {
		ch <- prometheus.MustNewConstMetric(
			c.requestsFailed,
			prometheus.CounterValue,
			value,
			key.pattern, key.protocol, nodeName, podName,
		)
	}

	for pattern, value := range c.activeByPattern {
		ch <- prometheus.MustNewConstMetric(
			c.requestsActive,
			prometheus.GaugeValue,
			value,
			pattern, nodeName, podName,
		)
	}

	for key, sum := range c.latencySum {
		if c.latencyCount[key] > 0 {
			avg := sum / c.latencyCount[key]
			ch <- prometheus.MustNewConstMetric(
				c.requestLatencySeconds,
				prometheus.GaugeValue,
				avg,
				key.pattern, key.protocol, nodeName, podName,
			)
		}
	}

	for pattern, value := range c.bytesTxByPattern {
		ch <- prometheus.MustNewConstMetric(
			c.requestBytesTx,
			prometheus.CounterValue,
			value,
			pattern, nodeName, podName,
		)
	}

	for pattern, value := range c.bytesRxByPattern {
		ch <- prometheus.MustNewConstMetric(
			c.requestBytesRx,
			prometheus.CounterValue,
			value,
			pattern, nodeName, podName,
		)
	}

	ch <- prometheus.MustNewConstMetric(
		c.configReloads,
		prometheus.CounterValue,
		c.reloadsTotal,
		nodeName, podName,
	)
	ch <- prometheus.MustNewConstMetric(
		c.configReloadFailures,
		prometheus.CounterValue,
		c.reloadFailures,
		nodeName, podName,
	)
}
