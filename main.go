package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ops-gateway/pkg/config"
	"github.com/ops-gateway/pkg/logging"
	"github.com/ops-gateway/pkg/server"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	configFile    = kingpin.Flag("config.file", "Path to configuration file.").Default("config.yaml").String()
	listenAddress = kingpin.Flag("web.listen-address", "Address to listen on for web interface and telemetry.").Default(":9090").String()
	telemetryPath = kingpin.Flag("web.telemetry-path", "Path under which to expose metrics.").Default("/metrics").String()
	bindAddr      = kingpin.Flag("bind-addr", "Address to bind for the gateway frontend (listening)").Default(":3000").String()
)

func main() {
	kingpin.Parse()

	appConfig := loadConfig(*configFile)
	logging.Setup(appConfig.Log.Level, appConfig.Log.Format)

	gateway, err := server.NewGateway(appConfig)
	if err != nil {
		logging.Fatalf("Failed to create gateway: %v", err)
	}
	defer gateway.Close()

	// Get frontend address from command line or config
	bindAddress := *bindAddr
	if appConfig.Frontend.BindAddr != "" {
		bindAddress = appConfig.Frontend.BindAddr
	}

	// Start gateway listener
	go func() {
		if err := gateway.StartListener(bindAddress); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("Gateway listener error: %v", err)
		}
	}()

	// Reload routing table on SIGHUP
	hupChan := make(chan os.Signal, 1)
	signal.Notify(hupChan, syscall.SIGHUP)
	go func() {
		for range hupChan {
			logging.Logf("[reload] SIGHUP received, rebuilding routing table")
			cfg := loadConfig(*configFile)
			if err := gateway.Reload(cfg); err != nil {
				logging.Errorf("[reload] keeping previous routing table: %v", err)
			}
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logging.Logf("Received shutdown signal, shutting down gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = gateway.Shutdown(ctx)
	}()

	// Get metrics config from command line or config file
	metricsPath := *telemetryPath
	metricsAddr := *listenAddress
	if appConfig.Metrics.TelemetryPath != "" {
		metricsPath = appConfig.Metrics.TelemetryPath
	}
	if appConfig.Metrics.ListenAddress != "" {
		metricsAddr = appConfig.Metrics.ListenAddress
	}

	// Start metrics server (blocks until shutdown)
	if err := gateway.StartMetricsServer(metricsAddr, metricsPath); err != nil {
		logging.Logf("Metrics server stopped: %v", err)
	}
}

// loadConfig loads the configuration file, falling back to defaults plus
// environment overrides when the file is missing.
func loadConfig(path string) *config.Config {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logging.Logf("Warning: Failed to load config file: %v, using defaults", err)
		cfg = &config.Config{}
		cfg.SetDefaults()
		cfg.ApplyEnvOverrides()
	}
	return cfg
}
