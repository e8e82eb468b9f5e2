package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ops-gateway/pkg/routing"
	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Frontend FrontendConfig `yaml:"frontend"`
	Backend  []string       `yaml:"backend"`
	Log      LogConfig      `yaml:"log"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	TLS      TLSConfig      `yaml:"tls"`
}

// FrontendConfig frontend listener configuration
type FrontendConfig struct {
	BindAddr            string `yaml:"bind_addr"`             // Gateway listening address (format: ip:port or :port, e.g., ":3000")
	AcceptProxyProtocol bool   `yaml:"accept_proxy_protocol"` // Expect HAProxy PROXY protocol (v1/v2) on incoming connections
	ReadHeaderTimeout   int    `yaml:"read_header_timeout"`   // Request header read timeout in seconds
}

// LogConfig log configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProxyConfig upstream forwarding configuration
type ProxyConfig struct {
	DialTimeout     int `yaml:"dial_timeout"`      // Backend dial timeout in seconds
	ReadTimeout     int `yaml:"read_timeout"`      // Backend response header timeout in seconds
	IdleConnTimeout int `yaml:"idle_conn_timeout"` // Idle backend connection timeout in seconds
}

// MetricsConfig telemetry endpoint configuration
type MetricsConfig struct {
	ListenAddress string `yaml:"listen_address"` // Metrics listener address
	TelemetryPath string `yaml:"telemetry_path"` // Metrics path
}

// TLSConfig frontend TLS configuration
type TLSConfig struct {
	CertFile       string   `yaml:"cert_file"`
	KeyFile        string   `yaml:"key_file"`
	TicketKeyFiles []string `yaml:"ticket_key_files"` // 48-byte session ticket key files
}

// LoadConfig loads configuration from file
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		// Try default path
		configPath = "config.yaml"
	}

	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}

	// Set default values
	config.SetDefaults()

	// Apply environment variable overrides
	config.ApplyEnvOverrides()

	return &config, nil
}

// SetDefaults sets default values
func (c *Config) SetDefaults() {
	if c.Frontend.BindAddr == "" {
		c.Frontend.BindAddr = ":3000"
	}
	if c.Frontend.ReadHeaderTimeout == 0 {
		c.Frontend.ReadHeaderTimeout = 10
	}
	if len(c.Backend) == 0 {
		// Default downstream, keeps the routing table non-empty so the
		// catch-all group always exists.
		c.Backend = []string{"127.0.0.1,80"}
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Proxy.DialTimeout == 0 {
		c.Proxy.DialTimeout = 30
	}
	if c.Proxy.ReadTimeout == 0 {
		c.Proxy.ReadTimeout = 30
	}
	if c.Proxy.IdleConnTimeout == 0 {
		c.Proxy.IdleConnTimeout = 90
	}

	if c.Metrics.ListenAddress == "" {
		c.Metrics.ListenAddress = ":9090"
	}
	if c.Metrics.TelemetryPath == "" {
		c.Metrics.TelemetryPath = "/metrics"
	}
}

// GetDialTimeout gets backend dial timeout
func (c *Config) GetDialTimeout() time.Duration {
	return time.Duration(c.Proxy.DialTimeout) * time.Second
}

// GetReadTimeout gets backend response header timeout
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Proxy.ReadTimeout) * time.Second
}

// GetIdleConnTimeout gets idle backend connection timeout
func (c *Config) GetIdleConnTimeout() time.Duration {
	return time.Duration(c.Proxy.IdleConnTimeout) * time.Second
}

// GetReadHeaderTimeout gets frontend header read timeout
func (c *Config) GetReadHeaderTimeout() time.Duration {
	return time.Duration(c.Frontend.ReadHeaderTimeout) * time.Second
}

// ApplyEnvOverrides applies environment variable overrides
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("GATEWAY_BIND_ADDR"); val != "" {
		c.Frontend.BindAddr = val
	}
	if val := os.Getenv("GATEWAY_ACCEPT_PROXY_PROTOCOL"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Frontend.AcceptProxyProtocol = b
		}
	}
	if val := os.Getenv("GATEWAY_READ_HEADER_TIMEOUT_SECONDS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Frontend.ReadHeaderTimeout = i
		}
	}

	// Whitespace-separated backend directives; each one is
	// "[unix:]host,port[;patterns]".
	if val := os.Getenv("GATEWAY_BACKENDS"); val != "" {
		c.Backend = strings.Fields(val)
	}

	// Log config
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}

	// Proxy config
	if val := os.Getenv("PROXY_DIAL_TIMEOUT_SECONDS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Proxy.DialTimeout = i
		}
	}
	if val := os.Getenv("PROXY_READ_TIMEOUT_SECONDS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Proxy.ReadTimeout = i
		}
	}
	if val := os.Getenv("PROXY_IDLE_CONN_TIMEOUT_SECONDS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Proxy.IdleConnTimeout = i
		}
	}

	// Metrics config
	if val := os.Getenv("METRICS_LISTEN_ADDRESS"); val != "" {
		c.Metrics.ListenAddress = val
	}
	if val := os.Getenv("METRICS_TELEMETRY_PATH"); val != "" {
		c.Metrics.TelemetryPath = val
	}
}

// BuildTable parses all backend directives and freezes them into a
// routing table. Malformed directives are rejected here, before any
// mapping reaches the group builder.
func (c *Config) BuildTable() (*routing.Table, error) {
	builder := routing.NewBuilder()
	for _, directive := range c.Backend {
		addr, patterns, err := routing.ParseBackend(directive)
		if err != nil {
			return nil, err
		}
		builder.AddMapping(addr, patterns)
	}
	return builder.Build()
}
