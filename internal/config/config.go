// Package config handles YAML configuration parsing, defaults, validation,
// diffing and hot reload for pathproxy.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for pathproxy.
type Config struct {
	Listen   ListenConfig   `yaml:"listen"`
	Routes   Routes         `yaml:"routes"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Fallback FallbackConfig `yaml:"fallback"`
	Health   HealthConfig   `yaml:"health"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
	Reload   ReloadConfig   `yaml:"reload"`
}

// ListenConfig defines the listener address and connection limits.
type ListenConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	GRPCPort        int    `yaml:"grpc_port"` // 0 disables the gRPC health service
	MaxConnections  int    `yaml:"max_connections"`
	GlobalRateLimit int    `yaml:"global_rate_limit"` // requests per minute, 0 disables
	ProxyProtocol   bool   `yaml:"proxy_protocol"`    // accept HAProxy PROXY protocol headers

	// Per-client limit, keyed by the address resolved through TrustedProxies.
	ClientRateLimit int      `yaml:"client_rate_limit"` // requests per minute per client, 0 disables
	ClientBurst     int      `yaml:"client_burst"`
	TrustedProxies  []string `yaml:"trusted_proxies"` // CIDRs or IPs allowed to set X-Forwarded-For
}

// RouteConfig maps a path pattern to a target origin.
type RouteConfig struct {
	Pattern string
	Target  string
}

// Routes is the ordered route mapping. In YAML it is written as a mapping
// from pattern to target; the document order is the matching order.
type Routes []RouteConfig

// UnmarshalYAML implements yaml.Unmarshaler, keeping mapping order and
// rejecting duplicate patterns.
func (r *Routes) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: routes must be a mapping of pattern to target", value.Line)
	}

	seen := make(map[string]int, len(value.Content)/2)
	out := make(Routes, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var pattern, target string
		if err := value.Content[i].Decode(&pattern); err != nil {
			return fmt.Errorf("line %d: route pattern: %w", value.Content[i].Line, err)
		}
		if err := value.Content[i+1].Decode(&target); err != nil {
			return fmt.Errorf("line %d: route target for %q: %w", value.Content[i+1].Line, pattern, err)
		}
		if line, dup := seen[pattern]; dup {
			return fmt.Errorf("line %d: duplicate route pattern %q (first defined on line %d)", value.Content[i].Line, pattern, line)
		}
		seen[pattern] = value.Content[i].Line
		out = append(out, RouteConfig{Pattern: pattern, Target: target})
	}

	*r = out
	return nil
}

// MarshalYAML implements yaml.Marshaler, emitting an ordered mapping.
func (r Routes) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, rt := range r {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: rt.Pattern, Style: yaml.DoubleQuotedStyle},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: rt.Target},
		)
	}
	return node, nil
}

// ProxyConfig holds the forwarding options.
type ProxyConfig struct {
	Debug        bool     `yaml:"debug"`
	ChangeOrigin *bool    `yaml:"change_origin"` // nil means the default, true
	Timeout      Duration `yaml:"timeout"`       // 0 means no forwarder deadline
}

// ChangeOriginEnabled reports the effective change_origin setting.
func (p ProxyConfig) ChangeOriginEnabled() bool {
	return p.ChangeOrigin == nil || *p.ChangeOrigin
}

// UpstreamConfig tunes the HTTP transport used to reach targets.
type UpstreamConfig struct {
	DialTimeout           Duration `yaml:"dial_timeout"`
	ResponseHeaderTimeout Duration `yaml:"response_header_timeout"`
	IdleConnTimeout       Duration `yaml:"idle_conn_timeout"`
	MaxIdleConns          int      `yaml:"max_idle_conns"`
	InsecureSkipVerify    bool     `yaml:"tls_insecure_skip_verify"`
}

// FallbackConfig describes what serves requests the forwarder passes through.
type FallbackConfig struct {
	StaticDir string `yaml:"static_dir"` // empty answers every fallback request with 404
}

// HealthConfig defines health check endpoint paths.
type HealthConfig struct {
	LivenessPath  string `yaml:"liveness_path"`
	ReadinessPath string `yaml:"readiness_path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"` // nil means the default, true
	Path    string `yaml:"path"`
}

// IsEnabled reports whether the metrics endpoint is served.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// LoggingConfig defines log output format and access log sampling.
type LoggingConfig struct {
	Level  string       `yaml:"level"`
	Format string       `yaml:"format"`
	Output string       `yaml:"output"`
	Access AccessConfig `yaml:"access"`
}

// AccessConfig controls access log sampling rates.
type AccessConfig struct {
	SamplingRate      float64 `yaml:"sampling_rate"`
	ErrorSamplingRate float64 `yaml:"error_sampling_rate"`
}

// ShutdownConfig defines the graceful shutdown timeout.
type ShutdownConfig struct {
	Timeout Duration `yaml:"timeout"`
}

// ReloadConfig controls config hot-reload behavior (SIGHUP and file watching).
type ReloadConfig struct {
	Enabled   bool     `yaml:"enabled"`
	WatchFile bool     `yaml:"watch_file"`
	Debounce  Duration `yaml:"debounce"`
}

// Duration is a time.Duration that supports YAML string parsing (e.g., "60s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler for Duration, parsing strings like "60s" or "5m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Parse parses, applies defaults to, and validates YAML configuration data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load reads, parses, applies defaults, and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}
