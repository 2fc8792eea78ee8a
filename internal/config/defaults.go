package config

import "time"

// ApplyDefaults fills zero-valued fields with their defaults.
// It is called after YAML parsing and before validation.
func ApplyDefaults(cfg *Config) {
	// ── Listen ──
	if cfg.Listen.Host == "" {
		cfg.Listen.Host = "0.0.0.0"
	}
	if cfg.Listen.Port == 0 {
		cfg.Listen.Port = 8080
	}
	if cfg.Listen.MaxConnections == 0 {
		cfg.Listen.MaxConnections = 1000
	}
	if cfg.Listen.ClientRateLimit > 0 && cfg.Listen.ClientBurst == 0 {
		cfg.Listen.ClientBurst = max(1, cfg.Listen.ClientRateLimit/60)
	}

	// ── Proxy ──
	// change_origin stays nil when unset; ChangeOriginEnabled treats nil as true.

	// ── Upstream ──
	if cfg.Upstream.DialTimeout.Duration == 0 {
		cfg.Upstream.DialTimeout.Duration = 30 * time.Second
	}
	if cfg.Upstream.ResponseHeaderTimeout.Duration == 0 {
		cfg.Upstream.ResponseHeaderTimeout.Duration = 30 * time.Second
	}
	if cfg.Upstream.IdleConnTimeout.Duration == 0 {
		cfg.Upstream.IdleConnTimeout.Duration = 90 * time.Second
	}
	if cfg.Upstream.MaxIdleConns == 0 {
		cfg.Upstream.MaxIdleConns = 100
	}

	// ── Health ──
	if cfg.Health.LivenessPath == "" {
		cfg.Health.LivenessPath = "/healthz"
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = "/readyz"
	}

	// ── Metrics ──
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// ── Logging ──
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Logging.Access.SamplingRate == 0 {
		cfg.Logging.Access.SamplingRate = 1.0
	}
	if cfg.Logging.Access.ErrorSamplingRate == 0 {
		cfg.Logging.Access.ErrorSamplingRate = 1.0
	}

	// ── Shutdown ──
	if cfg.Shutdown.Timeout.Duration == 0 {
		cfg.Shutdown.Timeout.Duration = 30 * time.Second
	}

	// ── Reload ──
	// enabled/watch_file default to false here; the generated profiles turn them on.
	if cfg.Reload.Debounce.Duration == 0 {
		cfg.Reload.Debounce.Duration = 2 * time.Second
	}
}
