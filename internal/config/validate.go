package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

// Validate checks the configuration for errors. It collects every problem
// rather than stopping at the first one; use multierr.Errors to list them.
func Validate(cfg *Config) error {
	var err error

	// ── Routes ──
	if len(cfg.Routes) == 0 {
		err = multierr.Append(err, fmt.Errorf("routes must not be empty"))
	}
	seen := make(map[string]bool, len(cfg.Routes))
	for i, rt := range cfg.Routes {
		if rt.Pattern == "" {
			err = multierr.Append(err, fmt.Errorf("routes[%d]: pattern is required", i))
		} else if _, cerr := regexp.Compile(rt.Pattern); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("routes[%d]: invalid pattern %q: %w", i, rt.Pattern, cerr))
		}
		if seen[rt.Pattern] {
			err = multierr.Append(err, fmt.Errorf("routes[%d]: duplicate pattern %q", i, rt.Pattern))
		}
		seen[rt.Pattern] = true
		if terr := validateTarget(rt.Target); terr != nil {
			err = multierr.Append(err, fmt.Errorf("routes[%d]: target %q: %w", i, rt.Target, terr))
		}
	}

	// ── Ports ──
	if cfg.Listen.Port < 1 || cfg.Listen.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("listen.port must be 1-65535 (got %d)", cfg.Listen.Port))
	}
	if cfg.Listen.GRPCPort != 0 && (cfg.Listen.GRPCPort < 1 || cfg.Listen.GRPCPort > 65535) {
		err = multierr.Append(err, fmt.Errorf("listen.grpc_port must be 0 (disabled) or 1-65535 (got %d)", cfg.Listen.GRPCPort))
	}
	if cfg.Listen.GRPCPort != 0 && cfg.Listen.GRPCPort == cfg.Listen.Port {
		err = multierr.Append(err, fmt.Errorf("listen.grpc_port must differ from listen.port (both %d)", cfg.Listen.GRPCPort))
	}

	// ── Connection limits ──
	if cfg.Listen.MaxConnections < 1 {
		err = multierr.Append(err, fmt.Errorf("listen.max_connections must be positive (got %d)", cfg.Listen.MaxConnections))
	}
	if cfg.Listen.GlobalRateLimit < 0 {
		err = multierr.Append(err, fmt.Errorf("listen.global_rate_limit must be 0 (disabled) or positive (got %d)", cfg.Listen.GlobalRateLimit))
	}
	if cfg.Listen.ClientRateLimit < 0 {
		err = multierr.Append(err, fmt.Errorf("listen.client_rate_limit must be 0 (disabled) or positive (got %d)", cfg.Listen.ClientRateLimit))
	}
	if cfg.Listen.ClientBurst < 0 {
		err = multierr.Append(err, fmt.Errorf("listen.client_burst must not be negative (got %d)", cfg.Listen.ClientBurst))
	}
	for i, tp := range cfg.Listen.TrustedProxies {
		if !validCIDROrIP(tp) {
			err = multierr.Append(err, fmt.Errorf("listen.trusted_proxies[%d]: %q is not an IP or CIDR", i, tp))
		}
	}

	// ── Timeouts ──
	if cfg.Proxy.Timeout.Duration < 0 {
		err = multierr.Append(err, fmt.Errorf("proxy.timeout must not be negative"))
	}
	if cfg.Upstream.DialTimeout.Duration < 0 {
		err = multierr.Append(err, fmt.Errorf("upstream.dial_timeout must not be negative"))
	}
	if cfg.Upstream.ResponseHeaderTimeout.Duration < 0 {
		err = multierr.Append(err, fmt.Errorf("upstream.response_header_timeout must not be negative"))
	}
	if cfg.Upstream.MaxIdleConns < 0 {
		err = multierr.Append(err, fmt.Errorf("upstream.max_idle_conns must not be negative (got %d)", cfg.Upstream.MaxIdleConns))
	}

	// ── Fallback ──
	if dir := cfg.Fallback.StaticDir; dir != "" {
		if fi, serr := os.Stat(dir); serr != nil {
			err = multierr.Append(err, fmt.Errorf("fallback.static_dir: %w", serr))
		} else if !fi.IsDir() {
			err = multierr.Append(err, fmt.Errorf("fallback.static_dir: %q is not a directory", dir))
		}
	}

	// ── Endpoint paths ──
	for name, p := range map[string]string{
		"health.liveness_path":  cfg.Health.LivenessPath,
		"health.readiness_path": cfg.Health.ReadinessPath,
		"metrics.path":          cfg.Metrics.Path,
	} {
		if !strings.HasPrefix(p, "/") {
			err = multierr.Append(err, fmt.Errorf("%s must start with / (got %q)", name, p))
		}
	}

	// ── Logging ──
	if !isValidLogLevel(cfg.Logging.Level) {
		err = multierr.Append(err, fmt.Errorf("logging.level must be one of: debug, info, warn, error (got %q)", cfg.Logging.Level))
	}
	if !isValidLogFormat(cfg.Logging.Format) {
		err = multierr.Append(err, fmt.Errorf("logging.format must be one of: json, text (got %q)", cfg.Logging.Format))
	}
	if cfg.Logging.Access.SamplingRate < 0 || cfg.Logging.Access.SamplingRate > 1.0 {
		err = multierr.Append(err, fmt.Errorf("logging.access.sampling_rate must be between 0.0 and 1.0 (got %f)", cfg.Logging.Access.SamplingRate))
	}
	if cfg.Logging.Access.ErrorSamplingRate < 0 || cfg.Logging.Access.ErrorSamplingRate > 1.0 {
		err = multierr.Append(err, fmt.Errorf("logging.access.error_sampling_rate must be between 0.0 and 1.0 (got %f)", cfg.Logging.Access.ErrorSamplingRate))
	}

	if err != nil {
		return fmt.Errorf("configuration errors: %w", err)
	}
	return nil
}

// validateTarget requires an absolute http(s) prefix. The request path is
// appended verbatim, so a query, fragment or trailing slash is rejected.
func validateTarget(target string) error {
	if target == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(target)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	if u.RawQuery != "" || u.ForceQuery || u.Fragment != "" {
		return fmt.Errorf("must not carry a query or fragment")
	}
	if strings.HasSuffix(u.Path, "/") {
		return fmt.Errorf("must not end with a slash")
	}
	return nil
}

func isValidLogLevel(l string) bool {
	switch strings.ToLower(l) {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

func isValidLogFormat(f string) bool {
	switch f {
	case "json", "text":
		return true
	}
	return false
}

func validCIDROrIP(s string) bool {
	if _, _, err := net.ParseCIDR(s); err == nil {
		return true
	}
	return net.ParseIP(s) != nil
}
