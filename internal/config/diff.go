package config

import (
	"fmt"
	"reflect"
)

// Change describes a single configuration field that differs between two configs.
type Change struct {
	Field      string      // dot-separated field path (e.g., "upstream.dial_timeout")
	OldValue   interface{} // previous value
	NewValue   interface{} // new value
	Reloadable bool        // whether this change can be applied without restart
}

// Diff compares two Config values and returns a list of changes.
// Each change is annotated with whether it is reloadable at runtime.
func Diff(old, new *Config) []Change {
	var changes []Change

	// ── Non-reloadable: listen ──
	diffField(&changes, "listen.host", old.Listen.Host, new.Listen.Host, false)
	diffField(&changes, "listen.port", old.Listen.Port, new.Listen.Port, false)
	diffField(&changes, "listen.grpc_port", old.Listen.GRPCPort, new.Listen.GRPCPort, false)
	diffField(&changes, "listen.max_connections", old.Listen.MaxConnections, new.Listen.MaxConnections, false)
	diffField(&changes, "listen.global_rate_limit", old.Listen.GlobalRateLimit, new.Listen.GlobalRateLimit, false)
	diffField(&changes, "listen.proxy_protocol", old.Listen.ProxyProtocol, new.Listen.ProxyProtocol, false)
	diffField(&changes, "listen.client_rate_limit", old.Listen.ClientRateLimit, new.Listen.ClientRateLimit, false)
	diffField(&changes, "listen.client_burst", old.Listen.ClientBurst, new.Listen.ClientBurst, false)
	diffField(&changes, "listen.trusted_proxies", old.Listen.TrustedProxies, new.Listen.TrustedProxies, false)

	// ── Reloadable: routes ──
	diffRoutes(&changes, old.Routes, new.Routes)

	// ── Reloadable: proxy ──
	diffField(&changes, "proxy.debug", old.Proxy.Debug, new.Proxy.Debug, true)
	diffField(&changes, "proxy.change_origin", old.Proxy.ChangeOriginEnabled(), new.Proxy.ChangeOriginEnabled(), true)
	diffField(&changes, "proxy.timeout", old.Proxy.Timeout.Duration, new.Proxy.Timeout.Duration, true)

	// ── Reloadable: upstream (a new transport is built) ──
	diffField(&changes, "upstream.dial_timeout", old.Upstream.DialTimeout.Duration, new.Upstream.DialTimeout.Duration, true)
	diffField(&changes, "upstream.response_header_timeout", old.Upstream.ResponseHeaderTimeout.Duration, new.Upstream.ResponseHeaderTimeout.Duration, true)
	diffField(&changes, "upstream.idle_conn_timeout", old.Upstream.IdleConnTimeout.Duration, new.Upstream.IdleConnTimeout.Duration, true)
	diffField(&changes, "upstream.max_idle_conns", old.Upstream.MaxIdleConns, new.Upstream.MaxIdleConns, true)
	diffField(&changes, "upstream.tls_insecure_skip_verify", old.Upstream.InsecureSkipVerify, new.Upstream.InsecureSkipVerify, true)

	// ── Reloadable: access log sampling ──
	diffField(&changes, "logging.access.sampling_rate", old.Logging.Access.SamplingRate, new.Logging.Access.SamplingRate, true)
	diffField(&changes, "logging.access.error_sampling_rate", old.Logging.Access.ErrorSamplingRate, new.Logging.Access.ErrorSamplingRate, true)

	// ── Non-reloadable: logger construction, fallback, health, metrics, shutdown ──
	diffField(&changes, "logging.level", old.Logging.Level, new.Logging.Level, false)
	diffField(&changes, "logging.format", old.Logging.Format, new.Logging.Format, false)
	diffField(&changes, "logging.output", old.Logging.Output, new.Logging.Output, false)
	diffField(&changes, "fallback.static_dir", old.Fallback.StaticDir, new.Fallback.StaticDir, false)
	diffField(&changes, "health.liveness_path", old.Health.LivenessPath, new.Health.LivenessPath, false)
	diffField(&changes, "health.readiness_path", old.Health.ReadinessPath, new.Health.ReadinessPath, false)
	diffField(&changes, "metrics.enabled", old.Metrics.IsEnabled(), new.Metrics.IsEnabled(), false)
	diffField(&changes, "metrics.path", old.Metrics.Path, new.Metrics.Path, false)
	diffField(&changes, "shutdown.timeout", old.Shutdown.Timeout.Duration, new.Shutdown.Timeout.Duration, false)

	return changes
}

// diffField appends a Change if old != new using reflect.DeepEqual for comparison.
func diffField(changes *[]Change, field string, oldVal, newVal interface{}, reloadable bool) {
	if !reflect.DeepEqual(oldVal, newVal) {
		*changes = append(*changes, Change{
			Field:      field,
			OldValue:   oldVal,
			NewValue:   newVal,
			Reloadable: reloadable,
		})
	}
}

// diffRoutes reports added, removed and retargeted patterns, and a reorder
// when the same patterns appear in a different order. All are reloadable.
func diffRoutes(changes *[]Change, oldRoutes, newRoutes Routes) {
	oldMap := make(map[string]string, len(oldRoutes))
	for _, r := range oldRoutes {
		oldMap[r.Pattern] = r.Target
	}
	newMap := make(map[string]string, len(newRoutes))
	for _, r := range newRoutes {
		newMap[r.Pattern] = r.Target
	}

	for _, r := range oldRoutes {
		if _, ok := newMap[r.Pattern]; !ok {
			*changes = append(*changes, Change{
				Field:      fmt.Sprintf("routes[%s]", r.Pattern),
				OldValue:   r.Target,
				NewValue:   nil,
				Reloadable: true,
			})
		}
	}

	for _, r := range newRoutes {
		oldTarget, ok := oldMap[r.Pattern]
		switch {
		case !ok:
			*changes = append(*changes, Change{
				Field:      fmt.Sprintf("routes[%s]", r.Pattern),
				OldValue:   nil,
				NewValue:   r.Target,
				Reloadable: true,
			})
		case oldTarget != r.Target:
			*changes = append(*changes, Change{
				Field:      fmt.Sprintf("routes[%s]", r.Pattern),
				OldValue:   oldTarget,
				NewValue:   r.Target,
				Reloadable: true,
			})
		}
	}

	if sameKeys(oldMap, newMap) && !reflect.DeepEqual(patterns(oldRoutes), patterns(newRoutes)) {
		*changes = append(*changes, Change{
			Field:      "routes.order",
			OldValue:   patterns(oldRoutes),
			NewValue:   patterns(newRoutes),
			Reloadable: true,
		})
	}
}

func patterns(rs Routes) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Pattern
	}
	return out
}

func sameKeys(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
