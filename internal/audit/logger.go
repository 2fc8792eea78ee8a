package audit

import (
	"context"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/vivars7/pathproxy/internal/proxy"
	"github.com/vivars7/pathproxy/internal/router"
)

// AccessLog writes one structured record per forwarded request.
type AccessLog struct {
	slogger  *slog.Logger
	sampling SamplingConfig
}

var _ proxy.Observer = (*AccessLog)(nil)

// NewAccessLog creates an access logger with the given sampling configuration.
func NewAccessLog(slogger *slog.Logger, sampling SamplingConfig) *AccessLog {
	return &AccessLog{slogger: slogger, sampling: sampling}
}

// Forwarded implements proxy.Observer.
func (l *AccessLog) Forwarded(ev proxy.ForwardEvent) {
	failed := ev.Status >= 500 || ev.CopyErr != nil
	if !l.sampling.ShouldLog(failed) {
		return
	}

	attrs := []slog.Attr{
		slog.String("method", ev.Method),
		slog.String("path", ev.Path),
		slog.String("route", ev.Route.Pattern),
		slog.String("target", ev.Route.Target),
		slog.Int("status", ev.Status),
		slog.Int64("bytes", ev.Bytes),
		slog.String("size", humanize.Bytes(uint64(ev.Bytes))),
		slog.Int64("upstream_ms", ev.UpstreamLatency.Milliseconds()),
		slog.Int64("duration_ms", ev.Duration.Milliseconds()),
	}
	if ev.CopyErr != nil {
		attrs = append(attrs, slog.String("stream_error", ev.CopyErr.Error()))
	}

	l.slogger.LogAttrs(context.Background(), slog.LevelInfo, "forwarded", attrs...)
}

// UpstreamFailed implements proxy.Observer. The forwarder logs failures itself.
func (l *AccessLog) UpstreamFailed(router.Route, error) {}

// PassedThrough implements proxy.Observer.
func (l *AccessLog) PassedThrough(string) {}
