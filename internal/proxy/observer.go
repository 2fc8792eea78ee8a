package proxy

import (
	"time"

	"github.com/vivars7/pathproxy/internal/router"
)

// Pass-through reasons reported to Observer.PassedThrough.
const (
	ReasonNoMatch             = "no_match"
	ReasonUpstreamUnavailable = "upstream_unavailable"
)

// ForwardEvent describes one completed forwarded request.
type ForwardEvent struct {
	Route           router.Route
	Method          string
	Path            string
	Status          int
	Bytes           int64         // response body bytes written to the caller
	UpstreamLatency time.Duration // time until upstream response headers arrived
	Duration        time.Duration // total, including body streaming
	CopyErr         error         // non-nil if streaming the body failed after headers were sent
}

// Observer receives forwarding outcomes. Implementations must be safe for
// concurrent use.
type Observer interface {
	Forwarded(ev ForwardEvent)
	UpstreamFailed(route router.Route, err error)
	PassedThrough(reason string)
}

// Observers fans events out to several observers.
type Observers []Observer

// Forwarded implements Observer.
func (obs Observers) Forwarded(ev ForwardEvent) {
	for _, o := range obs {
		o.Forwarded(ev)
	}
}

// UpstreamFailed implements Observer.
func (obs Observers) UpstreamFailed(route router.Route, err error) {
	for _, o := range obs {
		o.UpstreamFailed(route, err)
	}
}

// PassedThrough implements Observer.
func (obs Observers) PassedThrough(reason string) {
	for _, o := range obs {
		o.PassedThrough(reason)
	}
}

type nopObserver struct{}

func (nopObserver) Forwarded(ForwardEvent)             {}
func (nopObserver) UpstreamFailed(router.Route, error) {}
func (nopObserver) PassedThrough(string)               {}
