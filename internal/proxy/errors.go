package proxy

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnavailable is matched by errors.Is for every failure to obtain
// a response from the target origin.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// UpstreamUnavailableError reports a transport-level failure reaching the
// target origin. DNS failures, refused connections, timeouts and resets are
// not distinguished.
type UpstreamUnavailableError struct {
	Target string // fully constructed target URL
	Err    error
}

// Error implements the error interface.
func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("upstream %s unavailable: %v", e.Target, e.Err)
}

// Unwrap exposes both ErrUpstreamUnavailable and the underlying cause.
func (e *UpstreamUnavailableError) Unwrap() []error {
	return []error{ErrUpstreamUnavailable, e.Err}
}
