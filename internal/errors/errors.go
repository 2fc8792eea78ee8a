// Package errors defines the gateway's typed HTTP errors. These are produced
// by the host pipeline around the forwarder (fallback, rate limiting), never
// by the forwarder itself.
package errors

import "fmt"

// GatewayError is the base error type for errors the gateway renders to clients.
type GatewayError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("[%d] %s (hint: %s)", e.Code, e.Message, e.Hint)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Predefined errors.
var (
	ErrNotFound         = &GatewayError{Code: 404, Message: "Not found", Hint: "No route matched and no fallback content exists for this path"}
	ErrRateLimited      = &GatewayError{Code: 429, Message: "Rate limit exceeded", Hint: "Wait before retrying. Configure listen.global_rate_limit"}
	ErrClientLimited    = &GatewayError{Code: 429, Message: "Client rate limit exceeded", Hint: "Wait before retrying. Configure listen.client_rate_limit"}
	ErrMethodNotAllowed = &GatewayError{Code: 405, Message: "Method not allowed", Hint: "Fallback content only answers GET and HEAD"}
)
