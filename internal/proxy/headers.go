package proxy

import "net/http"

// strippedResponseHeaders are removed from every proxied response. The body
// reaches the caller already decoded by the transport, so the original
// encoding and length no longer describe it.
var strippedResponseHeaders = []string{
	"Content-Encoding",
	"Content-Length",
}

// outboundRequestHeaders clones inbound headers for the upstream request.
// Host is dropped when changeOrigin is set. Accept-Encoding is never
// forwarded: the transport negotiates compression itself and decodes the
// body, which is what allows Content-Encoding to be stripped on the way back.
func outboundRequestHeaders(in http.Header, changeOrigin bool) http.Header {
	out := in.Clone()
	if out == nil {
		out = make(http.Header)
	}
	if changeOrigin {
		out.Del("Host")
	}
	out.Del("Accept-Encoding")
	return out
}

// SanitizeResponseHeader returns a copy of h without the headers that would
// misdescribe a passed-through body.
func SanitizeResponseHeader(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = make(http.Header)
	}
	for _, key := range strippedResponseHeaders {
		out.Del(key)
	}
	return out
}

// copyHeader appends every value in src to dst.
func copyHeader(dst, src http.Header) {
	for key, values := range src {
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
