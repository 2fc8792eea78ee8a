package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ClientResolver derives the client address used to key per-client limits.
// Without trusted proxies it uses RemoteAddr only; X-Forwarded-For is then
// ignored because any client can set it.
type ClientResolver struct {
	trusted []*net.IPNet
}

// NewClientResolver parses trusted proxy entries, each a CIDR or a plain IP.
func NewClientResolver(trustedProxies []string) (*ClientResolver, error) {
	nets := make([]*net.IPNet, 0, len(trustedProxies))
	for _, entry := range trustedProxies {
		n, err := parseCIDROrIP(entry)
		if err != nil {
			return nil, err
		}
		nets = append(nets, n)
	}
	return &ClientResolver{trusted: nets}, nil
}

// ClientIP returns the client address for r. When RemoteAddr is a trusted
// proxy, X-Forwarded-For is walked right to left and the first untrusted
// entry wins.
func (c *ClientResolver) ClientIP(r *http.Request) string {
	remote := stripPort(r.RemoteAddr)
	if len(c.trusted) == 0 {
		return remote
	}
	if ip := net.ParseIP(remote); ip == nil || !c.isTrusted(ip) {
		return remote
	}

	xff := r.Header.Values("X-Forwarded-For")
	for i := len(xff) - 1; i >= 0; i-- {
		parts := strings.Split(xff[i], ",")
		for j := len(parts) - 1; j >= 0; j-- {
			ip := net.ParseIP(strings.TrimSpace(parts[j]))
			if ip == nil {
				continue
			}
			if !c.isTrusted(ip) {
				return ip.String()
			}
		}
	}

	// Every hop is trusted
	return remote
}

func (c *ClientResolver) isTrusted(ip net.IP) bool {
	for _, n := range c.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// stripPort removes the port from addr (handles both IPv4 and IPv6).
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// parseCIDROrIP accepts "10.0.0.0/8" or a single address, which becomes a
// /32 or /128 network.
func parseCIDROrIP(s string) (*net.IPNet, error) {
	if _, n, err := net.ParseCIDR(s); err == nil {
		return n, nil
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("trusted proxy %q is not an IP or CIDR", s)
	}
	bits := 128
	if v4 := ip.To4(); v4 != nil {
		ip, bits = v4, 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}
