// internal/app/system/network/ip.go
package network

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address a request is attributed to. The headers are
// checked in the same order chi's RealIP middleware uses, so the result is
// stable whether or not that middleware has already rewritten RemoteAddr.
// Header values that do not parse as an IP are ignored.
func ClientIP(r *http.Request) string {
	if ip := parseIP(r.Header.Get("True-Client-IP")); ip != "" {
		return ip
	}
	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
	}
	return hostOnly(r.RemoteAddr)
}

// ClientKey is ClientIP reduced to the unit a per-client limit should apply
// to. IPv6 clients usually own a whole /64, so they are keyed by that prefix.
func ClientKey(r *http.Request) string {
	addr := ClientIP(r)
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() != nil {
		return addr
	}
	return ip.Mask(net.CIDRMask(64, 128)).String() + "/64"
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}

// hostOnly strips the port from RemoteAddr. RealIP leaves a bare address
// with no port, which SplitHostPort rejects.
func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}
