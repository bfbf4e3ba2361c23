package clientip

import (
	"net"
	"net/http"
	"strings"
)

// FromRequest returns the client's IP address, preferring proxy-supplied
// headers over the socket address. Priority order:
//
//  1. CF-Connecting-IP (CDN in front of the load balancer)
//  2. X-Forwarded-For (standard proxy chain, first valid entry wins)
//  3. X-Real-IP (nginx reverse proxy)
//  4. RemoteAddr (direct connection)
//
// Returns the empty string when nothing parseable is found; callers are
// expected to have their own fallback for unidentifiable clients.
func FromRequest(r *http.Request) string {
	if ip := normalize(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for part := range strings.SplitSeq(forwarded, ",") {
			if ip := normalize(part); ip != "" {
				return ip
			}
		}
	}

	if ip := normalize(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr may already be a bare IP in tests and unusual setups.
		return normalize(r.RemoteAddr)
	}
	return normalize(host)
}

// normalize validates a candidate and returns its canonical form, so
// "2001:DB8::1" and "2001:db8::1" derive the same rate limit key.
func normalize(candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return ""
	}

	ip := net.ParseIP(candidate)
	if ip == nil {
		return ""
	}
	return ip.String()
}
