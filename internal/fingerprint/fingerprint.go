// Package fingerprint derives a per-request device fingerprint (client IP plus
// a user-agent summary) and carries it on the request context. The fingerprint
// is advisory metadata: capture never fails, missing inputs degrade to a
// sentinel value.
package fingerprint

import (
	"net"
	"net/http"
	"strings"
)

// Undefined is the sentinel used when the client IP or user agent cannot be determined.
const Undefined = "undefined"

// maxUserAgentLen caps the stored user-agent summary; anything longer is truncated.
const maxUserAgentLen = 256

// Fingerprint describes the device a request originated from. Derived per
// request and persisted only as part of the session it gets bound to.
type Fingerprint struct {
	IP        string
	UserAgent string
}

// FromRequest derives a Fingerprint from request metadata. Deterministic for a
// given request: the same headers and connection info always yield the same value.
func FromRequest(r *http.Request) Fingerprint {
	return Fingerprint{
		IP:        clientIP(r),
		UserAgent: userAgentSummary(r.UserAgent()),
	}
}

// Equal reports whether two fingerprints describe the same device.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.IP == other.IP && f.UserAgent == other.UserAgent
}

// clientIP resolves the originating client IP: first X-Forwarded-For hop, then
// X-Real-IP, then the connection's remote address. Returns Undefined when none parse.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if rip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return Undefined
	}
	if host == "" {
		return Undefined
	}
	return host
}

// userAgentSummary normalizes the User-Agent header: whitespace collapsed,
// truncated to a fixed length. Returns Undefined for an absent header.
func userAgentSummary(ua string) string {
	ua = strings.Join(strings.Fields(ua), " ")
	if ua == "" {
		return Undefined
	}
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}
	return ua
}
