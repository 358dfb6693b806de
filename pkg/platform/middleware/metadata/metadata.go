// Package metadata extracts client-identifying metadata from requests.
package metadata

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"cruce/pkg/requestcontext"
)

// ClientMetadata extracts the client IP address, the raw User-Agent, and a
// parsed device summary from the request and adds them to the context for use
// by handlers, audit events, and logs.
// This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		rawUA := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, rawUA)
		if device := DeviceSummary(rawUA); device != "" {
			ctx = requestcontext.WithDevice(ctx, device)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceSummary condenses a User-Agent header into a short display string
// such as "Chrome 126.0 on Linux x86_64". Returns empty for empty input.
func DeviceSummary(rawUA string) string {
	if rawUA == "" {
		return ""
	}

	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return rawUA
	}

	summary := name
	if version != "" {
		summary = fmt.Sprintf("%s %s", name, version)
	}
	if os := ua.OS(); os != "" {
		summary = fmt.Sprintf("%s on %s", summary, os)
	}
	if ua.Bot() {
		summary += " (bot)"
	}
	return summary
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// Check X-Forwarded-For header first (standard for proxied requests)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
		// Take the first IP which is the original client
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP header (used by nginx and other proxies)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr (direct connection)
	// RemoteAddr is in format "ip:port", so we need to strip the port
	if addr := r.RemoteAddr; addr != "" {
		// For IPv6, format is [::1]:port
		// For IPv4, format is 127.0.0.1:port
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
