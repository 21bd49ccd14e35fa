package leads

import (
	"net/http"
	"strings"
)

// UnknownClient is recorded when no forwarding header identifies the caller.
const UnknownClient = "unknown"

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then
// UnknownClient. The socket address is ignored because the service always
// runs behind the hosting proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return UnknownClient
}

// MetadataFromRequest captures the server-side fields stored with a lead.
func MetadataFromRequest(r *http.Request) Metadata {
	return Metadata{
		UserAgent: r.Header.Get("User-Agent"),
		IP:        ClientIP(r),
	}
}
