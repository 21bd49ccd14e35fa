package leads

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"real ip fallback", map[string]string{"X-Real-IP": "198.51.100.4"}, "198.51.100.4"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "203.0.113.9", "X-Real-IP": "198.51.100.4"}, "203.0.113.9"},
		{"blank forwarded falls through", map[string]string{"X-Forwarded-For": " , 10.0.0.1", "X-Real-IP": "198.51.100.4"}, "198.51.100.4"},
		{"unknown", nil, UnknownClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/leads", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestMetadataFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/leads", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("X-Real-IP", "198.51.100.4")

	meta := MetadataFromRequest(req)
	if meta.UserAgent != "Mozilla/5.0" || meta.IP != "198.51.100.4" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}
