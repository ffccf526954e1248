package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	rl := newRateLimiter(3)
	rl.now = func() time.Time { return now }
	metrics := &securityMetrics{}

	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1", metrics) {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.allow("10.0.0.1", metrics) {
		t.Fatal("fourth request in the window should be denied")
	}
	if !rl.allow("10.0.0.2", metrics) {
		t.Fatal("other clients keep their own budget")
	}
	if metrics.rateLimitHits != 1 {
		t.Errorf("rateLimitHits = %d, want 1", metrics.rateLimitHits)
	}

	now = now.Add(61 * time.Second)
	if !rl.allow("10.0.0.1", metrics) {
		t.Fatal("a new window should reset the budget")
	}

	now = now.Add(11 * time.Minute)
	if removed := rl.cleanupStaleEntries(); removed != 2 {
		t.Errorf("cleanupStaleEntries() = %d, want 2", removed)
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct peer", "203.0.113.5:4000", "", "203.0.113.5"},
		{"untrusted peer ignores forwarding", "203.0.113.5:4000", "198.51.100.7", "203.0.113.5"},
		{"trusted proxy forwards", "127.0.0.1:4000", "198.51.100.7, 10.0.0.1", "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(req); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	metrics := &securityMetrics{}
	if detectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/api/entries/focus", nil), metrics) {
		t.Error("plain API path flagged")
	}
	if !detectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/.env", nil), metrics) {
		t.Error(".env probe not flagged")
	}
	if metrics.suspiciousRequests != 1 {
		t.Errorf("suspiciousRequests = %d, want 1", metrics.suspiciousRequests)
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := http.Header{}
	setSecurityHeaders(h)
	for _, name := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Cache-Control"} {
		if h.Get(name) == "" {
			t.Errorf("%s not set", name)
		}
	}
}
