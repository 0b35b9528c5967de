package server

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Stop()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatal("expected the first two attempts to be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Error("expected the third attempt to be limited")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Error("expected another client to have its own bucket")
	}

	now = now.Add(time.Minute)
	if !limiter.Allow("10.0.0.1") {
		t.Error("expected the bucket to refill after the window")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	defer limiter.Stop()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	limiter.Allow("10.0.0.1")

	now = now.Add(2 * time.Hour)
	limiter.cleanup()

	if len(limiter.clients) != 0 {
		t.Errorf("expected stale buckets to be removed, got %d", len(limiter.clients))
	}
	limiter.Stop()
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.7:53211"
	if got := clientIP(req); got != "192.0.2.7" {
		t.Errorf("clientIP() = %q", got)
	}

	req.RemoteAddr = "unix-socket"
	if got := clientIP(req); got != "unix-socket" {
		t.Errorf("clientIP() = %q", got)
	}
}
