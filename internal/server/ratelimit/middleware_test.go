package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestWriteHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHeaders(w, Result{
		Allowed:   true,
		Limit:     60,
		Remaining: 45,
		ResetAt:   time.Unix(1706012345, 0),
	})
	if got := w.Header().Get("X-RateLimit-Limit"); got != "60" {
		t.Errorf("X-RateLimit-Limit = %s, want 60", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "45" {
		t.Errorf("X-RateLimit-Remaining = %s, want 45", got)
	}
	if got := w.Header().Get("X-RateLimit-Reset"); got != "1706012345" {
		t.Errorf("X-RateLimit-Reset = %s, want 1706012345", got)
	}
	if got := w.Header().Get("Retry-After"); got != "" {
		t.Errorf("Retry-After should not be set for allowed requests, got %s", got)
	}
}

func TestWriteHeaders_RateLimited(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHeaders(w, Result{RetryAfter: 1500 * time.Millisecond, ResetAt: time.Unix(0, 0)})
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %s, want 2", got)
	}
}

func TestBuildKey(t *testing.T) {
	if got := BuildKey("10.0.0.1", "write"); got != "ip:10.0.0.1:write" {
		t.Errorf("BuildKey() = %q", got)
	}
}
