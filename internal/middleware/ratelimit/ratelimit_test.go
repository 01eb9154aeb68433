package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, n int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerWindow: n, Window: time.Minute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllow(t *testing.T) {
	rl, now := newTestLimiter(t, 2)

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("third request in window should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other clients are independent")
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Error("new window should reset the counter")
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 5)
	rl.Allow("a")
	*now = now.Add(11 * time.Minute)
	rl.Allow("b")
	rl.cleanupStaleEntries()
	if got := rl.ActiveClients(); got != 1 {
		t.Errorf("ActiveClients() = %d, want 1", got)
	}
}

func TestMiddlewareOnlyLimitsListedMethods(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "client" }, nil, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	codes := func(method string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/payments/pay", nil))
		return rec.Code
	}

	if c := codes(http.MethodPost); c != http.StatusNoContent {
		t.Fatalf("first POST = %d", c)
	}
	if c := codes(http.MethodPost); c != http.StatusTooManyRequests {
		t.Errorf("second POST = %d, want 429", c)
	}
	if c := codes(http.MethodGet); c != http.StatusNoContent {
		t.Errorf("GET should not be limited, got %d", c)
	}
}
