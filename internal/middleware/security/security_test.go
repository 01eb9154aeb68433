package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsSuspicious(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"api call", http.MethodGet, "/api/due?city=Rome", "Mozilla/5.0", false},
		{"curl is fine", http.MethodGet, "/api/summary", "curl/8.5.0", false},
		{"path traversal", http.MethodGet, "/api/../../etc/passwd", "", true},
		{"dotenv probe", http.MethodGet, "/.env", "", true},
		{"sql in query", http.MethodGet, "/api/payments?search=1+union+select+1", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}
	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "http://example.com/", nil)
			r.URL.Path, r.URL.RawQuery = splitTarget(tt.target)
			r.Header.Set("User-Agent", tt.agent)
			if got := d.IsSuspicious(r); got != tt.want {
				t.Errorf("IsSuspicious(%s %s) = %v, want %v", tt.method, tt.target, got, tt.want)
			}
		})
	}
	if d.Suspicious() != 5 {
		t.Errorf("Suspicious() = %d, want 5", d.Suspicious())
	}
}

func splitTarget(target string) (string, string) {
	for i := 0; i < len(target); i++ {
		if target[i] == '?' {
			return target[:i], target[i+1:]
		}
	}
	return target, ""
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.9:5000", "", "203.0.113.9"},
		{"untrusted peer ignores xff", "203.0.113.9:5000", "198.51.100.1", "203.0.113.9"},
		{"trusted proxy", "10.0.0.2:5000", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
		{"trusted proxy bad xff", "127.0.0.1:5000", "garbage", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeaders(t *testing.T) {
	h := Headers(DefaultHeadersConfig())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/due", nil))
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be set over plain HTTP")
	}

	rec = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/due", nil)
	r.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rec, r)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestMiddlewareRejects(t *testing.T) {
	var rejected int
	h := NewDetector().Middleware(func(*http.Request) { rejected++ })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.git/config", nil))
	if rec.Code != http.StatusBadRequest || rejected != 1 {
		t.Errorf("code = %d rejected = %d", rec.Code, rejected)
	}
}
