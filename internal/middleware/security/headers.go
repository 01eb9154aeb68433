package security

import (
	"fmt"
	"net/http"
)

// HeadersConfig holds security headers configuration
type HeadersConfig struct {
	CSP string

	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	CacheControl        string
	CrossOriginResource string
}

// DefaultHeadersConfig returns headers for a JSON-only API: nothing may be
// framed, scripted or cached by intermediaries.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                 "default-src 'none'; frame-ancestors 'none'",
		HSTSMaxAge:          31536000,
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "no-referrer",
		CacheControl:        "no-store",
		CrossOriginResource: "same-origin",
	}
}

// Headers returns middleware that applies config to every response.
func Headers(config HeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			applyHeaders(w.Header(), config, r.TLS != nil)
			next.ServeHTTP(w, r)
		})
	}
}

func applyHeaders(h http.Header, c HeadersConfig, tls bool) {
	set := func(k, v string) {
		if v != "" {
			h.Set(k, v)
		}
	}
	set("Content-Security-Policy", c.CSP)
	set("X-Frame-Options", c.XFrameOptions)
	set("X-Content-Type-Options", c.XContentTypeOptions)
	set("Referrer-Policy", c.ReferrerPolicy)
	set("Cache-Control", c.CacheControl)
	set("Cross-Origin-Resource-Policy", c.CrossOriginResource)

	// HSTS only means something over TLS.
	if tls && c.HSTSMaxAge > 0 {
		v := fmt.Sprintf("max-age=%d", c.HSTSMaxAge)
		if c.HSTSIncludeSubdomains {
			v += "; includeSubDomains"
		}
		h.Set("Strict-Transport-Security", v)
	}
}
