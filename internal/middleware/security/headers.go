// Package security sets response security headers and flags suspicious requests.
package security

import (
	"fmt"
	"net/http"
	"time"
)

// HeadersConfig describes the headers sent with every API response.
type HeadersConfig struct {
	// CSP for a JSON API: nothing may be loaded or framed.
	CSP               string
	ReferrerPolicy    string
	PermissionsPolicy string
	CacheControl      string

	// HSTS is only sent on TLS connections; zero disables it.
	HSTSMaxAge  time.Duration
	HSTSPreload bool
}

func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:               "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
		ReferrerPolicy:    "no-referrer",
		PermissionsPolicy: "geolocation=(), microphone=(), camera=(), payment=()",
		CacheControl:      "no-store",
		HSTSMaxAge:        365 * 24 * time.Hour,
		HSTSPreload:       true,
	}
}

// HeadersMiddleware writes a fixed header set computed once from the config.
type HeadersMiddleware struct {
	static [][2]string
	hsts   string
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{static: [][2]string{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Cross-Origin-Opener-Policy", "same-origin"},
		{"Cross-Origin-Resource-Policy", "same-origin"},
	}}
	for _, kv := range [][2]string{
		{"Content-Security-Policy", config.CSP},
		{"Referrer-Policy", config.ReferrerPolicy},
		{"Permissions-Policy", config.PermissionsPolicy},
		{"Cache-Control", config.CacheControl},
	} {
		if kv[1] != "" {
			h.static = append(h.static, kv)
		}
	}

	if config.HSTSMaxAge > 0 {
		h.hsts = fmt.Sprintf("max-age=%d; includeSubDomains", int64(config.HSTSMaxAge/time.Second))
		if config.HSTSPreload {
			h.hsts += "; preload"
		}
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for _, kv := range h.static {
			headers.Set(kv[0], kv[1])
		}
		if r.TLS != nil && h.hsts != "" {
			headers.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
