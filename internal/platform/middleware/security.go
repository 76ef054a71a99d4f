package middleware

import (
	"net/http"
	"strings"
)

// Security returns middleware that sets security headers on all responses.
// Headers follow OWASP REST Security Cheat Sheet recommendations.
//
// Paths in skipPaths (and anything below them) are excluded, e.g. "/api-docs"
// which needs to load its own assets.
//
// Headers set:
//   - Cache-Control: no-store - Chat replies must never be cached by intermediaries
//   - Content-Security-Policy: frame-ancestors 'none' - Prevents framing (CSP Level 2)
//   - Cross-Origin-Opener-Policy: same-origin - Isolates browsing context
//   - Cross-Origin-Resource-Policy: same-origin - Prevents cross-origin reads
//   - Permissions-Policy: disables browser features the chat UI does not use
//   - Referrer-Policy: strict-origin-when-cross-origin - Controls referrer information leakage
//   - X-Content-Type-Options: nosniff - Prevents MIME-sniffing attacks
//   - X-Frame-Options: DENY - Prevents clickjacking (legacy browser support)
//
// Headers already set by a downstream handler are left untouched.
func Security(skipPaths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipped(r.URL.Path, skipPaths) {
				next.ServeHTTP(w, r)
				return
			}
			sw := &securityHeaderWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			sw.apply()
		})
	}
}

var securityHeaders = [][2]string{
	{"Cache-Control", "no-store"},
	{"Content-Security-Policy", "frame-ancestors 'none'"},
	{"Cross-Origin-Opener-Policy", "same-origin"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
	{
		"Permissions-Policy",
		"accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()",
	},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
}

func skipped(path string, skipPaths []string) bool {
	for _, p := range skipPaths {
		p = strings.TrimSuffix(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// securityHeaderWriter fills in missing security headers just before the
// status line is written.
type securityHeaderWriter struct {
	http.ResponseWriter
	applied bool
}

func (w *securityHeaderWriter) apply() {
	if w.applied {
		return
	}
	w.applied = true
	h := w.ResponseWriter.Header()
	for _, kv := range securityHeaders {
		if h.Get(kv[0]) == "" {
			h.Set(kv[0], kv[1])
		}
	}
}

func (w *securityHeaderWriter) WriteHeader(status int) {
	w.apply()
	w.ResponseWriter.WriteHeader(status)
}

func (w *securityHeaderWriter) Write(b []byte) (int, error) {
	w.apply()
	return w.ResponseWriter.Write(b)
}

func (w *securityHeaderWriter) Flush() {
	w.apply()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *securityHeaderWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
