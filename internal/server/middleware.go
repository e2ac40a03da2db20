// HTTP middleware applied to every request.

package server

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/maruel/productdb/internal/server/ipgeo"
	"github.com/maruel/productdb/internal/server/reqctx"
)

// capturingWriter records the status and size of a response.
type capturingWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func (w *capturingWriter) WriteHeader(statusCode int) {
	if w.status == 0 {
		w.status = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)
	return n, err
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (w *capturingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// withRequestMetadata attaches the request ID, client IP, User-Agent and
// country to the context and logs one line per request.
func withRequestMetadata(next http.Handler, geo *ipgeo.Checker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := reqctx.RequestIDFrom(r)
		ip := reqctx.GetClientIP(r)
		country := geo.CountryCode(ip)
		ctx := reqctx.WithRequestID(r.Context(), id)
		ctx = reqctx.WithClientIP(ctx, ip)
		ctx = reqctx.WithUserAgent(ctx, r.UserAgent())
		ctx = reqctx.WithCountryCode(ctx, country)
		w.Header().Set(reqctx.RequestIDHeader, id.String())

		cw := &capturingWriter{ResponseWriter: w}
		next.ServeHTTP(cw, r.WithContext(ctx))

		status := cw.status
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "http",
			"m", r.Method,
			"path", r.URL.Path,
			"s", status,
			"size", cw.size,
			"dur", time.Since(start).Round(time.Microsecond),
			"ip", ip,
			"country", country,
			"rid", id.String())
	})
}

// corsHeaders lets browsers on allowedOrigins call the API. "*" allows any
// origin. An empty list disables CORS.
func corsHeaders(next http.Handler, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		return next
	}
	allowAll := slices.Contains(allowedOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		h := w.Header()
		switch {
		case origin == "":
		case allowAll:
			h.Set("Access-Control-Allow-Origin", "*")
		case slices.ContainsFunc(allowedOrigins, func(o string) bool { return strings.TrimSpace(o) == origin }):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		default:
			next.ServeHTTP(w, r)
			return
		}
		if origin != "" {
			h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
