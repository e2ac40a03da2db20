// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"
	"slices"
	"strings"

	"github.com/maruel/productdb/internal/server/dto"
	"github.com/maruel/productdb/internal/server/handlers"
	"github.com/maruel/productdb/internal/server/ratelimit"
	"github.com/maruel/productdb/internal/storage"
)

// Mux routes requests on method and path templates like
// "GET /api/products/{id}". Each {name} segment matches one non-empty path
// segment and is exposed through r.PathValue.
//
// Unlike http.ServeMux, unmatched paths and methods are answered with the
// JSON error envelope (404 ROUTE_NOT_FOUND and 405 METHOD_NOT_ALLOWED).
type Mux struct {
	routes []*route
}

type route struct {
	segments []string
	handlers map[string]http.Handler
	methods  []string
}

// Handle registers h for pattern, which must be "METHOD /path".
func (m *Mux) Handle(pattern string, h http.Handler) {
	method, path, ok := strings.Cut(pattern, " ")
	if !ok || method == "" || !strings.HasPrefix(path, "/") {
		panic("server: invalid pattern " + pattern)
	}
	segs := splitPath(path)
	rt := m.find(segs)
	if rt == nil {
		rt = &route{segments: segs, handlers: map[string]http.Handler{}}
		m.routes = append(m.routes, rt)
	}
	if _, dup := rt.handlers[method]; dup {
		panic("server: duplicate pattern " + pattern)
	}
	rt.handlers[method] = h
	rt.methods = append(rt.methods, method)
}

func (m *Mux) find(segs []string) *route {
	for _, rt := range m.routes {
		if slices.Equal(rt.segments, segs) {
			return rt
		}
	}
	return nil
}

// ServeHTTP implements http.Handler.
func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segs := splitPath(r.URL.Path)
	var allowed []string
	for _, rt := range m.routes {
		params, ok := rt.match(segs)
		if !ok {
			continue
		}
		h := rt.handlers[r.Method]
		if h == nil && r.Method == http.MethodHead {
			h = rt.handlers[http.MethodGet]
		}
		if h == nil {
			for _, meth := range rt.methods {
				if !slices.Contains(allowed, meth) {
					allowed = append(allowed, meth)
				}
			}
			continue
		}
		for k, v := range params {
			r.SetPathValue(k, v)
		}
		h.ServeHTTP(w, r)
		return
	}
	if len(allowed) != 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		writeAPIError(r.Context(), w, dto.MethodNotAllowed(r.Method, allowed))
		return
	}
	writeAPIError(r.Context(), w, dto.RouteNotFound(r.URL.Path))
}

// match returns the path parameters if segs matches the route.
func (rt *route) match(segs []string) (map[string]string, bool) {
	if len(segs) != len(rt.segments) {
		return nil, false
	}
	var params map[string]string
	for i, s := range rt.segments {
		if name, ok := paramName(s); ok {
			if segs[i] == "" {
				return nil, false
			}
			if params == nil {
				params = map[string]string{}
			}
			params[name] = segs[i]
			continue
		}
		if s != segs[i] {
			return nil, false
		}
	}
	return params, true
}

func paramName(seg string) (string, bool) {
	if len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}' {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}

// splitPath splits a path into segments, ignoring one trailing slash.
func splitPath(p string) []string {
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Router is the root handler of the API.
type Router struct {
	http.Handler
	limiters *ratelimit.Config
}

// NewRouter creates and configures the HTTP router.
//
// Products are served at /api/products and at the /public/producto/...
// routes kept for existing clients, which also accept the original column
// names in request bodies. Close releases the rate limiters.
func NewRouter(products *storage.ProductTable, cfg *Config) *Router {
	limiters := ratelimit.NewConfig(cfg.RateLimits.WriteRatePerMin, cfg.RateLimits.ReadRatePerMin)
	ph := handlers.NewProductHandler(products)
	hh := handlers.NewHealthHandler(products, cfg.Build, cfg.History != nil)
	sh := handlers.NewSchemaHandler(products)
	histh := handlers.NewHistoryHandler(cfg.History)

	mux := &Mux{}

	// Server endpoints
	mux.Handle("GET /api/health", Wrap(hh.Health, cfg, limiters))
	mux.Handle("GET /api/schema", Wrap(sh.Schema, cfg, limiters))
	mux.Handle("GET /api/history", Wrap(histh.History, cfg, limiters))

	// Products
	mux.Handle("GET /api/products", Wrap(ph.ListProducts, cfg, limiters))
	mux.Handle("POST /api/products", Wrap(ph.CreateProduct, cfg, limiters))
	mux.Handle("GET /api/products/{id}", Wrap(ph.GetProduct, cfg, limiters))
	mux.Handle("PUT /api/products/{id}", Wrap(ph.UpdateProduct, cfg, limiters))
	mux.Handle("DELETE /api/products/{id}", Wrap(ph.DeleteProduct, cfg, limiters))

	// Original routes
	mux.Handle("GET /public/producto/get", Wrap(ph.ListProducts, cfg, limiters))
	mux.Handle("GET /public/producto/get/{id}", Wrap(ph.GetProduct, cfg, limiters))
	mux.Handle("POST /public/producto/create", Wrap(ph.CreateLegacyProduct, cfg, limiters))
	mux.Handle("PUT /public/producto/update/{id}", Wrap(ph.UpdateLegacyProduct, cfg, limiters))
	mux.Handle("DELETE /public/producto/delete/{id}", Wrap(ph.DeleteProduct, cfg, limiters))

	h := corsHeaders(mux, cfg.CORS.AllowedOrigins)
	return &Router{Handler: withRequestMetadata(h, cfg.IPGeo), limiters: limiters}
}

// Close stops the rate limiter goroutines.
func (rt *Router) Close() {
	rt.limiters.Close()
}
