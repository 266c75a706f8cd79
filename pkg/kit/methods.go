package kit

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// probeMethods is the order methods appear in the Allow header.
var probeMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// MethodNotAllowed answers 405 with an Allow header listing the methods
// routes actually serves for the request path.
func MethodNotAllowed(routes chi.Routes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		allowed := AllowedMethods(routes, routePath(r))
		if len(allowed) > 0 {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
		}
		WriteText(w, http.StatusMethodNotAllowed, "Method %s Not Allowed", r.Method)
	}
}

func AllowedMethods(routes chi.Routes, path string) []string {
	var out []string
	for _, m := range probeMethods {
		if routes.Match(chi.NewRouteContext(), m, path) {
			out = append(out, m)
		}
	}
	return out
}

// routePath is the path relative to the router handling r, which differs
// from URL.Path once the request went through Mount.
func routePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePath != "" {
		return rctx.RoutePath
	}
	return r.URL.Path
}
