package gateway

import (
	"net/http"

	"github.com/joao-fontenele/shopflow/internal/telemetry"
)

// NewRouter registers the health and metrics endpoints plus one prefix route
// per upstream. A nil metrics handler leaves /metrics unrouted.
func NewRouter(h *Handler, upstreams []Upstream, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HandleHealth)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	for _, u := range upstreams {
		route := telemetry.WithHTTPRoute(h.Route(u.Name))
		mux.HandleFunc("/"+u.Name, route)
		mux.HandleFunc("/"+u.Name+"/", route)
	}
	return mux
}
