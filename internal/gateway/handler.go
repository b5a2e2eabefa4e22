package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

type Handler struct {
	upstreams map[string]*ServiceProxy
	logger    *slog.Logger
}

func NewHandler(upstreams map[string]*ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		upstreams: upstreams,
		logger:    logger,
	}
}

// Route returns a handler that forwards every request to the named upstream.
func (h *Handler) Route(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		proxy, ok := h.upstreams[name]
		if !ok {
			h.logger.Error("no upstream registered", "upstream", name)
			h.writeError(w, http.StatusBadGateway, "service unavailable")
			return
		}
		h.proxyRequest(w, r, name, proxy)
	}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, name string, proxy *ServiceProxy) {
	resp, err := proxy.ForwardRequest(r.Context(), r)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "upstream", name, "path", r.URL.Path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "upstream", name, "method", r.Method, "path", r.URL.Path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
