package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const apiPrefix = "/api"

type Handler struct {
	posProxy  *ServiceProxy
	menuProxy *ServiceProxy
	logger    *slog.Logger
}

func NewHandler(posProxy, menuProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		posProxy:  posProxy,
		menuProxy: menuProxy,
		logger:    logger,
	}
}

// Register exposes the pos and menu services under /api.
func (h *Handler) Register(mux *http.ServeMux) {
	for _, resource := range []string{"orders", "tables", "table-groups"} {
		mux.HandleFunc(apiPrefix+"/"+resource, h.HandlePOS)
		mux.HandleFunc(apiPrefix+"/"+resource+"/", h.HandlePOS)
	}
	for _, resource := range []string{"products", "menu-groups", "menus"} {
		mux.HandleFunc(apiPrefix+"/"+resource, h.HandleMenu)
		mux.HandleFunc(apiPrefix+"/"+resource+"/", h.HandleMenu)
	}
}

func (h *Handler) HandlePOS(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.posProxy, strings.TrimPrefix(r.URL.Path, apiPrefix))
}

func (h *Handler) HandleMenu(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.menuProxy, strings.TrimPrefix(r.URL.Path, apiPrefix))
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
