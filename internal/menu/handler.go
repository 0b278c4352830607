package menu

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	if wrap == nil {
		wrap = func(f http.HandlerFunc) http.HandlerFunc { return f }
	}
	mux.HandleFunc("POST /products", wrap(h.HandleCreateProduct))
	mux.HandleFunc("GET /products", wrap(h.HandleListProducts))
	mux.HandleFunc("POST /menu-groups", wrap(h.HandleCreateMenuGroup))
	mux.HandleFunc("GET /menu-groups", wrap(h.HandleListMenuGroups))
	mux.HandleFunc("POST /menus", wrap(h.HandleCreateMenu))
	mux.HandleFunc("GET /menus", wrap(h.HandleListMenus))
	mux.HandleFunc("PUT /menus/{id}/price", wrap(h.HandleUpdateMenuPrice))
}

type productRequest struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

func (h *Handler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.service.CreateProduct(r.Context(), req.Name, req.Price)
	if err != nil {
		h.writeServiceError(w, err, "failed to create product")
		return
	}

	h.writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to list products")
		return
	}

	h.logger.Info("products listed", "count", len(products))
	h.writeJSON(w, http.StatusOK, products)
}

type menuGroupRequest struct {
	Name string `json:"name"`
}

func (h *Handler) HandleCreateMenuGroup(w http.ResponseWriter, r *http.Request) {
	var req menuGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	group, err := h.service.CreateMenuGroup(r.Context(), req.Name)
	if err != nil {
		h.writeServiceError(w, err, "failed to create menu group")
		return
	}

	h.writeJSON(w, http.StatusCreated, group)
}

func (h *Handler) HandleListMenuGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListMenuGroups(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to list menu groups")
		return
	}

	h.writeJSON(w, http.StatusOK, groups)
}

type menuRequest struct {
	Name         string               `json:"name"`
	Price        int64                `json:"price"`
	MenuGroupID  string               `json:"menu_group_id"`
	MenuProducts []domain.MenuProduct `json:"menu_products"`
}

func (h *Handler) HandleCreateMenu(w http.ResponseWriter, r *http.Request) {
	var req menuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	menu, err := h.service.CreateMenu(r.Context(), req.Name, req.Price, req.MenuGroupID, req.MenuProducts)
	if err != nil {
		h.writeServiceError(w, err, "failed to create menu", "menu_group_id", req.MenuGroupID)
		return
	}

	h.writeJSON(w, http.StatusCreated, menu)
}

// HandleListMenus lists every menu, or only those named by a comma separated ids query
// parameter.
func (h *Handler) HandleListMenus(w http.ResponseWriter, r *http.Request) {
	var (
		menus []domain.Menu
		err   error
	)
	if raw, ok := r.URL.Query()["ids"]; ok {
		menus, err = h.service.ResolveMenus(r.Context(), splitIDs(raw))
	} else {
		menus, err = h.service.ListMenus(r.Context())
	}
	if err != nil {
		h.writeServiceError(w, err, "failed to list menus")
		return
	}

	h.logger.Info("menus listed", "count", len(menus))
	h.writeJSON(w, http.StatusOK, menus)
}

type priceRequest struct {
	Price int64 `json:"price"`
}

func (h *Handler) HandleUpdateMenuPrice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	menu, err := h.service.UpdateMenuPrice(r.Context(), id, req.Price)
	if err != nil {
		h.writeServiceError(w, err, "failed to update menu price", "menu_id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, menu)
}

func splitIDs(values []string) []string {
	var ids []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrReferenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPrice), errors.Is(err, domain.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string, args ...any) {
	status := statusCode(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, append([]any{"error", err}, args...)...)
		h.writeError(w, status, "internal server error")
		return
	}

	h.logger.Info(msg, append([]any{"reason", err.Error()}, args...)...)
	h.writeError(w, status, err.Error())
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
