package pos

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

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

// Register mounts every pos route on mux, wrapping each handler with wrap (for instance
// telemetry.WithHTTPRoute).
func (h *Handler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	if wrap == nil {
		wrap = func(f http.HandlerFunc) http.HandlerFunc { return f }
	}
	mux.HandleFunc("POST /orders", wrap(h.HandleCreateOrder))
	mux.HandleFunc("GET /orders", wrap(h.HandleListOrders))
	mux.HandleFunc("GET /orders/{id}", wrap(h.HandleGetOrder))
	mux.HandleFunc("PUT /orders/{id}/status", wrap(h.HandleChangeOrderStatus))
	mux.HandleFunc("POST /tables", wrap(h.HandleCreateTable))
	mux.HandleFunc("GET /tables", wrap(h.HandleListTables))
	mux.HandleFunc("PUT /tables/{id}/empty", wrap(h.HandleChangeEmpty))
	mux.HandleFunc("PUT /tables/{id}/number-of-guests", wrap(h.HandleChangeNumberOfGuests))
	mux.HandleFunc("GET /tables/{id}/active-order", wrap(h.HandleHostsActiveOrder))
	mux.HandleFunc("POST /table-groups", wrap(h.HandleCreateTableGroup))
	mux.HandleFunc("GET /table-groups/{id}", wrap(h.HandleGetTableGroup))
	mux.HandleFunc("DELETE /table-groups/{id}", wrap(h.HandleUngroup))
}

type createOrderRequest struct {
	OrderTableID string            `json:"order_table_id"`
	LineItems    []LineItemRequest `json:"order_line_items"`
}

func (h *Handler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), req.OrderTableID, req.LineItems)
	if err != nil {
		h.writeServiceError(w, err, "failed to create order", "order_table_id", req.OrderTableID)
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to list orders")
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get order", "id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type changeStatusRequest struct {
	OrderStatus string `json:"order_status"`
}

func (h *Handler) HandleChangeOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := domain.ParseOrderStatus(req.OrderStatus)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.service.ChangeOrderStatus(r.Context(), id, status)
	if err != nil {
		h.writeServiceError(w, err, "failed to change order status", "id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type tableRequest struct {
	NumberOfGuests int  `json:"number_of_guests"`
	Empty          bool `json:"empty"`
}

func (h *Handler) HandleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req tableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	table, err := h.service.CreateTable(r.Context(), req.NumberOfGuests, req.Empty)
	if err != nil {
		h.writeServiceError(w, err, "failed to create order table")
		return
	}

	h.writeJSON(w, http.StatusCreated, table)
}

func (h *Handler) HandleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.service.ListTables(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to list order tables")
		return
	}

	h.logger.Info("order tables listed", "count", len(tables))
	h.writeJSON(w, http.StatusOK, tables)
}

func (h *Handler) HandleChangeEmpty(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req tableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	table, err := h.service.ChangeEmpty(r.Context(), id, req.Empty)
	if err != nil {
		h.writeServiceError(w, err, "failed to change empty", "id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, table)
}

func (h *Handler) HandleChangeNumberOfGuests(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req tableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	table, err := h.service.ChangeNumberOfGuests(r.Context(), id, req.NumberOfGuests)
	if err != nil {
		h.writeServiceError(w, err, "failed to change number of guests", "id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, table)
}

func (h *Handler) HandleHostsActiveOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	active, err := h.service.HostsActiveOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to check active orders", "id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

type createTableGroupRequest struct {
	OrderTableIDs []string `json:"order_table_ids"`
}

func (h *Handler) HandleCreateTableGroup(w http.ResponseWriter, r *http.Request) {
	var req createTableGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	group, err := h.service.CreateTableGroup(r.Context(), req.OrderTableIDs)
	if err != nil {
		h.writeServiceError(w, err, "failed to create table group")
		return
	}

	h.writeJSON(w, http.StatusCreated, group)
}

func (h *Handler) HandleGetTableGroup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	group, err := h.service.GetTableGroup(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get table group", "id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, group)
}

func (h *Handler) HandleUngroup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.service.Ungroup(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "failed to ungroup", "id", id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StatusCode maps a service error to the HTTP status reported to the caller.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrReferenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTableEmpty),
		errors.Is(err, domain.ErrTableGrouped),
		errors.Is(err, domain.ErrTableNotAvailable),
		errors.Is(err, domain.ErrActiveOrder),
		errors.Is(err, domain.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNegativeGuestCount),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrNoLineItems),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrGroupTooSmall):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string, args ...any) {
	status := StatusCode(err)
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
