package kitchen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
)

// CookHandler plays the kitchen: every new order is cooked for a fixed time and then served,
// which moves it from COOKING to MEAL in the pos service.
type CookHandler struct {
	posServiceURL string
	cookTime      time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
}

func NewCookHandler(posServiceURL string, cookTime time.Duration, client *http.Client, logger *slog.Logger) *CookHandler {
	return &CookHandler{
		posServiceURL: posServiceURL,
		cookTime:      cookTime,
		httpClient:    client,
		logger:        logger,
	}
}

func (h *CookHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("cooking order", "order_id", event.OrderID, "order_table_id", event.OrderTableID, "line_items", len(event.LineItems))

	if err := h.cook(ctx); err != nil {
		return err
	}

	status, err := h.serve(ctx, event.OrderID)
	if err != nil {
		h.logger.Error("failed to serve order", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("serve order %s: %w", event.OrderID, err)
	}

	switch status {
	case http.StatusOK:
		h.logger.Info("order served", "order_id", event.OrderID)
	case http.StatusConflict, http.StatusNotFound:
		// Completed or removed before the kitchen was done with it.
		h.logger.Warn("order no longer servable, skipping", "order_id", event.OrderID, "status", status)
	default:
		return fmt.Errorf("pos service returned status %d for order %s", status, event.OrderID)
	}

	return nil
}

func (h *CookHandler) cook(ctx context.Context) error {
	if h.cookTime <= 0 {
		return nil
	}

	timer := time.NewTimer(h.cookTime)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *CookHandler) serve(ctx context.Context, orderID string) (int, error) {
	data, err := json.Marshal(map[string]string{
		"order_status": string(domain.OrderStatusMeal),
	})
	if err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/orders/%s/status", h.posServiceURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode, nil
}
