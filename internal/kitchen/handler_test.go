package kitchen

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
)

func orderCreatedPayload(t *testing.T, orderID string) []byte {
	t.Helper()
	data, err := json.Marshal(domain.OrderCreatedEvent{
		OrderID:      orderID,
		OrderTableID: "table-1",
		Timestamp:    time.Now(),
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return data
}

func TestCookHandler_Handle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("serves the order as MEAL", func(t *testing.T) {
		var gotPath, gotStatus string
		posServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				t.Errorf("expected PUT, got %s", r.Method)
			}
			gotPath = r.URL.Path
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			gotStatus = body["order_status"]
			w.WriteHeader(http.StatusOK)
		}))
		defer posServer.Close()

		handler := NewCookHandler(posServer.URL, 0, posServer.Client(), logger)

		if err := handler.Handle(context.Background(), orderCreatedPayload(t, "order-1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotPath != "/orders/order-1/status" {
			t.Errorf("unexpected path: %s", gotPath)
		}
		if gotStatus != "MEAL" {
			t.Errorf("expected MEAL, got %q", gotStatus)
		}
	})

	t.Run("skips orders that were already completed", func(t *testing.T) {
		posServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))
		defer posServer.Close()

		handler := NewCookHandler(posServer.URL, 0, posServer.Client(), logger)

		if err := handler.Handle(context.Background(), orderCreatedPayload(t, "order-1")); err != nil {
			t.Errorf("expected conflict to be skipped, got %v", err)
		}
	})

	t.Run("fails on server errors", func(t *testing.T) {
		posServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer posServer.Close()

		handler := NewCookHandler(posServer.URL, 0, posServer.Client(), logger)

		if err := handler.Handle(context.Background(), orderCreatedPayload(t, "order-1")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		handler := NewCookHandler("http://unused", 0, http.DefaultClient, logger)

		if err := handler.Handle(context.Background(), []byte("{")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("stops cooking when cancelled", func(t *testing.T) {
		handler := NewCookHandler("http://unused", time.Hour, http.DefaultClient, logger)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := handler.Handle(ctx, orderCreatedPayload(t, "order-1")); err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
