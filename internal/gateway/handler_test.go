package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newRoutedHandler(posURL, menuURL string) http.Handler {
	handler := NewHandler(
		NewServiceProxy(posURL, http.DefaultClient),
		NewServiceProxy(menuURL, http.DefaultClient),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	mux := http.NewServeMux()
	handler.Register(mux)
	return mux
}

func TestHandler_HandlePOS(t *testing.T) {
	t.Run("strips /api and proxies GET /orders", func(t *testing.T) {
		posServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/orders" {
				t.Errorf("expected /orders, got %s", r.URL.Path)
			}
			if r.Method != http.MethodGet {
				t.Errorf("expected GET, got %s", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`[{"id":"1"}]`))
		}))
		defer posServer.Close()

		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		rec := httptest.NewRecorder()

		newRoutedHandler(posServer.URL, "http://unused").ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec.Header().Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json, got %s", rec.Header().Get("Content-Type"))
		}
		if rec.Body.String() != `[{"id":"1"}]` {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("proxies PUT /tables/{id}/empty with body", func(t *testing.T) {
		posServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/tables/t1/empty" {
				t.Errorf("expected /tables/t1/empty, got %s", r.URL.Path)
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"empty":false}` {
				t.Errorf("unexpected body: %s", body)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"order table hosts a cooking or meal order"}`))
		}))
		defer posServer.Close()

		req := httptest.NewRequest(http.MethodPut, "/api/tables/t1/empty", strings.NewReader(`{"empty":false}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		newRoutedHandler(posServer.URL, "http://unused").ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rec.Code)
		}
	})

	t.Run("routes table groups to pos", func(t *testing.T) {
		posServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/table-groups/g1" || r.Method != http.MethodDelete {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer posServer.Close()

		req := httptest.NewRequest(http.MethodDelete, "/api/table-groups/g1", nil)
		rec := httptest.NewRecorder()

		newRoutedHandler(posServer.URL, "http://unused").ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rec.Code)
		}
	})

	t.Run("returns 502 when pos service unavailable", func(t *testing.T) {
		handler := NewHandler(
			NewServiceProxy("http://localhost:99999", &http.Client{}),
			NewServiceProxy("http://unused", http.DefaultClient),
			slog.New(slog.NewTextHandler(io.Discard, nil)),
		)

		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		rec := httptest.NewRecorder()

		handler.HandlePOS(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rec.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["error"] != "service unavailable" {
			t.Errorf("expected 'service unavailable', got %s", resp["error"])
		}
	})
}

func TestHandler_HandleMenu(t *testing.T) {
	t.Run("forwards menu lookups with their query", func(t *testing.T) {
		menuServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/menus" {
				t.Errorf("expected /menus, got %s", r.URL.Path)
			}
			if r.URL.Query().Get("ids") != "m1,m2" {
				t.Errorf("expected ids m1,m2, got %s", r.URL.Query().Get("ids"))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`[]`))
		}))
		defer menuServer.Close()

		req := httptest.NewRequest(http.MethodGet, "/api/menus?ids=m1,m2", nil)
		rec := httptest.NewRecorder()

		newRoutedHandler("http://unused", menuServer.URL).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("preserves downstream error status", func(t *testing.T) {
		menuServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/products" {
				t.Errorf("expected /products, got %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid price"}`))
		}))
		defer menuServer.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"name":"x","price":-1}`))
		rec := httptest.NewRecorder()

		newRoutedHandler("http://unused", menuServer.URL).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("unknown api path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
		rec := httptest.NewRecorder()

		newRoutedHandler("http://unused", "http://unused").ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}
