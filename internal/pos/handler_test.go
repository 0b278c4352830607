package pos

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
)

func newTestServer(t *testing.T) (*fixture, *httptest.Server) {
	t.Helper()
	f := newFixture(t)
	mux := http.NewServeMux()
	NewHandler(f.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(mux, nil)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func do(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHandler_OrderFlow(t *testing.T) {
	_, srv := newTestServer(t)

	var table domain.OrderTable
	status := do(t, http.MethodPost, srv.URL+"/tables", `{"number_of_guests":0,"empty":true}`, &table)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, table.Empty)

	orderBody := fmt.Sprintf(`{"order_table_id":%q,"order_line_items":[{"menu_id":%q,"quantity":2}]}`, table.ID, friedChicken.ID)

	var apiErr map[string]string
	status = do(t, http.MethodPost, srv.URL+"/orders", orderBody, &apiErr)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, apiErr["error"], "table is empty")

	status = do(t, http.MethodPut, srv.URL+"/tables/"+table.ID+"/empty", `{"empty":false}`, &table)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, table.Empty)

	var order domain.Order
	status = do(t, http.MethodPost, srv.URL+"/orders", orderBody, &order)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, domain.OrderStatusCooking, order.Status)
	assert.Equal(t, int64(16000), order.LineItems[0].Snapshot.Price)

	var active map[string]bool
	status = do(t, http.MethodGet, srv.URL+"/tables/"+table.ID+"/active-order", "", &active)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, active["active"])

	status = do(t, http.MethodPut, srv.URL+"/orders/"+order.ID+"/status", `{"order_status":"MEAL"}`, &order)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.OrderStatusMeal, order.Status)

	status = do(t, http.MethodPut, srv.URL+"/tables/"+table.ID+"/empty", `{"empty":true}`, nil)
	assert.Equal(t, http.StatusConflict, status)

	status = do(t, http.MethodPut, srv.URL+"/orders/"+order.ID+"/status", `{"order_status":"COMPLETION"}`, nil)
	require.Equal(t, http.StatusOK, status)

	status = do(t, http.MethodPut, srv.URL+"/orders/"+order.ID+"/status", `{"order_status":"MEAL"}`, nil)
	assert.Equal(t, http.StatusConflict, status)

	status = do(t, http.MethodPut, srv.URL+"/tables/"+table.ID+"/empty", `{"empty":true}`, &table)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, table.Empty)

	var orders []domain.Order
	status = do(t, http.MethodGet, srv.URL+"/orders", "", &orders)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, orders, 1)
}

func TestHandler_TableGroups(t *testing.T) {
	f, srv := newTestServer(t)
	a, b := f.table(t, 0, true), f.table(t, 0, true)

	var view TableGroupView
	status := do(t, http.MethodPost, srv.URL+"/table-groups", fmt.Sprintf(`{"order_table_ids":[%q,%q]}`, a.ID, b.ID), &view)
	require.Equal(t, http.StatusCreated, status)
	assert.Len(t, view.OrderTables, 2)

	status = do(t, http.MethodGet, srv.URL+"/table-groups/"+view.ID, "", &view)
	require.Equal(t, http.StatusOK, status)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, view.OrderTableIDs)

	status = do(t, http.MethodDelete, srv.URL+"/table-groups/"+view.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status = do(t, http.MethodGet, srv.URL+"/table-groups/"+view.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandler_BadRequests(t *testing.T) {
	f, srv := newTestServer(t)
	table := f.table(t, 0, true)
	occupied := f.table(t, 2, false)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed body", http.MethodPost, "/orders", `{`, http.StatusBadRequest},
		{"unknown table", http.MethodPost, "/orders", `{"order_table_id":"missing","order_line_items":[]}`, http.StatusNotFound},
		{"no line items", http.MethodPost, "/orders", fmt.Sprintf(`{"order_table_id":%q,"order_line_items":[]}`, occupied.ID), http.StatusBadRequest},
		{"unknown status", http.MethodPut, "/orders/any/status", `{"order_status":"SERVED"}`, http.StatusBadRequest},
		{"unknown order", http.MethodGet, "/orders/missing", "", http.StatusNotFound},
		{"negative guests", http.MethodPut, "/tables/" + table.ID + "/number-of-guests", `{"number_of_guests":-1}`, http.StatusBadRequest},
		{"guests on empty table", http.MethodPut, "/tables/" + table.ID + "/number-of-guests", `{"number_of_guests":2}`, http.StatusConflict},
		{"group of one", http.MethodPost, "/table-groups", fmt.Sprintf(`{"order_table_ids":[%q]}`, table.ID), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := do(t, tt.method, srv.URL+tt.path, tt.body, nil)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", domain.ErrTableNotFound), http.StatusNotFound},
		{domain.ErrReferenceNotFound, http.StatusNotFound},
		{domain.ErrTableEmpty, http.StatusConflict},
		{domain.ErrTableGrouped, http.StatusConflict},
		{domain.ErrTableNotAvailable, http.StatusConflict},
		{domain.ErrActiveOrder, http.StatusConflict},
		{domain.ErrIllegalTransition, http.StatusConflict},
		{domain.ErrNegativeGuestCount, http.StatusBadRequest},
		{domain.ErrInvalidQuantity, http.StatusBadRequest},
		{domain.ErrNoLineItems, http.StatusBadRequest},
		{domain.ErrGroupTooSmall, http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), tt.err.Error())
	}
}
