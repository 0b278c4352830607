package menu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
)

func newMenuServer(t *testing.T) (*catalogFixture, *httptest.Server) {
	t.Helper()
	f := newCatalogFixture(t)
	mux := http.NewServeMux()
	NewHandler(f.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(mux, nil)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHandler_CreateAndResolveMenus(t *testing.T) {
	f, srv := newMenuServer(t)

	var menu domain.Menu
	status := postJSON(t, srv.URL+"/menus", menuRequest{
		Name:         "Fried Chicken",
		Price:        16000,
		MenuGroupID:  f.group.ID,
		MenuProducts: []domain.MenuProduct{{ProductID: f.chicken.ID, Quantity: 1}},
	}, &menu)
	require.Equal(t, http.StatusCreated, status)

	client := NewClient(srv.URL+"/", srv.Client())

	menus, err := client.ResolveByIDs(context.Background(), []string{menu.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, menus, 1)
	assert.Equal(t, domain.Menu{
		ID:          menu.ID,
		Name:        "Fried Chicken",
		Price:       16000,
		MenuGroupID: f.group.ID,
		Products:    []domain.MenuProduct{{ProductID: f.chicken.ID, Quantity: 1}},
	}, menus[0])
}

func TestHandler_Errors(t *testing.T) {
	f, srv := newMenuServer(t)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"negative product price", "/products", productRequest{Name: "Fried Chicken", Price: -1}, http.StatusBadRequest},
		{"unnamed menu group", "/menu-groups", menuGroupRequest{}, http.StatusBadRequest},
		{"unknown menu group", "/menus", menuRequest{Name: "Fried Chicken", MenuGroupID: "missing"}, http.StatusNotFound},
		{"menu price above products", "/menus", menuRequest{
			Name:         "Fried Chicken",
			Price:        16001,
			MenuGroupID:  f.group.ID,
			MenuProducts: []domain.MenuProduct{{ProductID: f.chicken.ID, Quantity: 1}},
		}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, postJSON(t, srv.URL+tt.path, tt.body, nil))
		})
	}
}

func TestHandler_UpdateMenuPrice(t *testing.T) {
	f, srv := newMenuServer(t)
	menu, err := f.service.CreateMenu(context.Background(), "Fried Chicken", 16000, f.group.ID, []domain.MenuProduct{{ProductID: f.chicken.ID, Quantity: 1}})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/menus/%s/price", srv.URL, menu.ID), bytes.NewReader([]byte(`{"price":15000}`)))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated domain.Menu
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, int64(15000), updated.Price)
}

func TestClient_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a,b", r.URL.Query().Get("ids"))
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).ResolveByIDs(context.Background(), []string{"a", "b"})

	assert.Error(t, err)
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitIDs([]string{"a, b", "c,"}))
	assert.Nil(t, splitIDs([]string{""}))
}
