package menu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
	"github.com/joao-fontenele/kitchenpos/internal/pos"
)

var _ pos.MenuCatalog = (*Client)(nil)

// Client is the pos service's view of the menu catalog, reached over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: client,
	}
}

func (c *Client) ResolveByIDs(ctx context.Context, ids []string) ([]domain.Menu, error) {
	query := url.Values{"ids": {strings.Join(ids, ",")}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/menus?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create menus request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve menus: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("menu service returned status %d", resp.StatusCode)
	}

	var menus []domain.Menu
	if err := json.NewDecoder(resp.Body).Decode(&menus); err != nil {
		return nil, fmt.Errorf("decode menus: %w", err)
	}
	return menus, nil
}
