package pos

import (
	"context"
	"fmt"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
)

type LineItemRequest struct {
	MenuID   string `json:"menu_id"`
	Quantity int64  `json:"quantity"`
}

// SnapshotLineItems resolves every requested menu through the catalog and freezes its current
// name and price into a line item. The number of requested line items must match the number of
// menus found, which rejects unknown menus and repeated menu ids alike.
func SnapshotLineItems(ctx context.Context, catalog MenuCatalog, requests []LineItemRequest) ([]domain.OrderLineItem, error) {
	if len(requests) == 0 {
		return nil, domain.ErrNoLineItems
	}

	ids := make([]string, 0, len(requests))
	seen := make(map[string]struct{}, len(requests))
	for _, req := range requests {
		if req.Quantity < 1 {
			return nil, fmt.Errorf("%w: menu %s quantity %d", domain.ErrInvalidQuantity, req.MenuID, req.Quantity)
		}
		if _, ok := seen[req.MenuID]; ok {
			continue
		}
		seen[req.MenuID] = struct{}{}
		ids = append(ids, req.MenuID)
	}

	menus, err := catalog.ResolveByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve menus: %w", err)
	}
	if len(menus) != len(requests) {
		return nil, fmt.Errorf("menus: %w: requested %d line items, found %d menus", domain.ErrReferenceNotFound, len(requests), len(menus))
	}

	byID := make(map[string]domain.Menu, len(menus))
	for _, m := range menus {
		byID[m.ID] = m
	}

	items := make([]domain.OrderLineItem, 0, len(requests))
	for _, req := range requests {
		menu, ok := byID[req.MenuID]
		if !ok {
			return nil, fmt.Errorf("menu %s: %w", req.MenuID, domain.ErrReferenceNotFound)
		}
		items = append(items, domain.OrderLineItem{
			MenuID:   menu.ID,
			Quantity: req.Quantity,
			Snapshot: menu.Snapshot(req.Quantity),
		})
	}
	return items, nil
}
