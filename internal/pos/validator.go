package pos

import (
	"context"
	"fmt"
	"time"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
)

// Validator holds the rules that span more than one aggregate. Every method loads (and so locks)
// the aggregates it needs through tx and returns them ready to be mutated, or the first rule
// that is violated. It keeps no state of its own.
type Validator struct{}

// OrderableTable returns the table an order is about to be placed on.
func (Validator) OrderableTable(ctx context.Context, tx Tx, tableID string) (*domain.OrderTable, error) {
	table, err := findTable(ctx, tx, tableID)
	if err != nil {
		return nil, err
	}
	if table.Empty {
		return nil, fmt.Errorf("%w: cannot order on table %s", domain.ErrTableEmpty, tableID)
	}
	return table, nil
}

// ChangeableOrder returns the order together with its table, locked in that sequence.
func (Validator) ChangeableOrder(ctx context.Context, tx Tx, orderID string) (*domain.Order, error) {
	order, err := tx.Orders().Find(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	if _, err := findTable(ctx, tx, order.OrderTableID); err != nil {
		return nil, err
	}
	return order, nil
}

// HostsActiveOrder reports whether any of the tables has a COOKING or MEAL order.
func (Validator) HostsActiveOrder(ctx context.Context, tx Tx, tableIDs ...string) (bool, error) {
	for _, id := range tableIDs {
		orders, err := tx.Orders().FindAllByTable(ctx, id)
		if err != nil {
			return false, fmt.Errorf("find orders of table %s: %w", id, err)
		}
		if domain.HasActiveOrder(orders) {
			return true, nil
		}
	}
	return false, nil
}

// GroupableTables resolves the requested tables and checks they can form a new group.
func (Validator) GroupableTables(ctx context.Context, tx Tx, tableIDs []string, now time.Time) (*domain.TableGroup, []domain.OrderTable, error) {
	tables, err := tx.Tables().FindAllByIDs(ctx, tableIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("find order tables: %w", err)
	}
	group, err := domain.NewTableGroup(tableIDs, tables, now)
	if err != nil {
		return nil, nil, err
	}
	return group, tables, nil
}

// UngroupableTables returns the members of a group that may be dissolved.
func (v Validator) UngroupableTables(ctx context.Context, tx Tx, groupID string) (*domain.TableGroup, []domain.OrderTable, error) {
	group, err := tx.Groups().Find(ctx, groupID)
	if err != nil {
		return nil, nil, fmt.Errorf("find table group: %w", err)
	}
	if group == nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, groupID)
	}

	tables, err := tx.Tables().FindAllByGroup(ctx, groupID)
	if err != nil {
		return nil, nil, fmt.Errorf("find order tables of group: %w", err)
	}
	ids := make([]string, 0, len(tables))
	for _, t := range tables {
		ids = append(ids, t.ID)
	}

	active, err := v.HostsActiveOrder(ctx, tx, ids...)
	if err != nil {
		return nil, nil, err
	}
	if active {
		return nil, nil, fmt.Errorf("%w: cannot ungroup %s", domain.ErrActiveOrder, groupID)
	}
	return group, tables, nil
}

func findTable(ctx context.Context, tx Tx, id string) (*domain.OrderTable, error) {
	table, err := tx.Tables().Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find order table: %w", err)
	}
	if table == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTableNotFound, id)
	}
	return table, nil
}
