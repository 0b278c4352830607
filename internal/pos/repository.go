package pos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore runs every unit of work in one database transaction. Aggregates loaded by id
// are locked with SELECT ... FOR UPDATE; multi-row locks are taken in id order.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, pgTx{tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t pgTx) Orders() OrderRepository      { return &PostgresOrderRepository{tx: t.tx} }
func (t pgTx) Tables() OrderTableRepository { return &PostgresOrderTableRepository{tx: t.tx} }
func (t pgTx) Groups() TableGroupRepository { return &PostgresTableGroupRepository{tx: t.tx} }

type PostgresOrderTableRepository struct {
	tx *sql.Tx
}

const selectOrderTable = `SELECT id, table_group_id, number_of_guests, empty FROM order_tables`

func (r *PostgresOrderTableRepository) Save(ctx context.Context, table *domain.OrderTable) error {
	if table.ID == "" {
		table.ID = uuid.New().String()
	}

	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO order_tables (id, table_group_id, number_of_guests, empty, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET table_group_id = EXCLUDED.table_group_id,
		    number_of_guests = EXCLUDED.number_of_guests,
		    empty = EXCLUDED.empty,
		    updated_at = NOW()
	`, table.ID, nullString(table.TableGroupID), table.NumberOfGuests, table.Empty)
	return err
}

func (r *PostgresOrderTableRepository) Find(ctx context.Context, id string) (*domain.OrderTable, error) {
	row := r.tx.QueryRowContext(ctx, selectOrderTable+` WHERE id = $1 FOR UPDATE`, id)

	table, err := scanOrderTable(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &table, nil
}

func (r *PostgresOrderTableRepository) List(ctx context.Context) ([]domain.OrderTable, error) {
	return r.query(ctx, selectOrderTable+` ORDER BY created_at, id`)
}

func (r *PostgresOrderTableRepository) FindAllByGroup(ctx context.Context, groupID string) ([]domain.OrderTable, error) {
	return r.query(ctx, selectOrderTable+` WHERE table_group_id = $1 ORDER BY id FOR UPDATE`, groupID)
}

func (r *PostgresOrderTableRepository) FindAllByIDs(ctx context.Context, ids []string) ([]domain.OrderTable, error) {
	return r.query(ctx, selectOrderTable+` WHERE id = ANY($1) ORDER BY id FOR UPDATE`, pq.Array(ids))
}

func (r *PostgresOrderTableRepository) query(ctx context.Context, query string, args ...any) ([]domain.OrderTable, error) {
	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tables := []domain.OrderTable{}
	for rows.Next() {
		table, err := scanOrderTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrderTable(s scanner) (domain.OrderTable, error) {
	var (
		table   domain.OrderTable
		groupID sql.NullString
	)
	if err := s.Scan(&table.ID, &groupID, &table.NumberOfGuests, &table.Empty); err != nil {
		return domain.OrderTable{}, err
	}
	table.TableGroupID = groupID.String
	return table, nil
}

type PostgresOrderRepository struct {
	tx *sql.Tx
}

const selectOrder = `SELECT id, order_table_id, status, ordered_at FROM orders`

// Save inserts a new order with its line items. Line items are immutable, so saving an
// existing order only writes its status.
func (r *PostgresOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	if order.ID != "" {
		result, err := r.tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, updated_at = NOW()
			WHERE id = $2
		`, order.Status, order.ID)
		if err != nil {
			return err
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, order.ID)
		}
		return nil
	}

	order.ID = uuid.New().String()

	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO orders (id, order_table_id, status, ordered_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, order.ID, order.OrderTableID, order.Status, order.OrderedAt)
	if err != nil {
		return err
	}

	for _, item := range order.LineItems {
		_, err = r.tx.ExecContext(ctx, `
			INSERT INTO order_line_items (order_id, seq, menu_id, quantity, menu_name, menu_price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, order.ID, item.Seq, item.MenuID, item.Quantity, item.Snapshot.Name, item.Snapshot.Price)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *PostgresOrderRepository) Find(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.tx.QueryRowContext(ctx, selectOrder+` WHERE id = $1 FOR UPDATE`, id).
		Scan(&order.ID, &order.OrderTableID, &order.Status, &order.OrderedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	items, err := r.lineItems(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.LineItems = items[order.ID]

	return order, nil
}

func (r *PostgresOrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.query(ctx, selectOrder+` ORDER BY ordered_at, id`)
}

func (r *PostgresOrderRepository) FindAllByTable(ctx context.Context, tableID string) ([]domain.Order, error) {
	return r.query(ctx, selectOrder+` WHERE order_table_id = $1 ORDER BY ordered_at, id`, tableID)
}

func (r *PostgresOrderRepository) query(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var orders []domain.Order
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.OrderTableID, &order.Status, &order.OrderedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	items, err := r.lineItems(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].LineItems = items[orders[i].ID]
	}

	return orders, nil
}

func (r *PostgresOrderRepository) lineItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderLineItem, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT order_id, seq, menu_id, quantity, menu_name, menu_price
		FROM order_line_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, seq
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := make(map[string][]domain.OrderLineItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			item    domain.OrderLineItem
		)
		if err := rows.Scan(&orderID, &item.Seq, &item.MenuID, &item.Quantity, &item.Snapshot.Name, &item.Snapshot.Price); err != nil {
			return nil, err
		}
		item.Snapshot.Quantity = item.Quantity
		items[orderID] = append(items[orderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type PostgresTableGroupRepository struct {
	tx *sql.Tx
}

func (r *PostgresTableGroupRepository) Save(ctx context.Context, group *domain.TableGroup) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}

	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO table_groups (id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, group.ID, group.CreatedAt)
	return err
}

// Find loads the group with the ids of the tables that currently reference it.
func (r *PostgresTableGroupRepository) Find(ctx context.Context, id string) (*domain.TableGroup, error) {
	group := &domain.TableGroup{}

	err := r.tx.QueryRowContext(ctx, `
		SELECT id, created_at FROM table_groups WHERE id = $1 FOR UPDATE
	`, id).Scan(&group.ID, &group.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.tx.QueryContext(ctx, `
		SELECT id FROM order_tables WHERE table_group_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var tableID string
		if err := rows.Scan(&tableID); err != nil {
			return nil, err
		}
		group.OrderTableIDs = append(group.OrderTableIDs, tableID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return group, nil
}

func (r *PostgresTableGroupRepository) Delete(ctx context.Context, id string) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM table_groups WHERE id = $1`, id)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
