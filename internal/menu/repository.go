package menu

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
)

var _ Store = (*MenuRepository)(nil)

type MenuRepository struct {
	db *sql.DB
}

func NewMenuRepository(db *sql.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

func (r *MenuRepository) SaveProduct(ctx context.Context, product *domain.Product) error {
	product.ID = uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price)
		VALUES ($1, $2, $3)
	`, product.ID, product.Name, product.Price)
	return err
}

func (r *MenuRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price
		FROM products
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *MenuRepository) FindProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price
		FROM products
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *MenuRepository) SaveMenuGroup(ctx context.Context, group *domain.MenuGroup) error {
	group.ID = uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO menu_groups (id, name)
		VALUES ($1, $2)
	`, group.ID, group.Name)
	return err
}

func (r *MenuRepository) ListMenuGroups(ctx context.Context) ([]domain.MenuGroup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name
		FROM menu_groups
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	groups := []domain.MenuGroup{}
	for rows.Next() {
		var g domain.MenuGroup
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return groups, nil
}

func (r *MenuRepository) ExistsGroup(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM menu_groups WHERE id = $1)
	`, id).Scan(&exists)
	return exists, err
}

func (r *MenuRepository) SaveMenu(ctx context.Context, menu *domain.Menu) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	menu.ID = uuid.New().String()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO menus (id, name, price, menu_group_id)
		VALUES ($1, $2, $3, $4)
	`, menu.ID, menu.Name, menu.Price, menu.MenuGroupID)
	if err != nil {
		return err
	}

	for i, mp := range menu.Products {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO menu_products (menu_id, seq, product_id, quantity)
			VALUES ($1, $2, $3, $4)
		`, menu.ID, i+1, mp.ProductID, mp.Quantity)
		if err != nil {
			return fmt.Errorf("insert menu product %s: %w", mp.ProductID, err)
		}
	}

	return tx.Commit()
}

func (r *MenuRepository) ListMenus(ctx context.Context) ([]domain.Menu, error) {
	return r.queryMenus(ctx, `
		SELECT id, name, price, menu_group_id
		FROM menus
		ORDER BY created_at, id
	`)
}

// FindMenus returns the menus that exist among ids; unknown ids are skipped.
func (r *MenuRepository) FindMenus(ctx context.Context, ids []string) ([]domain.Menu, error) {
	return r.queryMenus(ctx, `
		SELECT id, name, price, menu_group_id
		FROM menus
		WHERE id = ANY($1)
		ORDER BY created_at, id
	`, pq.Array(ids))
}

func (r *MenuRepository) UpdateMenuPrice(ctx context.Context, id string, price int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE menus
		SET price = $2, updated_at = NOW()
		WHERE id = $1
	`, id, price)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("menu %s: %w", id, domain.ErrReferenceNotFound)
	}

	return nil
}

func (r *MenuRepository) queryMenus(ctx context.Context, query string, args ...any) ([]domain.Menu, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	menus := []domain.Menu{}
	var ids []string
	for rows.Next() {
		var m domain.Menu
		if err := rows.Scan(&m.ID, &m.Name, &m.Price, &m.MenuGroupID); err != nil {
			return nil, err
		}
		menus = append(menus, m)
		ids = append(ids, m.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(menus) == 0 {
		return menus, nil
	}

	products, err := r.menuProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load menu products: %w", err)
	}
	for i := range menus {
		menus[i].Products = products[menus[i].ID]
	}

	return menus, nil
}

func (r *MenuRepository) menuProducts(ctx context.Context, menuIDs []string) (map[string][]domain.MenuProduct, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT menu_id, product_id, quantity
		FROM menu_products
		WHERE menu_id = ANY($1)
		ORDER BY menu_id, seq
	`, pq.Array(menuIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := make(map[string][]domain.MenuProduct, len(menuIDs))
	for rows.Next() {
		var menuID string
		var mp domain.MenuProduct
		if err := rows.Scan(&menuID, &mp.ProductID, &mp.Quantity); err != nil {
			return nil, err
		}
		products[menuID] = append(products[menuID], mp)
	}

	return products, rows.Err()
}
