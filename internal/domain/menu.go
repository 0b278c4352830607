package domain

import "fmt"

type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

func NewProduct(name string, price int64) (*Product, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if price < 0 {
		return nil, fmt.Errorf("%w: product price %d", ErrInvalidPrice, price)
	}
	return &Product{Name: name, Price: price}, nil
}

type MenuGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MenuProduct struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type Menu struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Price       int64         `json:"price"`
	MenuGroupID string        `json:"menu_group_id"`
	Products    []MenuProduct `json:"menu_products"`
}

// NewMenu builds a menu whose price may not exceed the sum of its products bought separately.
// products must hold every product referenced by menuProducts.
func NewMenu(name string, price int64, groupID string, menuProducts []MenuProduct, products map[string]Product) (*Menu, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	m := &Menu{Name: name, MenuGroupID: groupID, Products: menuProducts}
	if err := m.ChangePrice(price, products); err != nil {
		return nil, err
	}
	return m, nil
}

// ChangePrice reprices the menu under the same rule as NewMenu. Orders already placed keep the
// price captured in their snapshots.
func (m *Menu) ChangePrice(price int64, products map[string]Product) error {
	if price < 0 {
		return fmt.Errorf("%w: menu price %d", ErrInvalidPrice, price)
	}

	var sum int64
	for _, mp := range m.Products {
		p, ok := products[mp.ProductID]
		if !ok {
			return fmt.Errorf("product %s: %w", mp.ProductID, ErrReferenceNotFound)
		}
		sum += p.Price * mp.Quantity
	}
	if price > sum {
		return fmt.Errorf("%w: menu price %d exceeds products total %d", ErrInvalidPrice, price, sum)
	}

	m.Price = price
	return nil
}

// Snapshot captures the menu's current name and price for an order line item.
func (m Menu) Snapshot(quantity int64) PriceSnapshot {
	return PriceSnapshot{Name: m.Name, Price: m.Price, Quantity: quantity}
}
