package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusCooking    OrderStatus = "COOKING"
	OrderStatusMeal       OrderStatus = "MEAL"
	OrderStatusCompletion OrderStatus = "COMPLETION"
)

// transitions lists the legal successors of every status. COMPLETION is terminal.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusCooking:    {OrderStatusMeal},
	OrderStatusMeal:       {OrderStatusCompletion},
	OrderStatusCompletion: nil,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := transitions[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// IsActive reports whether an order in this status still occupies its table.
func (s OrderStatus) IsActive() bool {
	return s == OrderStatusCooking || s == OrderStatusMeal
}

func (s OrderStatus) IsTerminal() bool {
	_, known := transitions[s]
	return known && len(transitions[s]) == 0
}

// CanTransition reports whether to is a legal successor of from in the order state machine.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PriceSnapshot freezes the menu name and price at the moment a line item is ordered.
type PriceSnapshot struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

func (p PriceSnapshot) Amount() int64 {
	return p.Price * p.Quantity
}

type OrderLineItem struct {
	Seq      int           `json:"seq"`
	MenuID   string        `json:"menu_id"`
	Quantity int64         `json:"quantity"`
	Snapshot PriceSnapshot `json:"snapshot"`
}

type Order struct {
	ID           string          `json:"id"`
	OrderTableID string          `json:"order_table_id"`
	Status       OrderStatus     `json:"order_status"`
	OrderedAt    time.Time       `json:"ordered_time"`
	LineItems    []OrderLineItem `json:"order_line_items"`
}

// NewOrder starts an order in COOKING. The caller is responsible for having checked that the
// table is occupied and that every line item resolved to a menu.
func NewOrder(tableID string, orderedAt time.Time, items []OrderLineItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoLineItems
	}
	for i := range items {
		items[i].Seq = i + 1
	}
	return &Order{
		OrderTableID: tableID,
		Status:       OrderStatusCooking,
		OrderedAt:    orderedAt,
		LineItems:    items,
	}, nil
}

// ChangeStatus moves the order to next. A completed order never changes again. With strict
// set, next must also be the legal successor of the current status.
func (o *Order) ChangeStatus(next OrderStatus, strict bool) error {
	if _, ok := transitions[next]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}
	if o.Status.IsTerminal() {
		return fmt.Errorf("%w: order %s is %s", ErrIllegalTransition, o.ID, o.Status)
	}
	if strict && !CanTransition(o.Status, next) {
		return fmt.Errorf("%w: %s to %s", ErrIllegalTransition, o.Status, next)
	}
	o.Status = next
	return nil
}

func (o *Order) Total() int64 {
	var total int64
	for _, item := range o.LineItems {
		total += item.Snapshot.Amount()
	}
	return total
}

// HasActiveOrder reports whether any of the given orders is still cooking or being eaten.
func HasActiveOrder(orders []Order) bool {
	for _, o := range orders {
		if o.Status.IsActive() {
			return true
		}
	}
	return false
}
