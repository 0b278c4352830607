package domain

import (
	"fmt"
	"time"
)

// OrderTable is a dining table. It never holds its orders; whether it hosts an active order
// is looked up through the order repository and passed in where a rule needs it.
type OrderTable struct {
	ID             string `json:"id"`
	TableGroupID   string `json:"table_group_id,omitempty"`
	NumberOfGuests int    `json:"number_of_guests"`
	Empty          bool   `json:"empty"`
}

func NewOrderTable(numberOfGuests int, empty bool) (*OrderTable, error) {
	if numberOfGuests < 0 {
		return nil, ErrNegativeGuestCount
	}
	return &OrderTable{NumberOfGuests: numberOfGuests, Empty: empty}, nil
}

func (t *OrderTable) Grouped() bool {
	return t.TableGroupID != ""
}

// Available reports whether the table can be claimed by a new table group.
func (t *OrderTable) Available() bool {
	return !t.Grouped() && t.Empty
}

func (t *OrderTable) ChangeEmpty(empty, hostsActiveOrder bool) error {
	if t.Grouped() {
		return fmt.Errorf("%w: table %s in group %s", ErrTableGrouped, t.ID, t.TableGroupID)
	}
	if hostsActiveOrder {
		return fmt.Errorf("%w: table %s", ErrActiveOrder, t.ID)
	}
	t.Empty = empty
	return nil
}

func (t *OrderTable) ChangeNumberOfGuests(numberOfGuests int) error {
	if numberOfGuests < 0 {
		return ErrNegativeGuestCount
	}
	if t.Empty {
		return fmt.Errorf("%w: table %s", ErrTableEmpty, t.ID)
	}
	t.NumberOfGuests = numberOfGuests
	return nil
}

// Merge assigns the table to a group; merged tables are occupied as a unit.
func (t *OrderTable) Merge(groupID string) {
	t.TableGroupID = groupID
	t.Empty = false
}

// Ungroup restores independence. The table stays occupied.
func (t *OrderTable) Ungroup() {
	t.TableGroupID = ""
	t.Empty = false
}

type TableGroup struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_date"`
	OrderTableIDs []string  `json:"order_table_ids"`
}

// NewTableGroup checks that the requested tables can be grouped together. tables must be the
// resolved set for requestedIDs. Members are merged once the group has an id.
func NewTableGroup(requestedIDs []string, tables []OrderTable, createdAt time.Time) (*TableGroup, error) {
	if len(requestedIDs) < 2 {
		return nil, ErrGroupTooSmall
	}
	seen := make(map[string]struct{}, len(requestedIDs))
	for _, id := range requestedIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: table %s requested twice", ErrTableNotAvailable, id)
		}
		seen[id] = struct{}{}
	}
	if len(tables) != len(requestedIDs) {
		return nil, fmt.Errorf("%w: requested %d order tables, found %d", ErrReferenceNotFound, len(requestedIDs), len(tables))
	}
	ids := make([]string, 0, len(tables))
	for _, t := range tables {
		if !t.Available() {
			return nil, fmt.Errorf("%w: table %s", ErrTableNotAvailable, t.ID)
		}
		ids = append(ids, t.ID)
	}
	return &TableGroup{CreatedAt: createdAt, OrderTableIDs: ids}, nil
}
