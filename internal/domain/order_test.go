package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCookingOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder("table-1", time.Now(), []OrderLineItem{
		{MenuID: "menu-1", Quantity: 2, Snapshot: PriceSnapshot{Name: "Fried Chicken", Price: 16000, Quantity: 2}},
	})
	require.NoError(t, err)
	return order
}

func TestNewOrder(t *testing.T) {
	t.Run("starts in cooking and numbers line items", func(t *testing.T) {
		order, err := NewOrder("table-1", time.Now(), []OrderLineItem{
			{MenuID: "a", Quantity: 1, Snapshot: PriceSnapshot{Name: "A", Price: 1000, Quantity: 1}},
			{MenuID: "b", Quantity: 3, Snapshot: PriceSnapshot{Name: "B", Price: 500, Quantity: 3}},
		})
		require.NoError(t, err)

		assert.Equal(t, OrderStatusCooking, order.Status)
		assert.Equal(t, 1, order.LineItems[0].Seq)
		assert.Equal(t, 2, order.LineItems[1].Seq)
		assert.Equal(t, int64(2500), order.Total())
	})

	t.Run("rejects empty line items", func(t *testing.T) {
		_, err := NewOrder("table-1", time.Now(), nil)
		assert.ErrorIs(t, err, ErrNoLineItems)
	})
}

func TestOrder_ChangeStatus(t *testing.T) {
	t.Run("cooking to meal to completion", func(t *testing.T) {
		order := newCookingOrder(t)

		require.NoError(t, order.ChangeStatus(OrderStatusMeal, true))
		require.NoError(t, order.ChangeStatus(OrderStatusCompletion, true))
		assert.Equal(t, OrderStatusCompletion, order.Status)
	})

	t.Run("completed order is immutable", func(t *testing.T) {
		for _, next := range []OrderStatus{OrderStatusCooking, OrderStatusMeal, OrderStatusCompletion} {
			order := newCookingOrder(t)
			require.NoError(t, order.ChangeStatus(OrderStatusCompletion, false))

			err := order.ChangeStatus(next, false)
			assert.ErrorIs(t, err, ErrIllegalTransition)
			assert.Equal(t, OrderStatusCompletion, order.Status)
		}
	})

	t.Run("permissive mode allows skipping meal", func(t *testing.T) {
		order := newCookingOrder(t)

		require.NoError(t, order.ChangeStatus(OrderStatusCompletion, false))
	})

	t.Run("strict mode rejects skipping and reversing", func(t *testing.T) {
		order := newCookingOrder(t)
		assert.ErrorIs(t, order.ChangeStatus(OrderStatusCompletion, true), ErrIllegalTransition)

		require.NoError(t, order.ChangeStatus(OrderStatusMeal, true))
		assert.ErrorIs(t, order.ChangeStatus(OrderStatusCooking, true), ErrIllegalTransition)
		assert.Equal(t, OrderStatusMeal, order.Status)
	})

	t.Run("unknown status", func(t *testing.T) {
		order := newCookingOrder(t)
		assert.ErrorIs(t, order.ChangeStatus("EATEN", false), ErrInvalidStatus)
	})
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusCooking, OrderStatusMeal, true},
		{OrderStatusMeal, OrderStatusCompletion, true},
		{OrderStatusCooking, OrderStatusCompletion, false},
		{OrderStatusMeal, OrderStatusCooking, false},
		{OrderStatusCompletion, OrderStatusCooking, false},
		{OrderStatusCompletion, OrderStatusMeal, false},
		{OrderStatusCooking, OrderStatusCooking, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("MEAL")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusMeal, status)
	assert.True(t, status.IsActive())

	_, err = ParseOrderStatus("meal")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestHasActiveOrder(t *testing.T) {
	assert.False(t, HasActiveOrder(nil))
	assert.False(t, HasActiveOrder([]Order{{Status: OrderStatusCompletion}}))
	assert.True(t, HasActiveOrder([]Order{{Status: OrderStatusCompletion}, {Status: OrderStatusMeal}}))
	assert.True(t, HasActiveOrder([]Order{{Status: OrderStatusCooking}}))
}
