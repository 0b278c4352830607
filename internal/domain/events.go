package domain

import "time"

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status-changed"
	TopicTableGroupCreated  = "table-group.created"
	TopicTableUngrouped     = "table-group.ungrouped"
)

type OrderCreatedEvent struct {
	OrderID      string          `json:"order_id"`
	OrderTableID string          `json:"order_table_id"`
	LineItems    []OrderLineItem `json:"line_items"`
	Timestamp    time.Time       `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	OrderID      string      `json:"order_id"`
	OrderTableID string      `json:"order_table_id"`
	From         OrderStatus `json:"from"`
	To           OrderStatus `json:"to"`
	Timestamp    time.Time   `json:"timestamp"`
}

type TableGroupEvent struct {
	TableGroupID  string    `json:"table_group_id"`
	OrderTableIDs []string  `json:"order_table_ids"`
	Timestamp     time.Time `json:"timestamp"`
}
