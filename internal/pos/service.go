package pos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
	"github.com/joao-fontenele/kitchenpos/internal/telemetry"
)

var tracer = otel.Tracer("pos/service")

type Service struct {
	store     Store
	catalog   MenuCatalog
	events    EventPublisher
	validator Validator
	metrics   *telemetry.POSMetrics
	logger    *slog.Logger
	strict    bool
	now       func() time.Time
}

type Option func(*Service)

// WithStrictTransitions makes ChangeOrderStatus accept only the next status of the state
// machine instead of any status out of a non-terminal one.
func WithStrictTransitions(strict bool) Option {
	return func(s *Service) {
		s.strict = strict
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService wires the order/table engine. events may be nil, in which case no domain events
// are published.
func NewService(store Store, catalog MenuCatalog, events EventPublisher, logger *slog.Logger, opts ...Option) (*Service, error) {
	metrics, err := telemetry.NewPOSMetrics(otel.Meter("pos"))
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	s := &Service{
		store:   store,
		catalog: catalog,
		events:  events,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) CreateOrder(ctx context.Context, tableID string, items []LineItemRequest) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "CreateOrder", trace.WithAttributes(attribute.String("order_table.id", tableID)))
	defer span.End()

	var order *domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := s.validator.OrderableTable(ctx, tx, tableID); err != nil {
			return err
		}

		lineItems, err := SnapshotLineItems(ctx, s.catalog, items)
		if err != nil {
			return err
		}

		order, err = domain.NewOrder(tableID, s.now(), lineItems)
		if err != nil {
			return err
		}
		return tx.Orders().Save(ctx, order)
	})
	if err != nil {
		return nil, s.fail(ctx, span, "create_order", err)
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	s.metrics.OrderCreated(ctx, order.Total())
	s.publish(ctx, domain.TopicOrderCreated, order.ID, domain.OrderCreatedEvent{
		OrderID:      order.ID,
		OrderTableID: order.OrderTableID,
		LineItems:    order.LineItems,
		Timestamp:    order.OrderedAt,
	})

	s.logger.Info("order created", "order_id", order.ID, "order_table_id", tableID, "line_items", len(order.LineItems))
	return order, nil
}

func (s *Service) ChangeOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "ChangeOrderStatus", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", string(status)),
	))
	defer span.End()

	var (
		order *domain.Order
		from  domain.OrderStatus
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		order, err = s.validator.ChangeableOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		from = order.Status
		if err := order.ChangeStatus(status, s.strict); err != nil {
			return err
		}
		return tx.Orders().Save(ctx, order)
	})
	if err != nil {
		return nil, s.fail(ctx, span, "change_order_status", err)
	}

	s.metrics.OrderStatusChanged(ctx, from, order.Status)
	s.publish(ctx, domain.TopicOrderStatusChanged, order.ID, domain.OrderStatusChangedEvent{
		OrderID:      order.ID,
		OrderTableID: order.OrderTableID,
		From:         from,
		To:           order.Status,
		Timestamp:    s.now(),
	})

	s.logger.Info("order status changed", "order_id", order.ID, "from", from, "to", order.Status)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		order, err = tx.Orders().Find(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		orders, err = tx.Orders().List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *Service) CreateTable(ctx context.Context, numberOfGuests int, empty bool) (*domain.OrderTable, error) {
	table, err := domain.NewOrderTable(numberOfGuests, empty)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Tables().Save(ctx, table)
	})
	if err != nil {
		return nil, fmt.Errorf("save order table: %w", err)
	}

	s.logger.Info("order table created", "order_table_id", table.ID, "empty", table.Empty)
	return table, nil
}

func (s *Service) ListTables(ctx context.Context) ([]domain.OrderTable, error) {
	var tables []domain.OrderTable
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		tables, err = tx.Tables().List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list order tables: %w", err)
	}
	return tables, nil
}

// ChangeEmpty is the only way to vacate or occupy an independent table, and it refuses while
// the table still has food being prepared or served.
func (s *Service) ChangeEmpty(ctx context.Context, tableID string, empty bool) (*domain.OrderTable, error) {
	ctx, span := tracer.Start(ctx, "ChangeEmpty", trace.WithAttributes(
		attribute.String("order_table.id", tableID),
		attribute.Bool("order_table.empty", empty),
	))
	defer span.End()

	var table *domain.OrderTable
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		table, err = findTable(ctx, tx, tableID)
		if err != nil {
			return err
		}

		active, err := s.validator.HostsActiveOrder(ctx, tx, tableID)
		if err != nil {
			return err
		}
		if err := table.ChangeEmpty(empty, active); err != nil {
			return err
		}
		return tx.Tables().Save(ctx, table)
	})
	if err != nil {
		return nil, s.fail(ctx, span, "change_empty", err)
	}

	s.logger.Info("order table empty changed", "order_table_id", tableID, "empty", empty)
	return table, nil
}

func (s *Service) ChangeNumberOfGuests(ctx context.Context, tableID string, numberOfGuests int) (*domain.OrderTable, error) {
	ctx, span := tracer.Start(ctx, "ChangeNumberOfGuests", trace.WithAttributes(attribute.String("order_table.id", tableID)))
	defer span.End()

	if numberOfGuests < 0 {
		return nil, s.fail(ctx, span, "change_number_of_guests", domain.ErrNegativeGuestCount)
	}

	var table *domain.OrderTable
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		table, err = findTable(ctx, tx, tableID)
		if err != nil {
			return err
		}
		if err := table.ChangeNumberOfGuests(numberOfGuests); err != nil {
			return err
		}
		return tx.Tables().Save(ctx, table)
	})
	if err != nil {
		return nil, s.fail(ctx, span, "change_number_of_guests", err)
	}

	s.logger.Info("order table guests changed", "order_table_id", tableID, "number_of_guests", numberOfGuests)
	return table, nil
}

func (s *Service) HostsActiveOrder(ctx context.Context, tableID string) (bool, error) {
	var active bool
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := findTable(ctx, tx, tableID); err != nil {
			return err
		}
		var err error
		active, err = s.validator.HostsActiveOrder(ctx, tx, tableID)
		return err
	})
	if err != nil {
		return false, err
	}
	return active, nil
}

// TableGroupView is a table group together with the current state of its members.
type TableGroupView struct {
	domain.TableGroup
	OrderTables []domain.OrderTable `json:"order_tables"`
}

// CreateTableGroup claims every requested table for a new group. Either all tables are merged
// or none is.
func (s *Service) CreateTableGroup(ctx context.Context, tableIDs []string) (*TableGroupView, error) {
	ctx, span := tracer.Start(ctx, "CreateTableGroup", trace.WithAttributes(attribute.StringSlice("order_table.ids", tableIDs)))
	defer span.End()

	var view *TableGroupView
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		group, tables, err := s.validator.GroupableTables(ctx, tx, tableIDs, s.now())
		if err != nil {
			return err
		}
		if err := tx.Groups().Save(ctx, group); err != nil {
			return fmt.Errorf("save table group: %w", err)
		}

		for i := range tables {
			tables[i].Merge(group.ID)
			if err := tx.Tables().Save(ctx, &tables[i]); err != nil {
				return fmt.Errorf("save order table %s: %w", tables[i].ID, err)
			}
		}
		view = &TableGroupView{TableGroup: *group, OrderTables: tables}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "create_table_group", err)
	}

	s.metrics.TableGroupFormed(ctx, len(view.OrderTables))
	s.publish(ctx, domain.TopicTableGroupCreated, view.ID, domain.TableGroupEvent{
		TableGroupID:  view.ID,
		OrderTableIDs: view.OrderTableIDs,
		Timestamp:     view.CreatedAt,
	})

	s.logger.Info("table group created", "table_group_id", view.ID, "order_tables", len(view.OrderTables))
	return view, nil
}

func (s *Service) GetTableGroup(ctx context.Context, groupID string) (*TableGroupView, error) {
	var view *TableGroupView
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		group, err := tx.Groups().Find(ctx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return fmt.Errorf("%w: %s", domain.ErrGroupNotFound, groupID)
		}
		tables, err := tx.Tables().FindAllByGroup(ctx, groupID)
		if err != nil {
			return err
		}
		view = &TableGroupView{TableGroup: *group, OrderTables: tables}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Ungroup dissolves a group unless one of its tables is still cooking or eating. Released
// tables keep their occupied flag.
func (s *Service) Ungroup(ctx context.Context, groupID string) error {
	ctx, span := tracer.Start(ctx, "Ungroup", trace.WithAttributes(attribute.String("table_group.id", groupID)))
	defer span.End()

	var released []string
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		_, tables, err := s.validator.UngroupableTables(ctx, tx, groupID)
		if err != nil {
			return err
		}

		for i := range tables {
			tables[i].Ungroup()
			if err := tx.Tables().Save(ctx, &tables[i]); err != nil {
				return fmt.Errorf("save order table %s: %w", tables[i].ID, err)
			}
			released = append(released, tables[i].ID)
		}
		return tx.Groups().Delete(ctx, groupID)
	})
	if err != nil {
		return s.fail(ctx, span, "ungroup", err)
	}

	s.metrics.TableGroupDissolved(ctx)
	s.publish(ctx, domain.TopicTableUngrouped, groupID, domain.TableGroupEvent{
		TableGroupID:  groupID,
		OrderTableIDs: released,
		Timestamp:     s.now(),
	})

	s.logger.Info("table group dissolved", "table_group_id", groupID, "order_tables", len(released))
	return nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, operation string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if rule := ruleName(err); rule != "" {
		s.metrics.RuleViolated(ctx, operation, rule)
	}
	return err
}

func (s *Service) publish(ctx context.Context, topic, key string, event any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, topic, key, event); err != nil {
		s.logger.Error("failed to publish event", "error", err, "topic", topic, "key", key)
	}
}

var rules = []struct {
	err  error
	name string
}{
	{domain.ErrReferenceNotFound, "reference_not_found"},
	{domain.ErrTableEmpty, "table_empty"},
	{domain.ErrTableGrouped, "table_grouped"},
	{domain.ErrTableNotAvailable, "table_not_available"},
	{domain.ErrActiveOrder, "active_order"},
	{domain.ErrIllegalTransition, "illegal_transition"},
	{domain.ErrNegativeGuestCount, "negative_guest_count"},
	{domain.ErrInvalidStatus, "invalid_status"},
	{domain.ErrNoLineItems, "no_line_items"},
	{domain.ErrInvalidQuantity, "invalid_quantity"},
	{domain.ErrGroupTooSmall, "group_too_small"},
}

func ruleName(err error) string {
	for _, r := range rules {
		if errors.Is(err, r.err) {
			return r.name
		}
	}
	return ""
}
