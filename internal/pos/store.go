package pos

import (
	"context"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
)

// Repositories returned by a Tx lock every aggregate they load by id for the rest of the
// transaction. Finders return nil, nil when the aggregate does not exist.

type OrderRepository interface {
	Save(ctx context.Context, order *domain.Order) error
	Find(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	FindAllByTable(ctx context.Context, tableID string) ([]domain.Order, error)
}

type OrderTableRepository interface {
	Save(ctx context.Context, table *domain.OrderTable) error
	Find(ctx context.Context, id string) (*domain.OrderTable, error)
	List(ctx context.Context) ([]domain.OrderTable, error)
	FindAllByGroup(ctx context.Context, groupID string) ([]domain.OrderTable, error)
	FindAllByIDs(ctx context.Context, ids []string) ([]domain.OrderTable, error)
}

type TableGroupRepository interface {
	Save(ctx context.Context, group *domain.TableGroup) error
	Find(ctx context.Context, id string) (*domain.TableGroup, error)
	Delete(ctx context.Context, id string) error
}

type Tx interface {
	Orders() OrderRepository
	Tables() OrderTableRepository
	Groups() TableGroupRepository
}

// Store runs fn in a single transaction. Everything fn writes is committed together when fn
// returns nil and discarded otherwise.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// MenuCatalog resolves menu ids to the menus that currently exist.
type MenuCatalog interface {
	ResolveByIDs(ctx context.Context, ids []string) ([]domain.Menu, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}
