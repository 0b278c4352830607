package pos

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
)

// fakeCatalog resolves menus from an in-memory map, like the menu service would.
type fakeCatalog struct {
	mu    sync.Mutex
	menus map[string]domain.Menu
	calls int
}

func newFakeCatalog(menus ...domain.Menu) *fakeCatalog {
	c := &fakeCatalog{menus: make(map[string]domain.Menu)}
	for _, m := range menus {
		c.menus[m.ID] = m
	}
	return c
}

func (c *fakeCatalog) ResolveByIDs(_ context.Context, ids []string) ([]domain.Menu, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	var found []domain.Menu
	for _, id := range ids {
		if m, ok := c.menus[id]; ok {
			found = append(found, m)
		}
	}
	return found, nil
}

func (c *fakeCatalog) setPrice(id string, price int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.menus[id]
	m.Price = price
	c.menus[id] = m
}

type publishedEvent struct {
	topic string
	key   string
	event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic: topic, key: key, event: event})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]string, 0, len(p.events))
	for _, e := range p.events {
		topics = append(topics, e.topic)
	}
	return topics
}

var (
	friedChicken = domain.Menu{ID: "menu-fried", Name: "Fried Chicken", Price: 16000}
	spicyChicken = domain.Menu{ID: "menu-spicy", Name: "Spicy Chicken", Price: 16000}
	fixedNow     = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	service   *Service
	store     *MemoryStore
	catalog   *fakeCatalog
	publisher *recordingPublisher
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		store:     NewMemoryStore(),
		catalog:   newFakeCatalog(friedChicken, spicyChicken),
		publisher: &recordingPublisher{},
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)

	var err error
	f.service, err = NewService(f.store, f.catalog, f.publisher, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	require.NoError(t, err)
	return f
}

func (f *fixture) table(t *testing.T, guests int, empty bool) *domain.OrderTable {
	t.Helper()
	table, err := f.service.CreateTable(context.Background(), guests, empty)
	require.NoError(t, err)
	return table
}

func (f *fixture) order(t *testing.T, tableID string) *domain.Order {
	t.Helper()
	order, err := f.service.CreateOrder(context.Background(), tableID, []LineItemRequest{{MenuID: friedChicken.ID, Quantity: 2}})
	require.NoError(t, err)
	return order
}

func (f *fixture) findTable(t *testing.T, id string) domain.OrderTable {
	t.Helper()
	tables, err := f.service.ListTables(context.Background())
	require.NoError(t, err)
	for _, table := range tables {
		if table.ID == id {
			return table
		}
	}
	t.Fatalf("order table %s not found", id)
	return domain.OrderTable{}
}
