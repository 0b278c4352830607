package pos

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps aggregates in process. Transactions lock each aggregate they load by id
// until they finish and stage their writes, which are applied as one batch on commit. Reads of
// unlocked data see the latest committed state.
type MemoryStore struct {
	mu         sync.RWMutex
	tables     map[string]domain.OrderTable
	orders     map[string]domain.Order
	groups     map[string]domain.TableGroup
	tableOrder []string
	orderOrder []string

	locks *keyLocks
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]domain.OrderTable),
		orders: make(map[string]domain.Order),
		groups: make(map[string]domain.TableGroup),
		locks:  newKeyLocks(),
	}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{
		store:  s,
		held:   make(map[string]struct{}),
		tables: make(map[string]domain.OrderTable),
		orders: make(map[string]domain.Order),
		groups: make(map[string]*domain.TableGroup),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.commit(tx)
	return nil
}

func (s *MemoryStore) commit(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range tx.tables {
		s.tables[id] = t
	}
	s.tableOrder = append(s.tableOrder, tx.newTables...)

	for id, o := range tx.orders {
		s.orders[id] = o
	}
	s.orderOrder = append(s.orderOrder, tx.newOrders...)

	for id, g := range tx.groups {
		if g == nil {
			delete(s.groups, id)
			continue
		}
		s.groups[id] = *g
	}
}

type memTx struct {
	store *MemoryStore
	held  map[string]struct{}

	tables    map[string]domain.OrderTable
	orders    map[string]domain.Order
	groups    map[string]*domain.TableGroup // nil marks a deleted group
	newTables []string
	newOrders []string
}

func (tx *memTx) Orders() OrderRepository      { return memOrders{tx} }
func (tx *memTx) Tables() OrderTableRepository { return memTables{tx} }
func (tx *memTx) Groups() TableGroupRepository { return memGroups{tx} }

func (tx *memTx) lock(ctx context.Context, key string) error {
	if _, ok := tx.held[key]; ok {
		return nil
	}
	if err := tx.store.locks.acquire(ctx, key); err != nil {
		return err
	}
	tx.held[key] = struct{}{}
	return nil
}

func (tx *memTx) release() {
	for key := range tx.held {
		tx.store.locks.release(key)
	}
	clear(tx.held)
}

func (tx *memTx) table(id string) (domain.OrderTable, bool) {
	if t, ok := tx.tables[id]; ok {
		return t, true
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	t, ok := tx.store.tables[id]
	return t, ok
}

func (tx *memTx) order(id string) (domain.Order, bool) {
	if o, ok := tx.orders[id]; ok {
		return cloneOrder(o), true
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	o, ok := tx.store.orders[id]
	return cloneOrder(o), ok
}

type memTables struct{ tx *memTx }

func (r memTables) Save(ctx context.Context, table *domain.OrderTable) error {
	if table.ID == "" {
		table.ID = uuid.New().String()
		r.tx.newTables = append(r.tx.newTables, table.ID)
	}
	if err := r.tx.lock(ctx, "table:"+table.ID); err != nil {
		return err
	}
	r.tx.tables[table.ID] = *table
	return nil
}

func (r memTables) Find(ctx context.Context, id string) (*domain.OrderTable, error) {
	if err := r.tx.lock(ctx, "table:"+id); err != nil {
		return nil, err
	}
	t, ok := r.tx.table(id)
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r memTables) List(_ context.Context) ([]domain.OrderTable, error) {
	r.tx.store.mu.RLock()
	ids := slices.Clone(r.tx.store.tableOrder)
	r.tx.store.mu.RUnlock()
	ids = append(ids, r.tx.newTables...)

	tables := make([]domain.OrderTable, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.tx.table(id); ok {
			tables = append(tables, t)
		}
	}
	return tables, nil
}

// FindAllByIDs locks the tables in id order so that concurrent multi-table transactions never
// wait on each other in a cycle.
func (r memTables) FindAllByIDs(ctx context.Context, ids []string) ([]domain.OrderTable, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	tables := make([]domain.OrderTable, 0, len(sorted))
	for _, id := range sorted {
		if err := r.tx.lock(ctx, "table:"+id); err != nil {
			return nil, err
		}
		if t, ok := r.tx.table(id); ok {
			tables = append(tables, t)
		}
	}
	return tables, nil
}

func (r memTables) FindAllByGroup(ctx context.Context, groupID string) ([]domain.OrderTable, error) {
	var candidates []string
	r.tx.store.mu.RLock()
	for id, t := range r.tx.store.tables {
		if t.TableGroupID == groupID {
			candidates = append(candidates, id)
		}
	}
	r.tx.store.mu.RUnlock()
	for id, t := range r.tx.tables {
		if t.TableGroupID == groupID {
			candidates = append(candidates, id)
		}
	}

	// Membership is re-checked once the locks are held.
	tables, err := r.FindAllByIDs(ctx, candidates)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(tables, func(t domain.OrderTable) bool {
		return t.TableGroupID != groupID
	}), nil
}

type memOrders struct{ tx *memTx }

func (r memOrders) Save(ctx context.Context, order *domain.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
		r.tx.newOrders = append(r.tx.newOrders, order.ID)
	}
	if err := r.tx.lock(ctx, "order:"+order.ID); err != nil {
		return err
	}
	r.tx.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r memOrders) Find(ctx context.Context, id string) (*domain.Order, error) {
	if err := r.tx.lock(ctx, "order:"+id); err != nil {
		return nil, err
	}
	o, ok := r.tx.order(id)
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r memOrders) List(_ context.Context) ([]domain.Order, error) {
	return r.filter(func(domain.Order) bool { return true }), nil
}

func (r memOrders) FindAllByTable(_ context.Context, tableID string) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool { return o.OrderTableID == tableID }), nil
}

func (r memOrders) filter(keep func(domain.Order) bool) []domain.Order {
	r.tx.store.mu.RLock()
	ids := slices.Clone(r.tx.store.orderOrder)
	r.tx.store.mu.RUnlock()
	ids = append(ids, r.tx.newOrders...)

	orders := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := r.tx.order(id); ok && keep(o) {
			orders = append(orders, o)
		}
	}
	return orders
}

type memGroups struct{ tx *memTx }

func (r memGroups) Save(ctx context.Context, group *domain.TableGroup) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if err := r.tx.lock(ctx, "group:"+group.ID); err != nil {
		return err
	}
	g := *group
	g.OrderTableIDs = slices.Clone(group.OrderTableIDs)
	r.tx.groups[group.ID] = &g
	return nil
}

func (r memGroups) Find(ctx context.Context, id string) (*domain.TableGroup, error) {
	if err := r.tx.lock(ctx, "group:"+id); err != nil {
		return nil, err
	}
	if g, staged := r.tx.groups[id]; staged {
		if g == nil {
			return nil, nil
		}
		found := *g
		found.OrderTableIDs = slices.Clone(g.OrderTableIDs)
		return &found, nil
	}

	r.tx.store.mu.RLock()
	defer r.tx.store.mu.RUnlock()
	g, ok := r.tx.store.groups[id]
	if !ok {
		return nil, nil
	}
	g.OrderTableIDs = slices.Clone(g.OrderTableIDs)
	return &g, nil
}

func (r memGroups) Delete(ctx context.Context, id string) error {
	if err := r.tx.lock(ctx, "group:"+id); err != nil {
		return err
	}
	r.tx.groups[id] = nil
	return nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.LineItems = slices.Clone(o.LineItems)
	return o
}

// keyLocks is a set of mutexes created on demand per key. Waiting honours context cancellation.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

func (l *keyLocks) acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		l.drop(key, kl)
		l.mu.Unlock()
		return ctx.Err()
	}
}

func (l *keyLocks) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl := l.locks[key]
	<-kl.ch
	l.drop(key, kl)
}

func (l *keyLocks) drop(key string, kl *keyLock) {
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
