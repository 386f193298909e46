package service

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	outboxDomain "github.com/sakashimaa/pos-engine/pkg/outbox/domain"
	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"github.com/sakashimaa/pos-engine/services/pos/internal/repository"
	"github.com/shopspring/decimal"
)

// memState is everything a transaction can change. Begin snapshots it and an
// uncommitted transaction puts the snapshot back, which is how these tests
// observe that failed operations leave nothing behind.
type memState struct {
	orders      map[int64]domain.Order
	lines       map[int64]domain.OrderLine
	tables      map[int64]domain.DiningTable
	events      []*outboxDomain.OutboxEvent
	nextOrderID int64
	nextLineID  int64
}

func (s *memState) clone() *memState {
	return &memState{
		orders:      maps.Clone(s.orders),
		lines:       maps.Clone(s.lines),
		tables:      maps.Clone(s.tables),
		events:      slices.Clone(s.events),
		nextOrderID: s.nextOrderID,
		nextLineID:  s.nextLineID,
	}
}

type memStore struct {
	state     *memState
	backup    *memState
	begins    int
	commits   int
	rollbacks int
}

func newMemStore() *memStore {
	return &memStore{
		state: &memState{
			orders: map[int64]domain.Order{},
			lines:  map[int64]domain.OrderLine{},
			tables: map[int64]domain.DiningTable{},
		},
	}
}

func (m *memStore) Begin(context.Context) (pgx.Tx, error) {
	m.begins++
	m.backup = m.state.clone()
	return &memTx{store: m}, nil
}

type memTx struct {
	pgx.Tx
	store  *memStore
	closed bool
}

func (t *memTx) Commit(context.Context) error {
	t.closed = true
	t.store.commits++
	t.store.backup = nil
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.store.rollbacks++
	t.store.state = t.store.backup
	t.store.backup = nil
	return nil
}

func (m *memStore) addTable(id int64, number string, active bool) {
	m.state.tables[id] = domain.DiningTable{
		ID:          id,
		TableNumber: number,
		IsActive:    active,
		Status:      domain.TableStatusAvailable,
	}
}

func (m *memStore) addOrder(status domain.OrderStatus) int64 {
	m.state.nextOrderID++
	id := m.state.nextOrderID
	m.state.orders[id] = domain.Order{
		ID:        id,
		Status:    status,
		OrderType: domain.OrderTypeDineIn,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return id
}

func (m *memStore) bind(tableID, orderID int64) {
	t := m.state.tables[tableID]
	t.Status = domain.TableStatusOccupied
	t.CurrentOrderID = &orderID
	m.state.tables[tableID] = t
}

func (m *memStore) eventTypes() []string {
	var types []string
	for _, e := range m.state.events {
		types = append(types, e.EventType)
	}
	return types
}

type memOrderRepo struct {
	store *memStore
}

var _ repository.OrderRepository = (*memOrderRepo)(nil)

func (r *memOrderRepo) CreateOrder(_ context.Context, _ pgx.Tx, order *domain.Order) error {
	st := r.store.state
	st.nextOrderID++
	order.ID = st.nextOrderID
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt

	stored := *order
	stored.Lines = nil
	st.orders[order.ID] = stored
	return nil
}

func (r *memOrderRepo) LockOrder(_ context.Context, _ pgx.Tx, orderID int64) (*domain.Order, error) {
	o, ok := r.store.state.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &o, nil
}

func (r *memOrderRepo) GetOrderStatus(_ context.Context, _ pgx.Tx, orderID int64) (domain.OrderStatus, error) {
	o, ok := r.store.state.orders[orderID]
	if !ok {
		return "", domain.ErrOrderNotFound
	}
	return o.Status, nil
}

func (r *memOrderRepo) GetOrder(_ context.Context, _ repository.Querier, orderID int64) (*domain.Order, error) {
	o, ok := r.store.state.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}

	ids := slices.Sorted(maps.Keys(r.store.state.lines))
	for _, id := range ids {
		if l := r.store.state.lines[id]; l.OrderID == orderID {
			o.Lines = append(o.Lines, l)
		}
	}
	return &o, nil
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, _ pgx.Tx, orderID int64, to domain.OrderStatus, from ...domain.OrderStatus) (bool, error) {
	o, ok := r.store.state.orders[orderID]
	if !ok || !slices.Contains(from, o.Status) {
		return false, nil
	}
	o.Status = to
	r.store.state.orders[orderID] = o
	return true, nil
}

func (r *memOrderRepo) InsertLine(_ context.Context, _ pgx.Tx, line *domain.OrderLine) error {
	st := r.store.state
	st.nextLineID++
	line.ID = st.nextLineID
	st.lines[line.ID] = *line
	return nil
}

func (r *memOrderRepo) GetLine(_ context.Context, _ pgx.Tx, orderID, lineID int64) (*domain.OrderLine, error) {
	l, ok := r.store.state.lines[lineID]
	if !ok || l.OrderID != orderID {
		return nil, domain.ErrLineNotFound
	}
	return &l, nil
}

func (r *memOrderRepo) UpdateLine(_ context.Context, _ pgx.Tx, line *domain.OrderLine) error {
	if _, ok := r.store.state.lines[line.ID]; !ok {
		return domain.ErrLineNotFound
	}
	r.store.state.lines[line.ID] = *line
	return nil
}

func (r *memOrderRepo) DeleteLine(ctx context.Context, tx pgx.Tx, lineID int64) error {
	if err := r.DeleteChildLines(ctx, tx, lineID); err != nil {
		return err
	}
	delete(r.store.state.lines, lineID)
	return nil
}

func (r *memOrderRepo) DeleteChildLines(_ context.Context, _ pgx.Tx, parentLineID int64) error {
	for id, l := range r.store.state.lines {
		if l.Member != nil && l.Member.ParentLineID == parentLineID {
			delete(r.store.state.lines, id)
		}
	}
	return nil
}

func (r *memOrderRepo) RecalculateTotal(_ context.Context, _ pgx.Tx, orderID int64) (decimal.Decimal, error) {
	o, ok := r.store.state.orders[orderID]
	if !ok {
		return decimal.Zero, domain.ErrOrderNotFound
	}

	total := decimal.Zero
	for _, l := range r.store.state.lines {
		if l.OrderID == orderID {
			total = total.Add(l.Subtotal)
		}
	}
	o.TotalAmount = total
	r.store.state.orders[orderID] = o
	return total, nil
}

type memTableRepo struct {
	store        *memStore
	seatedChecks int
}

var _ repository.TableRepository = (*memTableRepo)(nil)

func (r *memTableRepo) LockTable(_ context.Context, _ pgx.Tx, tableID int64) (*domain.DiningTable, error) {
	t, ok := r.store.state.tables[tableID]
	if !ok {
		return nil, domain.ErrTableNotFound
	}
	return &t, nil
}

func (r *memTableRepo) LockTables(_ context.Context, _ pgx.Tx, ids ...int64) (map[int64]*domain.DiningTable, error) {
	out := make(map[int64]*domain.DiningTable, len(ids))
	for _, id := range ids {
		if t, ok := r.store.state.tables[id]; ok {
			out[id] = &t
		}
	}
	return out, nil
}

func (r *memTableRepo) IsOrderSeated(_ context.Context, _ pgx.Tx, orderID int64) (bool, error) {
	r.seatedChecks++
	return r.orderSeated(orderID), nil
}

func (r *memTableRepo) orderSeated(orderID int64) bool {
	for _, t := range r.store.state.tables {
		if t.CurrentOrderID != nil && *t.CurrentOrderID == orderID {
			return true
		}
	}
	return false
}

// Occupy rejects a second binding the way the unique index on
// current_order_id does.
func (r *memTableRepo) Occupy(_ context.Context, _ pgx.Tx, tableID, orderID int64) (*domain.DiningTable, error) {
	t, ok := r.store.state.tables[tableID]
	if !ok || t.Status != domain.TableStatusAvailable || !t.IsActive {
		return nil, domain.ErrTableOccupied
	}

	if r.orderSeated(orderID) {
		return nil, domain.ErrOrderAlreadySeated
	}

	t.Status = domain.TableStatusOccupied
	t.CurrentOrderID = &orderID
	t.UpdatedAt = time.Now()
	r.store.state.tables[tableID] = t
	return &t, nil
}

func (r *memTableRepo) Release(_ context.Context, _ pgx.Tx, tableID, orderID int64) (*domain.DiningTable, error) {
	t, ok := r.store.state.tables[tableID]
	if !ok || t.Status != domain.TableStatusOccupied || t.CurrentOrderID == nil || *t.CurrentOrderID != orderID {
		return nil, domain.ErrTableNotOccupied
	}

	t.Status = domain.TableStatusAvailable
	t.CurrentOrderID = nil
	t.UpdatedAt = time.Now()
	r.store.state.tables[tableID] = t
	return &t, nil
}

func (r *memTableRepo) view(t domain.DiningTable) domain.TableView {
	v := domain.TableView{DiningTable: t}
	if t.CurrentOrderID == nil {
		return v
	}

	o := r.store.state.orders[*t.CurrentOrderID]
	summary := &domain.OrderSummary{ID: o.ID, Status: o.Status, TotalAmount: o.TotalAmount}
	for _, l := range r.store.state.lines {
		if l.OrderID == o.ID && l.Kind != domain.LineKindComboMember {
			summary.LineCount++
		}
	}
	v.Order = summary
	return v
}

func (r *memTableRepo) GetTable(_ context.Context, tableID int64) (*domain.TableView, error) {
	t, ok := r.store.state.tables[tableID]
	if !ok {
		return nil, domain.ErrTableNotFound
	}
	v := r.view(t)
	return &v, nil
}

func (r *memTableRepo) ListTables(_ context.Context, filter domain.ListTablesFilter) ([]domain.TableView, error) {
	var out []domain.TableView
	for _, id := range slices.Sorted(maps.Keys(r.store.state.tables)) {
		t := r.store.state.tables[id]
		if filter.OnlyActive && !t.IsActive {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, r.view(t))
	}
	return out, nil
}

type memOutboxRepo struct {
	store *memStore
}

func (r *memOutboxRepo) SaveOutboxEvent(_ context.Context, _ pgx.Tx, event *outboxDomain.OutboxEvent) error {
	st := r.store.state
	event.Id = int64(len(st.events) + 1)
	st.events = append(st.events, event)
	return nil
}

func (r *memOutboxRepo) GetUnpublishedEvents(context.Context, pgx.Tx, int) ([]*outboxDomain.OutboxEvent, error) {
	return nil, nil
}

func (r *memOutboxRepo) MarkEventsPublished(context.Context, pgx.Tx, []int64) error {
	return nil
}

func (r *memOutboxRepo) MarkEventFailed(context.Context, pgx.Tx, int64, string) error {
	return nil
}

type fakeCatalog struct {
	products    map[int64]domain.Product
	groups      map[int64][]domain.OptionGroup
	values      []domain.OptionValue
	combos      map[int64]domain.Combo
	members     map[int64][]domain.ComboMember
	groupCalls  int
	valueCalls  int
	valueGroups []int64
	// querierSeen records, per read, whether it ran inside a transaction.
	querierSeen []bool
}

func (c *fakeCatalog) seen(q repository.Querier) {
	c.querierSeen = append(c.querierSeen, q != nil)
}

var _ repository.CatalogRepository = (*fakeCatalog)(nil)

func (c *fakeCatalog) GetProduct(_ context.Context, q repository.Querier, id int64) (*domain.Product, error) {
	c.seen(q)
	p, ok := c.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (c *fakeCatalog) ListActiveOptionGroups(_ context.Context, q repository.Querier, productID int64) ([]domain.OptionGroup, error) {
	c.seen(q)
	c.groupCalls++
	return c.groups[productID], nil
}

func (c *fakeCatalog) ListActiveOptionValues(_ context.Context, q repository.Querier, groupIDs []int64) ([]domain.OptionValue, error) {
	c.seen(q)
	c.valueCalls++
	c.valueGroups = append(c.valueGroups, groupIDs...)

	var out []domain.OptionValue
	for _, v := range c.values {
		if slices.Contains(groupIDs, v.GroupID) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *fakeCatalog) GetCombo(_ context.Context, q repository.Querier, id int64) (*domain.Combo, error) {
	c.seen(q)
	combo, ok := c.combos[id]
	if !ok {
		return nil, domain.ErrComboNotFound
	}
	return &combo, nil
}

func (c *fakeCatalog) ListComboMembers(_ context.Context, q repository.Querier, comboID int64) ([]domain.ComboMember, error) {
	c.seen(q)
	return c.members[comboID], nil
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// menu mirrors the seed data of the integration suite.
func menu() *fakeCatalog {
	return &fakeCatalog{
		products: map[int64]domain.Product{
			1: {ID: 1, Name: "Latte", UnitPrice: money("59.00"), IsActive: true},
			2: {ID: 2, Name: "Croissant", UnitPrice: money("45.50"), IsActive: true},
			3: {ID: 3, Name: "Retired Mocha", UnitPrice: money("65.00"), IsActive: false},
			4: {ID: 4, Name: "Water", UnitPrice: money("15.00"), IsActive: true},
		},
		groups: map[int64][]domain.OptionGroup{
			1: {{ID: 10, Name: "Size"}, {ID: 11, Name: "Milk"}, {ID: 12, Name: "Syrup"}},
		},
		values: []domain.OptionValue{
			{ID: 100, GroupID: 10, Name: "Regular", PriceAdjustment: money("0.00")},
			{ID: 101, GroupID: 10, Name: "Large", PriceAdjustment: money("10.00")},
			{ID: 110, GroupID: 11, Name: "Oat", PriceAdjustment: money("7.50")},
		},
		combos: map[int64]domain.Combo{
			20: {ID: 20, Name: "Breakfast Set", ComboPrice: money("89.00"), IsActive: true},
			21: {ID: 21, Name: "Old Set", ComboPrice: money("70.00"), IsActive: false},
			22: {ID: 22, Name: "Empty Set", ComboPrice: money("10.00"), IsActive: true},
			23: {ID: 23, Name: "Catering Tray", ComboPrice: money("900.00"), IsActive: true},
		},
		members: map[int64][]domain.ComboMember{
			20: {
				{ProductID: 1, ProductName: "Latte", Quantity: 1},
				{ProductID: 2, ProductName: "Croissant", Quantity: 2},
			},
			23: {
				{ProductID: 2, ProductName: "Croissant", Quantity: 5_000_000},
			},
		},
	}
}
