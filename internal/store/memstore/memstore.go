// Package memstore is an in-memory store.Store used by unit tests. A
// single mutex spans each transaction, so transactions serialize the
// same way contending row locks do, and a snapshot taken at tx start
// gives rollback-on-error semantics.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/orbitcart/orbitcart-backend/internal/models"
	"github.com/orbitcart/orbitcart-backend/internal/store"
)

type state struct {
	nextID int64

	inventory          map[int64]models.InventoryRecord // by record id
	inventoryByProduct map[int64]int64
	adjustments        []models.InventoryAdjustment

	products map[int64]models.Product

	orders       map[int64]models.Order
	orderItems   []models.OrderItem
	orderHistory []models.OrderStatusHistory

	shipments       map[int64]models.Shipment
	shipmentByOrder map[int64]int64
	shipmentEvents  []models.ShipmentEvent

	users        map[int64]models.User
	usersByEmail map[string]int64
}

func newState() *state {
	return &state{
		inventory:          make(map[int64]models.InventoryRecord),
		inventoryByProduct: make(map[int64]int64),
		products:           make(map[int64]models.Product),
		orders:             make(map[int64]models.Order),
		shipments:          make(map[int64]models.Shipment),
		shipmentByOrder:    make(map[int64]int64),
		users:              make(map[int64]models.User),
		usersByEmail:       make(map[string]int64),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.inventory {
		c.inventory[k] = v
	}
	for k, v := range s.inventoryByProduct {
		c.inventoryByProduct[k] = v
	}
	c.adjustments = append(c.adjustments, s.adjustments...)
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	c.orderItems = append(c.orderItems, s.orderItems...)
	c.orderHistory = append(c.orderHistory, s.orderHistory...)
	for k, v := range s.shipments {
		c.shipments[k] = v
	}
	for k, v := range s.shipmentByOrder {
		c.shipmentByOrder[k] = v
	}
	c.shipmentEvents = append(c.shipmentEvents, s.shipmentEvents...)
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.usersByEmail {
		c.usersByEmail[k] = v
	}
	return c
}

// Store implements store.Store in memory.
type Store struct {
	mu    sync.Mutex
	state *state
}

func New() *Store {
	return &Store{state: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.state.clone()
	if err := fn(&memTx{state: s.state}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

type memTx struct {
	state *state
}

func (t *memTx) Inventory() store.InventoryRepository { return &inventoryRepo{state: t.state} }
func (t *memTx) Products() store.ProductRepository    { return &productRepo{state: t.state} }
func (t *memTx) Orders() store.OrderRepository        { return &orderRepo{state: t.state} }
func (t *memTx) Shipments() store.ShipmentRepository  { return &shipmentRepo{state: t.state} }
func (t *memTx) Users() store.UserRepository          { return &userRepo{state: t.state} }

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

type inventoryRepo struct {
	state *state
}

func (r *inventoryRepo) GetByProductID(ctx context.Context, productID int64, lock bool) (*models.InventoryRecord, error) {
	id, ok := r.state.inventoryByProduct[productID]
	if !ok {
		return nil, nil
	}
	rec := r.state.inventory[id]
	return &rec, nil
}

func (r *inventoryRepo) Create(ctx context.Context, rec *models.InventoryRecord) error {
	if _, exists := r.state.inventoryByProduct[rec.ProductID]; exists {
		return store.ErrDuplicateKey
	}
	rec.ID = r.state.id()
	r.state.inventory[rec.ID] = *rec
	r.state.inventoryByProduct[rec.ProductID] = rec.ID
	return nil
}

func (r *inventoryRepo) SaveQuantity(ctx context.Context, rec *models.InventoryRecord) error {
	stored := r.state.inventory[rec.ID]
	stored.Quantity = rec.Quantity
	stored.LastAdjustedAt = rec.LastAdjustedAt
	stored.UpdatedAt = rec.UpdatedAt
	r.state.inventory[rec.ID] = stored
	return nil
}

func (r *inventoryRepo) SaveThreshold(ctx context.Context, rec *models.InventoryRecord) error {
	stored := r.state.inventory[rec.ID]
	stored.LowStockThreshold = rec.LowStockThreshold
	stored.UpdatedAt = rec.UpdatedAt
	r.state.inventory[rec.ID] = stored
	return nil
}

func (r *inventoryRepo) DecrementIfAvailable(ctx context.Context, productID int64, qty int) (bool, error) {
	id, ok := r.state.inventoryByProduct[productID]
	if !ok {
		return false, nil
	}
	rec := r.state.inventory[id]
	if rec.Quantity < qty {
		return false, nil
	}
	now := time.Now()
	rec.Quantity -= qty
	rec.LastAdjustedAt = now
	rec.UpdatedAt = now
	r.state.inventory[id] = rec
	return true, nil
}

func (r *inventoryRepo) IncrementQuantity(ctx context.Context, productID int64, qty int) error {
	id, ok := r.state.inventoryByProduct[productID]
	if !ok {
		return nil
	}
	rec := r.state.inventory[id]
	now := time.Now()
	rec.Quantity += qty
	rec.LastAdjustedAt = now
	rec.UpdatedAt = now
	r.state.inventory[id] = rec
	return nil
}

func (r *inventoryRepo) AppendAdjustment(ctx context.Context, adj *models.InventoryAdjustment) error {
	adj.ID = r.state.id()
	r.state.adjustments = append(r.state.adjustments, *adj)
	return nil
}

func (r *inventoryRepo) ListAdjustments(ctx context.Context, recordID int64) ([]models.InventoryAdjustment, error) {
	var out []models.InventoryAdjustment
	for _, adj := range r.state.adjustments {
		if adj.RecordID == recordID {
			out = append(out, adj)
		}
	}
	return out, nil
}

func (r *inventoryRepo) Summary(ctx context.Context) (*models.StockSummary, error) {
	var s models.StockSummary
	for _, rec := range r.state.inventory {
		s.Total++
		switch {
		case rec.Quantity <= 0:
			s.Out++
		case rec.Quantity <= rec.LowStockThreshold:
			s.Low++
		default:
			s.InStock++
		}
	}
	return &s, nil
}

type productRepo struct {
	state *state
}

func (r *productRepo) GetByID(ctx context.Context, id int64, lock bool) (*models.Product, error) {
	p, ok := r.state.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *productRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	out := make(map[int64]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.state.products[id]; ok {
			cp := p
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	p.ID = r.state.id()
	r.state.products[p.ID] = *p
	return nil
}

func (r *productRepo) SetStatus(ctx context.Context, id int64, status string) error {
	p := r.state.products[id]
	p.Status = status
	p.UpdatedAt = time.Now()
	r.state.products[id] = p
	return nil
}

func (r *productRepo) SyncStockQuantity(ctx context.Context, productID int64, quantity int) error {
	p, ok := r.state.products[productID]
	if !ok {
		return nil
	}
	p.StockQuantity = quantity
	p.UpdatedAt = time.Now()
	r.state.products[productID] = p
	return nil
}

type orderRepo struct {
	state *state
}

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	o.ID = r.state.id()
	stored := *o
	stored.Items = nil
	stored.History = nil
	r.state.orders[o.ID] = stored
	return nil
}

func (r *orderRepo) InsertItem(ctx context.Context, item *models.OrderItem) error {
	item.ID = r.state.id()
	r.state.orderItems = append(r.state.orderItems, *item)
	return nil
}

func (r *orderRepo) AppendHistory(ctx context.Context, h *models.OrderStatusHistory) error {
	h.ID = r.state.id()
	r.state.orderHistory = append(r.state.orderHistory, *h)
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64, lock bool) (*models.Order, error) {
	o, ok := r.state.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *orderRepo) SetStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	o := r.state.orders[id]
	o.Status = status
	o.UpdatedAt = time.Now()
	r.state.orders[id] = o
	return nil
}

func (r *orderRepo) ListItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, item := range r.state.orderItems {
		if item.OrderID == orderID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *orderRepo) ListHistory(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error) {
	var out []models.OrderStatusHistory
	for _, h := range r.state.orderHistory {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	var out []models.Order
	for _, o := range r.state.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *orderRepo) ListStaleIDs(ctx context.Context, status models.OrderStatus, cutoff time.Time) ([]int64, error) {
	var out []int64
	for _, o := range r.state.orders {
		if o.Status == status && o.CreatedAt.Before(cutoff) {
			out = append(out, o.ID)
		}
	}
	return out, nil
}

func (r *orderRepo) CountByStatus(ctx context.Context, status models.OrderStatus) (int, error) {
	count := 0
	for _, o := range r.state.orders {
		if o.Status == status {
			count++
		}
	}
	return count, nil
}

type shipmentRepo struct {
	state *state
}

func (r *shipmentRepo) Create(ctx context.Context, s *models.Shipment) error {
	if _, exists := r.state.shipmentByOrder[s.OrderID]; exists {
		return store.ErrDuplicateKey
	}
	s.ID = r.state.id()
	r.state.shipments[s.ID] = *s
	r.state.shipmentByOrder[s.OrderID] = s.ID
	return nil
}

func (r *shipmentRepo) GetByID(ctx context.Context, id int64, lock bool) (*models.Shipment, error) {
	s, ok := r.state.shipments[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *shipmentRepo) GetByOrderID(ctx context.Context, orderID int64) (*models.Shipment, error) {
	id, ok := r.state.shipmentByOrder[orderID]
	if !ok {
		return nil, nil
	}
	s := r.state.shipments[id]
	return &s, nil
}

func (r *shipmentRepo) Save(ctx context.Context, s *models.Shipment) error {
	s.UpdatedAt = time.Now()
	r.state.shipments[s.ID] = *s
	return nil
}

func (r *shipmentRepo) AppendEvent(ctx context.Context, e *models.ShipmentEvent) error {
	e.ID = r.state.id()
	r.state.shipmentEvents = append(r.state.shipmentEvents, *e)
	return nil
}

func (r *shipmentRepo) ListEvents(ctx context.Context, shipmentID int64) ([]models.ShipmentEvent, error) {
	var out []models.ShipmentEvent
	for _, e := range r.state.shipmentEvents {
		if e.ShipmentID == shipmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *shipmentRepo) ListByAssignee(ctx context.Context, assigneeID int64) ([]models.Shipment, error) {
	var out []models.Shipment
	for _, s := range r.state.shipments {
		if s.AssigneeID == assigneeID {
			out = append(out, s)
		}
	}
	return out, nil
}

type userRepo struct {
	state *state
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, ok := r.state.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	id, ok := r.state.usersByEmail[email]
	if !ok {
		return nil, nil
	}
	u := r.state.users[id]
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	if _, exists := r.state.usersByEmail[u.Email]; exists {
		return store.ErrDuplicateKey
	}
	u.ID = r.state.id()
	r.state.users[u.ID] = *u
	r.state.usersByEmail[u.Email] = u.ID
	return nil
}
