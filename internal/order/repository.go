package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound    = errors.New("order not found")
	ErrOrderClosed = errors.New("order already complete")
	ErrConflict    = errors.New("concurrent order update")
)

// Repository defines persistence operations for orders, their items and
// shipping addresses.
type Repository interface {
	// GetOrCreateOpen returns the customer's incomplete order, creating it
	// when none exists.
	GetOrCreateOpen(ctx context.Context, customerID int) (Order, error)
	GetByID(ctx context.Context, id int) (Order, error)
	ListItems(ctx context.Context, orderID int) ([]Item, error)
	// AdjustItem adds delta to the (order, product) item, creating it first if
	// needed. The returned item carries the resulting quantity; when it is
	// zero or below the item has been deleted.
	AdjustItem(ctx context.Context, orderID, productID, delta int) (Item, error)
	// OpenWithItems gets or creates the customer's open order and replaces its
	// items with the given product quantities, atomically.
	OpenWithItems(ctx context.Context, customerID int, items []Item) (Order, []Item, error)
	// Save persists the transaction id and completion flag of an open order
	// and, when addr is not nil, records the shipping address in the same
	// transaction.
	Save(ctx context.Context, o Order, addr *ShippingAddress) (Order, error)
	ListShippingAddresses(ctx context.Context, orderID int) ([]ShippingAddress, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu        sync.Mutex
	orders    map[int]Order
	items     map[int]Item
	addresses []ShippingAddress
	nextOrder int
	nextItem  int
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		orders:    make(map[int]Order),
		items:     make(map[int]Item),
		nextOrder: 1,
		nextItem:  1,
	}
}

func (r *InMemoryRepository) GetOrCreateOpen(ctx context.Context, customerID int) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateOpenLocked(customerID), nil
}

func (r *InMemoryRepository) getOrCreateOpenLocked(customerID int) Order {
	for _, o := range r.orders {
		if o.CustomerID == customerID && !o.Complete {
			return o
		}
	}
	o := Order{ID: r.nextOrder, CustomerID: customerID, DateOrdered: time.Now().UTC()}
	r.nextOrder++
	r.orders[o.ID] = o
	return o
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (r *InMemoryRepository) ListItems(ctx context.Context, orderID int) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Item, 0)
	for _, it := range r.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) AdjustItem(ctx context.Context, orderID, productID, delta int) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return Item{}, ErrNotFound
	}
	if o.Complete {
		return Item{}, ErrOrderClosed
	}

	var it Item
	found := false
	for _, existing := range r.items {
		if existing.OrderID == orderID && existing.ProductID == productID {
			it, found = existing, true
			break
		}
	}
	if !found {
		it = Item{ID: r.nextItem, OrderID: orderID, ProductID: productID, DateAdded: time.Now().UTC()}
		r.nextItem++
	}

	it.Quantity += delta
	if it.Quantity <= 0 {
		delete(r.items, it.ID)
		return it, nil
	}
	r.items[it.ID] = it
	return it, nil
}

func (r *InMemoryRepository) OpenWithItems(ctx context.Context, customerID int, items []Item) (Order, []Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o := r.getOrCreateOpenLocked(customerID)
	for id, it := range r.items {
		if it.OrderID == o.ID {
			delete(r.items, id)
		}
	}

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		it.ID = r.nextItem
		r.nextItem++
		it.OrderID = o.ID
		it.DateAdded = time.Now().UTC()
		r.items[it.ID] = it
		out = append(out, it)
	}
	return o, out, nil
}

func (r *InMemoryRepository) Save(ctx context.Context, o Order, addr *ShippingAddress) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[o.ID]
	if !ok {
		return Order{}, ErrNotFound
	}
	if stored.Complete {
		return Order{}, ErrOrderClosed
	}
	stored.TransactionID = o.TransactionID
	stored.Complete = o.Complete
	r.orders[o.ID] = stored

	if addr != nil {
		a := *addr
		a.ID = len(r.addresses) + 1
		a.OrderID = o.ID
		a.DateAdded = time.Now().UTC()
		r.addresses = append(r.addresses, a)
	}
	return stored, nil
}

func (r *InMemoryRepository) ListShippingAddresses(ctx context.Context, orderID int) ([]ShippingAddress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ShippingAddress, 0)
	for _, a := range r.addresses {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	return out, nil
}
