package cart

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/storefront-backend/internal/customer"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/product"
)

// Identity is who a request acts for. UserID 0 means a guest whose cart is
// GuestCart.
type Identity struct {
	UserID    int
	Username  string
	Email     string
	GuestCart GuestCart
}

func (id Identity) IsGuest() bool {
	return id.UserID <= 0
}

// Line is one product in a cart with its line total.
type Line struct {
	Product  product.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// OrderView is the order as pages see it, with derived totals.
type OrderView struct {
	ID            int             `json:"id"`
	Complete      bool            `json:"complete"`
	Shipping      bool            `json:"shipping"`
	CartTotal     decimal.Decimal `json:"cartTotal"`
	CartItems     int             `json:"cartItems"`
	TransactionID string          `json:"transactionId,omitempty"`
}

type Snapshot struct {
	CartItems int       `json:"cartItems"`
	Order     OrderView `json:"order"`
	Items     []Line    `json:"items"`
}

// Resolver builds the cart snapshot shared by the store, cart and checkout pages.
type Resolver struct {
	products  product.Repository
	customers customer.Repository
	orders    order.Repository
	logger    *slog.Logger
}

func NewResolver(products product.Repository, customers customer.Repository, orders order.Repository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{products: products, customers: customers, orders: orders, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, id Identity) (Snapshot, error) {
	if id.IsGuest() {
		return r.resolveGuest(ctx, id.GuestCart)
	}

	o, _, err := r.OpenOrder(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return r.OrderSnapshot(ctx, o)
}

// OrderSnapshot computes the snapshot of a stored order.
func (r *Resolver) OrderSnapshot(ctx context.Context, o order.Order) (Snapshot, error) {
	items, err := r.orders.ListItems(ctx, o.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list items: %w", err)
	}

	quantities := make(map[int]int, len(items))
	ids := make([]int, 0, len(items))
	for _, it := range items {
		quantities[it.ProductID] = it.Quantity
		ids = append(ids, it.ProductID)
	}
	lines, err := r.lines(ctx, ids, quantities)
	if err != nil {
		return Snapshot{}, err
	}
	return build(o, lines), nil
}

// OpenOrder returns the signed-in user's customer record and open order,
// creating either on first use.
func (r *Resolver) OpenOrder(ctx context.Context, id Identity) (order.Order, customer.Customer, error) {
	c, err := r.customers.GetOrCreateForUser(ctx, id.UserID, id.Username, id.Email)
	if err != nil {
		return order.Order{}, customer.Customer{}, fmt.Errorf("customer for user %d: %w", id.UserID, err)
	}
	o, err := r.orders.GetOrCreateOpen(ctx, c.ID)
	if err != nil {
		return order.Order{}, customer.Customer{}, fmt.Errorf("open order for customer %d: %w", c.ID, err)
	}
	return o, c, nil
}

func (r *Resolver) resolveGuest(ctx context.Context, cart GuestCart) (Snapshot, error) {
	ids := cart.ProductIDs()
	lines, err := r.lines(ctx, ids, cart)
	if err != nil {
		return Snapshot{}, err
	}
	if len(lines) < len(ids) {
		r.logger.Debug("guest cart references missing products", slog.Int("requested", len(ids)), slog.Int("found", len(lines)))
	}
	return build(order.Order{}, lines), nil
}

// lines joins quantities with their products in id order. Products that no
// longer exist and non-positive quantities are skipped.
func (r *Resolver) lines(ctx context.Context, ids []int, quantities map[int]int) ([]Line, error) {
	out := make([]Line, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	products, err := r.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[int]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, pid := range ids {
		p, ok := byID[pid]
		qty := quantities[pid]
		if !ok || qty <= 0 {
			continue
		}
		out = append(out, Line{
			Product:  p,
			Quantity: qty,
			Total:    p.Price.Mul(decimal.NewFromInt(int64(qty))),
		})
	}
	return out, nil
}

func build(o order.Order, lines []Line) Snapshot {
	view := OrderView{
		ID:            o.ID,
		Complete:      o.Complete,
		TransactionID: o.TransactionID,
		CartTotal:     decimal.Zero,
	}
	for _, l := range lines {
		view.CartItems += l.Quantity
		view.CartTotal = view.CartTotal.Add(l.Total)
		if !l.Product.Digital {
			view.Shipping = true
		}
	}
	return Snapshot{CartItems: view.CartItems, Order: view, Items: lines}
}
