package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/customer"
	"github.com/wichananm65/storefront-backend/internal/order"
)

var (
	ErrShippingRequired = errors.New("shipping address required")
	ErrInvalidInput     = errors.New("invalid input")
)

var validate = validator.New()

// FormInput is the customer part of the checkout form. Total is what the
// browser believes the cart costs and may arrive as a number or a string; it
// is required.
type FormInput struct {
	Name  string              `json:"name"`
	Email string              `json:"email"`
	Total decimal.NullDecimal `json:"total"`
}

type guestForm struct {
	Name  string `validate:"required"`
	Email string `validate:"required,email"`
}

type ShippingInput struct {
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Zipcode string `json:"zipcode" validate:"required"`
}

type ProcessOrderInput struct {
	Form     FormInput      `json:"form"`
	Shipping *ShippingInput `json:"shipping"`
}

type Result struct {
	Order    order.Order
	Expected decimal.Decimal
}

type Service struct {
	resolver  *cart.Resolver
	customers customer.Repository
	orders    order.Repository
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(resolver *cart.Resolver, customers customer.Repository, orders order.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{resolver: resolver, customers: customers, orders: orders, logger: logger, now: time.Now}
}

// ProcessOrder stamps the caller's open order with a transaction id and
// completes it when the submitted total equals the cart total. A mismatch is
// not an error: the order is saved and stays open.
func (s *Service) ProcessOrder(ctx context.Context, id cart.Identity, in ProcessOrderInput) (Result, error) {
	if !in.Form.Total.Valid {
		return Result{}, fmt.Errorf("%w: form total is required", ErrInvalidInput)
	}

	var (
		o    order.Order
		cust customer.Customer
		snap cart.Snapshot
		err  error
	)

	if id.IsGuest() {
		o, cust, snap, err = s.guestOrder(ctx, id.GuestCart, in)
	} else {
		o, cust, err = s.resolver.OpenOrder(ctx, id)
		if err == nil {
			snap, err = s.resolver.OrderSnapshot(ctx, o)
		}
		if err == nil {
			err = checkShipping(snap, in.Shipping)
		}
	}
	if err != nil {
		return Result{}, err
	}

	o.TransactionID = transactionID(s.now())
	o.Complete = in.Form.Total.Decimal.Equal(snap.Order.CartTotal)

	var addr *order.ShippingAddress
	if snap.Order.Shipping {
		addr = &order.ShippingAddress{
			CustomerID: cust.ID,
			Address:    in.Shipping.Address,
			City:       in.Shipping.City,
			State:      in.Shipping.State,
			Zipcode:    in.Shipping.Zipcode,
		}
	}

	saved, err := s.orders.Save(ctx, o, addr)
	if err != nil {
		return Result{}, fmt.Errorf("save order %d: %w", o.ID, err)
	}

	if !saved.Complete {
		s.logger.Warn("order total mismatch",
			slog.Int("order_id", saved.ID),
			slog.String("expected", snap.Order.CartTotal.StringFixed(2)),
			slog.String("submitted", in.Form.Total.Decimal.String()),
		)
	} else {
		s.logger.Info("order completed", slog.Int("order_id", saved.ID), slog.String("transaction_id", saved.TransactionID))
	}
	return Result{Order: saved, Expected: snap.Order.CartTotal}, nil
}

// guestOrder turns the cookie cart into a stored order for the guest customer
// identified by the form email.
func (s *Service) guestOrder(ctx context.Context, guest cart.GuestCart, in ProcessOrderInput) (order.Order, customer.Customer, cart.Snapshot, error) {
	if err := validate.Struct(guestForm{Name: in.Form.Name, Email: in.Form.Email}); err != nil {
		return order.Order{}, customer.Customer{}, cart.Snapshot{}, fmt.Errorf("%w: name and a valid email are required", ErrInvalidInput)
	}

	snap, err := s.resolver.Resolve(ctx, cart.Identity{GuestCart: guest})
	if err != nil {
		return order.Order{}, customer.Customer{}, cart.Snapshot{}, err
	}
	if err := checkShipping(snap, in.Shipping); err != nil {
		return order.Order{}, customer.Customer{}, cart.Snapshot{}, err
	}

	cust, err := s.customers.GetOrCreateGuest(ctx, in.Form.Email, in.Form.Name)
	if err != nil {
		return order.Order{}, customer.Customer{}, cart.Snapshot{}, fmt.Errorf("guest customer: %w", err)
	}

	items := make([]order.Item, 0, len(snap.Items))
	for _, l := range snap.Items {
		items = append(items, order.Item{ProductID: l.Product.ID, Quantity: l.Quantity})
	}
	o, _, err := s.orders.OpenWithItems(ctx, cust.ID, items)
	if err != nil {
		return order.Order{}, customer.Customer{}, cart.Snapshot{}, fmt.Errorf("guest order: %w", err)
	}
	snap.Order.ID = o.ID
	return o, cust, snap, nil
}

func checkShipping(snap cart.Snapshot, shipping *ShippingInput) error {
	if !snap.Order.Shipping {
		return nil
	}
	if shipping == nil || validate.Struct(shipping) != nil {
		return ErrShippingRequired
	}
	return nil
}

// transactionID is the Unix time in seconds with a microsecond fraction.
func transactionID(t time.Time) string {
	us := t.UnixMicro()
	id := strconv.FormatInt(us/1e6, 10) + "." + fmt.Sprintf("%06d", us%1e6)
	return strings.TrimSuffix(strings.TrimRight(id, "0"), ".")
}
