package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/product"
)

const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)

type UpdateItemInput struct {
	ProductID int    `json:"productId"`
	Action    string `json:"action"`
}

// UnmarshalJSON accepts productId as a number or a numeric string; browser
// code reads it from a data attribute.
func (in *UpdateItemInput) UnmarshalJSON(b []byte) error {
	var raw struct {
		ProductID json.RawMessage `json:"productId"`
		Action    string          `json:"action"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	in.Action = raw.Action
	in.ProductID = 0
	if len(raw.ProductID) == 0 || string(raw.ProductID) == "null" {
		return nil
	}
	id, err := strconv.Atoi(strings.Trim(string(raw.ProductID), `"`))
	if err != nil {
		return fmt.Errorf("invalid productId %s", raw.ProductID)
	}
	in.ProductID = id
	return nil
}

type Service struct {
	resolver *Resolver
	products product.Repository
	orders   order.Repository
	logger   *slog.Logger
}

func NewService(resolver *Resolver, products product.Repository, orders order.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{resolver: resolver, products: products, orders: orders, logger: logger}
}

// UpdateItem applies one add or remove to the signed-in user's open order.
// Other actions leave the quantity unchanged. The returned item holds the
// resulting quantity; zero or below means it was removed.
func (s *Service) UpdateItem(ctx context.Context, id Identity, in UpdateItemInput) (order.Item, error) {
	if _, err := s.products.GetByID(ctx, in.ProductID); err != nil {
		return order.Item{}, err
	}

	delta := 0
	switch in.Action {
	case ActionAdd:
		delta = 1
	case ActionRemove:
		delta = -1
	default:
		s.logger.Warn("unknown cart action", slog.String("action", in.Action), slog.Int("product_id", in.ProductID))
	}

	o, _, err := s.resolver.OpenOrder(ctx, id)
	if err != nil {
		return order.Item{}, err
	}
	item, err := s.orders.AdjustItem(ctx, o.ID, in.ProductID, delta)
	if err != nil {
		return order.Item{}, fmt.Errorf("update item %d: %w", in.ProductID, err)
	}
	s.logger.Debug("cart item updated",
		slog.Int("order_id", o.ID),
		slog.Int("product_id", in.ProductID),
		slog.String("action", in.Action),
		slog.Int("quantity", item.Quantity),
	)
	return item, nil
}
