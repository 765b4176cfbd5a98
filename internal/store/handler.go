package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/logging"
	"github.com/wichananm65/storefront-backend/internal/product"
	"github.com/wichananm65/storefront-backend/internal/render"
)

// Handler serves the product listing page.
type Handler struct {
	products   *product.Service
	resolver   *cart.Resolver
	renderer   render.Renderer
	cartCookie string
	timeout    time.Duration
}

func NewHandler(products *product.Service, resolver *cart.Resolver, renderer render.Renderer, cartCookie string, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handler{products: products, resolver: resolver, renderer: renderer, cartCookie: cartCookie, timeout: timeout}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/", h.storePage)
}

func (h *Handler) storePage(c *fiber.Ctx) error {
	snap, ok, err := cart.ResolveForPage(c, h.resolver, h.renderer, h.cartCookie, h.timeout)
	if !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	products, err := h.products.List(ctx)
	if err != nil {
		logging.FromCtx(c).Error("list products", slog.String("error", err.Error()))
		return render.Error(h.renderer, c, fiber.StatusInternalServerError, "An error occurred.")
	}
	return h.renderer.Render(c, fiber.StatusOK, render.PageStore, fiber.Map{
		"products":  products,
		"cartItems": snap.CartItems,
	})
}
