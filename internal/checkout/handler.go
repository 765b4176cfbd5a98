package checkout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/logging"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/product"
	"github.com/wichananm65/storefront-backend/internal/render"
)

type Handler struct {
	resolver   *cart.Resolver
	service    *Service
	renderer   render.Renderer
	cartCookie string
	timeout    time.Duration
}

func NewHandler(resolver *cart.Resolver, service *Service, renderer render.Renderer, cartCookie string, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handler{resolver: resolver, service: service, renderer: renderer, cartCookie: cartCookie, timeout: timeout}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/checkout/", h.checkoutPage)
	app.Post("/process_order/", h.processOrder)
}

func (h *Handler) checkoutPage(c *fiber.Ctx) error {
	snap, ok, err := cart.ResolveForPage(c, h.resolver, h.renderer, h.cartCookie, h.timeout)
	if !ok {
		return err
	}
	return h.renderer.Render(c, fiber.StatusOK, render.PageCheckout, fiber.Map{
		"items":     snap.Items,
		"order":     snap.Order,
		"cartItems": snap.CartItems,
	})
}

func (h *Handler) processOrder(c *fiber.Ctx) error {
	log := logging.FromCtx(c)

	id, err := cart.IdentityFromCtx(c, h.cartCookie)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	payload := new(ProcessOrderInput)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	res, err := h.service.ProcessOrder(ctx, id, *payload)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrShippingRequired):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, product.ErrNotFound), errors.Is(err, order.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, order.ErrOrderClosed), errors.Is(err, order.ErrConflict):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
		default:
			log.Error("process order", slog.String("error", err.Error()))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
	}

	if id.IsGuest() && res.Order.Complete {
		c.Cookie(&fiber.Cookie{Name: h.cartCookie, Value: "", Path: "/", Expires: time.Now().Add(-time.Hour)})
	}
	return c.JSON("Payment submitted..")
}
