package cart

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/storefront-backend/internal/logging"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/product"
	"github.com/wichananm65/storefront-backend/internal/render"
	"github.com/wichananm65/storefront-backend/internal/user"
)

// Handler serves the cart page and cart mutations.
type Handler struct {
	resolver   *Resolver
	service    *Service
	renderer   render.Renderer
	cartCookie string
	timeout    time.Duration
}

func NewHandler(resolver *Resolver, service *Service, renderer render.Renderer, cartCookie string, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handler{resolver: resolver, service: service, renderer: renderer, cartCookie: cartCookie, timeout: timeout}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/cart/", h.cartPage)
}

// RegisterProtectedRoutes expects a session middleware in front of app.
func (h *Handler) RegisterProtectedRoutes(app fiber.Router) {
	app.Post("/update_item/", h.updateItem)
}

// IdentityFromCtx combines the session claims, if any, with the guest cart
// cookie named cartCookie.
func IdentityFromCtx(c *fiber.Ctx, cartCookie string) (Identity, error) {
	if claims, ok := user.ClaimsFromCtx(c); ok {
		return Identity{UserID: claims.UserID, Username: claims.Username, Email: claims.Email}, nil
	}
	guest, err := DecodeGuestCart(c.Cookies(cartCookie))
	if err != nil {
		return Identity{}, err
	}
	return Identity{GuestCart: guest}, nil
}

// ResolveForPage resolves the caller's cart for a page render. On failure it
// renders the error page itself and returns ok == false.
func ResolveForPage(c *fiber.Ctx, resolver *Resolver, renderer render.Renderer, cartCookie string, timeout time.Duration) (Snapshot, bool, error) {
	log := logging.FromCtx(c)
	id, err := IdentityFromCtx(c, cartCookie)
	if err != nil {
		log.Warn("bad cart cookie", slog.String("error", err.Error()))
		return Snapshot{}, false, render.Error(renderer, c, fiber.StatusBadRequest, "An error occurred.")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
	defer cancel()

	snap, err := resolver.Resolve(ctx, id)
	if err != nil {
		log.Error("resolve cart", slog.String("error", err.Error()))
		status := fiber.StatusInternalServerError
		if errors.Is(err, order.ErrNotFound) || errors.Is(err, product.ErrNotFound) {
			status = fiber.StatusNotFound
		}
		return Snapshot{}, false, render.Error(renderer, c, status, "An error occurred.")
	}
	return snap, true, nil
}

func (h *Handler) cartPage(c *fiber.Ctx) error {
	snap, ok, err := ResolveForPage(c, h.resolver, h.renderer, h.cartCookie, h.timeout)
	if !ok {
		return err
	}
	return h.renderer.Render(c, fiber.StatusOK, render.PageCart, fiber.Map{
		"items":     snap.Items,
		"order":     snap.Order,
		"cartItems": snap.CartItems,
	})
}

func (h *Handler) updateItem(c *fiber.Ctx) error {
	payload := new(UpdateItemInput)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.ProductID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid productId"})
	}

	claims, ok := user.ClaimsFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	id := Identity{UserID: claims.UserID, Username: claims.Username, Email: claims.Email}
	if _, err := h.service.UpdateItem(ctx, id, *payload); err != nil {
		switch {
		case errors.Is(err, product.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
		case errors.Is(err, order.ErrOrderClosed), errors.Is(err, order.ErrConflict):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
		default:
			logging.FromCtx(c).Error("update item", slog.String("error", err.Error()))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
	}

	return c.JSON("Item was added")
}
