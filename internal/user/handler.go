package user

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/storefront-backend/internal/logging"
	"github.com/wichananm65/storefront-backend/internal/render"
)

// HandlerConfig holds the redirect targets and request budget of the identity pages.
type HandlerConfig struct {
	LoginRedirect  string
	ErrorRedirect  string
	RequestTimeout time.Duration
}

type Handler struct {
	dir      Directory
	sessions *Sessions
	renderer render.Renderer
	cfg      HandlerConfig
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func NewHandler(dir Directory, sessions *Sessions, renderer render.Renderer, cfg HandlerConfig) *Handler {
	if cfg.LoginRedirect == "" {
		cfg.LoginRedirect = "/"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/error/"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Handler{dir: dir, sessions: sessions, renderer: renderer, cfg: cfg}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/login/", h.loginPage)
	app.Post("/login/", h.login)
	app.Get("/register/", h.registerPage)
	app.Post("/register/", h.register)
	app.Get("/logout/", h.logout)
	app.Post("/logout/", h.logout)
	app.Get("/error/", h.errorPage)
}

func (h *Handler) loginPage(c *fiber.Ctx) error {
	return h.renderer.Render(c, fiber.StatusOK, render.PageLogin, fiber.Map{})
}

func (h *Handler) login(c *fiber.Ctx) error {
	log := logging.FromCtx(c)
	payload := new(loginRequest)
	if err := c.BodyParser(payload); err != nil {
		return h.renderer.Render(c, fiber.StatusBadRequest, render.PageLogin, fiber.Map{"error": "invalid form"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.cfg.RequestTimeout)
	defer cancel()

	u, err := h.dir.Authenticate(ctx, payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return h.renderer.Render(c, fiber.StatusUnauthorized, render.PageLogin, fiber.Map{
				"username": payload.Username,
				"error":    "Please enter a correct username and password.",
			})
		}
		log.Error("login failed", slog.String("error", err.Error()))
		return c.Redirect(h.cfg.ErrorRedirect, fiber.StatusSeeOther)
	}

	sess, err := h.dir.CreateSession(ctx, u)
	if err != nil {
		log.Error("create session failed", slog.Int("user_id", u.ID), slog.String("error", err.Error()))
		return c.Redirect(h.cfg.ErrorRedirect, fiber.StatusSeeOther)
	}
	h.sessions.SetCookie(c, sess)
	log.Info("user logged in", slog.String("username", u.Username))
	return c.Redirect(h.cfg.LoginRedirect, fiber.StatusSeeOther)
}

func (h *Handler) registerPage(c *fiber.Ctx) error {
	return h.renderer.Render(c, fiber.StatusOK, render.PageRegistration, fiber.Map{})
}

func (h *Handler) register(c *fiber.Ctx) error {
	payload := new(RegisterInput)
	if err := c.BodyParser(payload); err != nil {
		return h.renderer.Render(c, fiber.StatusBadRequest, render.PageRegistration, fiber.Map{"error": "invalid form"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.cfg.RequestTimeout)
	defer cancel()

	form := fiber.Map{"username": payload.Username, "email": payload.Email}
	created, err := h.dir.CreateUser(ctx, *payload)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			form["error"] = err.Error()
			return h.renderer.Render(c, fiber.StatusBadRequest, render.PageRegistration, form)
		case errors.Is(err, ErrUsernameExists):
			form["error"] = "A user with that username already exists."
			return h.renderer.Render(c, fiber.StatusConflict, render.PageRegistration, form)
		default:
			logging.FromCtx(c).Error("register failed", slog.String("error", err.Error()))
			return render.Error(h.renderer, c, fiber.StatusInternalServerError, "An error occurred.")
		}
	}

	logging.FromCtx(c).Info("user registered", slog.String("username", created.Username))
	return c.Redirect("/login/", fiber.StatusSeeOther)
}

func (h *Handler) logout(c *fiber.Ctx) error {
	h.sessions.ClearCookie(c)
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *Handler) errorPage(c *fiber.Ctx) error {
	return render.Error(h.renderer, c, fiber.StatusOK, "An error occurred.")
}
