package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/checkout"
	"github.com/wichananm65/storefront-backend/internal/config"
	"github.com/wichananm65/storefront-backend/internal/customer"
	"github.com/wichananm65/storefront-backend/internal/database"
	"github.com/wichananm65/storefront-backend/internal/logging"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/product"
	"github.com/wichananm65/storefront-backend/internal/render"
	"github.com/wichananm65/storefront-backend/internal/store"
	"github.com/wichananm65/storefront-backend/internal/user"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is not set")
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, logger); err != nil {
		logger.Error("migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Use(recover.New())
	setupCORS(app, cfg.AllowOrigins)
	app.Use(logging.Middleware(logger))

	sessions := user.NewSessions(cfg.JWTSecret, cfg.SessionTTL, cfg.SessionCookie, cfg.CookieSecure)
	app.Use(sessions.Identify())

	renderer := render.NewJSON()

	productRepo := product.NewPostgresRepository(db)
	customerRepo := customer.NewPostgresRepository(db)
	orderRepo := order.NewPostgresRepository(db)

	productService := product.NewService(productRepo)
	resolver := cart.NewResolver(productRepo, customerRepo, orderRepo, logger)
	cartService := cart.NewService(resolver, productRepo, orderRepo, logger)
	checkoutService := checkout.NewService(resolver, customerRepo, orderRepo, logger)
	userService := user.NewService(user.NewPostgresRepository(db), sessions)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	store.NewHandler(productService, resolver, renderer, cfg.CartCookie, cfg.RequestTimeout).RegisterPublicRoutes(app)
	product.NewHandler(productService, cfg.AllowReset).RegisterPublicRoutes(app)
	checkout.NewHandler(resolver, checkoutService, renderer, cfg.CartCookie, cfg.RequestTimeout).RegisterPublicRoutes(app)
	user.NewHandler(userService, sessions, renderer, user.HandlerConfig{
		LoginRedirect:  cfg.LoginRedirect,
		ErrorRedirect:  cfg.ErrorRedirect,
		RequestTimeout: cfg.RequestTimeout,
	}).RegisterPublicRoutes(app)

	cartHandler := cart.NewHandler(resolver, cartService, renderer, cfg.CartCookie, cfg.RequestTimeout)
	cartHandler.RegisterPublicRoutes(app)

	// session required from here on
	app.Use("/update_item/", sessions.RequireSession())
	cartHandler.RegisterProtectedRoutes(app)

	logger.Info("starting server", slog.String("addr", cfg.Addr))
	if err := app.Listen(cfg.Addr); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		logging.FromCtx(c).Error("unhandled error", slog.String("error", err.Error()))
	}
	return c.Status(code).JSON(fiber.Map{"message": err.Error()})
}

func setupCORS(app *fiber.App, origins string) {
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, X-CSRFToken",
		AllowCredentials: origins != "*",
	}))
}
