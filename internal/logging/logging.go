package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const localsKey = "logger"

// New builds the process logger. Handlers never use it directly; they get a
// request-scoped child through FromCtx.
func New(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Middleware attaches a logger tagged with a request id to every request and
// logs the outcome once the handler chain returns.
func Middleware(base *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		reqID := c.Get(fiber.HeaderXRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, reqID)

		l := base.With("request_id", reqID, "method", c.Method(), "path", c.Path())
		c.Locals(localsKey, l)

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		l.Info("request completed", "status", status, "latency", time.Since(start).String())
		return err
	}
}

// FromCtx returns the request logger, or slog.Default when the middleware is
// not installed (tests mounting a single handler).
func FromCtx(c *fiber.Ctx) *slog.Logger {
	if l, ok := c.Locals(localsKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
