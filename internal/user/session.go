package user

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/wichananm65/storefront-backend/internal/logging"
)

// localsKey is where both Identify and the jwt middleware leave the parsed token.
const localsKey = "user"

// Sessions issues and verifies HS256 session tokens carried in a cookie.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	cookie string
	secure bool
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration, cookie string, secure bool) *Sessions {
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		cookie: cookie,
		secure: secure,
		now:    time.Now,
	}
}

func (s *Sessions) CookieName() string {
	return s.cookie
}

// Issue signs a token for u.
func (s *Sessions) Issue(u User) (Session, error) {
	exp := s.now().Add(s.ttl)
	claims := jwt.MapClaims{
		"user_id":  u.ID,
		"username": u.Username,
		"email":    u.Email,
		"exp":      exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	return Session{Token: signed, ExpiresAt: exp}, nil
}

// Parse verifies a token and its expiry.
func (s *Sessions) Parse(token string) (*jwt.Token, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return tok, nil
}

func (s *Sessions) SetCookie(c *fiber.Ctx, sess Session) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Sessions) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cookie,
		Value:    "",
		Path:     "/",
		Expires:  s.now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Identify attaches the session token to the request when one is present and
// valid. Requests without a usable session continue as guests.
func (s *Sessions) Identify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(s.cookie)
		if raw == "" {
			return c.Next()
		}
		tok, err := s.Parse(raw)
		if err != nil {
			logging.FromCtx(c).Debug("ignoring session cookie", slog.String("error", err.Error()))
			return c.Next()
		}
		c.Locals(localsKey, tok)
		return c.Next()
	}
}

// RequireSession rejects requests without a valid session cookie.
func (s *Sessions) RequireSession() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:  s.secret,
		TokenLookup: "cookie:" + s.cookie,
		ContextKey:  localsKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		},
	})
}

// GetUserIDFromCtx extracts the user_id claim from the JWT token stored
// in `c.Locals("user")`.
func GetUserIDFromCtx(c *fiber.Ctx) (int, error) {
	claims, ok := mapClaims(c)
	if !ok {
		return 0, fiber.ErrUnauthorized
	}
	if raw, ok := claims["user_id"]; ok {
		switch v := raw.(type) {
		case float64:
			return int(v), nil
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case string:
			id, err := strconv.Atoi(v)
			if err != nil {
				return 0, fiber.ErrUnauthorized
			}
			return id, nil
		default:
			return 0, fiber.ErrUnauthorized
		}
	}
	return 0, fiber.ErrUnauthorized
}

// ClaimsFromCtx returns the session identity, or false for guests.
func ClaimsFromCtx(c *fiber.Ctx) (Claims, bool) {
	id, err := GetUserIDFromCtx(c)
	if err != nil || id <= 0 {
		return Claims{}, false
	}
	claims, _ := mapClaims(c)
	username, _ := claims["username"].(string)
	email, _ := claims["email"].(string)
	return Claims{UserID: id, Username: username, Email: email}, true
}

func mapClaims(c *fiber.Ctx) (jwt.MapClaims, bool) {
	tok, ok := c.Locals(localsKey).(*jwt.Token)
	if !ok || tok == nil {
		return nil, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	return claims, ok
}
