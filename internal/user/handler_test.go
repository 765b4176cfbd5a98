package user

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/storefront-backend/internal/render"
)

type failingSessions struct {
	*Service
}

func (failingSessions) CreateSession(ctx context.Context, u User) (Session, error) {
	return Session{}, errors.New("signing key unavailable")
}

func makeAppWithUserHandler(dir Directory, sessions *Sessions) *fiber.App {
	app := fiber.New()
	h := NewHandler(dir, sessions, render.NewJSON(), HandlerConfig{LoginRedirect: "/", ErrorRedirect: "/error/", RequestTimeout: time.Second})
	h.RegisterPublicRoutes(app)
	return app
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func seededService(t *testing.T) (*Service, *Sessions) {
	t.Helper()
	sessions := NewSessions("test-secret", time.Hour, "session", false)
	svc := NewService(NewInMemoryRepository(nil), sessions)
	if _, err := svc.CreateUser(context.Background(), RegisterInput{
		Username: "alice", Email: "alice@example.com", Password1: "s3cret-pass", Password2: "s3cret-pass",
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return svc, sessions
}

func TestLogin(t *testing.T) {
	svc, sessions := seededService(t)
	app := makeAppWithUserHandler(svc, sessions)

	res, _ := app.Test(postForm("/login/", url.Values{"username": {"alice"}, "password": {"s3cret-pass"}}), -1)
	if res.StatusCode != fiber.StatusSeeOther {
		t.Fatalf("expected 303 on login, got %d", res.StatusCode)
	}
	if loc := res.Header.Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}
	if !strings.Contains(res.Header.Get("Set-Cookie"), "session=") {
		t.Fatalf("expected session cookie, got %q", res.Header.Get("Set-Cookie"))
	}

	res2, _ := app.Test(postForm("/login/", url.Values{"username": {"alice"}, "password": {"wrong"}}), -1)
	if res2.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", res2.StatusCode)
	}
}

func TestLogin_SessionFailureRedirectsToErrorPage(t *testing.T) {
	svc, sessions := seededService(t)
	app := makeAppWithUserHandler(failingSessions{svc}, sessions)

	res, _ := app.Test(postForm("/login/", url.Values{"username": {"alice"}, "password": {"s3cret-pass"}}), -1)
	if res.StatusCode != fiber.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.StatusCode)
	}
	if loc := res.Header.Get("Location"); loc != "/error/" {
		t.Fatalf("expected redirect to /error/, got %q", loc)
	}
}

func TestRegister(t *testing.T) {
	svc, sessions := seededService(t)
	app := makeAppWithUserHandler(svc, sessions)

	form := url.Values{"username": {"bob"}, "email": {"bob@example.com"}, "password1": {"another-pass"}, "password2": {"another-pass"}}
	res, _ := app.Test(postForm("/register/", form), -1)
	if res.StatusCode != fiber.StatusSeeOther {
		t.Fatalf("expected 303 on register, got %d", res.StatusCode)
	}
	if loc := res.Header.Get("Location"); loc != "/login/" {
		t.Fatalf("expected redirect to /login/, got %q", loc)
	}

	res2, _ := app.Test(postForm("/register/", form), -1)
	if res2.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d", res2.StatusCode)
	}

	form.Set("password2", "mismatch-pass")
	form.Set("username", "carol")
	res3, _ := app.Test(postForm("/register/", form), -1)
	if res3.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for invalid form, got %d", res3.StatusCode)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	svc, sessions := seededService(t)
	app := makeAppWithUserHandler(svc, sessions)

	req := httptest.NewRequest("GET", "/logout/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "anything"})
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusSeeOther {
		t.Fatalf("expected 303 on logout, got %d", res.StatusCode)
	}
	if loc := res.Header.Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}
	if !strings.HasPrefix(res.Header.Get("Set-Cookie"), "session=;") {
		t.Fatalf("expected cleared session cookie, got %q", res.Header.Get("Set-Cookie"))
	}
}

func TestPages(t *testing.T) {
	svc, sessions := seededService(t)
	app := makeAppWithUserHandler(svc, sessions)

	for _, path := range []string{"/login/", "/register/", "/error/"} {
		res, _ := app.Test(httptest.NewRequest("GET", path, nil))
		if res.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, res.StatusCode)
		}
	}
}

func TestSessionMiddleware(t *testing.T) {
	sessions := NewSessions("test-secret", time.Hour, "session", false)
	sess, err := sessions.Issue(User{ID: 9, Username: "dave", Email: "dave@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	app := fiber.New()
	app.Use(sessions.Identify())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromCtx(c)
		if !ok {
			return c.SendString("guest")
		}
		return c.SendString(claims.Username)
	})
	app.Post("/private", sessions.RequireSession(), func(c *fiber.Ctx) error {
		id, err := GetUserIDFromCtx(c)
		if err != nil {
			return err
		}
		return c.JSON(id)
	})

	cases := []struct {
		name   string
		method string
		path   string
		cookie string
		status int
		body   string
	}{
		{"guest page", "GET", "/whoami", "", 200, "guest"},
		{"signed in page", "GET", "/whoami", sess.Token, 200, "dave"},
		{"tampered token is a guest", "GET", "/whoami", sess.Token + "x", 200, "guest"},
		{"protected without session", "POST", "/private", "", 401, ""},
		{"protected with session", "POST", "/private", sess.Token, 200, "9"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.cookie != "" {
			req.AddCookie(&http.Cookie{Name: "session", Value: tc.cookie})
		}
		res, _ := app.Test(req)
		if res.StatusCode != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, res.StatusCode)
		}
		if tc.body != "" {
			buf := new(strings.Builder)
			_, _ = io.Copy(buf, res.Body)
			if buf.String() != tc.body {
				t.Fatalf("%s: expected body %q, got %q", tc.name, tc.body, buf.String())
			}
		}
	}
}
