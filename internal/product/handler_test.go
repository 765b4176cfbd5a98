package product

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func makeApp(allowReset bool, seed []Product) (*fiber.App, *InMemoryRepository) {
	repo := NewInMemoryRepository(seed)
	h := NewHandler(NewService(repo), allowReset)
	app := fiber.New()
	h.RegisterPublicRoutes(app)
	return app, repo
}

func TestProductRoutes(t *testing.T) {
	seed := []Product{
		{ID: 12, Name: "Watch", Price: decimal.RequireFromString("29.99")},
		{ID: 3, Name: "Source Code", Price: decimal.RequireFromString("20.00"), Digital: true},
	}
	app, _ := makeApp(false, seed)

	routes := map[string]bool{}
	for _, grp := range app.Stack() {
		for _, r := range grp {
			routes[r.Path] = true
		}
	}
	if !routes["/api/v1/products"] || !routes["/api/v1/product/:id<int>"] {
		t.Fatalf("expected product routes to be registered, got %v", routes)
	}

	res, err := app.Test(httptest.NewRequest("GET", "/api/v1/products", nil))
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}
	var list []Product
	if err := json.NewDecoder(res.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 || list[0].ID != 3 {
		t.Fatalf("expected products ordered by id, got %+v", list)
	}

	res2, _ := app.Test(httptest.NewRequest("GET", "/api/v1/product/12", nil))
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res2.StatusCode)
	}
	b, _ := io.ReadAll(res2.Body)
	if !strings.Contains(string(b), `"price":"29.99"`) {
		t.Fatalf("expected decimal price in body, got %s", string(b))
	}

	res3, _ := app.Test(httptest.NewRequest("GET", "/api/v1/product/99", nil))
	if res3.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for missing product, got %d", res3.StatusCode)
	}
}

func TestResetProducts_Gated(t *testing.T) {
	app, _ := makeApp(false, nil)
	res, _ := app.Test(httptest.NewRequest("POST", "/dev/reset-products", nil))
	if res.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 when reset is disabled, got %d", res.StatusCode)
	}
}

func TestResetProducts_SeedsSampleCatalogue(t *testing.T) {
	app, repo := makeApp(true, []Product{{ID: 1, Name: "old"}})

	res, err := app.Test(httptest.NewRequest("POST", "/dev/reset-products", nil))
	if err != nil {
		t.Fatalf("reset request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}

	all, _ := repo.List(context.Background())
	if len(all) != len(SampleProducts()) {
		t.Fatalf("expected %d seeded products, got %d", len(SampleProducts()), len(all))
	}
	for _, p := range all {
		if p.Name == "old" {
			t.Fatalf("reset must drop existing products")
		}
	}

	req := httptest.NewRequest("POST", "/dev/reset-products", strings.NewReader(`[]`))
	req.Header.Set("Content-Type", "application/json")
	app.Test(req)
	all, _ = repo.List(context.Background())
	if len(all) != 0 {
		t.Fatalf("explicit empty list should clear products, got %d", len(all))
	}
}
