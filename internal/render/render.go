package render

import "github.com/gofiber/fiber/v2"

// Renderer turns a named page and its data into a response. HTML templating
// lives outside this service; implementations adapt to whatever renders pages.
type Renderer interface {
	Render(c *fiber.Ctx, status int, page string, data fiber.Map) error
}

// JSON renders page models as {"page": name, "data": {...}}.
type JSON struct{}

func NewJSON() *JSON {
	return &JSON{}
}

func (JSON) Render(c *fiber.Ctx, status int, page string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	return c.Status(status).JSON(fiber.Map{"page": page, "data": data})
}

// Page names shared by the handlers.
const (
	PageStore        = "store/store"
	PageCart         = "store/cart"
	PageCheckout     = "store/checkout"
	PageLogin        = "store/login"
	PageRegistration = "store/registration"
	PageError        = "error"
)

// Error renders the generic error page.
func Error(r Renderer, c *fiber.Ctx, status int, message string) error {
	return r.Render(c, status, PageError, fiber.Map{"error_message": message})
}
