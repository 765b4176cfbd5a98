package product

import "github.com/shopspring/decimal"

// Product is an item for sale. Products are managed by an admin process;
// customers only ever read them.
type Product struct {
	ID      int             `json:"id"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Digital bool            `json:"digital"`
	Image   *string         `json:"image,omitempty"`
}

// ImageURL returns the image reference or an empty string when none is set.
func (p Product) ImageURL() string {
	if p.Image == nil {
		return ""
	}
	return *p.Image
}

func ptrString(s string) *string { return &s }

// SampleProducts is the catalogue seeded by the dev reset endpoint.
func SampleProducts() []Product {
	return []Product{
		{Name: "Headphones", Price: decimal.RequireFromString("39.99"), Image: ptrString("/images/headphones.jpg")},
		{Name: "Mount of Olives Book", Price: decimal.RequireFromString("14.99"), Image: ptrString("/images/book.jpg")},
		{Name: "Source Code", Price: decimal.RequireFromString("20.00"), Digital: true, Image: ptrString("/images/sourcecode.jpg")},
		{Name: "Watch", Price: decimal.RequireFromString("29.99"), Image: ptrString("/images/watch.jpg")},
		{Name: "Shoes", Price: decimal.RequireFromString("49.99"), Image: ptrString("/images/shoes.jpg")},
		{Name: "T-Shirt", Price: decimal.RequireFromString("14.99"), Image: ptrString("/images/shirt.jpg")},
	}
}
