package order

import "time"

// Order is a customer's cart until it is completed. A customer has at most one
// open (incomplete) order; once Complete is set the order is never modified.
type Order struct {
	ID            int       `json:"id"`
	CustomerID    int       `json:"customerId"`
	DateOrdered   time.Time `json:"dateOrdered"`
	Complete      bool      `json:"complete"`
	TransactionID string    `json:"transactionId,omitempty"`
}

// Item is a line of an order. There is at most one item per (order, product)
// and an item whose quantity drops to zero is deleted.
type Item struct {
	ID        int       `json:"id"`
	OrderID   int       `json:"orderId"`
	ProductID int       `json:"productId"`
	Quantity  int       `json:"quantity"`
	DateAdded time.Time `json:"dateAdded"`
}

// ShippingAddress is recorded when a completed order contains physical goods.
type ShippingAddress struct {
	ID         int       `json:"id"`
	CustomerID int       `json:"customerId"`
	OrderID    int       `json:"orderId"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Zipcode    string    `json:"zipcode"`
	DateAdded  time.Time `json:"dateAdded"`
}
