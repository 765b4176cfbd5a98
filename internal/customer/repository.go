package customer

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("customer not found")
)

type Repository interface {
	// GetOrCreateForUser returns the customer linked to userID, creating it
	// with name and email on first use.
	GetOrCreateForUser(ctx context.Context, userID int, name, email string) (Customer, error)
	// GetOrCreateGuest returns the guest customer for email, creating it when
	// missing. The stored name is replaced with name.
	GetOrCreateGuest(ctx context.Context, email, name string) (Customer, error)
	GetByID(ctx context.Context, id int) (Customer, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu        sync.Mutex
	customers []Customer
	nextID    int
}

func NewInMemoryRepository(seed []Customer) *InMemoryRepository {
	r := &InMemoryRepository{customers: make([]Customer, 0, len(seed)), nextID: 1}
	for _, c := range seed {
		r.customers = append(r.customers, c)
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
	}
	return r
}

func (r *InMemoryRepository) GetOrCreateForUser(ctx context.Context, userID int, name, email string) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.UserID != nil && *c.UserID == userID {
			return c, nil
		}
	}
	uid := userID
	c := Customer{ID: r.nextID, UserID: &uid, Name: name, Email: email, CreatedAt: time.Now().UTC()}
	r.nextID++
	r.customers = append(r.customers, c)
	return c, nil
}

func (r *InMemoryRepository) GetOrCreateGuest(ctx context.Context, email, name string) (Customer, error) {
	email = NormalizeEmail(email)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.customers {
		if c.IsGuest() && c.Email == email {
			c.Name = name
			r.customers[i] = c
			return c, nil
		}
	}
	c := Customer{ID: r.nextID, Name: name, Email: email, CreatedAt: time.Now().UTC()}
	r.nextID++
	r.customers = append(r.customers, c)
	return c, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return Customer{}, ErrNotFound
}
