package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

var ErrMalformedCart = errors.New("malformed cart cookie")

// GuestCart maps product id to quantity for visitors without a session.
type GuestCart map[int]int

type guestEntry struct {
	Quantity int `json:"quantity"`
}

// DecodeGuestCart parses the cart cookie, {"<productId>": {"quantity": n}}.
// An empty cookie is an empty cart.
func DecodeGuestCart(raw string) (GuestCart, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return GuestCart{}, nil
	}
	if strings.HasPrefix(raw, "%") {
		unescaped, err := url.QueryUnescape(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCart, err)
		}
		raw = unescaped
	}

	var entries map[string]guestEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCart, err)
	}
	cart := make(GuestCart, len(entries))
	for key, e := range entries {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: product id %q", ErrMalformedCart, key)
		}
		cart[id] = e.Quantity
	}
	return cart, nil
}

// Encode is the inverse of DecodeGuestCart.
func (g GuestCart) Encode() string {
	entries := make(map[string]guestEntry, len(g))
	for id, qty := range g {
		entries[strconv.Itoa(id)] = guestEntry{Quantity: qty}
	}
	b, _ := json.Marshal(entries)
	return string(b)
}

// ProductIDs returns the ids with a positive quantity, ascending.
func (g GuestCart) ProductIDs() []int {
	ids := make([]int, 0, len(g))
	for id, qty := range g {
		if qty > 0 {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}
