// Package memory provides an in-memory GuestCartRepository used by tests
// and local development when no Redis is available.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
	apperrors "github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/errors"
)

// GuestCartRepository stores guest carts in a process-local map. Carts are
// deep-copied through JSON on both reads and writes so callers can never
// mutate the stored state by aliasing.
type GuestCartRepository struct {
	mu    sync.RWMutex
	carts map[string][]byte
}

// NewGuestCartRepository creates an empty in-memory repository.
func NewGuestCartRepository() *GuestCartRepository {
	return &GuestCartRepository{carts: make(map[string][]byte)}
}

// Load retrieves the cart stored for a guest session.
func (r *GuestCartRepository) Load(_ context.Context, sessionID string) (*domain.Cart, error) {
	r.mu.RLock()
	data, ok := r.carts[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("guest cart", sessionID)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Save persists the cart for a guest session.
func (r *GuestCartRepository) Save(_ context.Context, sessionID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.carts[sessionID] = data
	r.mu.Unlock()
	return nil
}

// Delete removes the stored cart for a guest session.
func (r *GuestCartRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.carts, sessionID)
	r.mu.Unlock()
	return nil
}
