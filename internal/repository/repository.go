package repository

import (
	"context"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
)

// GuestCartRepository defines persistence for guest carts, keyed by the
// anonymous session identifier from the guest session cookie.
type GuestCartRepository interface {
	// Load retrieves the cart stored for a guest session. Returns an error
	// wrapping apperrors.ErrNotFound when no cart exists, and a parse error
	// when the stored blob is unreadable.
	Load(ctx context.Context, sessionID string) (*domain.Cart, error)

	// Save persists the cart for a guest session, overwriting any existing
	// record.
	Save(ctx context.Context, sessionID string, cart *domain.Cart) error

	// Delete removes the stored cart for a guest session. Deleting a
	// session with no cart is not an error.
	Delete(ctx context.Context, sessionID string) error
}
