// Package guest implements the cart for visitors who are not signed in.
// State lives in a per-session repository record; every mutation runs a full
// load-modify-save cycle and broadcasts the resulting cart on the event bus.
package guest

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/bus"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/repository"
	apperrors "github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/errors"
)

// Store manages guest carts. All mutations are serialized under one mutex so
// concurrent requests for the same session cannot interleave their
// load-modify-save cycles.
type Store struct {
	mu     sync.Mutex
	repo   repository.GuestCartRepository
	bus    *bus.Bus
	logger *slog.Logger
}

// NewStore creates a guest cart store.
func NewStore(repo repository.GuestCartRepository, b *bus.Bus, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{repo: repo, bus: b, logger: logger}
}

// Read returns the current cart for a session. A missing or unreadable
// record yields a fresh empty cart, never an error: the guest cart degrades
// to empty rather than blocking the storefront.
func (s *Store) Read(ctx context.Context, sessionID string) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, sessionID)
}

// ItemCount returns the total quantity across all lines for a session.
func (s *Store) ItemCount(ctx context.Context, sessionID string) int {
	return s.Read(ctx, sessionID).ItemCount()
}

// Add puts an item in the cart. When the same catalogue entry is already
// present its quantity accumulates, but the price, name and image captured
// on first add stay as they were; repeat adds never refresh the snapshot.
// A quantity below 1 adds a single unit.
func (s *Store) Add(ctx context.Context, sessionID string, item domain.CartItem) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.Quantity < 1 {
		item.Quantity = 1
	}
	item = canonicalize(item)

	cart := s.load(ctx, sessionID)
	if idx := cart.FindItemIndex(item.Key()); idx >= 0 {
		cart.Items[idx].Quantity += item.Quantity
	} else {
		cart.Items = append(cart.Items, item)
	}
	cart.RecomputeTotals()

	s.persist(ctx, sessionID, cart)
	s.bus.Publish(cart)
	return cart
}

// UpdateQuantity overwrites a line's quantity. A quantity of zero or less
// removes the line. Targeting a line that is not in the cart changes
// nothing, but the unchanged cart is still broadcast and returned.
func (s *Store) UpdateQuantity(ctx context.Context, sessionID string, key domain.ItemKey, quantity int) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.load(ctx, sessionID)
	if idx := cart.FindItemIndex(key); idx >= 0 {
		if quantity <= 0 {
			cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		} else {
			cart.Items[idx].Quantity = quantity
		}
		cart.RecomputeTotals()
	}

	s.persist(ctx, sessionID, cart)
	s.bus.Publish(cart)
	return cart
}

// Remove deletes a line from the cart. Removing an absent line is a no-op
// that still broadcasts the current state.
func (s *Store) Remove(ctx context.Context, sessionID string, key domain.ItemKey) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.load(ctx, sessionID)
	if idx := cart.FindItemIndex(key); idx >= 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		cart.RecomputeTotals()
	}

	s.persist(ctx, sessionID, cart)
	s.bus.Publish(cart)
	return cart
}

// Clear deletes the session's cart record outright. Clearing does not
// broadcast; it runs at the end of checkout, when cart consumers are
// already being torn down.
func (s *Store) Clear(ctx context.Context, sessionID string) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("guest cart delete failed",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
	}
	return domain.NewEmptyCart()
}

// load fetches the session's cart, normalizing any failure to an empty
// cart. Unreadable blobs are logged before being discarded.
func (s *Store) load(ctx context.Context, sessionID string) *domain.Cart {
	cart, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("guest cart unreadable, starting fresh",
				slog.String("session_id", sessionID),
				slog.Any("error", err),
			)
		}
		return domain.NewEmptyCart()
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	cart.RecomputeTotals()
	return cart
}

// persist writes the cart back. Persistence failures are logged and
// swallowed: the in-memory result is still returned and broadcast, so a
// Redis blip costs durability, not the user's current view.
func (s *Store) persist(ctx context.Context, sessionID string, cart *domain.Cart) {
	if err := s.repo.Save(ctx, sessionID, cart); err != nil {
		s.logger.Warn("guest cart save failed",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
	}
}

// canonicalize pins the line to exactly one catalogue reference, chosen by
// its item type.
func canonicalize(item domain.CartItem) domain.CartItem {
	key := item.Key()
	item.ItemType = key.ItemType
	id := key.ID
	if key.ItemType == domain.ItemTypeMedicine {
		item.MedicineID = &id
		item.ProductID = nil
	} else {
		item.ProductID = &id
		item.MedicineID = nil
	}
	return item
}
