package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
	apperrors "github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/errors"
)

const keyPrefix = "guest_cart:"

// GuestCartRepository implements repository.GuestCartRepository using Redis.
// Each guest session owns a single JSON blob under guest_cart:<sessionID>.
type GuestCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGuestCartRepository creates a Redis-backed guest cart repository.
// Carts expire after the given TTL of inactivity.
func NewGuestCartRepository(client *redis.Client, ttl time.Duration) *GuestCartRepository {
	return &GuestCartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Load retrieves the cart blob for a guest session.
func (r *GuestCartRepository) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	key := keyPrefix + sessionID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("guest cart", sessionID)
		}
		return nil, fmt.Errorf("redis get guest cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal guest cart: %w", err)
	}

	return &cart, nil
}

// Save persists the cart for a guest session with the configured TTL. The
// TTL refreshes on every save, so active sessions never expire mid-visit.
func (r *GuestCartRepository) Save(ctx context.Context, sessionID string, cart *domain.Cart) error {
	key := keyPrefix + sessionID

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal guest cart: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set guest cart: %w", err)
	}

	return nil
}

// Delete removes the stored cart for a guest session.
func (r *GuestCartRepository) Delete(ctx context.Context, sessionID string) error {
	key := keyPrefix + sessionID

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del guest cart: %w", err)
	}

	return nil
}
