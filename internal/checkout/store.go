package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const selectionPrefix = "checkout_selection:"

// SelectionStore persists checkout selections in Redis, keyed by cart
// owner (guest session id or authenticated user id). Selections are
// short-lived scratch state, so the TTL is much shorter than the guest
// cart's.
type SelectionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSelectionStore creates a Redis-backed selection store.
func NewSelectionStore(client *redis.Client, ttl time.Duration) *SelectionStore {
	return &SelectionStore{client: client, ttl: ttl}
}

// Load retrieves the stored selection. A missing or unreadable record
// yields an empty selection; reconciliation treats that as a first visit.
func (s *SelectionStore) Load(ctx context.Context, ownerID string) (Selection, error) {
	data, err := s.client.Get(ctx, selectionPrefix+ownerID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Selection{}, nil
		}
		return nil, fmt.Errorf("redis get checkout selection: %w", err)
	}

	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return Selection{}, nil
	}
	return FromKeys(keys), nil
}

// Save persists the selection with the configured TTL.
func (s *SelectionStore) Save(ctx context.Context, ownerID string, sel Selection) error {
	data, err := json.Marshal(sel.Keys())
	if err != nil {
		return fmt.Errorf("marshal checkout selection: %w", err)
	}
	if err := s.client.Set(ctx, selectionPrefix+ownerID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set checkout selection: %w", err)
	}
	return nil
}

// Delete removes the stored selection.
func (s *SelectionStore) Delete(ctx context.Context, ownerID string) error {
	if err := s.client.Del(ctx, selectionPrefix+ownerID).Err(); err != nil {
		return fmt.Errorf("redis del checkout selection: %w", err)
	}
	return nil
}
