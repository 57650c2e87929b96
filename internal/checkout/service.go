package checkout

import (
	"context"
	"log/slog"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/domain"
	apperrors "github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/errors"
)

// Service coordinates the checkout selection lifecycle against the current
// cart state. The cart itself is supplied by the caller; the service owns
// only the selection.
type Service struct {
	selections *SelectionStore
	logger     *slog.Logger
}

// NewService creates a checkout service.
func NewService(selections *SelectionStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{selections: selections, logger: logger}
}

// View returns the reconciled selection and its summary for the given cart,
// persisting the reconciled state so later requests see the same picks.
func (s *Service) View(ctx context.Context, ownerID string, cart *domain.Cart) (Selection, Summary) {
	sel := s.reconciled(ctx, ownerID, cart)
	s.save(ctx, ownerID, sel)
	return sel, Summarize(cart, sel)
}

// Select replaces the stored selection with the given keys. Keys that do
// not match a cart line are dropped rather than rejected, since the cart
// may have changed under the client.
func (s *Service) Select(ctx context.Context, ownerID string, cart *domain.Cart, keys []string) (Selection, Summary) {
	requested := FromKeys(keys)
	current := cart.Keys()

	sel := make(Selection)
	for key := range requested {
		if _, ok := current[key]; ok {
			sel[key] = struct{}{}
		}
	}

	s.save(ctx, ownerID, sel)
	return sel, Summarize(cart, sel)
}

// Begin starts checkout for the currently selected lines. It fails with an
// invalid-input error, and writes nothing, when the selection resolves to
// no items. On success the resolved selection is persisted as the handoff
// record for order placement and the selected lines are returned.
func (s *Service) Begin(ctx context.Context, ownerID string, cart *domain.Cart) (Summary, error) {
	sel := s.reconciled(ctx, ownerID, cart)
	summary := Summarize(cart, sel)
	if len(summary.Items) == 0 {
		return Summary{}, apperrors.InvalidInput("no items selected for checkout")
	}

	s.save(ctx, ownerID, sel)
	return summary, nil
}

// Reset discards the stored selection, typically after order placement.
func (s *Service) Reset(ctx context.Context, ownerID string) {
	if err := s.selections.Delete(ctx, ownerID); err != nil {
		s.logger.Warn("checkout selection delete failed",
			slog.String("owner_id", ownerID),
			slog.Any("error", err),
		)
	}
}

// reconciled loads the stored selection and aligns it with the cart. A
// broken selection record degrades to a first visit.
func (s *Service) reconciled(ctx context.Context, ownerID string, cart *domain.Cart) Selection {
	prev, err := s.selections.Load(ctx, ownerID)
	if err != nil {
		s.logger.Warn("checkout selection unreadable",
			slog.String("owner_id", ownerID),
			slog.Any("error", err),
		)
		prev = Selection{}
	}
	return Reconcile(prev, cart)
}

func (s *Service) save(ctx context.Context, ownerID string, sel Selection) {
	if err := s.selections.Save(ctx, ownerID, sel); err != nil {
		s.logger.Warn("checkout selection save failed",
			slog.String("owner_id", ownerID),
			slog.Any("error", err),
		)
	}
}
