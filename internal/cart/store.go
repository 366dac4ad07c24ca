package cart

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Rozimuxammed/mlm-marketing/internal/domain"
	apperrors "github.com/Rozimuxammed/mlm-marketing/internal/errors"
	"github.com/Rozimuxammed/mlm-marketing/internal/event"
	"github.com/Rozimuxammed/mlm-marketing/internal/storage"
)

// Summary is a read snapshot of the cart with its derived totals. Totals are
// recomputed from the lines on every snapshot, never stored.
type Summary struct {
	Lines      []domain.CartLine `json:"lines"`
	ItemCount  int               `json:"item_count"`
	TotalMinor int64             `json:"total_minor"`
	TotalCoin  int64             `json:"total_coin"`
}

// Store owns the pre-checkout cart. Mutations are serialized by a mutex and
// written through to durable storage on every change; a storage failure
// downgrades the cart to memory-only but never fails the mutation.
type Store struct {
	mu   sync.Mutex
	cart domain.Cart

	kv     storage.Store
	events *event.Producer
	logger *slog.Logger
}

// NewStore creates an empty cart store. Call Restore to hydrate from
// durable storage.
func NewStore(kv storage.Store, events *event.Producer, logger *slog.Logger) *Store {
	return &Store{
		kv:     kv,
		events: events,
		logger: logger,
	}
}

// Restore loads the persisted cart lines. A missing key means an empty cart;
// an unreadable or undecodable record is dropped and the cart starts empty.
// Restore never fails.
func (s *Store) Restore(ctx context.Context) {
	data, err := s.kv.Get(ctx, storage.KeyCartLines)
	if err != nil {
		return
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		s.logger.Warn("persisted cart undecodable, starting empty",
			slog.String("error", err.Error()),
		)
		if err := s.kv.Delete(ctx, storage.KeyCartLines); err != nil {
			s.logger.Warn("drop persisted cart failed", slog.String("error", err.Error()))
		}
		return
	}

	// Defend the quantity floor against records written by older builds.
	valid := lines[:0]
	for _, line := range lines {
		if line.ProductID != "" && line.Quantity >= 1 {
			valid = append(valid, line)
		}
	}

	s.mu.Lock()
	s.cart.Lines = valid
	s.mu.Unlock()

	s.logger.Info("cart restored", slog.Int("lines", len(valid)))
}

// Snapshot returns the current lines and totals.
func (s *Store) Snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

// Add merges one unit of the product into the cart.
func (s *Store) Add(ctx context.Context, line domain.CartLine) Summary {
	s.mu.Lock()
	s.cart.AddItem(line)
	sum := s.summaryLocked()
	s.persistLocked(ctx, sum)
	s.mu.Unlock()

	s.publishUpdated(ctx, sum)
	return sum
}

// SetQuantity overwrites a line's quantity; below 1 removes the line, an
// unknown product is a no-op.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) Summary {
	s.mu.Lock()
	s.cart.SetQuantity(productID, quantity)
	sum := s.summaryLocked()
	s.persistLocked(ctx, sum)
	s.mu.Unlock()

	s.publishUpdated(ctx, sum)
	return sum
}

// Remove deletes the line for productID regardless of its quantity.
func (s *Store) Remove(ctx context.Context, productID string) Summary {
	s.mu.Lock()
	s.cart.RemoveItem(productID)
	sum := s.summaryLocked()
	s.persistLocked(ctx, sum)
	s.mu.Unlock()

	s.publishUpdated(ctx, sum)
	return sum
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) Summary {
	s.mu.Lock()
	s.cart.Clear()
	sum := s.summaryLocked()
	s.persistLocked(ctx, sum)
	s.mu.Unlock()

	s.publishUpdated(ctx, sum)
	return sum
}

// Checkout hands the cart off and clears it in one step. The contents and
// totals captured at the moment of the call are returned to the caller for
// the purchase flow; an empty cart is rejected and nothing changes.
func (s *Store) Checkout(ctx context.Context, userID string) (Summary, error) {
	s.mu.Lock()
	if len(s.cart.Lines) == 0 {
		s.mu.Unlock()
		return Summary{}, apperrors.InvalidInput("cart is empty")
	}
	sum := s.summaryLocked()
	s.cart.Clear()
	s.persistLocked(ctx, Summary{})
	s.mu.Unlock()

	s.events.Publish(ctx, event.TopicCartCheckout, userID, event.CheckoutData{
		ItemCount:  sum.ItemCount,
		TotalMinor: sum.TotalMinor,
		TotalCoin:  sum.TotalCoin,
	})

	s.logger.Info("cart checked out",
		slog.Int("items", sum.ItemCount),
		slog.Int64("total_minor", sum.TotalMinor),
		slog.Int64("total_coin", sum.TotalCoin),
	)

	return sum, nil
}

// summaryLocked builds a Summary from the current lines. Caller holds mu.
func (s *Store) summaryLocked() Summary {
	return Summary{
		Lines:      s.cart.Clone().Lines,
		ItemCount:  s.cart.ItemCount(),
		TotalMinor: s.cart.TotalMinor(),
		TotalCoin:  s.cart.TotalCoin(),
	}
}

// persistLocked writes the lines through to durable storage while the
// caller still holds mu, so concurrent mutations cannot land their durable
// snapshots out of order. Failures are logged; the in-memory cart is already
// updated and stays the source of truth.
func (s *Store) persistLocked(ctx context.Context, sum Summary) {
	if len(sum.Lines) == 0 {
		if err := s.kv.Delete(ctx, storage.KeyCartLines); err != nil {
			s.logger.Warn("clear persisted cart failed", slog.String("error", err.Error()))
		}
		return
	}

	data, err := json.Marshal(sum.Lines)
	if err != nil {
		s.logger.Warn("marshal cart failed", slog.String("error", err.Error()))
		return
	}
	if err := s.kv.Set(ctx, storage.KeyCartLines, data); err != nil {
		s.logger.Warn("persist cart failed", slog.String("error", err.Error()))
	}
}

func (s *Store) publishUpdated(ctx context.Context, sum Summary) {
	s.events.Publish(ctx, event.TopicCartUpdated, "", event.CartUpdatedData{
		ItemCount:  sum.ItemCount,
		TotalMinor: sum.TotalMinor,
		TotalCoin:  sum.TotalCoin,
	})
}
