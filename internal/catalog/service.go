package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/Rozimuxammed/mlm-marketing/internal/errors"
	"github.com/Rozimuxammed/mlm-marketing/internal/upstream"
)

// DefaultTTL is how long a fetched catalog stays fresh.
const DefaultTTL = time.Minute

// Backend is the slice of the MLM API the catalog needs.
type Backend interface {
	Products(ctx context.Context) ([]upstream.Product, error)
}

// Service serves the product catalog with a short-lived cache. The catalog
// is public and changes rarely; when a refresh fails a stale copy is served
// over an error, so browsing survives backend hiccups.
type Service struct {
	mu        sync.Mutex
	cached    []upstream.Product
	fetchedAt time.Time

	backend Backend
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a catalog service. A non-positive ttl falls back to
// DefaultTTL.
func NewService(backend Backend, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		backend: backend,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Products returns the catalog, from cache when fresh. A failed refresh
// falls back to the stale copy when one exists.
func (s *Service) Products(ctx context.Context) ([]upstream.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.cached, nil
	}

	products, err := s.backend.Products(ctx)
	if err != nil {
		if s.cached != nil {
			s.logger.Warn("catalog refresh failed, serving stale copy",
				slog.String("error", err.Error()),
			)
			return s.cached, nil
		}
		return nil, err
	}

	s.cached = products
	s.fetchedAt = s.now()
	return products, nil
}

// Find returns the catalog entry for productID, fetching if needed.
func (s *Service) Find(ctx context.Context, productID string) (*upstream.Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == productID {
			return &products[i], nil
		}
	}
	return nil, apperrors.NotFound("product", productID)
}
