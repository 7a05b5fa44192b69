package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
)

// ProductRepository defines persistence operations for the Product aggregate
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByCode(ctx context.Context, code string) (*Product, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, product *Product) error
	// SaveWithLock persists stock-bearing fields with an optimistic version
	// check. Returns shared.ErrConcurrencyConflict semantics (a DomainError
	// with code CONCURRENCY_CONFLICT) when another writer got there first.
	SaveWithLock(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}
