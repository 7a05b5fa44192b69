package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
)

// Repository defines persistence operations for the Order aggregate.
// Order lines are always read and written together with the order.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Order, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, o *Order) error
	// SaveWithLock persists mutable lifecycle fields with an optimistic
	// version check so concurrent transitions cannot silently overwrite
	// each other.
	SaveWithLock(ctx context.Context, o *Order) error
	// GenerateOrderNumber returns the next date-scoped order number
	GenerateOrderNumber(ctx context.Context) (string, error)
}
