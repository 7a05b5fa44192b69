package cart

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for the Cart aggregate.
// Lines are always read and written together with the cart.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Cart, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
}
