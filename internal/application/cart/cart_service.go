package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// CartService handles cart mutations. Mutations for a single user are
// serialized through a per-user lock so concurrent add/remove requests
// cannot interleave and corrupt the derived totals. The lock is shared with
// the checkout, which reads and clears the cart under the same key.
type CartService struct {
	carts    cart.Repository
	products catalog.ProductRepository
	policy   cart.DeliveryChargePolicy
	locks    *shared.KeyedMutex
	logger   *zap.Logger
}

// NewCartService creates a new CartService
func NewCartService(carts cart.Repository, products catalog.ProductRepository, policy cart.DeliveryChargePolicy, locks *shared.KeyedMutex, logger *zap.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		policy:   policy,
		locks:    locks,
		logger:   logger,
	}
}

// lockUser acquires the lock serializing one user's cart operations and
// returns its unlock function
func (s *CartService) lockUser(userID uuid.UUID) func() {
	return s.locks.Lock(userID.String())
}

// GetCart returns the user's cart, creating an empty one if the user has
// none yet (carts are created lazily on first access).
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*CartResponse, error) {
	c, err := s.findOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToCartResponse(c)
	return &resp, nil
}

// AddLine adds a product to the user's cart and recomputes totals
func (s *CartService) AddLine(ctx context.Context, userID uuid.UUID, req AddLineRequest) (*CartResponse, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	c, err := s.findOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	if _, err := c.AddLine(product, req.VariantName, req.Quantity, s.policy); err != nil {
		return nil, err
	}

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Debug("cart line added",
		zap.String("user_id", userID.String()),
		zap.String("product_id", req.ProductID.String()),
		zap.Int("quantity", req.Quantity),
	)

	resp := ToCartResponse(c)
	return &resp, nil
}

// UpdateLineQuantity sets a line's quantity, re-deriving prices from the
// current product pricing, and recomputes totals
func (s *CartService) UpdateLineQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*CartResponse, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	c, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	line := c.FindLine(lineID)
	if line == nil {
		return nil, shared.NewDomainError("LINE_NOT_FOUND", "Cart line not found")
	}

	product, err := s.products.FindByID(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}

	if err := c.UpdateLineQuantity(lineID, quantity, product, s.policy); err != nil {
		return nil, err
	}

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}

	resp := ToCartResponse(c)
	return &resp, nil
}

// RemoveLine removes a line from the user's cart and recomputes totals
func (s *CartService) RemoveLine(ctx context.Context, userID, lineID uuid.UUID) (*CartResponse, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	c, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := c.RemoveLine(lineID, s.policy); err != nil {
		return nil, err
	}

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}

	resp := ToCartResponse(c)
	return &resp, nil
}

// Clear empties the user's cart. Clearing is idempotent, so a retry after a
// crashed checkout is always safe.
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	unlock := s.lockUser(userID)
	defer unlock()

	c, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}

	c.Clear()
	return s.carts.Save(ctx, c)
}

// findOrCreate loads the user's cart or lazily creates an empty one
func (s *CartService) findOrCreate(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	c, err := s.carts.FindByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	c, err = cart.NewCart(userID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
