package order

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// StockLedger is the slice of the inventory ledger the checkout needs
type StockLedger interface {
	Reserve(ctx context.Context, productID uuid.UUID, variantName string, quantity int) error
	Release(ctx context.Context, productID uuid.UUID, variantName string, quantity int) error
}

// reservation records one applied stock decrement so a failed checkout can
// compensate in reverse order
type reservation struct {
	productID   uuid.UUID
	variantName string
	quantity    int
}

// CheckoutService is the commit point that turns a cart into an order.
// Reservations are applied per line with recorded compensations: the order is
// persisted only after every reservation succeeded, and any failure releases
// what was already reserved, leaving persisted state exactly as before the
// call. No cross-product transaction is assumed. The cart is read and cleared
// under the same per-user lock that serializes cart mutations, so a
// concurrent add cannot slip between the snapshot and the clear and resurrect
// already-ordered lines.
type CheckoutService struct {
	carts       cart.Repository
	orders      order.Repository
	users       identity.UserRepository
	ledger      StockLedger
	locks       *shared.KeyedMutex
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewCheckoutService creates a new CheckoutService. locks must be the same
// KeyedMutex the cart service serializes its mutations with.
func NewCheckoutService(
	carts cart.Repository,
	orders order.Repository,
	users identity.UserRepository,
	ledger StockLedger,
	locks *shared.KeyedMutex,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:      carts,
		orders:     orders,
		users:      users,
		ledger:     ledger,
		locks:      locks,
		idemConfig: shared.DefaultIdempotencyConfig(),
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for order events
func (s *CheckoutService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetIdempotencyStore enables duplicate-checkout rejection
func (s *CheckoutService) SetIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) {
	s.idempotency = store
	s.idemConfig = cfg
}

// PlaceOrder converts the user's cart into a durable order.
//
// Sequence: validate the cart is non-empty, reserve stock per line in
// insertion order (releasing already-reserved lines in reverse order if any
// reservation fails), persist the order snapshot with status PENDING and
// payment PENDING, then clear the cart. The cart is cleared only after the
// order is durably persisted; a crash in between leaves the cart stale but
// the order intact, and clearing is safe to retry. The order-created
// notification is fire-and-forget and never fails the checkout.
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID uuid.UUID, req PlaceOrderRequest) (*OrderResponse, error) {
	if s.idempotency != nil && s.idemConfig.Enabled && req.IdempotencyKey != "" {
		fresh, err := s.idempotency.MarkProcessed(ctx, "checkout:"+req.IdempotencyKey, s.idemConfig.TTL)
		if err != nil {
			return nil, err
		}
		if !fresh {
			return nil, shared.NewDomainError("DUPLICATE_REQUEST", "Checkout with this idempotency key was already processed")
		}
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	// Hold the user's cart lock from the snapshot read through the clear.
	// Cart mutations take the same lock, so nothing can change the cart
	// between what gets ordered and what gets emptied.
	unlock := s.locks.Lock(userID.String())
	defer unlock()

	c, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, shared.ErrEmptyCart
	}

	// Reserve stock line by line in cart insertion order. On failure,
	// compensate in reverse order and surface the original error.
	reserved := make([]reservation, 0, len(c.Lines))
	for idx := range c.Lines {
		line := &c.Lines[idx]
		if err := s.ledger.Reserve(ctx, line.ProductID, line.VariantName, line.Quantity); err != nil {
			s.rollbackReservations(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, reservation{
			productID:   line.ProductID,
			variantName: line.VariantName,
			quantity:    line.Quantity,
		})
	}

	orderNumber, err := s.orders.GenerateOrderNumber(ctx)
	if err != nil {
		s.rollbackReservations(ctx, reserved)
		return nil, err
	}

	o, err := s.buildOrder(orderNumber, c, req)
	if err != nil {
		s.rollbackReservations(ctx, reserved)
		return nil, err
	}

	if err := s.orders.Save(ctx, o); err != nil {
		s.rollbackReservations(ctx, reserved)
		return nil, err
	}

	// From here the order is durable. Cart clearing and notification are
	// follow-ups whose failure must not undo or fail the checkout.
	c.Clear()
	if err := s.carts.Save(ctx, c); err != nil {
		s.logger.Error("order persisted but cart clearing failed, cart is stale",
			zap.String("order_number", o.OrderNumber),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	s.publishEvents(ctx, o)

	s.logger.Info("order placed",
		zap.String("order_number", o.OrderNumber),
		zap.String("user_id", userID.String()),
		zap.Int("line_count", len(o.Lines)),
		zap.String("total", o.TotalDiscountedPrice.String()),
	)

	resp := ToOrderResponse(o)
	return &resp, nil
}

// buildOrder snapshots the cart into an immutable order
func (s *CheckoutService) buildOrder(orderNumber string, c *cart.Cart, req PlaceOrderRequest) (*order.Order, error) {
	lines := make([]order.LineSnapshot, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, order.LineSnapshot{
			ProductID:           l.ProductID,
			ProductTitle:        l.ProductTitle,
			VariantName:         l.VariantName,
			Quantity:            l.Quantity,
			UnitPrice:           l.UnitPrice,
			UnitDiscountedPrice: l.UnitDiscountedPrice,
		})
	}
	totals := order.Totals{
		TotalPrice:           c.TotalPrice,
		TotalDiscountedPrice: c.TotalDiscountedPrice,
		TotalDiscount:        c.TotalDiscount,
		TotalItemCount:       c.TotalItemCount,
		DeliveryCharge:       c.DeliveryCharge,
	}
	return order.NewOrder(orderNumber, c.UserID, req.ShippingAddress, req.PaymentMethod, totals, lines)
}

// rollbackReservations releases reservations in reverse order. It runs on a
// context detached from the caller so an aborted request cannot strand
// reservations. Release failures are logged; there is nothing further to
// unwind.
func (s *CheckoutService) rollbackReservations(ctx context.Context, reserved []reservation) {
	ctx = context.WithoutCancel(ctx)
	for idx := len(reserved) - 1; idx >= 0; idx-- {
		r := reserved[idx]
		if err := s.ledger.Release(ctx, r.productID, r.variantName, r.quantity); err != nil {
			s.logger.Error("failed to release reserved stock during checkout rollback",
				zap.String("product_id", r.productID.String()),
				zap.String("variant", r.variantName),
				zap.Int("quantity", r.quantity),
				zap.Error(err),
			)
		}
	}
}

// publishEvents publishes the order's pending events; failures are logged,
// never propagated
func (s *CheckoutService) publishEvents(ctx context.Context, o *order.Order) {
	if s.publisher == nil {
		return
	}
	events := o.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), events...); err != nil {
		s.logger.Error("failed to publish order events",
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
	}
	o.ClearDomainEvents()
}
