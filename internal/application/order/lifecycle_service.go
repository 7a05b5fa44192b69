package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// LifecycleService drives orders through their status machine. Transitions
// are persisted with an optimistic version check so two operators racing on
// the same order cannot both win; the loser sees a concurrency conflict and
// the order is left unchanged.
type LifecycleService struct {
	orders       order.Repository
	ledger       StockLedger
	returnPolicy order.ReturnWindowPolicy
	publisher    shared.EventPublisher
	logger       *zap.Logger
	now          func() time.Time
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(orders order.Repository, ledger StockLedger, returnPolicy order.ReturnWindowPolicy, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		orders:       orders,
		ledger:       ledger,
		returnPolicy: returnPolicy,
		logger:       logger,
		now:          time.Now,
	}
}

// SetEventPublisher sets the event publisher for lifecycle events
func (s *LifecycleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetClock overrides the time source (tests)
func (s *LifecycleService) SetClock(now func() time.Time) {
	s.now = now
}

// GetByID retrieves an order by ID
func (s *LifecycleService) GetByID(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// GetByOrderNumber retrieves an order by its order number
func (s *LifecycleService) GetByOrderNumber(ctx context.Context, orderNumber string) (*OrderResponse, error) {
	o, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ListUserOrders returns a user's order history, newest first
func (s *LifecycleService) ListUserOrders(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]OrderResponse, error) {
	if filter.OrderBy == "" {
		filter = shared.DefaultFilter()
	}
	list, err := s.orders.FindByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return toResponses(list), nil
}

// ListOrders returns orders for operators, with filtering and pagination
func (s *LifecycleService) ListOrders(ctx context.Context, filter shared.Filter) (shared.Paginated[OrderResponse], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
		filter.OrderDir = "desc"
	}

	list, err := s.orders.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	total, err := s.orders.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	return shared.NewPaginated(toResponses(list), total, filter.Page, filter.PageSize), nil
}

// Place marks payment completed and moves PENDING -> PLACED. The payment
// collaborator supplies the reference it settled under.
func (s *LifecycleService) Place(ctx context.Context, orderID uuid.UUID, paymentReference string) (*OrderResponse, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.Place(paymentReference)
	})
}

// Confirm moves PLACED -> CONFIRMED
func (s *LifecycleService) Confirm(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.Confirm()
	})
}

// Ship moves CONFIRMED -> SHIPPED
func (s *LifecycleService) Ship(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.Ship()
	})
}

// Deliver moves SHIPPED -> DELIVERED, stamping the delivery date and settling
// cash-on-delivery payments
func (s *LifecycleService) Deliver(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.Deliver(s.now())
	})
}

// Cancel cancels an order in any pre-delivery state, recording the reason.
// Stock reserved by an order that never shipped returns to sale.
func (s *LifecycleService) Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	restock := o.Status != order.OrderStatusShipped

	if err := o.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	if restock {
		s.restock(ctx, o)
	}

	s.publishEvents(ctx, o)

	resp := ToOrderResponse(o)
	return &resp, nil
}

// Return accepts a return request for a delivered order inside the return
// window, recording the reason
func (s *LifecycleService) Return(ctx context.Context, orderID uuid.UUID, reason string) (*OrderResponse, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.Return(reason, s.now(), s.returnPolicy)
	})
}

// transition runs a lifecycle step: load, mutate, save with version check,
// publish. Guard violations leave the order untouched.
func (s *LifecycleService) transition(ctx context.Context, orderID uuid.UUID, mutate func(*order.Order) error) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := mutate(o); err != nil {
		return nil, err
	}

	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, o)

	s.logger.Info("order transitioned",
		zap.String("order_number", o.OrderNumber),
		zap.String("status", o.Status.String()),
	)

	resp := ToOrderResponse(o)
	return &resp, nil
}

// restock returns a cancelled order's reserved stock to sale. The ledger
// only performs the arithmetic; failures are logged for operator follow-up,
// the cancellation itself stands.
func (s *LifecycleService) restock(ctx context.Context, o *order.Order) {
	ctx = context.WithoutCancel(ctx)
	for _, line := range o.Lines {
		if err := s.ledger.Release(ctx, line.ProductID, line.VariantName, line.Quantity); err != nil {
			s.logger.Error("failed to restock cancelled order line",
				zap.String("order_number", o.OrderNumber),
				zap.String("product_id", line.ProductID.String()),
				zap.Error(err),
			)
		}
	}
}

// publishEvents publishes the order's pending events; failures are logged,
// never propagated
func (s *LifecycleService) publishEvents(ctx context.Context, o *order.Order) {
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

func toResponses(list []order.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(list))
	for idx := range list {
		out = append(out, ToOrderResponse(&list[idx]))
	}
	return out
}
