package notification

import (
	"context"

	"go.uber.org/zap"

	appnotification "github.com/storefront/backend/internal/application/notification"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// OrderEventsHandler routes order domain events to the Notifier. It loads the
// order fresh so the notification reflects persisted state, and it never
// returns an error for notification failures; the bus only sees failures it
// can do nothing about.
type OrderEventsHandler struct {
	orders   order.Repository
	notifier appnotification.Notifier
	logger   *zap.Logger
}

// NewOrderEventsHandler creates a new OrderEventsHandler
func NewOrderEventsHandler(orders order.Repository, notifier appnotification.Notifier, logger *zap.Logger) *OrderEventsHandler {
	return &OrderEventsHandler{
		orders:   orders,
		notifier: notifier,
		logger:   logger,
	}
}

// EventTypes implements shared.EventHandler
func (h *OrderEventsHandler) EventTypes() []string {
	return []string{order.EventTypeOrderCreated, order.EventTypeOrderStatusChanged}
}

// Handle implements shared.EventHandler
func (h *OrderEventsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *order.OrderCreatedEvent:
		o, err := h.orders.FindByID(ctx, e.OrderID)
		if err != nil {
			h.logger.Warn("order not found for created notification",
				zap.String("order_id", e.OrderID.String()),
				zap.Error(err),
			)
			return nil
		}
		h.notifier.NotifyOrderCreated(ctx, o)

	case *order.OrderStatusChangedEvent:
		o, err := h.orders.FindByID(ctx, e.OrderID)
		if err != nil {
			h.logger.Warn("order not found for status notification",
				zap.String("order_id", e.OrderID.String()),
				zap.Error(err),
			)
			return nil
		}
		h.notifier.NotifyStatusChanged(ctx, o, e.NewStatus, e.Reason)
	}

	return nil
}

var _ shared.EventHandler = (*OrderEventsHandler)(nil)
