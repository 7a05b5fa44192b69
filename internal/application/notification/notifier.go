package notification

import (
	"context"

	"github.com/storefront/backend/internal/domain/order"
)

// Notifier delivers order notifications to users. Delivery is best-effort:
// implementations must never block the calling flow and must swallow (log)
// their own failures. A failed notification never fails a checkout or a
// lifecycle transition.
type Notifier interface {
	// NotifyOrderCreated announces a freshly placed order
	NotifyOrderCreated(ctx context.Context, o *order.Order)
	// NotifyStatusChanged announces a lifecycle transition, with the
	// cancellation/return reason where one applies
	NotifyStatusChanged(ctx context.Context, o *order.Order, newStatus order.OrderStatus, reason string)
}

// NopNotifier discards all notifications. Useful in tests.
type NopNotifier struct{}

// NotifyOrderCreated implements Notifier
func (NopNotifier) NotifyOrderCreated(context.Context, *order.Order) {}

// NotifyStatusChanged implements Notifier
func (NopNotifier) NotifyStatusChanged(context.Context, *order.Order, order.OrderStatus, string) {}
