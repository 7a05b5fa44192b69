package notification

import (
	"context"

	"go.uber.org/zap"

	appnotification "github.com/storefront/backend/internal/application/notification"
	"github.com/storefront/backend/internal/domain/order"
)

// LogNotifier writes notifications to the application log. It stands in for
// a real delivery channel (email, SMS) and is the default wiring.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notifier")}
}

// NotifyOrderCreated implements Notifier
func (n *LogNotifier) NotifyOrderCreated(ctx context.Context, o *order.Order) {
	n.logger.Info("order confirmation notification",
		zap.String("order_number", o.OrderNumber),
		zap.String("user_id", o.UserID.String()),
		zap.String("total", o.TotalDiscountedPrice.String()),
		zap.Int("item_count", o.TotalItemCount),
	)
}

// NotifyStatusChanged implements Notifier
func (n *LogNotifier) NotifyStatusChanged(ctx context.Context, o *order.Order, newStatus order.OrderStatus, reason string) {
	fields := []zap.Field{
		zap.String("order_number", o.OrderNumber),
		zap.String("user_id", o.UserID.String()),
		zap.String("status", newStatus.String()),
	}
	if reason != "" {
		fields = append(fields, zap.String("reason", reason))
	}
	n.logger.Info("order status notification", fields...)
}

var _ appnotification.Notifier = (*LogNotifier)(nil)
