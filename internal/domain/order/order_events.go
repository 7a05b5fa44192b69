package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated       = "OrderCreated"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
)

// OrderLineInfo represents line information for events
type OrderLineInfo struct {
	ProductID   uuid.UUID `json:"product_id"`
	VariantName string    `json:"variant_name,omitempty"`
	Quantity    int       `json:"quantity"`
}

// OrderCreatedEvent is raised when a checkout produces a new order
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID              uuid.UUID       `json:"order_id"`
	OrderNumber          string          `json:"order_number"`
	UserID               uuid.UUID       `json:"user_id"`
	TotalDiscountedPrice decimal.Decimal `json:"total_discounted_price"`
	Lines                []OrderLineInfo `json:"lines"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	lines := make([]OrderLineInfo, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineInfo{
			ProductID:   l.ProductID,
			VariantName: l.VariantName,
			Quantity:    l.Quantity,
		})
	}
	return &OrderCreatedEvent{
		BaseDomainEvent:      shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderID:              o.ID,
		OrderNumber:          o.OrderNumber,
		UserID:               o.UserID,
		TotalDiscountedPrice: o.TotalDiscountedPrice,
		Lines:                lines,
	}
}

// OrderStatusChangedEvent is raised on every lifecycle transition
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID     `json:"order_id"`
	OrderNumber   string        `json:"order_number"`
	UserID        uuid.UUID     `json:"user_id"`
	NewStatus     OrderStatus   `json:"new_status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Reason        string        `json:"reason,omitempty"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, reason string) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		NewStatus:       o.Status,
		PaymentStatus:   o.PaymentStatus,
		Reason:          reason,
	}
}
