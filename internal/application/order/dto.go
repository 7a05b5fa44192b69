package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// PlaceOrderRequest carries the checkout input
type PlaceOrderRequest struct {
	ShippingAddress valueobject.Address
	PaymentMethod   order.PaymentMethod
	// IdempotencyKey, when set, rejects replays of the same checkout
	// while the key is live
	IdempotencyKey string
}

// OrderLineResponse represents a frozen order line in service responses
type OrderLineResponse struct {
	ID                  uuid.UUID `json:"id"`
	ProductID           uuid.UUID `json:"product_id"`
	ProductTitle        string    `json:"product_title"`
	VariantName         string    `json:"variant_name,omitempty"`
	Quantity            int       `json:"quantity"`
	UnitPrice           string    `json:"unit_price"`
	UnitDiscountedPrice string    `json:"unit_discounted_price"`
}

// OrderResponse represents an order in service responses
type OrderResponse struct {
	ID                   uuid.UUID           `json:"id"`
	OrderNumber          string              `json:"order_number"`
	UserID               uuid.UUID           `json:"user_id"`
	ShippingAddress      valueobject.Address `json:"shipping_address"`
	Lines                []OrderLineResponse `json:"lines"`
	TotalPrice           string              `json:"total_price"`
	TotalDiscountedPrice string              `json:"total_discounted_price"`
	TotalDiscount        string              `json:"total_discount"`
	TotalItemCount       int                 `json:"total_item_count"`
	DeliveryCharge       string              `json:"delivery_charge"`
	Status               order.OrderStatus   `json:"status"`
	PaymentStatus        order.PaymentStatus `json:"payment_status"`
	PaymentMethod        order.PaymentMethod `json:"payment_method"`
	PaymentReference     string              `json:"payment_reference,omitempty"`
	OrderDate            time.Time           `json:"order_date"`
	DeliveryDate         *time.Time          `json:"delivery_date,omitempty"`
	CancellationReason   string              `json:"cancellation_reason,omitempty"`
	ReturnReason         string              `json:"return_reason,omitempty"`
}

// ToOrderResponse converts an order aggregate to its response form
func ToOrderResponse(o *order.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineResponse{
			ID:                  l.ID,
			ProductID:           l.ProductID,
			ProductTitle:        l.ProductTitle,
			VariantName:         l.VariantName,
			Quantity:            l.Quantity,
			UnitPrice:           l.UnitPrice.String(),
			UnitDiscountedPrice: l.UnitDiscountedPrice.String(),
		})
	}
	return OrderResponse{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		UserID:               o.UserID,
		ShippingAddress:      o.ShippingAddress,
		Lines:                lines,
		TotalPrice:           o.TotalPrice.String(),
		TotalDiscountedPrice: o.TotalDiscountedPrice.String(),
		TotalDiscount:        o.TotalDiscount.String(),
		TotalItemCount:       o.TotalItemCount,
		DeliveryCharge:       o.DeliveryCharge.String(),
		Status:               o.Status,
		PaymentStatus:        o.PaymentStatus,
		PaymentMethod:        o.PaymentMethod,
		PaymentReference:     o.PaymentReference,
		OrderDate:            o.OrderDate,
		DeliveryDate:         o.DeliveryDate,
		CancellationReason:   o.CancellationReason,
		ReturnReason:         o.ReturnReason,
	}
}
