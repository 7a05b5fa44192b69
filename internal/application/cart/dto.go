package cart

import (
	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/cart"
)

// AddLineRequest carries the data for adding a product to a cart
type AddLineRequest struct {
	ProductID   uuid.UUID
	VariantName string
	Quantity    int
}

// CartLineResponse represents a cart line in service responses
type CartLineResponse struct {
	ID                  uuid.UUID `json:"id"`
	ProductID           uuid.UUID `json:"product_id"`
	ProductTitle        string    `json:"product_title"`
	VariantName         string    `json:"variant_name,omitempty"`
	Quantity            int       `json:"quantity"`
	UnitPrice           string    `json:"unit_price"`
	UnitDiscountedPrice string    `json:"unit_discounted_price"`
	LineTotal           string    `json:"line_total"`
	LineDiscountedTotal string    `json:"line_discounted_total"`
}

// CartResponse represents a cart with derived totals in service responses
type CartResponse struct {
	ID                   uuid.UUID          `json:"id"`
	UserID               uuid.UUID          `json:"user_id"`
	Lines                []CartLineResponse `json:"lines"`
	TotalPrice           string             `json:"total_price"`
	TotalDiscountedPrice string             `json:"total_discounted_price"`
	TotalDiscount        string             `json:"total_discount"`
	TotalItemCount       int                `json:"total_item_count"`
	DeliveryCharge       string             `json:"delivery_charge"`
}

// ToCartResponse converts a cart aggregate to its response form
func ToCartResponse(c *cart.Cart) CartResponse {
	lines := make([]CartLineResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, CartLineResponse{
			ID:                  l.ID,
			ProductID:           l.ProductID,
			ProductTitle:        l.ProductTitle,
			VariantName:         l.VariantName,
			Quantity:            l.Quantity,
			UnitPrice:           l.UnitPrice.String(),
			UnitDiscountedPrice: l.UnitDiscountedPrice.String(),
			LineTotal:           l.LineTotal.String(),
			LineDiscountedTotal: l.LineDiscountedTotal.String(),
		})
	}
	return CartResponse{
		ID:                   c.ID,
		UserID:               c.UserID,
		Lines:                lines,
		TotalPrice:           c.TotalPrice.String(),
		TotalDiscountedPrice: c.TotalDiscountedPrice.String(),
		TotalDiscount:        c.TotalDiscount.String(),
		TotalItemCount:       c.TotalItemCount,
		DeliveryCharge:       c.DeliveryCharge.String(),
	}
}
