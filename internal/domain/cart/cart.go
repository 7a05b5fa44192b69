package cart

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// DeliveryChargePolicy holds the delivery-charge tiering: carts whose raw
// discounted total is below Threshold pay Charge on top of it.
type DeliveryChargePolicy struct {
	Threshold decimal.Decimal
	Charge    decimal.Decimal
}

// DefaultDeliveryChargePolicy returns the store's standard tiering:
// below 10000 the delivery charge is 400, otherwise delivery is free.
func DefaultDeliveryChargePolicy() DeliveryChargePolicy {
	return DeliveryChargePolicy{
		Threshold: decimal.NewFromInt(10000),
		Charge:    decimal.NewFromInt(400),
	}
}

// CartLine is a line item in a cart. Unlike order lines, cart lines are
// living quotes: unit prices are re-derived from current product pricing on
// every quantity change, never frozen.
type CartLine struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CartID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID           uuid.UUID       `gorm:"type:uuid;not null"`
	ProductTitle        string          `gorm:"type:varchar(200);not null"`
	VariantName         string          `gorm:"type:varchar(50)"`
	Quantity            int             `gorm:"not null"`
	UnitPrice           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	UnitDiscountedPrice decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LineTotal           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LineDiscountedTotal decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName returns the table name for GORM
func (CartLine) TableName() string {
	return "cart_lines"
}

// matches reports whether this line is the same (product, variant) slot.
// Variant names compare case-insensitively, like stock lookups do.
func (l *CartLine) matches(productID uuid.UUID, variantName string) bool {
	return l.ProductID == productID && strings.EqualFold(l.VariantName, variantName)
}

// reprice re-derives the line's prices from current product pricing
func (l *CartLine) reprice(product *catalog.Product) {
	qty := decimal.NewFromInt(int64(l.Quantity))
	l.UnitPrice = product.Price
	l.UnitDiscountedPrice = product.DiscountedPrice
	l.LineTotal = product.Price.Mul(qty)
	l.LineDiscountedTotal = product.DiscountedPrice.Mul(qty)
	l.UpdatedAt = time.Now()
}

// Cart holds a user's shopping cart. One cart exists per user for the life of
// the account; it is emptied, never deleted. All derived totals are
// recomputed on every line mutation so the cart always shows the would-be
// order totals, delivery charge included.
type Cart struct {
	shared.BaseAggregateRoot
	UserID               uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Lines                []CartLine      `gorm:"foreignKey:CartID;references:ID"`
	TotalPrice           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalDiscountedPrice decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalDiscount        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalItemCount       int             `gorm:"not null;default:0"`
	DeliveryCharge       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (Cart) TableName() string {
	return "carts"
}

// NewCart creates an empty cart for a user
func NewCart(userID uuid.UUID) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}

	cart := &Cart{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		UserID:               userID,
		Lines:                make([]CartLine, 0),
		TotalPrice:           decimal.Zero,
		TotalDiscountedPrice: decimal.Zero,
		TotalDiscount:        decimal.Zero,
		DeliveryCharge:       decimal.Zero,
	}

	return cart, nil
}

// IsEmpty returns true if the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// FindLine returns the line with the given ID, or nil
func (c *Cart) FindLine(lineID uuid.UUID) *CartLine {
	for idx := range c.Lines {
		if c.Lines[idx].ID == lineID {
			return &c.Lines[idx]
		}
	}
	return nil
}

// AddLine adds a product to the cart. If a line for the same
// (product, variant) already exists the quantities are merged and the unit
// prices re-derived from current product pricing. Totals are recomputed.
func (c *Cart) AddLine(product *catalog.Product, variantName string, quantity int, policy DeliveryChargePolicy) (*CartLine, error) {
	if quantity < 1 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if !product.IsActive() {
		return nil, shared.NewDomainError("PRODUCT_INACTIVE", "Product is not available for sale")
	}
	variantName = strings.TrimSpace(variantName)
	if variantName == "" {
		// A variantless line on a variant-tracked product could never be
		// reserved; reject it at add time.
		if product.HasVariants() {
			return nil, catalog.NewVariantRequiredError(product)
		}
	} else {
		if _, ok := product.VariantQuantity(variantName); !ok {
			return nil, shared.NewDomainError("VARIANT_NOT_FOUND", "Product has no such variant")
		}
	}

	var line *CartLine
	for idx := range c.Lines {
		if c.Lines[idx].matches(product.ID, variantName) {
			line = &c.Lines[idx]
			break
		}
	}

	if line != nil {
		line.Quantity += quantity
		line.reprice(product)
	} else {
		now := time.Now()
		c.Lines = append(c.Lines, CartLine{
			ID:           uuid.New(),
			CartID:       c.ID,
			ProductID:    product.ID,
			ProductTitle: product.Title,
			VariantName:  variantName,
			Quantity:     quantity,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		line = &c.Lines[len(c.Lines)-1]
		line.reprice(product)
	}

	c.recalculate(policy)

	return line, nil
}

// UpdateLineQuantity sets a line's quantity and re-derives its prices from
// current product pricing. Totals are recomputed.
func (c *Cart) UpdateLineQuantity(lineID uuid.UUID, quantity int, product *catalog.Product, policy DeliveryChargePolicy) error {
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}

	line := c.FindLine(lineID)
	if line == nil {
		return shared.NewDomainError("LINE_NOT_FOUND", "Cart line not found")
	}
	if line.ProductID != product.ID {
		return shared.NewDomainError("INVALID_INPUT", "Product does not match cart line")
	}

	line.Quantity = quantity
	line.reprice(product)
	c.recalculate(policy)

	return nil
}

// RemoveLine removes a line from the cart. Totals are recomputed.
func (c *Cart) RemoveLine(lineID uuid.UUID, policy DeliveryChargePolicy) error {
	for idx := range c.Lines {
		if c.Lines[idx].ID == lineID {
			c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
			c.recalculate(policy)
			return nil
		}
	}
	return shared.NewDomainError("LINE_NOT_FOUND", "Cart line not found")
}

// Clear empties the cart and zeroes all derived totals
func (c *Cart) Clear() {
	c.Lines = make([]CartLine, 0)
	c.TotalPrice = decimal.Zero
	c.TotalDiscountedPrice = decimal.Zero
	c.TotalDiscount = decimal.Zero
	c.TotalItemCount = 0
	c.DeliveryCharge = decimal.Zero
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// recalculate recomputes all derived totals from the lines and applies the
// delivery-charge tiering. The tier threshold compares against the raw
// discounted total, before the charge itself is added.
func (c *Cart) recalculate(policy DeliveryChargePolicy) {
	totalPrice := decimal.Zero
	rawDiscounted := decimal.Zero
	itemCount := 0

	for idx := range c.Lines {
		totalPrice = totalPrice.Add(c.Lines[idx].LineTotal)
		rawDiscounted = rawDiscounted.Add(c.Lines[idx].LineDiscountedTotal)
		itemCount += c.Lines[idx].Quantity
	}

	c.TotalPrice = totalPrice
	c.TotalDiscount = totalPrice.Sub(rawDiscounted)
	c.TotalItemCount = itemCount

	if len(c.Lines) == 0 {
		c.DeliveryCharge = decimal.Zero
		c.TotalDiscountedPrice = decimal.Zero
	} else if rawDiscounted.LessThan(policy.Threshold) {
		c.DeliveryCharge = policy.Charge
		c.TotalDiscountedPrice = rawDiscounted.Add(policy.Charge)
	} else {
		c.DeliveryCharge = decimal.Zero
		c.TotalDiscountedPrice = rawDiscounted
	}

	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// GetTotalDiscountedPriceMoney returns the payable total as Money
func (c *Cart) GetTotalDiscountedPriceMoney() valueobject.Money {
	return valueobject.NewMoneyINR(c.TotalDiscountedPrice)
}
