package catalog

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeProduct = "Product"

// Event type constants
const (
	EventTypeProductCreated = "ProductCreated"
	EventTypeStockReserved  = "StockReserved"
	EventTypeStockReleased  = "StockReleased"
)

// NewInsufficientStockError builds the reservation failure for a product,
// naming the variant when one was requested
func NewInsufficientStockError(product *Product, variantName string) *shared.DomainError {
	if variantName != "" {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Not enough stock for product %s variant %q", product.Code, variantName))
	}
	return shared.NewDomainError("INSUFFICIENT_STOCK",
		fmt.Sprintf("Not enough stock for product %s", product.Code))
}

// NewVariantRequiredError rejects a variantless stock operation on a product
// whose stock is tracked per variant. Allowing it would decrement only the
// aggregate and break the aggregate-equals-sum-of-variants invariant.
func NewVariantRequiredError(product *Product) *shared.DomainError {
	return shared.NewDomainError("INVALID_VARIANT",
		fmt.Sprintf("Product %s tracks stock per variant; a variant name is required", product.Code))
}

// ProductCreatedEvent is raised when a new product is created
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(product *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		Code:            product.Code,
		Title:           product.Title,
	}
}

// StockReservedEvent is raised when stock is decremented to back an order line
type StockReservedEvent struct {
	shared.BaseDomainEvent
	ProductID         uuid.UUID `json:"product_id"`
	VariantName       string    `json:"variant_name,omitempty"`
	Quantity          int       `json:"quantity"`
	RemainingQuantity int       `json:"remaining_quantity"`
}

// NewStockReservedEvent creates a new StockReservedEvent
func NewStockReservedEvent(product *Product, variantName string, quantity int) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeStockReserved, AggregateTypeProduct, product.ID),
		ProductID:         product.ID,
		VariantName:       variantName,
		Quantity:          quantity,
		RemainingQuantity: product.Quantity,
	}
}

// StockReleasedEvent is raised when reserved stock is restored to sale
type StockReleasedEvent struct {
	shared.BaseDomainEvent
	ProductID         uuid.UUID `json:"product_id"`
	VariantName       string    `json:"variant_name,omitempty"`
	Quantity          int       `json:"quantity"`
	RemainingQuantity int       `json:"remaining_quantity"`
}

// NewStockReleasedEvent creates a new StockReleasedEvent
func NewStockReleasedEvent(product *Product, variantName string, quantity int) *StockReleasedEvent {
	return &StockReleasedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeStockReleased, AggregateTypeProduct, product.ID),
		ProductID:         product.ID,
		VariantName:       variantName,
		Quantity:          quantity,
		RemainingQuantity: product.Quantity,
	}
}
