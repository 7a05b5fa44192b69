package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// ProductVariant is a named stock-bearing subdivision of a product (e.g. size "M").
// Variants are child entities within the Product aggregate; they are only
// mutated through the aggregate's stock operations.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(50);not null"`
	Quantity  int       `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (ProductVariant) TableName() string {
	return "product_variants"
}

// Product represents a sellable product in the catalog.
// It is the aggregate root for product operations and the single owner of
// stock quantities: Quantity holds the aggregate sellable units, Variants the
// per-size breakdown. When Variants is non-empty, Quantity equals the sum of
// variant quantities. Stock is only mutated through Reserve/Release.
type Product struct {
	shared.BaseAggregateRoot
	Code            string           `gorm:"type:varchar(50);not null;uniqueIndex"`
	Title           string           `gorm:"type:varchar(200);not null"`
	Description     string           `gorm:"type:text"`
	Brand           string           `gorm:"type:varchar(100)"`
	Category        string           `gorm:"type:varchar(100);index"`
	Price           decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	DiscountedPrice decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	Quantity        int              `gorm:"not null;default:0"`
	Status          ProductStatus    `gorm:"type:varchar(20);not null;default:'active'"`
	Variants        []ProductVariant `gorm:"foreignKey:ProductID;references:ID"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product
func NewProduct(code, title string, price, discountedPrice valueobject.Money) (*Product, error) {
	if err := validateProductCode(code); err != nil {
		return nil, err
	}
	if err := validateProductTitle(title); err != nil {
		return nil, err
	}
	if price.IsNegative() || discountedPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if price.LessThan(discountedPrice) {
		return nil, shared.NewDomainError("INVALID_PRICE", "Discounted price cannot exceed price")
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Title:             title,
		Price:             price.Amount(),
		DiscountedPrice:   discountedPrice.Amount(),
		Status:            ProductStatusActive,
		Variants:          make([]ProductVariant, 0),
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// Update updates the product's basic information
func (p *Product) Update(title, description, brand, category string) error {
	if err := validateProductTitle(title); err != nil {
		return err
	}

	p.Title = title
	p.Description = description
	p.Brand = brand
	p.Category = category
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetPrices updates the list price and discounted price
func (p *Product) SetPrices(price, discountedPrice valueobject.Money) error {
	if price.IsNegative() || discountedPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if price.LessThan(discountedPrice) {
		return shared.NewDomainError("INVALID_PRICE", "Discounted price cannot exceed price")
	}

	p.Price = price.Amount()
	p.DiscountedPrice = discountedPrice.Amount()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetVariants replaces the variant breakdown and recomputes the aggregate
// quantity from it. Used by catalog maintenance, not by order flow.
func (p *Product) SetVariants(variants []VariantInput) error {
	seen := make(map[string]bool, len(variants))
	total := 0
	next := make([]ProductVariant, 0, len(variants))
	now := time.Now()

	for _, v := range variants {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			return shared.NewDomainError("INVALID_VARIANT", "Variant name cannot be empty")
		}
		key := strings.ToLower(name)
		if seen[key] {
			return shared.NewDomainError("INVALID_VARIANT", fmt.Sprintf("Duplicate variant name %q", name))
		}
		if v.Quantity < 0 {
			return shared.NewDomainError("INVALID_QUANTITY", "Variant quantity cannot be negative")
		}
		seen[key] = true
		total += v.Quantity
		next = append(next, ProductVariant{
			ID:        uuid.New(),
			ProductID: p.ID,
			Name:      name,
			Quantity:  v.Quantity,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	p.Variants = next
	p.Quantity = total
	p.UpdatedAt = now
	p.IncrementVersion()

	return nil
}

// SetQuantity sets the aggregate quantity for a product without variants.
// Products with variants derive their aggregate quantity from the breakdown.
func (p *Product) SetQuantity(quantity int) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if len(p.Variants) > 0 {
		return shared.NewDomainError("INVALID_STATE", "Quantity of a product with variants is derived from its variants")
	}

	p.Quantity = quantity
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// VariantInput carries a variant breakdown entry for SetVariants
type VariantInput struct {
	Name     string
	Quantity int
}

// HasVariants returns true if the product tracks per-variant stock
func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// findVariant locates a variant by case-insensitive name match
func (p *Product) findVariant(name string) *ProductVariant {
	for idx := range p.Variants {
		if strings.EqualFold(p.Variants[idx].Name, name) {
			return &p.Variants[idx]
		}
	}
	return nil
}

// VariantQuantity returns the quantity of the named variant, matched
// case-insensitively. Returns false if no such variant exists.
func (p *Product) VariantQuantity(name string) (int, bool) {
	v := p.findVariant(name)
	if v == nil {
		return 0, false
	}
	return v.Quantity, true
}

// Reserve decrements stock backing an order line. A product with variants
// requires a variant name, so the variant and the aggregate quantity are
// always validated and decremented together; a missing variant or any
// shortfall fails the whole reservation and leaves stock unchanged.
func (p *Product) Reserve(variantName string, quantity int) error {
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be at least 1")
	}

	var variant *ProductVariant
	if p.HasVariants() {
		if variantName == "" {
			return NewVariantRequiredError(p)
		}
		variant = p.findVariant(variantName)
		if variant == nil {
			return NewInsufficientStockError(p, variantName)
		}
		if variant.Quantity < quantity {
			return NewInsufficientStockError(p, variantName)
		}
	}
	if p.Quantity < quantity {
		return NewInsufficientStockError(p, variantName)
	}

	now := time.Now()
	if variant != nil {
		variant.Quantity -= quantity
		variant.UpdatedAt = now
	}
	p.Quantity -= quantity
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewStockReservedEvent(p, variantName, quantity))

	return nil
}

// Release restores previously reserved stock, the inverse of Reserve. Used
// when a reservation is rolled back or a cancelled order returns to sale.
func (p *Product) Release(variantName string, quantity int) error {
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be at least 1")
	}

	var variant *ProductVariant
	if p.HasVariants() {
		if variantName == "" {
			return NewVariantRequiredError(p)
		}
		variant = p.findVariant(variantName)
		if variant == nil {
			return shared.NewDomainError("VARIANT_NOT_FOUND",
				fmt.Sprintf("Product %s has no variant %q", p.Code, variantName))
		}
	}

	now := time.Now()
	if variant != nil {
		variant.Quantity += quantity
		variant.UpdatedAt = now
	}
	p.Quantity += quantity
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewStockReleasedEvent(p, variantName, quantity))

	return nil
}

// Activate makes the product sellable
func (p *Product) Activate() {
	p.Status = ProductStatusActive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// Deactivate removes the product from sale without deleting it
func (p *Product) Deactivate() {
	p.Status = ProductStatusInactive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// IsActive returns true if the product is sellable
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// GetPriceMoney returns the list price as a Money value object
func (p *Product) GetPriceMoney() valueobject.Money {
	return valueobject.NewMoneyINR(p.Price)
}

// GetDiscountedPriceMoney returns the discounted price as a Money value object
func (p *Product) GetDiscountedPriceMoney() valueobject.Money {
	return valueobject.NewMoneyINR(p.DiscountedPrice)
}

func validateProductCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot exceed 50 characters")
	}
	return nil
}

func validateProductTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Product title cannot be empty")
	}
	if len(title) > 200 {
		return shared.NewDomainError("INVALID_TITLE", "Product title cannot exceed 200 characters")
	}
	return nil
}
