package catalog

import (
	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/catalog"
)

// CreateProductRequest carries the data for creating a product
type CreateProductRequest struct {
	Code            string
	Title           string
	Description     string
	Brand           string
	Category        string
	Price           string
	DiscountedPrice string
	Quantity        int
	Variants        []VariantRequest
}

// UpdateProductRequest carries the data for updating a product's details
type UpdateProductRequest struct {
	Title           string
	Description     string
	Brand           string
	Category        string
	Price           string
	DiscountedPrice string
}

// VariantRequest carries one variant breakdown entry
type VariantRequest struct {
	Name     string
	Quantity int
}

// SetStockRequest carries a stock replacement for a product
type SetStockRequest struct {
	Quantity int
	Variants []VariantRequest
}

// VariantResponse represents a variant in service responses
type VariantResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Quantity int       `json:"quantity"`
}

// ProductResponse represents a product in service responses
type ProductResponse struct {
	ID              uuid.UUID         `json:"id"`
	Code            string            `json:"code"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Brand           string            `json:"brand,omitempty"`
	Category        string            `json:"category,omitempty"`
	Price           string            `json:"price"`
	DiscountedPrice string            `json:"discounted_price"`
	Quantity        int               `json:"quantity"`
	Status          string            `json:"status"`
	Variants        []VariantResponse `json:"variants"`
}

// ToProductResponse converts a product aggregate to its response form
func ToProductResponse(p *catalog.Product) ProductResponse {
	variants := make([]VariantResponse, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, VariantResponse{
			ID:       v.ID,
			Name:     v.Name,
			Quantity: v.Quantity,
		})
	}
	return ProductResponse{
		ID:              p.ID,
		Code:            p.Code,
		Title:           p.Title,
		Description:     p.Description,
		Brand:           p.Brand,
		Category:        p.Category,
		Price:           p.Price.String(),
		DiscountedPrice: p.DiscountedPrice.String(),
		Quantity:        p.Quantity,
		Status:          string(p.Status),
		Variants:        variants,
	}
}
