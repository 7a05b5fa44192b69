package catalog

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ProductService handles catalog maintenance. Stock mutations tied to orders
// go through the stock ledger, not through this service; SetStock is a
// catalog-side replacement used when receiving inventory.
type ProductService struct {
	products  catalog.ProductRepository
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(products catalog.ProductRepository, logger *zap.Logger) *ProductService {
	return &ProductService{
		products: products,
		logger:   logger,
	}
}

// SetEventPublisher sets the event publisher for catalog events
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// CreateProduct creates a new product with optional initial stock
func (s *ProductService) CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	price, err := valueobject.NewMoneyINRFromString(req.Price)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price must be a valid decimal amount")
	}
	discounted, err := valueobject.NewMoneyINRFromString(req.DiscountedPrice)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PRICE", "Discounted price must be a valid decimal amount")
	}

	product, err := catalog.NewProduct(req.Code, req.Title, price, discounted)
	if err != nil {
		return nil, err
	}
	if err := product.Update(req.Title, req.Description, req.Brand, req.Category); err != nil {
		return nil, err
	}

	if len(req.Variants) > 0 {
		if err := product.SetVariants(toVariantInputs(req.Variants)); err != nil {
			return nil, err
		}
	} else if req.Quantity > 0 {
		if err := product.SetQuantity(req.Quantity); err != nil {
			return nil, err
		}
	}

	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, product)

	s.logger.Info("product created",
		zap.String("code", product.Code),
		zap.String("product_id", product.ID.String()),
	)

	resp := ToProductResponse(product)
	return &resp, nil
}

// UpdateProduct updates a product's details and pricing
func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := product.Update(req.Title, req.Description, req.Brand, req.Category); err != nil {
		return nil, err
	}

	if req.Price != "" || req.DiscountedPrice != "" {
		price, err := valueobject.NewMoneyINRFromString(req.Price)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_PRICE", "Price must be a valid decimal amount")
		}
		discounted, err := valueobject.NewMoneyINRFromString(req.DiscountedPrice)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_PRICE", "Discounted price must be a valid decimal amount")
		}
		if err := product.SetPrices(price, discounted); err != nil {
			return nil, err
		}
	}

	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}

	resp := ToProductResponse(product)
	return &resp, nil
}

// SetStock replaces a product's stock. With variants the aggregate quantity
// is derived from the breakdown; without variants the quantity is set
// directly.
func (s *ProductService) SetStock(ctx context.Context, id uuid.UUID, req SetStockRequest) (*ProductResponse, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(req.Variants) > 0 {
		if err := product.SetVariants(toVariantInputs(req.Variants)); err != nil {
			return nil, err
		}
	} else {
		if err := product.SetQuantity(req.Quantity); err != nil {
			return nil, err
		}
	}

	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}

	resp := ToProductResponse(product)
	return &resp, nil
}

// SetActive activates or deactivates a product
func (s *ProductService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*ProductResponse, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if active {
		product.Activate()
	} else {
		product.Deactivate()
	}

	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}

	resp := ToProductResponse(product)
	return &resp, nil
}

// GetProduct returns a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// GetProductByCode returns a product by its unique code
func (s *ProductService) GetProductByCode(ctx context.Context, code string) (*ProductResponse, error) {
	product, err := s.products.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// ListProducts returns products matching the filter, with pagination
func (s *ProductService) ListProducts(ctx context.Context, filter shared.Filter) (shared.Paginated[ProductResponse], error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
		filter.OrderDir = "desc"
	}

	products, err := s.products.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	total, err := s.products.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}

	items := make([]ProductResponse, 0, len(products))
	for idx := range products {
		items = append(items, ToProductResponse(&products[idx]))
	}

	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// DeleteProduct removes a product from the catalog
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.products.Delete(ctx, id)
}

func (s *ProductService) publishEvents(ctx context.Context, product *catalog.Product) {
	if s.publisher == nil {
		return
	}
	events := product.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish product events",
			zap.String("product_id", product.ID.String()),
			zap.Error(err),
		)
	}
	product.ClearDomainEvents()
}

func toVariantInputs(reqs []VariantRequest) []catalog.VariantInput {
	inputs := make([]catalog.VariantInput, 0, len(reqs))
	for _, v := range reqs {
		inputs = append(inputs, catalog.VariantInput{Name: v.Name, Quantity: v.Quantity})
	}
	return inputs
}
