package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByCode(ctx context.Context, code string) (*catalog.Product, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) SaveWithLock(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type capturingPublisher struct {
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func TestProductServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a product and publishes its events", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil).Once()

		publisher := &capturingPublisher{}
		svc := NewProductService(repo, zap.NewNop())
		svc.SetEventPublisher(publisher)

		resp, err := svc.CreateProduct(ctx, CreateProductRequest{
			Code:            "tee-001",
			Title:           "Plain Tee",
			Category:        "apparel",
			Price:           "999",
			DiscountedPrice: "799",
			Quantity:        25,
		})

		require.NoError(t, err)
		assert.Equal(t, "TEE-001", resp.Code)
		assert.Equal(t, 25, resp.Quantity)
		assert.Equal(t, "active", resp.Status)

		require.NotEmpty(t, publisher.events)
		assert.Equal(t, "ProductCreated", publisher.events[0].EventType())
		repo.AssertExpectations(t)
	})

	t.Run("creates a product with a variant breakdown", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil).Once()

		svc := NewProductService(repo, zap.NewNop())
		resp, err := svc.CreateProduct(ctx, CreateProductRequest{
			Code:            "TEE-002",
			Title:           "Graphic Tee",
			Price:           "1299",
			DiscountedPrice: "999",
			Variants: []VariantRequest{
				{Name: "M", Quantity: 3},
				{Name: "L", Quantity: 5},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, 8, resp.Quantity)
		require.Len(t, resp.Variants, 2)
	})

	t.Run("rejects a malformed price", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, zap.NewNop())

		_, err := svc.CreateProduct(ctx, CreateProductRequest{
			Code:            "TEE-003",
			Title:           "Bad Tee",
			Price:           "not-a-number",
			DiscountedPrice: "799",
		})

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "INVALID_PRICE", domainErr.Code)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestProductServiceSetStock(t *testing.T) {
	ctx := context.Background()

	product, err := catalog.NewProduct("TEE-001", "Plain Tee",
		valueobject.NewMoneyINRFromInt(999),
		valueobject.NewMoneyINRFromInt(799),
	)
	require.NoError(t, err)

	repo := new(MockProductRepository)
	repo.On("FindByID", ctx, product.ID).Return(product, nil).Once()
	repo.On("Save", ctx, product).Return(nil).Once()

	svc := NewProductService(repo, zap.NewNop())
	resp, err := svc.SetStock(ctx, product.ID, SetStockRequest{Quantity: 40})

	require.NoError(t, err)
	assert.Equal(t, 40, resp.Quantity)
	repo.AssertExpectations(t)
}

func TestProductServiceListProducts(t *testing.T) {
	ctx := context.Background()

	product, err := catalog.NewProduct("TEE-001", "Plain Tee",
		valueobject.NewMoneyINRFromInt(999),
		valueobject.NewMoneyINRFromInt(799),
	)
	require.NoError(t, err)

	repo := new(MockProductRepository)
	repo.On("FindAll", ctx, mock.AnythingOfType("shared.Filter")).
		Run(func(args mock.Arguments) {
			filter := args.Get(1).(shared.Filter)
			// Defaults are applied before hitting the repository
			assert.Equal(t, 1, filter.Page)
			assert.Equal(t, 20, filter.PageSize)
			assert.Equal(t, "created_at", filter.OrderBy)
		}).
		Return([]catalog.Product{*product}, nil).Once()
	repo.On("Count", ctx, mock.AnythingOfType("shared.Filter")).Return(int64(1), nil).Once()

	svc := NewProductService(repo, zap.NewNop())
	page, err := svc.ListProducts(ctx, shared.Filter{})

	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "TEE-001", page.Items[0].Code)
}
