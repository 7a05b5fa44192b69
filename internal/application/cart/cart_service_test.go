package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// MockCartRepository is a mock implementation of cart.Repository
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

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

func serviceProduct(t *testing.T) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct("TEE-001", "Plain Tee",
		valueobject.NewMoneyINRFromInt(1000),
		valueobject.NewMoneyINRFromInt(800),
	)
	require.NoError(t, err)
	require.NoError(t, product.SetQuantity(50))
	return product
}

func newTestCartService(carts cart.Repository, products catalog.ProductRepository) *CartService {
	return NewCartService(carts, products, cart.DefaultDeliveryChargePolicy(), shared.NewKeyedMutex(), zap.NewNop())
}

func TestCartServiceGetCart(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the existing cart", func(t *testing.T) {
		userID := uuid.New()
		existing, err := cart.NewCart(userID)
		require.NoError(t, err)

		carts := new(MockCartRepository)
		carts.On("FindByUser", ctx, userID).Return(existing, nil).Once()

		svc := newTestCartService(carts, new(MockProductRepository))
		resp, err := svc.GetCart(ctx, userID)

		require.NoError(t, err)
		assert.Equal(t, existing.ID, resp.ID)
		carts.AssertExpectations(t)
	})

	t.Run("lazily creates a cart on first access", func(t *testing.T) {
		userID := uuid.New()

		carts := new(MockCartRepository)
		carts.On("FindByUser", ctx, userID).Return(nil, shared.ErrNotFound).Once()
		carts.On("Save", ctx, mock.AnythingOfType("*cart.Cart")).Return(nil).Once()

		svc := newTestCartService(carts, new(MockProductRepository))
		resp, err := svc.GetCart(ctx, userID)

		require.NoError(t, err)
		assert.Equal(t, userID, resp.UserID)
		assert.Empty(t, resp.Lines)
		carts.AssertExpectations(t)
	})
}

func TestCartServiceAddLine(t *testing.T) {
	ctx := context.Background()

	t.Run("adds a product line and persists the cart", func(t *testing.T) {
		userID := uuid.New()
		existing, err := cart.NewCart(userID)
		require.NoError(t, err)
		product := serviceProduct(t)

		carts := new(MockCartRepository)
		products := new(MockProductRepository)
		carts.On("FindByUser", ctx, userID).Return(existing, nil).Once()
		products.On("FindByID", ctx, product.ID).Return(product, nil).Once()
		carts.On("Save", ctx, existing).Return(nil).Once()

		svc := newTestCartService(carts, products)
		resp, err := svc.AddLine(ctx, userID, AddLineRequest{
			ProductID: product.ID,
			Quantity:  2,
		})

		require.NoError(t, err)
		require.Len(t, resp.Lines, 1)
		assert.Equal(t, 2, resp.Lines[0].Quantity)
		assert.Equal(t, "800", resp.Lines[0].UnitDiscountedPrice)
		carts.AssertExpectations(t)
	})

	t.Run("unknown product fails without saving", func(t *testing.T) {
		userID := uuid.New()
		existing, err := cart.NewCart(userID)
		require.NoError(t, err)
		productID := uuid.New()

		carts := new(MockCartRepository)
		products := new(MockProductRepository)
		carts.On("FindByUser", ctx, userID).Return(existing, nil).Once()
		products.On("FindByID", ctx, productID).Return(nil, shared.ErrNotFound).Once()

		svc := newTestCartService(carts, products)
		_, err = svc.AddLine(ctx, userID, AddLineRequest{ProductID: productID, Quantity: 1})

		require.Error(t, err)
		carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestCartServiceRemoveLine(t *testing.T) {
	ctx := context.Background()
	policy := cart.DefaultDeliveryChargePolicy()

	userID := uuid.New()
	existing, err := cart.NewCart(userID)
	require.NoError(t, err)
	product := serviceProduct(t)
	line, err := existing.AddLine(product, "", 1, policy)
	require.NoError(t, err)

	carts := new(MockCartRepository)
	carts.On("FindByUser", ctx, userID).Return(existing, nil).Once()
	carts.On("Save", ctx, existing).Return(nil).Once()

	svc := newTestCartService(carts, new(MockProductRepository))
	resp, err := svc.RemoveLine(ctx, userID, line.ID)

	require.NoError(t, err)
	assert.Empty(t, resp.Lines)
	assert.Equal(t, "0", resp.TotalDiscountedPrice)
}

func TestCartServiceClear(t *testing.T) {
	ctx := context.Background()

	t.Run("clears an existing cart", func(t *testing.T) {
		userID := uuid.New()
		existing, err := cart.NewCart(userID)
		require.NoError(t, err)
		product := serviceProduct(t)
		_, err = existing.AddLine(product, "", 1, cart.DefaultDeliveryChargePolicy())
		require.NoError(t, err)

		carts := new(MockCartRepository)
		carts.On("FindByUser", ctx, userID).Return(existing, nil).Once()
		carts.On("Save", ctx, existing).Return(nil).Once()

		svc := newTestCartService(carts, new(MockProductRepository))
		require.NoError(t, svc.Clear(ctx, userID))
		assert.True(t, existing.IsEmpty())
	})

	t.Run("clearing a missing cart is a no-op", func(t *testing.T) {
		userID := uuid.New()

		carts := new(MockCartRepository)
		carts.On("FindByUser", ctx, userID).Return(nil, shared.ErrNotFound).Once()

		svc := newTestCartService(carts, new(MockProductRepository))
		require.NoError(t, svc.Clear(ctx, userID))
		carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}
