package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
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

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]order.Order, error) {
	args := m.Called(ctx, userID, filter)
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// ledgerCall records one stock mutation for order-of-operations assertions
type ledgerCall struct {
	op        string
	productID uuid.UUID
	quantity  int
}

// fakeLedger is a StockLedger that records calls and fails on demand
type fakeLedger struct {
	mu       sync.Mutex
	calls    []ledgerCall
	reserveE map[uuid.UUID]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{reserveE: make(map[uuid.UUID]error)}
}

func (f *fakeLedger) Reserve(ctx context.Context, productID uuid.UUID, variantName string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.reserveE[productID]; ok {
		return err
	}
	f.calls = append(f.calls, ledgerCall{op: "reserve", productID: productID, quantity: quantity})
	return nil
}

func (f *fakeLedger) Release(ctx context.Context, productID uuid.UUID, variantName string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ledgerCall{op: "release", productID: productID, quantity: quantity})
	return nil
}

// fakeIdempotencyStore marks every key fresh exactly once
type fakeIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[key], nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }

func checkoutAddress(t *testing.T) valueobject.Address {
	t.Helper()
	addr, err := valueobject.NewAddress("Asha Rao", "12 MG Road", "Bengaluru", "Karnataka", "560001")
	require.NoError(t, err)
	return addr
}

func checkoutUser(t *testing.T) *identity.User {
	t.Helper()
	user, err := identity.NewUser("Asha Rao", "asha@example.com")
	require.NoError(t, err)
	return user
}

// twoLineCart builds a cart with two product lines and returns the cart plus
// the two product IDs in insertion order
func twoLineCart(t *testing.T, userID uuid.UUID) (*cart.Cart, uuid.UUID, uuid.UUID) {
	t.Helper()
	policy := cart.DefaultDeliveryChargePolicy()

	first, err := catalog.NewProduct("TEE-001", "Plain Tee",
		valueobject.NewMoneyINRFromInt(1000), valueobject.NewMoneyINRFromInt(800))
	require.NoError(t, err)
	require.NoError(t, first.SetQuantity(50))

	second, err := catalog.NewProduct("MUG-001", "Mug",
		valueobject.NewMoneyINRFromInt(500), valueobject.NewMoneyINRFromInt(500))
	require.NoError(t, err)
	require.NoError(t, second.SetQuantity(50))

	c, err := cart.NewCart(userID)
	require.NoError(t, err)
	_, err = c.AddLine(first, "", 2, policy)
	require.NoError(t, err)
	_, err = c.AddLine(second, "", 1, policy)
	require.NoError(t, err)

	return c, first.ID, second.ID
}

func TestCheckoutPlaceOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("converts the cart into a pending order", func(t *testing.T) {
		userID := uuid.New()
		c, firstID, secondID := twoLineCart(t, userID)

		carts := new(MockCartRepository)
		orders := new(MockOrderRepository)
		users := new(MockUserRepository)
		ledger := newFakeLedger()

		users.On("FindByID", ctx, userID).Return(checkoutUser(t), nil).Once()
		carts.On("FindByUser", ctx, userID).Return(c, nil).Once()
		orders.On("GenerateOrderNumber", ctx).Return("ORD-2026-00042", nil).Once()

		var saved *order.Order
		orders.On("Save", ctx, mock.AnythingOfType("*order.Order")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*order.Order) }).
			Return(nil).Once()
		carts.On("Save", ctx, c).Return(nil).Once()

		svc := NewCheckoutService(carts, orders, users, ledger, shared.NewKeyedMutex(), zap.NewNop())
		resp, err := svc.PlaceOrder(ctx, userID, PlaceOrderRequest{
			ShippingAddress: checkoutAddress(t),
			PaymentMethod:   order.PaymentMethodOnline,
		})

		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, "ORD-2026-00042", resp.OrderNumber)
		assert.Equal(t, order.OrderStatusPending, saved.Status)
		assert.Equal(t, order.PaymentStatusPending, saved.PaymentStatus)
		require.Len(t, saved.Lines, 2)

		// Lines keep cart insertion order and frozen prices
		assert.Equal(t, firstID, saved.Lines[0].ProductID)
		assert.Equal(t, secondID, saved.Lines[1].ProductID)

		// Reservations were applied per line in insertion order
		require.Len(t, ledger.calls, 2)
		assert.Equal(t, ledgerCall{op: "reserve", productID: firstID, quantity: 2}, ledger.calls[0])
		assert.Equal(t, ledgerCall{op: "reserve", productID: secondID, quantity: 1}, ledger.calls[1])

		// The cart was cleared after the order was persisted
		assert.True(t, c.IsEmpty())

		carts.AssertExpectations(t)
		orders.AssertExpectations(t)
	})

	t.Run("rejects an empty cart before touching stock", func(t *testing.T) {
		userID := uuid.New()
		empty, err := cart.NewCart(userID)
		require.NoError(t, err)

		carts := new(MockCartRepository)
		orders := new(MockOrderRepository)
		users := new(MockUserRepository)
		ledger := newFakeLedger()

		users.On("FindByID", ctx, userID).Return(checkoutUser(t), nil).Once()
		carts.On("FindByUser", ctx, userID).Return(empty, nil).Once()

		svc := NewCheckoutService(carts, orders, users, ledger, shared.NewKeyedMutex(), zap.NewNop())
		_, err = svc.PlaceOrder(ctx, userID, PlaceOrderRequest{
			ShippingAddress: checkoutAddress(t),
			PaymentMethod:   order.PaymentMethodOnline,
		})

		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrEmptyCart))
		assert.Empty(t, ledger.calls)
		orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("releases earlier reservations in reverse order when one fails", func(t *testing.T) {
		userID := uuid.New()
		c, firstID, secondID := twoLineCart(t, userID)

		carts := new(MockCartRepository)
		orders := new(MockOrderRepository)
		users := new(MockUserRepository)
		ledger := newFakeLedger()
		ledger.reserveE[secondID] = shared.ErrInsufficientStock

		users.On("FindByID", ctx, userID).Return(checkoutUser(t), nil).Once()
		carts.On("FindByUser", ctx, userID).Return(c, nil).Once()

		svc := NewCheckoutService(carts, orders, users, ledger, shared.NewKeyedMutex(), zap.NewNop())
		_, err := svc.PlaceOrder(ctx, userID, PlaceOrderRequest{
			ShippingAddress: checkoutAddress(t),
			PaymentMethod:   order.PaymentMethodOnline,
		})

		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

		// The first line was reserved, then released; nothing was persisted
		require.Len(t, ledger.calls, 2)
		assert.Equal(t, ledgerCall{op: "reserve", productID: firstID, quantity: 2}, ledger.calls[0])
		assert.Equal(t, ledgerCall{op: "release", productID: firstID, quantity: 2}, ledger.calls[1])
		assert.False(t, c.IsEmpty())
		orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("releases every reservation when the order save fails", func(t *testing.T) {
		userID := uuid.New()
		c, firstID, secondID := twoLineCart(t, userID)

		carts := new(MockCartRepository)
		orders := new(MockOrderRepository)
		users := new(MockUserRepository)
		ledger := newFakeLedger()

		users.On("FindByID", ctx, userID).Return(checkoutUser(t), nil).Once()
		carts.On("FindByUser", ctx, userID).Return(c, nil).Once()
		orders.On("GenerateOrderNumber", ctx).Return("ORD-2026-00042", nil).Once()
		orders.On("Save", ctx, mock.AnythingOfType("*order.Order")).Return(errors.New("db down")).Once()

		svc := NewCheckoutService(carts, orders, users, ledger, shared.NewKeyedMutex(), zap.NewNop())
		_, err := svc.PlaceOrder(ctx, userID, PlaceOrderRequest{
			ShippingAddress: checkoutAddress(t),
			PaymentMethod:   order.PaymentMethodOnline,
		})

		require.Error(t, err)
		require.Len(t, ledger.calls, 4)
		// Compensation runs in reverse reservation order
		assert.Equal(t, ledgerCall{op: "release", productID: secondID, quantity: 1}, ledger.calls[2])
		assert.Equal(t, ledgerCall{op: "release", productID: firstID, quantity: 2}, ledger.calls[3])
		carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects a replayed idempotency key", func(t *testing.T) {
		userID := uuid.New()
		c, _, _ := twoLineCart(t, userID)

		carts := new(MockCartRepository)
		orders := new(MockOrderRepository)
		users := new(MockUserRepository)
		ledger := newFakeLedger()

		users.On("FindByID", ctx, userID).Return(checkoutUser(t), nil).Once()
		carts.On("FindByUser", ctx, userID).Return(c, nil).Once()
		orders.On("GenerateOrderNumber", ctx).Return("ORD-2026-00042", nil).Once()
		orders.On("Save", ctx, mock.AnythingOfType("*order.Order")).Return(nil).Once()
		carts.On("Save", ctx, c).Return(nil).Once()

		svc := NewCheckoutService(carts, orders, users, ledger, shared.NewKeyedMutex(), zap.NewNop())
		svc.SetIdempotencyStore(newFakeIdempotencyStore(), shared.DefaultIdempotencyConfig())

		req := PlaceOrderRequest{
			ShippingAddress: checkoutAddress(t),
			PaymentMethod:   order.PaymentMethodOnline,
			IdempotencyKey:  "abc-123",
		}

		_, err := svc.PlaceOrder(ctx, userID, req)
		require.NoError(t, err)

		_, err = svc.PlaceOrder(ctx, userID, req)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "DUPLICATE_REQUEST", domainErr.Code)
	})

	t.Run("waits for the user's cart lock before reading and clearing", func(t *testing.T) {
		userID := uuid.New()
		c, _, _ := twoLineCart(t, userID)
		addr := checkoutAddress(t)

		carts := new(MockCartRepository)
		orders := new(MockOrderRepository)
		users := new(MockUserRepository)
		ledger := newFakeLedger()

		users.On("FindByID", ctx, userID).Return(checkoutUser(t), nil).Once()
		carts.On("FindByUser", ctx, userID).Return(c, nil).Once()
		orders.On("GenerateOrderNumber", ctx).Return("ORD-2026-00042", nil).Once()
		orders.On("Save", ctx, mock.AnythingOfType("*order.Order")).Return(nil).Once()
		carts.On("Save", ctx, c).Return(nil).Once()

		locks := shared.NewKeyedMutex()
		svc := NewCheckoutService(carts, orders, users, ledger, locks, zap.NewNop())

		// A cart mutation in flight holds the user's lock; the checkout
		// must neither snapshot nor clear the cart until it is released.
		unlock := locks.Lock(userID.String())

		done := make(chan error, 1)
		go func() {
			_, err := svc.PlaceOrder(ctx, userID, PlaceOrderRequest{
				ShippingAddress: addr,
				PaymentMethod:   order.PaymentMethodOnline,
			})
			done <- err
		}()

		select {
		case <-done:
			t.Fatal("checkout proceeded while the user's cart lock was held")
		case <-time.After(50 * time.Millisecond):
		}
		assert.False(t, c.IsEmpty())
		carts.AssertNotCalled(t, "FindByUser", mock.Anything, mock.Anything)

		unlock()
		require.NoError(t, <-done)
		assert.True(t, c.IsEmpty())
	})

	t.Run("fails for an unknown user", func(t *testing.T) {
		userID := uuid.New()

		carts := new(MockCartRepository)
		orders := new(MockOrderRepository)
		users := new(MockUserRepository)
		ledger := newFakeLedger()

		users.On("FindByID", ctx, userID).Return(nil, shared.ErrNotFound).Once()

		svc := NewCheckoutService(carts, orders, users, ledger, shared.NewKeyedMutex(), zap.NewNop())
		_, err := svc.PlaceOrder(ctx, userID, PlaceOrderRequest{
			ShippingAddress: checkoutAddress(t),
			PaymentMethod:   order.PaymentMethodOnline,
		})

		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		carts.AssertNotCalled(t, "FindByUser", mock.Anything, mock.Anything)
	})
}
