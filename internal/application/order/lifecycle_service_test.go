package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

func lifecycleOrder(t *testing.T, status order.OrderStatus) *order.Order {
	t.Helper()

	o, err := order.NewOrder("ORD-2026-00007", uuid.New(), checkoutAddress(t), order.PaymentMethodOnline,
		order.Totals{
			TotalPrice:           decimal.NewFromInt(2500),
			TotalDiscountedPrice: decimal.NewFromInt(2100),
			TotalDiscount:        decimal.NewFromInt(400),
			TotalItemCount:       3,
			DeliveryCharge:       decimal.NewFromInt(0),
		},
		[]order.LineSnapshot{
			{ProductID: uuid.New(), ProductTitle: "Plain Tee", VariantName: "M", Quantity: 2,
				UnitPrice: decimal.NewFromInt(1000), UnitDiscountedPrice: decimal.NewFromInt(800)},
			{ProductID: uuid.New(), ProductTitle: "Mug", Quantity: 1,
				UnitPrice: decimal.NewFromInt(500), UnitDiscountedPrice: decimal.NewFromInt(500)},
		})
	require.NoError(t, err)

	// Walk the order to the requested status through the real transitions
	switch status {
	case order.OrderStatusPending:
	case order.OrderStatusPlaced:
		require.NoError(t, o.Place("pay_7"))
	case order.OrderStatusConfirmed:
		require.NoError(t, o.Place("pay_7"))
		require.NoError(t, o.Confirm())
	case order.OrderStatusShipped:
		require.NoError(t, o.Place("pay_7"))
		require.NoError(t, o.Confirm())
		require.NoError(t, o.Ship())
	case order.OrderStatusDelivered:
		require.NoError(t, o.Place("pay_7"))
		require.NoError(t, o.Confirm())
		require.NoError(t, o.Ship())
		require.NoError(t, o.Deliver(time.Now()))
	default:
		t.Fatalf("unsupported starting status %s", status)
	}
	o.ClearDomainEvents()
	return o
}

func newLifecycleService(orders order.Repository, ledger StockLedger) *LifecycleService {
	return NewLifecycleService(orders, ledger, order.DefaultReturnWindowPolicy(), zap.NewNop())
}

func TestLifecycleTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("place persists the transition with a version check", func(t *testing.T) {
		o := lifecycleOrder(t, order.OrderStatusPending)
		orders := new(MockOrderRepository)
		orders.On("FindByID", ctx, o.ID).Return(o, nil).Once()
		orders.On("SaveWithLock", ctx, o).Return(nil).Once()

		svc := newLifecycleService(orders, newFakeLedger())
		resp, err := svc.Place(ctx, o.ID, "pay_7")

		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusPlaced, resp.Status)
		assert.Equal(t, "pay_7", resp.PaymentReference)
		orders.AssertExpectations(t)
	})

	t.Run("illegal transition leaves the order unsaved", func(t *testing.T) {
		o := lifecycleOrder(t, order.OrderStatusPending)
		orders := new(MockOrderRepository)
		orders.On("FindByID", ctx, o.ID).Return(o, nil).Once()

		svc := newLifecycleService(orders, newFakeLedger())
		_, err := svc.Ship(ctx, o.ID)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "INVALID_TRANSITION", domainErr.Code)
		orders.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("concurrency conflict propagates", func(t *testing.T) {
		o := lifecycleOrder(t, order.OrderStatusPlaced)
		orders := new(MockOrderRepository)
		orders.On("FindByID", ctx, o.ID).Return(o, nil).Once()
		orders.On("SaveWithLock", ctx, o).Return(shared.ErrConcurrencyConflict).Once()

		svc := newLifecycleService(orders, newFakeLedger())
		_, err := svc.Confirm(ctx, o.ID)

		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
	})

	t.Run("deliver stamps the injected clock", func(t *testing.T) {
		o := lifecycleOrder(t, order.OrderStatusShipped)
		orders := new(MockOrderRepository)
		orders.On("FindByID", ctx, o.ID).Return(o, nil).Once()
		orders.On("SaveWithLock", ctx, o).Return(nil).Once()

		deliveredAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
		svc := newLifecycleService(orders, newFakeLedger())
		svc.SetClock(func() time.Time { return deliveredAt })

		resp, err := svc.Deliver(ctx, o.ID)
		require.NoError(t, err)
		require.NotNil(t, resp.DeliveryDate)
		assert.True(t, resp.DeliveryDate.Equal(deliveredAt))
	})
}

func TestLifecycleCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancelling an unshipped order restocks every line", func(t *testing.T) {
		o := lifecycleOrder(t, order.OrderStatusConfirmed)
		orders := new(MockOrderRepository)
		orders.On("FindByID", ctx, o.ID).Return(o, nil).Once()
		orders.On("SaveWithLock", ctx, o).Return(nil).Once()

		ledger := newFakeLedger()
		svc := newLifecycleService(orders, ledger)

		resp, err := svc.Cancel(ctx, o.ID, "changed my mind")
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusCancelled, resp.Status)

		require.Len(t, ledger.calls, 2)
		assert.Equal(t, "release", ledger.calls[0].op)
		assert.Equal(t, o.Lines[0].ProductID, ledger.calls[0].productID)
		assert.Equal(t, 2, ledger.calls[0].quantity)
		assert.Equal(t, o.Lines[1].ProductID, ledger.calls[1].productID)
	})

	t.Run("cancelling a shipped order does not restock", func(t *testing.T) {
		o := lifecycleOrder(t, order.OrderStatusShipped)
		orders := new(MockOrderRepository)
		orders.On("FindByID", ctx, o.ID).Return(o, nil).Once()
		orders.On("SaveWithLock", ctx, o).Return(nil).Once()

		ledger := newFakeLedger()
		svc := newLifecycleService(orders, ledger)

		resp, err := svc.Cancel(ctx, o.ID, "lost in transit")
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusCancelled, resp.Status)
		assert.Empty(t, ledger.calls)
	})

	t.Run("cancelling a delivered order fails and nothing is restocked", func(t *testing.T) {
		o := lifecycleOrder(t, order.OrderStatusDelivered)
		orders := new(MockOrderRepository)
		orders.On("FindByID", ctx, o.ID).Return(o, nil).Once()

		ledger := newFakeLedger()
		svc := newLifecycleService(orders, ledger)

		_, err := svc.Cancel(ctx, o.ID, "too late")
		require.Error(t, err)
		assert.Empty(t, ledger.calls)
		orders.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestLifecycleReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts a return inside the window", func(t *testing.T) {
		o := lifecycleOrder(t, order.OrderStatusDelivered)
		orders := new(MockOrderRepository)
		orders.On("FindByID", ctx, o.ID).Return(o, nil).Once()
		orders.On("SaveWithLock", ctx, o).Return(nil).Once()

		svc := newLifecycleService(orders, newFakeLedger())

		resp, err := svc.Return(ctx, o.ID, "wrong size")
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusReturned, resp.Status)
		assert.Equal(t, "wrong size", resp.ReturnReason)
	})

	t.Run("rejects a return outside the window", func(t *testing.T) {
		o := lifecycleOrder(t, order.OrderStatusDelivered)
		orders := new(MockOrderRepository)
		orders.On("FindByID", ctx, o.ID).Return(o, nil).Once()

		svc := newLifecycleService(orders, newFakeLedger())
		svc.SetClock(func() time.Time { return time.Now().AddDate(0, 0, 9) })

		_, err := svc.Return(ctx, o.ID, "wrong size")
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "RETURN_WINDOW_EXPIRED", domainErr.Code)
		orders.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestLifecycleQueries(t *testing.T) {
	ctx := context.Background()

	t.Run("lists a user's orders", func(t *testing.T) {
		userID := uuid.New()
		o := lifecycleOrder(t, order.OrderStatusPlaced)
		orders := new(MockOrderRepository)
		orders.On("FindByUser", ctx, userID, mock.AnythingOfType("shared.Filter")).
			Return([]order.Order{*o}, nil).Once()

		svc := newLifecycleService(orders, newFakeLedger())
		list, err := svc.ListUserOrders(ctx, userID, shared.Filter{})

		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, o.OrderNumber, list[0].OrderNumber)
	})

	t.Run("paginates the operator listing", func(t *testing.T) {
		o := lifecycleOrder(t, order.OrderStatusPlaced)
		orders := new(MockOrderRepository)
		orders.On("FindAll", ctx, mock.AnythingOfType("shared.Filter")).
			Return([]order.Order{*o}, nil).Once()
		orders.On("Count", ctx, mock.AnythingOfType("shared.Filter")).
			Return(int64(41), nil).Once()

		svc := newLifecycleService(orders, newFakeLedger())
		page, err := svc.ListOrders(ctx, shared.Filter{Page: 2, PageSize: 20})

		require.NoError(t, err)
		assert.Equal(t, int64(41), page.Total)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, 3, page.TotalPages)
	})

	t.Run("get by order number", func(t *testing.T) {
		o := lifecycleOrder(t, order.OrderStatusPlaced)
		orders := new(MockOrderRepository)
		orders.On("FindByOrderNumber", ctx, o.OrderNumber).Return(o, nil).Once()

		svc := newLifecycleService(orders, newFakeLedger())
		resp, err := svc.GetByOrderNumber(ctx, o.OrderNumber)

		require.NoError(t, err)
		assert.Equal(t, o.ID, resp.ID)
	})
}
