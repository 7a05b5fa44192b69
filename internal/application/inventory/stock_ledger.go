package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// DefaultMaxAttempts bounds the compare-and-swap retry loop
const DefaultMaxAttempts = 3

// StockLedger is the single authority for decrementing and restoring product
// stock. Every mutation is a read-modify-write applied with an optimistic
// version check, retried a bounded number of times on conflict, so that two
// concurrent reservations against the same product never both succeed when
// only enough stock for one remains.
type StockLedger struct {
	products    catalog.ProductRepository
	publisher   shared.EventPublisher
	logger      *zap.Logger
	maxAttempts int
}

// NewStockLedger creates a new StockLedger
func NewStockLedger(products catalog.ProductRepository, logger *zap.Logger) *StockLedger {
	return &StockLedger{
		products:    products,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
	}
}

// SetEventPublisher sets the event publisher for stock events
func (l *StockLedger) SetEventPublisher(publisher shared.EventPublisher) {
	l.publisher = publisher
}

// SetMaxAttempts overrides the conflict retry budget
func (l *StockLedger) SetMaxAttempts(attempts int) {
	if attempts > 0 {
		l.maxAttempts = attempts
	}
}

// Reserve decrements stock for an order line. A shortfall or unknown variant
// fails with the product's insufficient-stock error and is never retried;
// only version conflicts from concurrent writers are.
func (l *StockLedger) Reserve(ctx context.Context, productID uuid.UUID, variantName string, quantity int) error {
	return l.apply(ctx, productID, func(p *catalog.Product) error {
		return p.Reserve(variantName, quantity)
	})
}

// Release restores previously reserved stock, the inverse of Reserve. Used
// for compensating rollback of a failed checkout and for pre-shipment
// cancellations where stock returns to sale.
func (l *StockLedger) Release(ctx context.Context, productID uuid.UUID, variantName string, quantity int) error {
	return l.apply(ctx, productID, func(p *catalog.Product) error {
		return p.Release(variantName, quantity)
	})
}

// apply runs a stock mutation under the compare-and-swap loop
func (l *StockLedger) apply(ctx context.Context, productID uuid.UUID, mutate func(*catalog.Product) error) error {
	var lastErr error

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		product, err := l.products.FindByID(ctx, productID)
		if err != nil {
			return err
		}

		if err := mutate(product); err != nil {
			return err
		}

		err = l.products.SaveWithLock(ctx, product)
		if err == nil {
			l.publishEvents(ctx, product)
			return nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}

		lastErr = err
		l.logger.Debug("stock update lost the version race, retrying",
			zap.String("product_id", productID.String()),
			zap.Int("attempt", attempt),
		)
	}

	l.logger.Warn("stock update exhausted retries",
		zap.String("product_id", productID.String()),
		zap.Int("attempts", l.maxAttempts),
	)
	return lastErr
}

// publishEvents publishes the aggregate's pending events; failures are
// logged, never propagated, since the stock change is already durable.
func (l *StockLedger) publishEvents(ctx context.Context, product *catalog.Product) {
	if l.publisher == nil {
		return
	}
	events := product.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := l.publisher.Publish(ctx, events...); err != nil {
		l.logger.Error("failed to publish stock events",
			zap.String("product_id", product.ID.String()),
			zap.Error(err),
		)
	}
	product.ClearDomainEvents()
}
