package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/application/inventory"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// setupStorefrontTestDB extends the catalog schema with the cart, order and
// user tables so a checkout can run against a real database.
func setupStorefrontTestDB(t *testing.T) *gorm.DB {
	db := setupStockTestDB(t)

	err := db.Exec(`
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			created_at DATETIME,
			updated_at DATETIME,
			version INTEGER NOT NULL DEFAULT 1,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			default_address TEXT
		)
	`).Error
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE carts (
			id TEXT PRIMARY KEY,
			created_at DATETIME,
			updated_at DATETIME,
			version INTEGER NOT NULL DEFAULT 1,
			user_id TEXT NOT NULL UNIQUE,
			total_price NUMERIC NOT NULL DEFAULT 0,
			total_discounted_price NUMERIC NOT NULL DEFAULT 0,
			total_discount NUMERIC NOT NULL DEFAULT 0,
			total_item_count INTEGER NOT NULL DEFAULT 0,
			delivery_charge NUMERIC NOT NULL DEFAULT 0
		)
	`).Error
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE cart_lines (
			id TEXT PRIMARY KEY,
			cart_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			product_title TEXT NOT NULL,
			variant_name TEXT,
			quantity INTEGER NOT NULL,
			unit_price NUMERIC NOT NULL,
			unit_discounted_price NUMERIC NOT NULL,
			line_total NUMERIC NOT NULL,
			line_discounted_total NUMERIC NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE orders (
			id TEXT PRIMARY KEY,
			created_at DATETIME,
			updated_at DATETIME,
			version INTEGER NOT NULL DEFAULT 1,
			order_number TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			shipping_address TEXT,
			total_price NUMERIC NOT NULL,
			total_discounted_price NUMERIC NOT NULL,
			total_discount NUMERIC NOT NULL,
			total_item_count INTEGER NOT NULL,
			delivery_charge NUMERIC NOT NULL,
			status TEXT NOT NULL,
			payment_status TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			payment_reference TEXT,
			order_date DATETIME NOT NULL,
			delivery_date DATETIME,
			cancellation_reason TEXT,
			return_reason TEXT
		)
	`).Error
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE order_lines (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			product_title TEXT NOT NULL,
			variant_name TEXT,
			quantity INTEGER NOT NULL,
			unit_price NUMERIC NOT NULL,
			unit_discounted_price NUMERIC NOT NULL,
			created_at DATETIME
		)
	`).Error
	require.NoError(t, err)

	return db
}

// TestCheckoutFlow_EndToEnd drives a real cart, product, stock ledger and
// checkout against the database: totals with the delivery charge, stock
// coming down on the aggregate and the variant together, the frozen order
// snapshot, and the emptied cart.
func TestCheckoutFlow_EndToEnd(t *testing.T) {
	ctx := context.Background()
	db := setupStorefrontTestDB(t)

	productRepo := NewGormProductRepository(db)
	cartRepo := NewGormCartRepository(db)
	orderRepo := NewGormOrderRepository(db)
	userRepo := NewGormUserRepository(db)

	user, err := identity.NewUser("Asha Rao", "asha@example.com")
	require.NoError(t, err)
	require.NoError(t, userRepo.Save(ctx, user))

	product, err := catalog.NewProduct("TEE-003", "Henley Tee",
		valueobject.NewMoneyINRFromInt(3500),
		valueobject.NewMoneyINRFromInt(3000),
	)
	require.NoError(t, err)
	require.NoError(t, product.SetVariants([]catalog.VariantInput{{Name: "M", Quantity: 5}}))
	product.ClearDomainEvents()
	require.NoError(t, productRepo.Save(ctx, product))

	c, err := cart.NewCart(user.ID)
	require.NoError(t, err)
	_, err = c.AddLine(product, "M", 2, cart.DefaultDeliveryChargePolicy())
	require.NoError(t, err)
	require.NoError(t, cartRepo.Save(ctx, c))

	ledger := inventory.NewStockLedger(productRepo, zap.NewNop())
	svc := orderapp.NewCheckoutService(cartRepo, orderRepo, userRepo, ledger,
		shared.NewKeyedMutex(), zap.NewNop())

	addr, err := valueobject.NewAddress("Asha Rao", "12 MG Road", "Bengaluru", "Karnataka", "560001")
	require.NoError(t, err)

	resp, err := svc.PlaceOrder(ctx, user.ID, orderapp.PlaceOrderRequest{
		ShippingAddress: addr,
		PaymentMethod:   order.PaymentMethodCOD,
	})
	require.NoError(t, err)

	// Two units at 3000 discounted sit below the free-delivery threshold
	assert.Equal(t, "7000", resp.TotalPrice)
	assert.Equal(t, "6400", resp.TotalDiscountedPrice)
	assert.Equal(t, "400", resp.DeliveryCharge)
	assert.Equal(t, order.OrderStatusPending, resp.Status)
	assert.Equal(t, order.PaymentStatusPending, resp.PaymentStatus)

	persisted, err := orderRepo.FindByOrderNumber(ctx, resp.OrderNumber)
	require.NoError(t, err)
	require.Len(t, persisted.Lines, 1)
	assert.Equal(t, product.ID, persisted.Lines[0].ProductID)
	assert.Equal(t, "M", persisted.Lines[0].VariantName)
	assert.Equal(t, 2, persisted.Lines[0].Quantity)
	assert.Equal(t, "3000", persisted.Lines[0].UnitDiscountedPrice.String())

	// Stock came down on the aggregate and the variant together
	stocked, err := productRepo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stocked.Quantity)
	m, ok := stocked.VariantQuantity("M")
	require.True(t, ok)
	assert.Equal(t, 3, m)

	// The cart survives the checkout emptied, with zeroed totals
	emptied, err := cartRepo.FindByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, emptied.IsEmpty())
	assert.Equal(t, "0", emptied.TotalDiscountedPrice.String())
	assert.Equal(t, 0, emptied.TotalItemCount)
}

// rivalOnFirstRead hands the stock to another buyer between a reader's load
// and its write, forcing exactly one version conflict.
type rivalOnFirstRead struct {
	catalog.ProductRepository
	once  sync.Once
	rival func()
}

func (r *rivalOnFirstRead) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, err := r.ProductRepository.FindByID(ctx, id)
	r.once.Do(r.rival)
	return p, err
}

// TestStockLedger_LastUnitGoesToOneBuyer runs the reservation loop into a
// lost version race for the last unit: the stale write is rejected, the
// re-read finds nothing left, and the loser gets insufficient stock rather
// than a second decrement.
func TestStockLedger_LastUnitGoesToOneBuyer(t *testing.T) {
	ctx := context.Background()
	db := setupStockTestDB(t)
	repo := NewGormProductRepository(db)

	product, err := catalog.NewProduct("MUG-007", "Clay Mug",
		valueobject.NewMoneyINRFromInt(450),
		valueobject.NewMoneyINRFromInt(450),
	)
	require.NoError(t, err)
	require.NoError(t, product.SetQuantity(1))
	product.ClearDomainEvents()
	require.NoError(t, repo.Save(ctx, product))

	winner := inventory.NewStockLedger(repo, zap.NewNop())

	var winnerErr error
	contended := &rivalOnFirstRead{
		ProductRepository: repo,
		rival: func() {
			winnerErr = winner.Reserve(ctx, product.ID, "", 1)
		},
	}
	loser := inventory.NewStockLedger(contended, zap.NewNop())

	err = loser.Reserve(ctx, product.ID, "", 1)
	require.NoError(t, winnerErr)
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "INSUFFICIENT_STOCK", domainErr.Code)

	current, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, current.Quantity)
}
