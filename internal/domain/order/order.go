package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusReturned  OrderStatus = "RETURNED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPlaced, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true for absorbing states
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusReturned
}

// CanTransitionTo checks if the status can transition to the target status.
// This table is the single source of truth for transition legality.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusPlaced || target == OrderStatusCancelled
	case OrderStatusPlaced:
		return target == OrderStatusConfirmed || target == OrderStatusCancelled
	case OrderStatusConfirmed:
		return target == OrderStatusShipped || target == OrderStatusCancelled
	case OrderStatusShipped:
		return target == OrderStatusDelivered || target == OrderStatusCancelled
	case OrderStatusDelivered:
		return target == OrderStatusReturned
	case OrderStatusCancelled, OrderStatusReturned:
		return false
	}
	return false
}

// NewInvalidTransitionError reports an illegal lifecycle transition
func NewInvalidTransitionError(from, to OrderStatus) *shared.DomainError {
	return shared.NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("Cannot transition order from %s to %s", from, to))
}

// PaymentStatus represents the status of an order's payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
)

// PaymentMethod distinguishes prepaid orders from cash-on-delivery
type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "ONLINE"
	PaymentMethodCOD    PaymentMethod = "COD"
)

// IsValid checks if the method is a known PaymentMethod
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodOnline || m == PaymentMethodCOD
}

// OrderLine is a frozen snapshot of a cart line taken at order creation.
// Quantities and prices are immutable and independent of later catalog
// changes. Lines reference their order by id; there are no back-pointers.
type OrderLine struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID           uuid.UUID       `gorm:"type:uuid;not null"`
	ProductTitle        string          `gorm:"type:varchar(200);not null"`
	VariantName         string          `gorm:"type:varchar(50)"`
	Quantity            int             `gorm:"not null"`
	UnitPrice           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	UnitDiscountedPrice decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt           time.Time
}

// TableName returns the table name for GORM
func (OrderLine) TableName() string {
	return "order_lines"
}

// LineSnapshot carries the data needed to freeze one order line
type LineSnapshot struct {
	ProductID           uuid.UUID
	ProductTitle        string
	VariantName         string
	Quantity            int
	UnitPrice           decimal.Decimal
	UnitDiscountedPrice decimal.Decimal
}

// Totals carries the monetary totals copied from the cart at creation
type Totals struct {
	TotalPrice           decimal.Decimal
	TotalDiscountedPrice decimal.Decimal
	TotalDiscount        decimal.Decimal
	TotalItemCount       int
	DeliveryCharge       decimal.Decimal
}

// Order is the aggregate root for a placed order. Lines, totals and the
// shipping address are an immutable snapshot; after creation only the
// status, payment fields, delivery date and reasons may change, and only
// through the lifecycle methods below.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber          string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	UserID               uuid.UUID           `gorm:"type:uuid;not null;index"`
	ShippingAddress      valueobject.Address `gorm:"type:jsonb"`
	Lines                []OrderLine         `gorm:"foreignKey:OrderID;references:ID"`
	TotalPrice           decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	TotalDiscountedPrice decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	TotalDiscount        decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	TotalItemCount       int                 `gorm:"not null"`
	DeliveryCharge       decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	Status               OrderStatus         `gorm:"type:varchar(20);not null;index"`
	PaymentStatus        PaymentStatus       `gorm:"type:varchar(20);not null"`
	PaymentMethod        PaymentMethod       `gorm:"type:varchar(20);not null"`
	PaymentReference     string              `gorm:"type:varchar(100)"`
	OrderDate            time.Time           `gorm:"not null"`
	DeliveryDate         *time.Time
	CancellationReason   string `gorm:"type:varchar(500)"`
	ReturnReason         string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates an order from a cart snapshot. Lines keep their cart
// insertion order. The order starts PENDING with payment PENDING.
func NewOrder(orderNumber string, userID uuid.UUID, address valueobject.Address, method PaymentMethod, totals Totals, lines []LineSnapshot) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if address.IsZero() {
		return nil, shared.NewDomainError("INVALID_ADDRESS", "Shipping address is required")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method")
	}
	if len(lines) == 0 {
		return nil, shared.ErrEmptyCart
	}

	o := &Order{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		OrderNumber:          orderNumber,
		UserID:               userID,
		ShippingAddress:      address,
		Lines:                make([]OrderLine, 0, len(lines)),
		TotalPrice:           totals.TotalPrice,
		TotalDiscountedPrice: totals.TotalDiscountedPrice,
		TotalDiscount:        totals.TotalDiscount,
		TotalItemCount:       totals.TotalItemCount,
		DeliveryCharge:       totals.DeliveryCharge,
		Status:               OrderStatusPending,
		PaymentStatus:        PaymentStatusPending,
		PaymentMethod:        method,
		OrderDate:            time.Now(),
	}

	for _, snap := range lines {
		if snap.Quantity < 1 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Order line quantity must be at least 1")
		}
		o.Lines = append(o.Lines, OrderLine{
			ID:                  uuid.New(),
			OrderID:             o.ID,
			ProductID:           snap.ProductID,
			ProductTitle:        snap.ProductTitle,
			VariantName:         strings.TrimSpace(snap.VariantName),
			Quantity:            snap.Quantity,
			UnitPrice:           snap.UnitPrice,
			UnitDiscountedPrice: snap.UnitDiscountedPrice,
			CreatedAt:           o.OrderDate,
		})
	}

	o.AddDomainEvent(NewOrderCreatedEvent(o))

	return o, nil
}

// Place transitions PENDING -> PLACED once payment has completed. The payment
// collaborator reports the reference; the lifecycle records it.
func (o *Order) Place(paymentReference string) error {
	if !o.Status.CanTransitionTo(OrderStatusPlaced) {
		return NewInvalidTransitionError(o.Status, OrderStatusPlaced)
	}

	o.Status = OrderStatusPlaced
	o.PaymentStatus = PaymentStatusCompleted
	o.PaymentReference = paymentReference
	o.touch()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, ""))

	return nil
}

// Confirm transitions PLACED -> CONFIRMED
func (o *Order) Confirm() error {
	if !o.Status.CanTransitionTo(OrderStatusConfirmed) {
		return NewInvalidTransitionError(o.Status, OrderStatusConfirmed)
	}

	o.Status = OrderStatusConfirmed
	o.touch()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, ""))

	return nil
}

// Ship transitions CONFIRMED -> SHIPPED
func (o *Order) Ship() error {
	if !o.Status.CanTransitionTo(OrderStatusShipped) {
		return NewInvalidTransitionError(o.Status, OrderStatusShipped)
	}

	o.Status = OrderStatusShipped
	o.touch()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, ""))

	return nil
}

// Deliver transitions SHIPPED -> DELIVERED, records the delivery date and,
// for cash-on-delivery orders still awaiting payment, marks payment complete.
func (o *Order) Deliver(now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusDelivered) {
		return NewInvalidTransitionError(o.Status, OrderStatusDelivered)
	}

	o.Status = OrderStatusDelivered
	o.DeliveryDate = &now
	if o.PaymentMethod == PaymentMethodCOD && o.PaymentStatus == PaymentStatusPending {
		o.PaymentStatus = PaymentStatusCompleted
	}
	o.touch()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, ""))

	return nil
}

// Cancel transitions any pre-delivery state to CANCELLED and records the
// reason. Delivered, returned and already-cancelled orders cannot be
// cancelled.
func (o *Order) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return NewInvalidTransitionError(o.Status, OrderStatusCancelled)
	}

	o.Status = OrderStatusCancelled
	o.CancellationReason = reason
	o.touch()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, reason))

	return nil
}

// Return transitions DELIVERED -> RETURNED when the return window policy
// allows it, recording the reason. Orders outside the window or not yet
// delivered cannot be returned.
func (o *Order) Return(reason string, now time.Time, policy ReturnWindowPolicy) error {
	if !o.Status.CanTransitionTo(OrderStatusReturned) {
		return NewInvalidTransitionError(o.Status, OrderStatusReturned)
	}
	if !policy.IsEligible(o.DeliveryDate, now) {
		return shared.NewDomainError("RETURN_WINDOW_EXPIRED",
			fmt.Sprintf("Order cannot be returned more than %d days after delivery", policy.WindowDays))
	}

	o.Status = OrderStatusReturned
	o.ReturnReason = reason
	o.touch()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, reason))

	return nil
}

// GetTotalDiscountedPriceMoney returns the payable total as Money
func (o *Order) GetTotalDiscountedPriceMoney() valueobject.Money {
	return valueobject.NewMoneyINR(o.TotalDiscountedPrice)
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}
