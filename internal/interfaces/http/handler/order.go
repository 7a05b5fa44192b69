package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// OrderHandler handles checkout and order lifecycle endpoints
type OrderHandler struct {
	BaseHandler
	checkout  *apporder.CheckoutService
	lifecycle *apporder.LifecycleService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(checkout *apporder.CheckoutService, lifecycle *apporder.LifecycleService) *OrderHandler {
	return &OrderHandler{checkout: checkout, lifecycle: lifecycle}
}

type checkoutRequest struct {
	ShippingAddress dto.AddressRequest `json:"shipping_address" binding:"required"`
	PaymentMethod   string             `json:"payment_method" binding:"required,oneof=ONLINE COD"`
}

type placeOrderRequest struct {
	PaymentReference string `json:"payment_reference" binding:"omitempty,max=200"`
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// Checkout handles POST /api/v1/orders/checkout. An Idempotency-Key header,
// when supplied, rejects replays of the same checkout.
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing or invalid user identity")
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	addr, err := toAddress(req.ShippingAddress)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.checkout.PlaceOrder(c.Request.Context(), userID, apporder.PlaceOrderRequest{
		ShippingAddress: addr,
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
		IdempotencyKey:  c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// Get handles GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.lifecycle.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// GetByNumber handles GET /api/v1/orders/number/:number
func (h *OrderHandler) GetByNumber(c *gin.Context) {
	resp, err := h.lifecycle.GetByOrderNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ListMine handles GET /api/v1/orders/mine, the acting user's order history
func (h *OrderHandler) ListMine(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing or invalid user identity")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	list, err := h.lifecycle.ListUserOrders(c.Request.Context(), userID, toFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, list)
}

// List handles GET /api/v1/orders, the operator view
func (h *OrderHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	filter := toFilter(req)
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}
	if userID := c.Query("user_id"); userID != "" {
		filter.Filters["user_id"] = userID
	}

	page, err := h.lifecycle.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Place handles POST /api/v1/orders/:id/place
func (h *OrderHandler) Place(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.lifecycle.Place(c.Request.Context(), id, req.PaymentReference)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Confirm handles POST /api/v1/orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.lifecycle.Confirm(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Ship handles POST /api/v1/orders/:id/ship
func (h *OrderHandler) Ship(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.lifecycle.Ship(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Deliver handles POST /api/v1/orders/:id/deliver
func (h *OrderHandler) Deliver(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.lifecycle.Deliver(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Cancel handles POST /api/v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.lifecycle.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Return handles POST /api/v1/orders/:id/return
func (h *OrderHandler) Return(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.lifecycle.Return(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// toAddress converts the request form of an address into the value object
func toAddress(req dto.AddressRequest) (valueobject.Address, error) {
	opts := make([]valueobject.AddressOption, 0, 2)
	if req.Country != "" {
		opts = append(opts, valueobject.WithCountry(req.Country))
	}
	if req.Phone != "" {
		opts = append(opts, valueobject.WithPhone(req.Phone))
	}
	return valueobject.NewAddress(req.Recipient, req.Street, req.City, req.State, req.PostalCode, opts...)
}
