package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appcart "github.com/storefront/backend/internal/application/cart"
)

// CartHandler handles the acting user's cart endpoints
type CartHandler struct {
	BaseHandler
	carts *appcart.CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts *appcart.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type addCartLineRequest struct {
	ProductID   string `json:"product_id" binding:"required,uuid"`
	VariantName string `json:"variant_name" binding:"omitempty,max=50"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
}

type updateCartLineRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// Get handles GET /api/v1/cart
func (h *CartHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing or invalid user identity")
		return
	}

	resp, err := h.carts.GetCart(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// AddLine handles POST /api/v1/cart/lines
func (h *CartHandler) AddLine(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing or invalid user identity")
		return
	}

	var req addCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	resp, err := h.carts.AddLine(c.Request.Context(), userID, appcart.AddLineRequest{
		ProductID:   productID,
		VariantName: req.VariantName,
		Quantity:    req.Quantity,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// UpdateLine handles PUT /api/v1/cart/lines/:id
func (h *CartHandler) UpdateLine(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing or invalid user identity")
		return
	}

	lineID, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid line ID")
		return
	}

	var req updateCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.carts.UpdateLineQuantity(c.Request.Context(), userID, lineID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// RemoveLine handles DELETE /api/v1/cart/lines/:id
func (h *CartHandler) RemoveLine(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing or invalid user identity")
		return
	}

	lineID, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid line ID")
		return
	}

	resp, err := h.carts.RemoveLine(c.Request.Context(), userID, lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Clear handles DELETE /api/v1/cart
func (h *CartHandler) Clear(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing or invalid user identity")
		return
	}

	if err := h.carts.Clear(c.Request.Context(), userID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
