package handler

import (
	"github.com/gin-gonic/gin"

	appcatalog "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// ProductHandler handles catalog endpoints
type ProductHandler struct {
	BaseHandler
	products *appcatalog.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products *appcatalog.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

type createProductRequest struct {
	Code            string                  `json:"code" binding:"required,max=50"`
	Title           string                  `json:"title" binding:"required,max=200"`
	Description     string                  `json:"description"`
	Brand           string                  `json:"brand" binding:"omitempty,max=100"`
	Category        string                  `json:"category" binding:"omitempty,max=100"`
	Price           string                  `json:"price" binding:"required"`
	DiscountedPrice string                  `json:"discounted_price" binding:"required"`
	Quantity        int                     `json:"quantity" binding:"omitempty,min=0"`
	Variants        []productVariantRequest `json:"variants"`
}

type updateProductRequest struct {
	Title           string `json:"title" binding:"required,max=200"`
	Description     string `json:"description"`
	Brand           string `json:"brand" binding:"omitempty,max=100"`
	Category        string `json:"category" binding:"omitempty,max=100"`
	Price           string `json:"price"`
	DiscountedPrice string `json:"discounted_price"`
}

type productVariantRequest struct {
	Name     string `json:"name" binding:"required,max=50"`
	Quantity int    `json:"quantity" binding:"min=0"`
}

type setStockRequest struct {
	Quantity int                     `json:"quantity" binding:"omitempty,min=0"`
	Variants []productVariantRequest `json:"variants"`
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// Create handles POST /api/v1/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.products.CreateProduct(c.Request.Context(), appcatalog.CreateProductRequest{
		Code:            req.Code,
		Title:           req.Title,
		Description:     req.Description,
		Brand:           req.Brand,
		Category:        req.Category,
		Price:           req.Price,
		DiscountedPrice: req.DiscountedPrice,
		Quantity:        req.Quantity,
		Variants:        toVariantRequests(req.Variants),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// Update handles PUT /api/v1/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.products.UpdateProduct(c.Request.Context(), id, appcatalog.UpdateProductRequest{
		Title:           req.Title,
		Description:     req.Description,
		Brand:           req.Brand,
		Category:        req.Category,
		Price:           req.Price,
		DiscountedPrice: req.DiscountedPrice,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// SetStock handles PUT /api/v1/products/:id/stock
func (h *ProductHandler) SetStock(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	var req setStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.products.SetStock(c.Request.Context(), id, appcatalog.SetStockRequest{
		Quantity: req.Quantity,
		Variants: toVariantRequests(req.Variants),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// SetActive handles PUT /api/v1/products/:id/active
func (h *ProductHandler) SetActive(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.products.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Get handles GET /api/v1/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	resp, err := h.products.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// GetByCode handles GET /api/v1/products/code/:code
func (h *ProductHandler) GetByCode(c *gin.Context) {
	resp, err := h.products.GetProductByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// List handles GET /api/v1/products
func (h *ProductHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	filter := toFilter(req)
	if category := c.Query("category"); category != "" {
		filter.Filters["category"] = category
	}
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}

	page, err := h.products.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Delete handles DELETE /api/v1/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	if err := h.products.DeleteProduct(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

func toVariantRequests(reqs []productVariantRequest) []appcatalog.VariantRequest {
	out := make([]appcatalog.VariantRequest, 0, len(reqs))
	for _, v := range reqs {
		out = append(out, appcatalog.VariantRequest{Name: v.Name, Quantity: v.Quantity})
	}
	return out
}
