package handler

import (
	"github.com/gin-gonic/gin"

	appidentity "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// UserHandler handles user directory endpoints
type UserHandler struct {
	BaseHandler
	users *appidentity.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users *appidentity.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type registerUserRequest struct {
	Name  string `json:"name" binding:"required,max=200"`
	Email string `json:"email" binding:"required,email,max=200"`
}

// Register handles POST /api/v1/users
func (h *UserHandler) Register(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.users.Register(c.Request.Context(), appidentity.RegisterUserRequest{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// Get handles GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	resp, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing or invalid user identity")
		return
	}

	resp, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// SetDefaultAddress handles PUT /api/v1/users/me/address
func (h *UserHandler) SetDefaultAddress(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing or invalid user identity")
		return
	}

	var req dto.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	addr, err := toAddress(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.users.SetDefaultAddress(c.Request.Context(), userID, addr)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
