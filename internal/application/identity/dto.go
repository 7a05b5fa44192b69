package identity

import (
	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// RegisterUserRequest carries the data for registering a user
type RegisterUserRequest struct {
	Name  string
	Email string
}

// UserResponse represents a user in service responses
type UserResponse struct {
	ID             uuid.UUID            `json:"id"`
	Name           string               `json:"name"`
	Email          string               `json:"email"`
	DefaultAddress *valueobject.Address `json:"default_address,omitempty"`
}

// ToUserResponse converts a user aggregate to its response form
func ToUserResponse(u *identity.User) UserResponse {
	resp := UserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
	if !u.DefaultAddress.IsZero() {
		addr := u.DefaultAddress
		resp.DefaultAddress = &addr
	}
	return resp
}
