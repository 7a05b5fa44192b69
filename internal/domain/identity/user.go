package identity

import (
	"strings"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// User is the storefront account an order and cart belong to. Authentication
// and session handling live outside this module; the engine only needs the
// directory record for address snapshots and notification recipients.
type User struct {
	shared.BaseAggregateRoot
	Name           string              `gorm:"type:varchar(200);not null"`
	Email          string              `gorm:"type:varchar(200);not null;uniqueIndex"`
	DefaultAddress valueobject.Address `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// NewUser creates a new user
func NewUser(name, email string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" || len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Name is required and cannot exceed 200 characters")
	}
	if email == "" || !strings.Contains(email, "@") || len(email) > 200 {
		return nil, shared.NewDomainError("INVALID_EMAIL", "A valid email is required")
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Email:             email,
	}, nil
}

// SetDefaultAddress records the user's preferred shipping address
func (u *User) SetDefaultAddress(addr valueobject.Address) {
	u.DefaultAddress = addr
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}
