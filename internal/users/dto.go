package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// UserDTO is the account as returned by the API. The password hash never
// leaves this package's callers.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       *string    `json:"phone,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	return &dto
}

// NewUser is a signup that already passed validation and hashing.
// Accounts start active.
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
}

func (n NewUser) model() *models.User {
	return &models.User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(n.Email),
		PasswordHash: n.PasswordHash,
		FirstName:    strings.TrimSpace(n.FirstName),
		LastName:     strings.TrimSpace(n.LastName),
		Phone:        n.Phone,
		IsActive:     true,
	}
}

// FullName is how order emails address the customer.
func FullName(u *models.User) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
