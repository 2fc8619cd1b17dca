package address

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Input is the create/update payload.
type Input struct {
	FullName    string  `json:"full_name" validate:"required,max=255"`
	PhoneNumber string  `json:"phone_number" validate:"required,max=15,phone"`
	Pincode     string  `json:"pincode" validate:"required,max=10,pincode"`
	City        string  `json:"city" validate:"required,max=100"`
	State       string  `json:"state" validate:"required,max=100"`
	Landmark    *string `json:"landmark,omitempty" validate:"omitempty,max=255"`
	AddressLine string  `json:"address_line" validate:"required"`
}

// DTO is the public address payload.
type DTO struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"full_name"`
	PhoneNumber string    `json:"phone_number"`
	Pincode     string    `json:"pincode"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Landmark    *string   `json:"landmark,omitempty"`
	AddressLine string    `json:"address_line"`
	CreatedAt   time.Time `json:"created_at"`
}

func FromModel(a *models.Address) DTO {
	return DTO{
		ID:          a.ID,
		FullName:    a.FullName,
		PhoneNumber: a.PhoneNumber,
		Pincode:     a.Pincode,
		City:        a.City,
		State:       a.State,
		Landmark:    a.Landmark,
		AddressLine: a.AddressLine,
		CreatedAt:   a.CreatedAt,
	}
}

func FromModels(addresses []models.Address) []DTO {
	out := make([]DTO, 0, len(addresses))
	for i := range addresses {
		out = append(out, FromModel(&addresses[i]))
	}
	return out
}
