package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a shipping address in a user's address book.
type Address struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	User        *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	FullName    string    `gorm:"column:full_name;not null"`
	PhoneNumber string    `gorm:"column:phone_number;type:varchar(15);not null"`
	Pincode     string    `gorm:"column:pincode;type:varchar(10);not null"`
	City        string    `gorm:"column:city;not null"`
	State       string    `gorm:"column:state;not null"`
	Landmark    *string   `gorm:"column:landmark"`
	AddressLine string    `gorm:"column:address_line;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
