package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Notification records a delivered order notification.
type Notification struct {
	ID        uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID   uuid.UUID                 `gorm:"column:event_id;type:uuid;not null;uniqueIndex"`
	OrderID   *uuid.UUID                `gorm:"column:order_id;type:uuid"`
	Order     *Order                    `gorm:"foreignKey:OrderID;constraint:OnDelete:SET NULL"`
	Channel   enums.NotificationChannel `gorm:"column:channel;type:text;not null;default:'email'"`
	Recipient string                    `gorm:"column:recipient;not null"`
	Subject   string                    `gorm:"column:subject;not null"`
	Body      string                    `gorm:"column:body;type:text;not null"`
	SentAt    *time.Time                `gorm:"column:sent_at"`
	CreatedAt time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
