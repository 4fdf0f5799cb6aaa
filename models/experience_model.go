package models

import (
	"time"

	"github.com/google/uuid"
)

type Experience struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	HostID uuid.UUID `gorm:"not null;index" json:"host_id"`

	Title            string  `gorm:"size:255;not null" json:"title"`
	Description      *string `gorm:"type:text" json:"description"`
	PricePerGuest    int64   `gorm:"not null" json:"price_per_guest"`
	PrivateFlatPrice *int64  `json:"private_flat_price"`
	MaxGuests        int     `gorm:"not null;default:1" json:"max_guests"`
	DurationMinutes  int     `gorm:"not null;default:60" json:"duration_minutes"`
	Status           string  `gorm:"size:20;not null;default:'active'" json:"status"`

	Host User `gorm:"foreignkey:HostID" json:"host,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
