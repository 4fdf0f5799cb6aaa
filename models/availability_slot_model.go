package models

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilitySlot is the capacity counter for one bookable
// (experience, date, start time) tuple. CapacityRemaining is only
// mutated inside a row-locked transaction by the reservation and
// cancellation paths.
type AvailabilitySlot struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ExperienceID uuid.UUID `gorm:"not null;uniqueIndex:idx_slot_key" json:"experience_id"`
	Date         string    `gorm:"size:10;not null;uniqueIndex:idx_slot_key" json:"date"`
	StartTime    string    `gorm:"size:5;not null;uniqueIndex:idx_slot_key" json:"start_time"`

	MaxGuests         int `gorm:"not null;default:1" json:"max_guests"`
	CapacityRemaining int `gorm:"not null;default:0" json:"capacity_remaining"`

	Experience Experience `gorm:"foreignkey:ExperienceID" json:"experience,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (s *AvailabilitySlot) StartsAt() (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", s.Date+" "+s.StartTime, time.Local)
}
