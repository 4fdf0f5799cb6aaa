package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	BookingPending               = "pending"
	BookingConfirmed             = "confirmed"
	BookingDeclined              = "declined"
	BookingCancellationRequested = "cancellation_requested"
	BookingCancelled             = "cancelled"

	PayoutPending = "pending"
	PayoutPaid    = "paid"
)

// Booking is the durable record of one reservation attempt. Money
// columns are minor currency units; TotalAmount = BaseAmount +
// PlatformFee and PlatformRevenue = TotalAmount - HostPayoutAmount
// hold for every row. HostPayoutAmount is fixed once at confirmation
// and only changed again by an explicit cancellation override.
type Booking struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ExperienceID       uuid.UUID `gorm:"not null;index" json:"experience_id"`
	GuestID            uuid.UUID `gorm:"not null;index" json:"guest_id"`
	HostID             uuid.UUID `gorm:"not null;index" json:"host_id"`
	AvailabilitySlotID uuid.UUID `gorm:"not null" json:"availability_slot_id"`

	Date       string `gorm:"size:10;not null" json:"date"`
	StartTime  string `gorm:"size:5;not null" json:"start_time"`
	GuestCount int    `gorm:"not null" json:"guest_count"`
	IsPrivate  bool   `gorm:"not null" json:"is_private"`

	BaseAmount       int64 `gorm:"not null" json:"base_amount"`
	PlatformFee      int64 `gorm:"not null" json:"platform_fee"`
	TotalAmount      int64 `gorm:"not null" json:"total_amount"`
	HostPayoutAmount int64 `gorm:"not null" json:"host_payout_amount"`
	PlatformRevenue  int64 `gorm:"not null" json:"platform_revenue"`

	Status          string     `gorm:"size:30;not null;default:'pending'" json:"status"`
	PaymentMethod   string     `gorm:"size:30" json:"payment_method"`
	ExternalOrderID string     `gorm:"size:64;not null;unique" json:"external_order_id"`
	PayoutStatus    string     `gorm:"size:10;not null;default:'pending'" json:"payout_status"`
	PayoutBatchID   *uuid.UUID `json:"-"`
	CancelReason    *string    `gorm:"type:text" json:"cancel_reason"`

	HoldExpiresAt *time.Time `json:"hold_expires_at"`
	DecidedAt     *time.Time `json:"decided_at"`

	Experience       Experience       `gorm:"foreignkey:ExperienceID" json:"experience,omitempty"`
	Guest            User             `gorm:"foreignkey:GuestID" json:"guest,omitempty"`
	Host             User             `gorm:"foreignkey:HostID" json:"host,omitempty"`
	AvailabilitySlot AvailabilitySlot `gorm:"foreignkey:AvailabilitySlotID" json:"availability_slot,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCompleted is derived from the slot time passing; completion is
// never a stored transition.
func (b *Booking) IsCompleted(now time.Time) bool {
	if b.Status != BookingConfirmed {
		return false
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.StartTime, time.Local)
	if err != nil {
		return false
	}
	return start.Before(now)
}
