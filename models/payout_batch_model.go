package models

import (
	"time"

	"github.com/google/uuid"
)

// PayoutBatch records one settlement run for a host. Bookings carry
// the batch id once their payout_status flips to paid.
type PayoutBatch struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	HostID    uuid.UUID `gorm:"not null;index" json:"host_id"`
	Total     int64     `gorm:"not null" json:"total"`
	ItemCount int       `gorm:"not null" json:"item_count"`

	BankName          string `gorm:"size:100" json:"bank_name"`
	BankAccountNumber string `gorm:"size:50" json:"bank_account_number"`

	PaidAt    time.Time `gorm:"not null" json:"paid_at"`
	CreatedAt time.Time `json:"created_at"`
}
