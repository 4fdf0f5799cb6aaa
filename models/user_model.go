package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FullName string    `gorm:"size:255;not null" json:"full_name"`
	Email    string    `gorm:"size:255;not null;unique" json:"email"`
	Phone    *string   `gorm:"size:30" json:"phone"`
	Password string    `gorm:"not null" json:"-"`
	Role     string    `gorm:"size:20;not null;default:'guest'" json:"role"`

	// Bank details are required before a host can settle a payout batch.
	BankName          *string `gorm:"size:100" json:"-"`
	BankAccountNumber *string `gorm:"size:50" json:"-"`
	BankAccountHolder *string `gorm:"size:100" json:"-"`

	ProfilePictureURL *string `gorm:"size:255" json:"profile_picture_url"`
	IsActive          bool    `gorm:"default:true" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) HasBankDetails() bool {
	return u.BankName != nil && *u.BankName != "" &&
		u.BankAccountNumber != nil && *u.BankAccountNumber != "" &&
		u.BankAccountHolder != nil && *u.BankAccountHolder != ""
}
