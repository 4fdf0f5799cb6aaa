package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/hyungeunseanson/locally-server/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SlotKey identifies one bookable (experience, date, start time) tuple.
type SlotKey struct {
	ExperienceID uuid.UUID
	Date         string // 2006-01-02
	StartTime    string // 15:04
}

// AvailabilityLedger is pure capacity bookkeeping. It holds no
// business rules; every caller passes its own transaction handle and
// owns the transaction boundary.
type AvailabilityLedger struct{}

// lockSlot reads the slot row FOR UPDATE so concurrent decrements
// serialize on the row.
func (AvailabilityLedger) lockSlot(tx *gorm.DB, key SlotKey) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("experience_id = ? AND date = ? AND start_time = ?", key.ExperienceID, key.Date, key.StartTime).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &slot, nil
}

func (l AvailabilityLedger) Peek(tx *gorm.DB, key SlotKey) (int, error) {
	var slot models.AvailabilitySlot
	err := tx.
		Where("experience_id = ? AND date = ? AND start_time = ?", key.ExperienceID, key.Date, key.StartTime).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrSlotNotFound
		}
		return 0, err
	}
	return slot.CapacityRemaining, nil
}

// Decrement takes n seats off the slot, failing without mutation when
// fewer than n remain.
func (l AvailabilityLedger) Decrement(tx *gorm.DB, key SlotKey, n int) (*models.AvailabilitySlot, error) {
	if n <= 0 {
		return nil, ErrInvalidGuestCount
	}
	slot, err := l.lockSlot(tx, key)
	if err != nil {
		return nil, err
	}
	if slot.CapacityRemaining < n {
		return nil, ErrInsufficientCapacity
	}
	slot.CapacityRemaining -= n
	if err := tx.Model(&models.AvailabilitySlot{}).
		Where("id = ?", slot.ID).
		Update("capacity_remaining", slot.CapacityRemaining).Error; err != nil {
		return nil, err
	}
	return slot, nil
}

// Increment returns n seats to the slot, clamped at MaxGuests.
func (l AvailabilityLedger) Increment(tx *gorm.DB, key SlotKey, n int) (*models.AvailabilitySlot, error) {
	if n <= 0 {
		return nil, ErrInvalidGuestCount
	}
	slot, err := l.lockSlot(tx, key)
	if err != nil {
		return nil, err
	}
	slot.CapacityRemaining = ClampCapacity(slot.CapacityRemaining+n, slot.MaxGuests)
	if err := tx.Model(&models.AvailabilitySlot{}).
		Where("id = ?", slot.ID).
		Update("capacity_remaining", slot.CapacityRemaining).Error; err != nil {
		return nil, err
	}
	return slot, nil
}

// ClampCapacity keeps a restored counter inside [0, max].
func ClampCapacity(remaining, max int) int {
	if remaining > max {
		return max
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}
