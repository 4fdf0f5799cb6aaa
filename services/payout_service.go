package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyungeunseanson/locally-server/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayoutService aggregates a host's unpaid earnings into payable
// batches. It is the only mutator of payout_status.
type PayoutService struct {
	DB   *gorm.DB
	Fees FeePolicy
}

func NewPayoutService(db *gorm.DB) *PayoutService {
	return &PayoutService{DB: db, Fees: DefaultFeePolicy()}
}

type PayoutBatchPreview struct {
	HostID uuid.UUID        `json:"host_id"`
	Items  []models.Booking `json:"items"`
	Total  int64            `json:"total"`
}

// ItemPayout is the per-item amount: the explicitly recorded payout if
// one exists (confirmation snapshot or cancellation penalty), else the
// floored host share of the base amount.
func (s *PayoutService) ItemPayout(b *models.Booking) int64 {
	if b.HostPayoutAmount != 0 {
		return b.HostPayoutAmount
	}
	return s.Fees.HostPayout(b.BaseAmount)
}

// payableScope selects bookings that have earned a payout: completed
// ones (confirmed with the slot time in the past; completion is
// derived, not stored) and cancelled ones carrying a penalty.
func payableScope(db *gorm.DB, hostID uuid.UUID, now time.Time) *gorm.DB {
	cutoff := now.Format("2006-01-02 15:04")
	return db.
		Where("host_id = ? AND payout_status = ?", hostID, models.PayoutPending).
		Where("(status = ? AND (date || ' ' || start_time) < ?) OR (status = ? AND host_payout_amount > 0)",
			models.BookingConfirmed, cutoff, models.BookingCancelled)
}

// BuildPayoutBatch previews the host's payable items and their total.
// It mutates nothing.
func (s *PayoutService) BuildPayoutBatch(hostID uuid.UUID) (*PayoutBatchPreview, error) {
	var items []models.Booking
	err := payableScope(s.DB.Model(&models.Booking{}), hostID, time.Now()).
		Order("date, start_time").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	preview := &PayoutBatchPreview{HostID: hostID, Items: items}
	for i := range items {
		preview.Total += s.ItemPayout(&items[i])
	}
	return preview, nil
}

// MarkBatchPaid settles the listed items for the host: every item
// flips to paid atomically, or none do. Hosts without bank details on
// file are blocked here, not silently skipped.
func (s *PayoutService) MarkBatchPaid(hostID uuid.UUID, itemIDs []uuid.UUID) (*models.PayoutBatch, error) {
	if len(itemIDs) == 0 {
		return nil, ErrEmptyPayoutBatch
	}

	var host models.User
	if err := s.DB.First(&host, "id = ?", hostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("host %s: %w", hostID, ErrBookingNotFound)
		}
		return nil, err
	}
	if !host.HasBankDetails() {
		return nil, ErrPayoutIneligible
	}

	var batch models.PayoutBatch
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var items []models.Booking
		err := payableScope(tx.Clauses(clause.Locking{Strength: "UPDATE"}).Model(&models.Booking{}), hostID, time.Now()).
			Where("id IN ?", itemIDs).
			Find(&items).Error
		if err != nil {
			return err
		}
		if len(items) != len(itemIDs) {
			return fmt.Errorf("%d of %d listed items are not payable for host %s: %w",
				len(itemIDs)-len(items), len(itemIDs), hostID, ErrInvalidTransition)
		}

		var total int64
		for i := range items {
			total += s.ItemPayout(&items[i])
		}

		batch = models.PayoutBatch{
			ID:                uuid.New(),
			HostID:            hostID,
			Total:             total,
			ItemCount:         len(items),
			BankName:          *host.BankName,
			BankAccountNumber: *host.BankAccountNumber,
			PaidAt:            time.Now(),
		}
		if err := tx.Create(&batch).Error; err != nil {
			return err
		}

		return tx.Model(&models.Booking{}).
			Where("id IN ? AND payout_status = ?", itemIDs, models.PayoutPending).
			Updates(map[string]any{
				"payout_status":   models.PayoutPaid,
				"payout_batch_id": batch.ID,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &batch, nil
}
