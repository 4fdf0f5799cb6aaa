package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	config "github.com/hyungeunseanson/locally-server/configs"
	"github.com/hyungeunseanson/locally-server/models"
	"github.com/hyungeunseanson/locally-server/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReservationService owns seat reservation. It is the only component
// besides the cancellation workflow that mutates slot capacity, and it
// always does so inside a single transaction with the booking insert.
type ReservationService struct {
	DB      *gorm.DB
	Ledger  AvailabilityLedger
	Fees    FeePolicy
	HoldTTL time.Duration
}

func NewReservationService(db *gorm.DB) *ReservationService {
	return &ReservationService{
		DB:      db,
		Fees:    DefaultFeePolicy(),
		HoldTTL: config.ConfigDuration("RESERVATION_HOLD_TTL", 15*time.Minute),
	}
}

type ReserveInput struct {
	GuestID       uuid.UUID
	ExperienceID  uuid.UUID
	Date          string
	StartTime     string
	GuestCount    int
	IsPrivate     bool
	PaymentMethod string
}

// Reserve places a hold: capacity check, decrement and the pending
// booking insert happen atomically, so two concurrent requests for the
// last seat cannot both succeed. The capacity lock is released when
// the transaction commits; it is never held across a gateway call.
func (s *ReservationService) Reserve(in ReserveInput) (*models.Booking, error) {
	if in.GuestCount < 1 {
		return nil, ErrInvalidGuestCount
	}

	key := SlotKey{ExperienceID: in.ExperienceID, Date: in.Date, StartTime: in.StartTime}
	var booking models.Booking

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		slot, err := s.Ledger.lockSlot(tx, key)
		if err != nil {
			return err
		}
		if in.GuestCount > slot.MaxGuests {
			return ErrInvalidGuestCount
		}

		var experience models.Experience
		if err := tx.First(&experience, "id = ?", slot.ExperienceID).Error; err != nil {
			return err
		}

		seats := in.GuestCount
		if in.IsPrivate {
			// A private booking consumes the whole slot.
			if slot.CapacityRemaining < slot.MaxGuests {
				return ErrSlotFull
			}
			seats = slot.CapacityRemaining
		} else if slot.CapacityRemaining < in.GuestCount {
			return ErrSlotFull
		}

		slot.CapacityRemaining -= seats
		if err := tx.Model(&models.AvailabilitySlot{}).
			Where("id = ?", slot.ID).
			Update("capacity_remaining", slot.CapacityRemaining).Error; err != nil {
			return err
		}

		base := experience.PricePerGuest * int64(in.GuestCount)
		if in.IsPrivate && experience.PrivateFlatPrice != nil {
			base = *experience.PrivateFlatPrice
		}
		fee := s.Fees.PlatformFee(base)
		total := base + fee

		holdExpiry := time.Now().Add(s.HoldTTL)
		booking = models.Booking{
			ID:                 uuid.New(),
			ExperienceID:       experience.ID,
			GuestID:            in.GuestID,
			HostID:             experience.HostID,
			AvailabilitySlotID: slot.ID,
			Date:               slot.Date,
			StartTime:          slot.StartTime,
			GuestCount:         in.GuestCount,
			IsPrivate:          in.IsPrivate,
			BaseAmount:         base,
			PlatformFee:        fee,
			TotalAmount:        total,
			HostPayoutAmount:   0,
			PlatformRevenue:    total,
			Status:             models.BookingPending,
			PaymentMethod:      in.PaymentMethod,
			ExternalOrderID:    utils.GenerateOrderRef(),
			PayoutStatus:       models.PayoutPending,
			HoldExpiresAt:      &holdExpiry,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientCapacity) {
			return nil, ErrSlotFull
		}
		return nil, err
	}
	return &booking, nil
}

// ExpireStaleHolds releases capacity held by pending bookings whose
// payment never arrived, and deletes the booking rows. Each booking is
// handled in its own transaction so one bad row cannot wedge the
// sweep. The candidate list is a snapshot, so every row is re-read
// under lock before its seats are returned: a booking a webhook
// confirmed in the meantime keeps them.
func (s *ReservationService) ExpireStaleHolds() (int, error) {
	var stale []models.Booking
	err := s.DB.
		Where("status = ? AND hold_expires_at < ?", models.BookingPending, time.Now()).
		Find(&stale).Error
	if err != nil {
		return 0, err
	}

	released := 0
	for _, b := range stale {
		booking := b
		swept := false
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			var current models.Booking
			err := tx.
				Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&current, "id = ?", booking.ID).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil
				}
				return err
			}
			if current.Status != models.BookingPending ||
				current.HoldExpiresAt == nil || current.HoldExpiresAt.After(time.Now()) {
				return nil
			}
			if err := releaseBookingCapacity(tx, s.Ledger, &current); err != nil {
				return err
			}
			if err := tx.Delete(&models.Booking{}, "id = ?", current.ID).Error; err != nil {
				return err
			}
			swept = true
			return nil
		})
		if err != nil {
			log.Printf("Error expiring hold for booking %s (order %s): %v", booking.ID, booking.ExternalOrderID, err)
			continue
		}
		if swept {
			released++
		}
	}
	return released, nil
}

// releaseBookingCapacity restores the seats a booking consumed,
// clamped at the slot's maximum. Shared by hold expiry, declined
// settlements and approved cancellations.
func releaseBookingCapacity(tx *gorm.DB, ledger AvailabilityLedger, b *models.Booking) error {
	key := SlotKey{ExperienceID: b.ExperienceID, Date: b.Date, StartTime: b.StartTime}
	seats := b.GuestCount
	if b.IsPrivate {
		slot, err := ledger.lockSlot(tx, key)
		if err != nil {
			return err
		}
		seats = slot.MaxGuests
	}
	_, err := ledger.Increment(tx, key, seats)
	return err
}
