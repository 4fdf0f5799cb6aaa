package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hyungeunseanson/locally-server/models"
	"github.com/hyungeunseanson/locally-server/notifications"
	"github.com/hyungeunseanson/locally-server/payments"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettlementService turns gateway confirmations into booking state
// transitions. It re-verifies every charge with the gateway itself and
// never trusts a client-supplied success flag.
type SettlementService struct {
	DB       *gorm.DB
	Gateway  payments.Gateway
	Notifier notifications.Notifier
	Ledger   AvailabilityLedger
	Fees     FeePolicy
}

func NewSettlementService(db *gorm.DB, gateway payments.Gateway, notifier notifications.Notifier) *SettlementService {
	return &SettlementService{
		DB:       db,
		Gateway:  gateway,
		Notifier: notifier,
		Fees:     DefaultFeePolicy(),
	}
}

// ConfirmPayment settles the order identified by externalOrderID.
// Replayed confirmations for an already-confirmed order return the
// original booking with no state change. The gateway round-trip
// happens outside any capacity lock.
func (s *SettlementService) ConfirmPayment(externalOrderID string) (*models.Booking, error) {
	var booking models.Booking
	err := s.DB.First(&booking, "external_order_id = ?", externalOrderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if booking.Status == models.BookingConfirmed {
		log.Printf("Duplicate settlement for order %s (booking %s), returning original result", externalOrderID, booking.ID)
		return &booking, nil
	}
	if booking.Status != models.BookingPending {
		return nil, fmt.Errorf("order %s is %s: %w", externalOrderID, booking.Status, ErrInvalidTransition)
	}

	receipt, err := s.Gateway.VerifyCharge(externalOrderID)
	if err != nil {
		log.Printf("🔥 Gateway verification error for booking %s (order %s): %v", booking.ID, externalOrderID, err)
		if declineErr := s.decline(&booking, "gateway verification failed"); declineErr != nil {
			return nil, declineErr
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayVerification, err)
	}
	if receipt.Status != payments.ChargePaid {
		log.Printf("Charge for booking %s (order %s) is %q, declining", booking.ID, externalOrderID, receipt.Status)
		if declineErr := s.decline(&booking, "charge not paid"); declineErr != nil {
			return nil, declineErr
		}
		return nil, ErrGatewayVerification
	}
	if receipt.Amount != booking.TotalAmount {
		log.Printf("🔥 Amount mismatch for booking %s (order %s): charged %d, expected %d",
			booking.ID, externalOrderID, receipt.Amount, booking.TotalAmount)
		if declineErr := s.decline(&booking, "amount mismatch"); declineErr != nil {
			return nil, declineErr
		}
		return nil, ErrAmountMismatch
	}

	var settled models.Booking
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&settled, "external_order_id = ?", externalOrderID).Error; err != nil {
			return err
		}
		if settled.Status == models.BookingConfirmed {
			// Lost the race against a concurrent webhook; keep its result.
			return nil
		}
		if settled.Status != models.BookingPending {
			return fmt.Errorf("order %s is %s: %w", externalOrderID, settled.Status, ErrInvalidTransition)
		}

		now := time.Now()
		payout := s.Fees.HostPayout(settled.BaseAmount)
		updates := map[string]any{
			"status":             models.BookingConfirmed,
			"payment_method":     receipt.Method,
			"host_payout_amount": payout,
			"platform_revenue":   settled.TotalAmount - payout,
			"hold_expires_at":    nil,
			"decided_at":         now,
		}
		if err := tx.Model(&models.Booking{}).Where("id = ?", settled.ID).Updates(updates).Error; err != nil {
			return err
		}
		settled.Status = models.BookingConfirmed
		settled.PaymentMethod = receipt.Method
		settled.HostPayoutAmount = payout
		settled.PlatformRevenue = settled.TotalAmount - payout
		settled.HoldExpiresAt = nil
		settled.DecidedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Notifier.Send(settled.HostID, "booking_confirmed", "You have a new booking!",
		fmt.Sprintf("A guest has booked %d seat(s) on %s at %s.", settled.GuestCount, settled.Date, settled.StartTime),
		"/host/bookings/"+settled.ID.String())

	return &settled, nil
}

// decline releases the hold and marks the booking declined in one
// transaction, the same invariant-preserving path hold expiry takes.
// The booking is re-read under lock first: if a concurrent settlement
// or sweep already decided it, its seats must not be released again.
func (s *SettlementService) decline(booking *models.Booking, reason string) error {
	declined := false
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
		if current.Status != models.BookingPending {
			return nil
		}
		if err := releaseBookingCapacity(tx, s.Ledger, &current); err != nil {
			return err
		}
		now := time.Now()
		err = tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", current.ID, models.BookingPending).
			Updates(map[string]any{"status": models.BookingDeclined, "decided_at": now}).Error
		if err != nil {
			return err
		}
		declined = true
		return nil
	})
	if err != nil {
		log.Printf("🔥 Failed to decline booking %s (order %s): %v", booking.ID, booking.ExternalOrderID, err)
		return err
	}
	if !declined {
		return nil
	}

	s.Notifier.Send(booking.GuestID, "payment_declined", "Your payment could not be confirmed",
		"We could not verify your payment ("+reason+"). The seats have been released; please try booking again.",
		"/bookings/"+booking.ID.String())
	return nil
}
