package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hyungeunseanson/locally-server/models"
	"github.com/hyungeunseanson/locally-server/notifications"
	"github.com/hyungeunseanson/locally-server/payments"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cancellation events, gated by actor role.
const (
	CancelEventRequest = "request"
	CancelEventApprove = "approve"
	CancelEventReject  = "reject"
	CancelEventForce   = "force_cancel"
)

const (
	RoleGuest = "guest"
	RoleHost  = "host"
	RoleAdmin = "admin"
)

// cancelTransitionAllowed is the whole state machine table: which
// actor may fire which event from which booking status.
func cancelTransitionAllowed(status, event, role string) error {
	switch event {
	case CancelEventRequest:
		if role != RoleGuest {
			return ErrActorNotAllowed
		}
		if status != models.BookingConfirmed {
			return ErrInvalidTransition
		}
	case CancelEventApprove:
		if role != RoleHost && role != RoleAdmin {
			return ErrActorNotAllowed
		}
		if status != models.BookingCancellationRequested {
			return ErrInvalidTransition
		}
	case CancelEventReject:
		if role != RoleHost {
			return ErrActorNotAllowed
		}
		if status != models.BookingCancellationRequested {
			return ErrInvalidTransition
		}
	case CancelEventForce:
		if role != RoleAdmin {
			return ErrActorNotAllowed
		}
		if status != models.BookingConfirmed && status != models.BookingCancellationRequested {
			return ErrInvalidTransition
		}
	default:
		return ErrInvalidTransition
	}
	return nil
}

// CancellationService runs the guest/host/admin cancellation state
// machine. A booking only becomes cancelled together with a successful
// gateway refund; a failed refund leaves it requestable again.
type CancellationService struct {
	DB       *gorm.DB
	Gateway  payments.Gateway
	Notifier notifications.Notifier
	Ledger   AvailabilityLedger
}

func NewCancellationService(db *gorm.DB, gateway payments.Gateway, notifier notifications.Notifier) *CancellationService {
	return &CancellationService{DB: db, Gateway: gateway, Notifier: notifier}
}

func (s *CancellationService) loadBooking(bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := s.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// RequestCancel moves a confirmed booking into cancellation_requested
// and records the guest's reason.
func (s *CancellationService) RequestCancel(bookingID, guestID uuid.UUID, reason string) (*models.Booking, error) {
	booking, err := s.loadBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.GuestID != guestID {
		return nil, ErrActorNotAllowed
	}
	if err := cancelTransitionAllowed(booking.Status, CancelEventRequest, RoleGuest); err != nil {
		return nil, err
	}

	err = s.DB.Model(&models.Booking{}).
		Where("id = ? AND status = ?", booking.ID, models.BookingConfirmed).
		Updates(map[string]any{
			"status":        models.BookingCancellationRequested,
			"cancel_reason": reason,
		}).Error
	if err != nil {
		return nil, err
	}
	booking.Status = models.BookingCancellationRequested
	booking.CancelReason = &reason

	s.Notifier.Send(booking.HostID, "cancellation_requested", "A guest asked to cancel",
		fmt.Sprintf("A booking on %s at %s has a cancellation request: %s", booking.Date, booking.StartTime, reason),
		"/host/bookings/"+booking.ID.String())
	return booking, nil
}

// Approve refunds the guest and cancels the booking. The refund call
// comes first; if it fails nothing changes and the approval can be
// retried.
func (s *CancellationService) Approve(bookingID, actorID uuid.UUID, actorRole string, penalty int64) (*models.Booking, error) {
	booking, err := s.loadBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if actorRole == RoleHost && booking.HostID != actorID {
		return nil, ErrActorNotAllowed
	}
	if err := cancelTransitionAllowed(booking.Status, CancelEventApprove, actorRole); err != nil {
		return nil, err
	}
	if penalty < 0 || penalty > booking.TotalAmount {
		return nil, fmt.Errorf("penalty %d out of range for booking %s: %w", penalty, booking.ID, ErrInvalidTransition)
	}

	if err := s.cancelWithRefund(booking, penalty, "cancellation approved"); err != nil {
		return nil, err
	}

	s.Notifier.Send(booking.GuestID, "cancellation_approved", "Your cancellation was approved",
		fmt.Sprintf("Your booking on %s at %s has been cancelled and your refund is on its way.", booking.Date, booking.StartTime),
		"/bookings/"+booking.ID.String())
	return booking, nil
}

// Reject returns the booking to confirmed without touching money or
// capacity.
func (s *CancellationService) Reject(bookingID, hostID uuid.UUID) (*models.Booking, error) {
	booking, err := s.loadBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.HostID != hostID {
		return nil, ErrActorNotAllowed
	}
	if err := cancelTransitionAllowed(booking.Status, CancelEventReject, RoleHost); err != nil {
		return nil, err
	}

	err = s.DB.Model(&models.Booking{}).
		Where("id = ? AND status = ?", booking.ID, models.BookingCancellationRequested).
		Update("status", models.BookingConfirmed).Error
	if err != nil {
		return nil, err
	}
	booking.Status = models.BookingConfirmed

	s.Notifier.Send(booking.GuestID, "cancellation_rejected", "Your cancellation request was declined",
		fmt.Sprintf("The host declined your cancellation request for %s at %s. Your booking remains confirmed.", booking.Date, booking.StartTime),
		"/bookings/"+booking.ID.String())
	return booking, nil
}

// ForceCancel lets an admin cancel a confirmed booking outright with a
// full refund, notifying both parties.
func (s *CancellationService) ForceCancel(bookingID uuid.UUID, reason string) (*models.Booking, error) {
	booking, err := s.loadBooking(bookingID)
	if err != nil {
		return nil, err
	}
	if err := cancelTransitionAllowed(booking.Status, CancelEventForce, RoleAdmin); err != nil {
		return nil, err
	}

	if booking.CancelReason == nil {
		booking.CancelReason = &reason
	}
	if err := s.cancelWithRefund(booking, 0, reason); err != nil {
		return nil, err
	}

	s.Notifier.Send(booking.GuestID, "booking_cancelled", "Your booking was cancelled",
		fmt.Sprintf("Your booking on %s at %s was cancelled by our team and a full refund has been issued.", booking.Date, booking.StartTime),
		"/bookings/"+booking.ID.String())
	s.Notifier.Send(booking.HostID, "booking_cancelled", "A booking was cancelled",
		fmt.Sprintf("The booking on %s at %s was cancelled by our team.", booking.Date, booking.StartTime),
		"/host/bookings/"+booking.ID.String())
	return booking, nil
}

// cancelWithRefund issues the refund and, only after a positive
// gateway response, flips the booking to cancelled and restores slot
// capacity in a single transaction. The penalty is recorded as an
// explicit host payout override, never re-derived.
func (s *CancellationService) cancelWithRefund(booking *models.Booking, penalty int64, reason string) error {
	refundAmount := booking.TotalAmount - penalty

	result, err := s.Gateway.Refund(booking.ExternalOrderID, refundAmount, reason)
	if err != nil {
		log.Printf("🔥 Refund failed for booking %s (order %s): %v", booking.ID, booking.ExternalOrderID, err)
		return fmt.Errorf("%w: %v", ErrRefundFailed, err)
	}
	if result.Status != payments.ChargeCancelled {
		log.Printf("🔥 Refund for booking %s (order %s) returned status %q", booking.ID, booking.ExternalOrderID, result.Status)
		return ErrRefundFailed
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var current models.Booking
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, "id = ?", booking.ID).Error; err != nil {
			return err
		}
		if current.Status == models.BookingCancelled {
			// A concurrent approval already recorded this
			// cancellation; its seats must not come back twice.
			*booking = current
			return nil
		}
		if current.Status != models.BookingConfirmed && current.Status != models.BookingCancellationRequested {
			return fmt.Errorf("booking %s is %s: %w", current.ID, current.Status, ErrInvalidTransition)
		}
		if err := releaseBookingCapacity(tx, s.Ledger, &current); err != nil {
			return err
		}
		now := time.Now()
		updates := map[string]any{
			"status":             models.BookingCancelled,
			"host_payout_amount": penalty,
			"platform_revenue":   booking.TotalAmount - penalty,
			"cancel_reason":      booking.CancelReason,
			"decided_at":         now,
		}
		err := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", current.ID, current.Status).
			Updates(updates).Error
		if err != nil {
			return err
		}
		booking.Status = models.BookingCancelled
		booking.HostPayoutAmount = penalty
		booking.PlatformRevenue = booking.TotalAmount - penalty
		booking.DecidedAt = &now
		return nil
	})
	if err != nil {
		// The refund already went through; this needs reconciliation.
		log.Printf("🔥 CRITICAL: refund issued but cancellation not recorded for booking %s (order %s): %v",
			booking.ID, booking.ExternalOrderID, err)
		return err
	}
	return nil
}
