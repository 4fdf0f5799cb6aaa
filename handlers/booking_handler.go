package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hyungeunseanson/locally-server/database"
	"github.com/hyungeunseanson/locally-server/models"
	"github.com/hyungeunseanson/locally-server/payments"
	"github.com/hyungeunseanson/locally-server/services"
)

type CreateReservationRequest struct {
	ExperienceID string `json:"experience_id" validate:"required,uuid"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string `json:"start_time" validate:"required,datetime=15:04"`
	GuestCount   int    `json:"guest_count" validate:"required,min=1"`
	IsPrivate    bool   `json:"is_private"`
}

// CreateReservation places a hold on the slot and hands back the
// pending booking plus the gateway checkout session. Payment happens
// after this call; the hold expires if no confirmation arrives.
func CreateReservation(c *fiber.Ctx) error {
	guestID := currentUserID(c)

	var req CreateReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	experienceID, _ := uuid.Parse(req.ExperienceID)

	booking, err := reservationSvc.Reserve(services.ReserveInput{
		GuestID:      guestID,
		ExperienceID: experienceID,
		Date:         req.Date,
		StartTime:    req.StartTime,
		GuestCount:   req.GuestCount,
		IsPrivate:    req.IsPrivate,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSlotFull):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "This slot is full or no longer available"})
		case errors.Is(err, services.ErrSlotNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Availability slot not found"})
		case errors.Is(err, services.ErrInvalidGuestCount):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid guest count for this slot"})
		}
		log.Printf("Error creating reservation: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create reservation"})
	}

	var guest models.User
	if err := database.DB.First(&guest, "id = ?", guestID).Error; err != nil {
		// The hold stays; the guest can retry checkout until it expires.
		log.Printf("🔥 Failed to load guest %s for checkout (booking %s): %v", guestID, booking.ID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"booking": booking,
			"error":   "Payment could not be initiated, please try again.",
		})
	}

	session, err := settlementSvc.Gateway.CreateCharge(payments.ChargeRequest{
		OrderID:     booking.ExternalOrderID,
		Amount:      booking.TotalAmount,
		Currency:    "KRW",
		PayerName:   guest.FullName,
		PayerEmail:  guest.Email,
		ProductName: booking.Date + " " + booking.StartTime,
	})
	if err != nil {
		// The hold stays; the guest can retry checkout until it expires.
		log.Printf("🔥 Gateway charge preparation failed for booking %s (order %s): %v", booking.ID, booking.ExternalOrderID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"booking": booking,
			"error":   "Payment could not be initiated, please try again.",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"booking":     booking,
		"order_id":    booking.ExternalOrderID,
		"hold_expiry": booking.HoldExpiresAt,
		"checkout":    session,
	})
}

func GetMyBookings(c *fiber.Ctx) error {
	guestID := currentUserID(c)

	var bookings []models.Booking
	database.DB.
		Preload("Experience").
		Preload("Host").
		Where("guest_id = ?", guestID).
		Order("date desc, start_time desc").
		Find(&bookings)

	return c.JSON(bookings)
}

func GetHostBookings(c *fiber.Ctx) error {
	hostID := currentUserID(c)

	var bookings []models.Booking
	database.DB.
		Preload("Experience").
		Preload("Guest").
		Where("host_id = ?", hostID).
		Order("date desc, start_time desc").
		Find(&bookings)

	return c.JSON(bookings)
}

func GetMyNotifications(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var list []models.Notification
	database.DB.
		Where("recipient_id = ?", userID).
		Order("created_at desc").
		Limit(100).
		Find(&list)

	return c.JSON(list)
}
