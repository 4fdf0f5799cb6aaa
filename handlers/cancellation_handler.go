package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hyungeunseanson/locally-server/services"
)

func cancellationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrBookingNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	case errors.Is(err, services.ErrActorNotAllowed):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not allowed to perform this action"})
	case errors.Is(err, services.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Booking is not in a state that allows this action"})
	case errors.Is(err, services.ErrRefundFailed):
		// Transient: the booking stays cancellation_requested, retry later.
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Refund could not be issued, please try again"})
	}
	log.Printf("Error in cancellation workflow: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"required,min=5"`
}

func RequestCancellation(c *fiber.Ctx) error {
	guestID := currentUserID(c)
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	var req CancelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	booking, err := cancellationSvc.RequestCancel(bookingID, guestID, req.Reason)
	if err != nil {
		return cancellationError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Cancellation requested. The host will review it shortly.", "booking": booking})
}

type ApproveCancellationRequest struct {
	Penalty int64 `json:"penalty" validate:"min=0"`
}

func ApproveCancellation(c *fiber.Ctx) error {
	actorID := currentUserID(c)
	actorRole := currentUserRole(c)
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	var req ApproveCancellationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	booking, err := cancellationSvc.Approve(bookingID, actorID, actorRole, req.Penalty)
	if err != nil {
		return cancellationError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Cancellation approved and refund issued.", "booking": booking})
}

func RejectCancellation(c *fiber.Ctx) error {
	hostID := currentUserID(c)
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	booking, err := cancellationSvc.Reject(bookingID, hostID)
	if err != nil {
		return cancellationError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Cancellation request rejected.", "booking": booking})
}

func ForceCancelBooking(c *fiber.Ctx) error {
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	var req CancelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	booking, err := cancellationSvc.ForceCancel(bookingID, req.Reason)
	if err != nil {
		return cancellationError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Booking cancelled and refund issued.", "booking": booking})
}
