package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/hyungeunseanson/locally-server/services"
	"github.com/tidwall/gjson"
)

// HandlePaymentWebhook receives the PSP's server-to-server
// notification. The payload's status is only a hint: settlement
// re-verifies the charge with the gateway before any state change, so
// a forged or replayed webhook cannot confirm a booking.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	body := c.Body()
	if !gjson.ValidBytes(body) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
	}

	orderID := gjson.GetBytes(body, "merchant_uid").String()
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Webhook payload missing merchant_uid"})
	}

	log.Printf("Received payment webhook for order %s (imp_uid %s, status %s)",
		orderID, gjson.GetBytes(body, "imp_uid").String(), gjson.GetBytes(body, "status").String())

	booking, err := settlementSvc.ConfirmPayment(orderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookingNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No booking for this order"})
		case errors.Is(err, services.ErrAmountMismatch),
			errors.Is(err, services.ErrGatewayVerification),
			errors.Is(err, services.ErrInvalidTransition):
			// Declined and released (or already settled either way);
			// acknowledge so the PSP stops retrying.
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Acknowledged failed payment"})
		}
		log.Printf("🔥 CRITICAL: Error processing webhook for order %s: %v", orderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process webhook"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Webhook processed successfully", "booking_id": booking.ID})
}

type ConfirmPaymentRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

// ConfirmPayment is the client-side completion callback. It runs the
// same idempotent settlement path as the webhook, so whichever arrives
// first wins and the other becomes a no-op.
func ConfirmPayment(c *fiber.Ctx) error {
	var req ConfirmPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	booking, err := settlementSvc.ConfirmPayment(req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookingNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No booking for this order"})
		case errors.Is(err, services.ErrAmountMismatch):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Charged amount does not match the booking total"})
		case errors.Is(err, services.ErrGatewayVerification):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Payment could not be verified"})
		case errors.Is(err, services.ErrInvalidTransition):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "This booking is no longer payable"})
		}
		log.Printf("Error confirming payment for order %s: %v", req.OrderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to confirm payment"})
	}

	return c.JSON(fiber.Map{"message": "Payment confirmed", "booking": booking})
}
