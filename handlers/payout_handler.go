package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hyungeunseanson/locally-server/database"
	"github.com/hyungeunseanson/locally-server/models"
	"github.com/hyungeunseanson/locally-server/services"
)

// PreviewPayoutBatch lists a host's payable items and their total
// without settling anything.
func PreviewPayoutBatch(c *fiber.Ctx) error {
	hostID, err := uuid.Parse(c.Params("hostId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid host ID"})
	}

	preview, err := payoutSvc.BuildPayoutBatch(hostID)
	if err != nil {
		log.Printf("Error building payout batch for host %s: %v", hostID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build payout batch"})
	}
	return c.JSON(preview)
}

type SettlePayoutRequest struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,dive,uuid"`
}

// SettlePayoutBatch marks the listed items paid, all or nothing.
func SettlePayoutBatch(c *fiber.Ctx) error {
	hostID, err := uuid.Parse(c.Params("hostId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid host ID"})
	}

	var req SettlePayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	itemIDs := make([]uuid.UUID, 0, len(req.ItemIDs))
	for _, raw := range req.ItemIDs {
		id, _ := uuid.Parse(raw)
		itemIDs = append(itemIDs, id)
	}

	batch, err := payoutSvc.MarkBatchPaid(hostID, itemIDs)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPayoutIneligible):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Host has no bank details on file"})
		case errors.Is(err, services.ErrEmptyPayoutBatch):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No items listed"})
		case errors.Is(err, services.ErrInvalidTransition):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Some listed items are not payable"})
		case errors.Is(err, services.ErrBookingNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Host not found"})
		}
		log.Printf("Error settling payout batch for host %s: %v", hostID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to settle payout batch"})
	}

	if notifier != nil {
		notifier.Send(hostID, "payout_paid", "Your payout has been sent",
			"A payout batch has been settled to your registered bank account.", "/host/payouts")
	}
	return c.JSON(fiber.Map{"message": "Payout batch settled.", "batch": batch})
}

func ListPayoutBatches(c *fiber.Ctx) error {
	var batches []models.PayoutBatch
	database.DB.Order("paid_at desc").Limit(200).Find(&batches)
	return c.JSON(batches)
}

// GetMyPayouts lets a host see their own pending total and settled
// batches.
func GetMyPayouts(c *fiber.Ctx) error {
	hostID := currentUserID(c)

	preview, err := payoutSvc.BuildPayoutBatch(hostID)
	if err != nil {
		log.Printf("Error building payout preview for host %s: %v", hostID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load payouts"})
	}

	var batches []models.PayoutBatch
	database.DB.Where("host_id = ?", hostID).Order("paid_at desc").Find(&batches)

	return c.JSON(fiber.Map{"pending": preview, "settled": batches})
}
