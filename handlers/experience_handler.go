package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hyungeunseanson/locally-server/database"
	"github.com/hyungeunseanson/locally-server/models"
)

type CreateExperienceRequest struct {
	Title            string `json:"title" validate:"required,min=3"`
	Description      string `json:"description"`
	PricePerGuest    int64  `json:"price_per_guest" validate:"required,min=1"`
	PrivateFlatPrice *int64 `json:"private_flat_price" validate:"omitempty,min=1"`
	MaxGuests        int    `json:"max_guests" validate:"required,min=1,max=50"`
	DurationMinutes  int    `json:"duration_minutes" validate:"required,min=15"`
}

func CreateExperience(c *fiber.Ctx) error {
	hostID := currentUserID(c)

	var req CreateExperienceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	experience := models.Experience{
		HostID:           hostID,
		Title:            req.Title,
		PricePerGuest:    req.PricePerGuest,
		PrivateFlatPrice: req.PrivateFlatPrice,
		MaxGuests:        req.MaxGuests,
		DurationMinutes:  req.DurationMinutes,
	}
	if req.Description != "" {
		experience.Description = &req.Description
	}
	if err := database.DB.Create(&experience).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create experience"})
	}

	return c.Status(fiber.StatusCreated).JSON(experience)
}

type PublishSlotRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
}

// PublishSlot opens one bookable slot; its capacity counter starts at
// the experience's max guests.
func PublishSlot(c *fiber.Ctx) error {
	hostID := currentUserID(c)
	experienceID, err := uuid.Parse(c.Params("experienceId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid experience ID"})
	}

	var req PublishSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var experience models.Experience
	if err := database.DB.First(&experience, "id = ?", experienceID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Experience not found"})
	}
	if experience.HostID != hostID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This is not your experience"})
	}

	slot := models.AvailabilitySlot{
		ExperienceID:      experience.ID,
		Date:              req.Date,
		StartTime:         req.StartTime,
		MaxGuests:         experience.MaxGuests,
		CapacityRemaining: experience.MaxGuests,
	}
	if err := database.DB.Create(&slot).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Slot already published for this date and time"})
	}

	return c.Status(fiber.StatusCreated).JSON(slot)
}

func GetMyExperiences(c *fiber.Ctx) error {
	hostID := currentUserID(c)

	var experiences []models.Experience
	database.DB.Where("host_id = ?", hostID).Order("created_at desc").Find(&experiences)
	return c.JSON(experiences)
}

func GetExperienceSlots(c *fiber.Ctx) error {
	experienceID, err := uuid.Parse(c.Params("experienceId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid experience ID"})
	}

	var slots []models.AvailabilitySlot
	database.DB.
		Where("experience_id = ?", experienceID).
		Order("date, start_time").
		Find(&slots)
	return c.JSON(slots)
}
