package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hyungeunseanson/locally-server/handlers"
	"github.com/hyungeunseanson/locally-server/middleware"
)

func HostRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	host := api.Group("/host", middleware.Protected(), middleware.HostRequired())
	host.Get("/experiences", handlers.GetMyExperiences)
	host.Post("/experiences", handlers.CreateExperience)
	host.Post("/experiences/:experienceId/slots", handlers.PublishSlot)
	host.Get("/payouts", handlers.GetMyPayouts)
	host.Put("/bank-details", handlers.UpdateBankDetails)

	// Public slot listing for a published experience.
	api.Get("/experiences/:experienceId/slots", handlers.GetExperienceSlots)
}
