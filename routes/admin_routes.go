package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hyungeunseanson/locally-server/handlers"
	"github.com/hyungeunseanson/locally-server/middleware"
)

func AdminRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())
	admin.Post("/bookings/:bookingId/force-cancel", handlers.ForceCancelBooking)
	admin.Post("/bookings/:bookingId/approve-cancel", handlers.ApproveCancellation)
	admin.Get("/hosts/:hostId/payouts", handlers.PreviewPayoutBatch)
	admin.Post("/hosts/:hostId/payouts", handlers.SettlePayoutBatch)
	admin.Get("/payout-batches", handlers.ListPayoutBatches)
}
