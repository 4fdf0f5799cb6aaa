package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hyungeunseanson/locally-server/handlers"
	"github.com/hyungeunseanson/locally-server/middleware"
)

func BookingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	booking := api.Group("/bookings", middleware.Protected())
	booking.Get("/me", handlers.GetMyBookings)
	booking.Post("", handlers.CreateReservation)
	booking.Post("/:bookingId/request-cancel", handlers.RequestCancellation)

	api.Get("/notifications/me", middleware.Protected(), handlers.GetMyNotifications)

	hostBooking := api.Group("/host/bookings", middleware.Protected(), middleware.HostRequired())
	hostBooking.Get("", handlers.GetHostBookings)
	hostBooking.Post("/:bookingId/approve-cancel", handlers.ApproveCancellation)
	hostBooking.Post("/:bookingId/reject-cancel", handlers.RejectCancellation)
}
