package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hyungeunseanson/locally-server/handlers"
	"github.com/hyungeunseanson/locally-server/middleware"
)

func PaymentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Post("/payments/webhook", handlers.HandlePaymentWebhook)
	api.Post("/payments/confirm", middleware.Protected(), handlers.ConfirmPayment)
}
