package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hyungeunseanson/locally-server/handlers"
	"github.com/hyungeunseanson/locally-server/middleware"
)

func AuthRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Post("/auth/register", handlers.RegisterUser)
	api.Post("/auth/login", handlers.LoginUser)

	profile := api.Group("/profile", middleware.Protected())
	profile.Get("", handlers.GetProfile)
	profile.Put("", handlers.UpdateProfile)
}
