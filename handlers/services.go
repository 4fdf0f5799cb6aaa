package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/hyungeunseanson/locally-server/notifications"
	"github.com/hyungeunseanson/locally-server/payments"
	"github.com/hyungeunseanson/locally-server/services"
	"gorm.io/gorm"
)

var validate = validator.New()

var (
	reservationSvc  *services.ReservationService
	settlementSvc   *services.SettlementService
	cancellationSvc *services.CancellationService
	payoutSvc       *services.PayoutService
	notifier        notifications.Notifier
)

// Init wires the engine services the handlers delegate to.
func Init(db *gorm.DB, gateway payments.Gateway, sink notifications.Notifier) {
	reservationSvc = services.NewReservationService(db)
	settlementSvc = services.NewSettlementService(db, gateway, sink)
	cancellationSvc = services.NewCancellationService(db, gateway, sink)
	payoutSvc = services.NewPayoutService(db)
	notifier = sink
}

func currentUserID(c *fiber.Ctx) uuid.UUID {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	id, _ := uuid.Parse(claims["user_id"].(string))
	return id
}

func currentUserRole(c *fiber.Ctx) string {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	role, _ := claims["role"].(string)
	return role
}
