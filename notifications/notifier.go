package notifications

import (
	"log"

	"github.com/google/uuid"
	"github.com/hyungeunseanson/locally-server/models"
	"gorm.io/gorm"
)

// Notifier is the best-effort notification sink. Send never returns an
// error to the caller; delivery failures are logged and must never
// block a booking transition.
type Notifier interface {
	Send(recipientID uuid.UUID, ntype, title, body, link string)
}

// Service persists an in-app notification row and dispatches an email
// copy in the background when the recipient has one on file.
type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

func (s *Service) Send(recipientID uuid.UUID, ntype, title, body, link string) {
	n := models.Notification{
		RecipientID: recipientID,
		Type:        ntype,
		Title:       title,
		Body:        body,
	}
	if link != "" {
		n.Link = &link
	}
	if err := s.DB.Create(&n).Error; err != nil {
		log.Printf("🔥 Failed to store notification for %s (%s): %v", recipientID, ntype, err)
	}

	go func() {
		var recipient models.User
		if err := s.DB.First(&recipient, "id = ?", recipientID).Error; err != nil {
			log.Printf("Skipping email notification, recipient %s not found: %v", recipientID, err)
			return
		}
		SendEmail(recipient.FullName, recipient.Email, title, "<h1>"+title+"</h1><p>"+body+"</p>")
	}()
}
