package jobs

import (
	"log"

	"github.com/hyungeunseanson/locally-server/database"
	"github.com/hyungeunseanson/locally-server/services"
)

// SweepExpiredHolds releases seats held by pending bookings whose
// payment window lapsed. The client never drives expiry; this sweep is
// the only enforcement.
func SweepExpiredHolds() {
	svc := services.NewReservationService(database.DB)

	released, err := svc.ExpireStaleHolds()
	if err != nil {
		log.Printf("Error sweeping expired holds: %v", err)
		return
	}
	if released > 0 {
		log.Printf("Released %d expired hold(s).", released)
	}
}
