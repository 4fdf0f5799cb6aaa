package services

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/hyungeunseanson/locally-server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func experienceColumns() []string {
	return []string{"id", "host_id", "title", "price_per_guest", "private_flat_price", "max_guests", "duration_minutes", "status"}
}

func newReservationService(db *gorm.DB) *ReservationService {
	return &ReservationService{DB: db, Fees: DefaultFeePolicy(), HoldTTL: 15 * time.Minute}
}

func TestReserveRejectsZeroGuests(t *testing.T) {
	db, _ := newMockDB(t)
	svc := newReservationService(db)

	_, err := svc.Reserve(ReserveInput{GuestCount: 0})
	assert.ErrorIs(t, err, ErrInvalidGuestCount)
}

func TestReserveSlotFullRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newReservationService(db)

	experienceID := uuid.New()
	hostID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "availability_slots"(.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(slotColumns()).
			AddRow(uuid.New(), experienceID, "2026-10-01", "14:00", 4, 1))
	mock.ExpectQuery(`SELECT \* FROM "experiences"`).
		WillReturnRows(sqlmock.NewRows(experienceColumns()).
			AddRow(experienceID, hostID, "Night market food tour", 50000, nil, 4, 120, "active"))
	mock.ExpectRollback()

	_, err := svc.Reserve(ReserveInput{
		GuestID:      uuid.New(),
		ExperienceID: experienceID,
		Date:         "2026-10-01",
		StartTime:    "14:00",
		GuestCount:   2,
	})
	assert.ErrorIs(t, err, ErrSlotFull)
	assert.NoError(t, mock.ExpectationsWereMet(), "an oversold request must leave no writes behind")
}

func TestReserveCreatesPendingHold(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newReservationService(db)

	experienceID := uuid.New()
	hostID := uuid.New()
	guestID := uuid.New()
	slotID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "availability_slots"(.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(slotColumns()).
			AddRow(slotID, experienceID, "2026-10-01", "14:00", 4, 4))
	mock.ExpectQuery(`SELECT \* FROM "experiences"`).
		WillReturnRows(sqlmock.NewRows(experienceColumns()).
			AddRow(experienceID, hostID, "Night market food tour", 50000, nil, 4, 120, "active"))
	mock.ExpectExec(`UPDATE "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	booking, err := svc.Reserve(ReserveInput{
		GuestID:       guestID,
		ExperienceID:  experienceID,
		Date:          "2026-10-01",
		StartTime:     "14:00",
		GuestCount:    2,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, guestID, booking.GuestID)
	assert.Equal(t, hostID, booking.HostID)
	assert.Equal(t, slotID, booking.AvailabilitySlotID)
	assert.Equal(t, int64(100000), booking.BaseAmount)
	assert.Equal(t, int64(10000), booking.PlatformFee)
	assert.Equal(t, int64(110000), booking.TotalAmount)
	assert.Equal(t, int64(0), booking.HostPayoutAmount, "payout is only fixed at confirmation")
	assert.Equal(t, int64(110000), booking.PlatformRevenue)
	assert.True(t, strings.HasPrefix(booking.ExternalOrderID, "ord_"))
	if assert.NotNil(t, booking.HoldExpiresAt) {
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), *booking.HoldExpiresAt, 5*time.Second)
	}
}

func TestReservePrivateRequiresFullSlot(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newReservationService(db)

	experienceID := uuid.New()
	flat := int64(300000)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "availability_slots"(.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(slotColumns()).
			AddRow(uuid.New(), experienceID, "2026-10-01", "14:00", 4, 3))
	mock.ExpectQuery(`SELECT \* FROM "experiences"`).
		WillReturnRows(sqlmock.NewRows(experienceColumns()).
			AddRow(experienceID, uuid.New(), "Hanok cooking class", 50000, flat, 4, 120, "active"))
	mock.ExpectRollback()

	_, err := svc.Reserve(ReserveInput{
		GuestID:      uuid.New(),
		ExperienceID: experienceID,
		Date:         "2026-10-01",
		StartTime:    "14:00",
		GuestCount:   2,
		IsPrivate:    true,
	})
	assert.ErrorIs(t, err, ErrSlotFull, "a private booking needs the whole slot free")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservePrivateUsesFlatPrice(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newReservationService(db)

	experienceID := uuid.New()
	flat := int64(300000)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "availability_slots"(.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(slotColumns()).
			AddRow(uuid.New(), experienceID, "2026-10-01", "14:00", 4, 4))
	mock.ExpectQuery(`SELECT \* FROM "experiences"`).
		WillReturnRows(sqlmock.NewRows(experienceColumns()).
			AddRow(experienceID, uuid.New(), "Hanok cooking class", 50000, flat, 4, 120, "active"))
	mock.ExpectExec(`UPDATE "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	booking, err := svc.Reserve(ReserveInput{
		GuestID:      uuid.New(),
		ExperienceID: experienceID,
		Date:         "2026-10-01",
		StartTime:    "14:00",
		GuestCount:   2,
		IsPrivate:    true,
	})
	require.NoError(t, err)
	assert.True(t, booking.IsPrivate)
	assert.Equal(t, int64(300000), booking.BaseAmount, "private bookings charge the flat price")
	assert.Equal(t, int64(30000), booking.PlatformFee)
	assert.Equal(t, int64(330000), booking.TotalAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestReserveConcurrentLastSeat hammers a real database with competing
// reservations for the final seats. It needs TEST_DATABASE_URL and is
// skipped otherwise.
func TestReserveConcurrentLastSeat(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Experience{}, &models.AvailabilitySlot{}, &models.Booking{}))

	hostID := uuid.New()
	experience := models.Experience{
		ID:            uuid.New(),
		HostID:        hostID,
		Title:         fmt.Sprintf("concurrency probe %d", time.Now().UnixNano()),
		PricePerGuest: 50000,
		MaxGuests:     4,
	}
	require.NoError(t, db.Create(&experience).Error)

	slot := models.AvailabilitySlot{
		ID:                uuid.New(),
		ExperienceID:      experience.ID,
		Date:              "2026-10-01",
		StartTime:         "14:00",
		MaxGuests:         4,
		CapacityRemaining: 4,
	}
	require.NoError(t, db.Create(&slot).Error)

	svc := newReservationService(db)

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(ReserveInput{
				GuestID:      uuid.New(),
				ExperienceID: experience.ID,
				Date:         slot.Date,
				StartTime:    slot.StartTime,
				GuestCount:   1,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrSlotFull)
		}
	}
	assert.Equal(t, 4, wins, "exactly the available seats may be reserved")

	var remaining models.AvailabilitySlot
	require.NoError(t, db.First(&remaining, "id = ?", slot.ID).Error)
	assert.Equal(t, 0, remaining.CapacityRemaining)
}

func sweepBookingRow(id, experienceID uuid.UUID, status string, expiresAt time.Time) *sqlmock.Rows {
	columns := []string{"id", "experience_id", "guest_id", "host_id",
		"date", "start_time", "guest_count", "is_private",
		"status", "external_order_id", "hold_expires_at"}
	return sqlmock.NewRows(columns).
		AddRow(id, experienceID, uuid.New(), uuid.New(),
			"2026-10-01", "14:00", 2, false,
			status, "ord_stale", expiresAt)
}

func TestExpireStaleHoldsReleasesCapacity(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newReservationService(db)

	bookingID := uuid.New()
	experienceID := uuid.New()
	expired := time.Now().Add(-time.Minute)

	mock.ExpectQuery(`SELECT \* FROM "bookings"`).
		WillReturnRows(sweepBookingRow(bookingID, experienceID, models.BookingPending, expired))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "bookings"(.+)FOR UPDATE`).
		WillReturnRows(sweepBookingRow(bookingID, experienceID, models.BookingPending, expired))
	mock.ExpectQuery(`SELECT \* FROM "availability_slots"(.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(slotColumns()).
			AddRow(uuid.New(), experienceID, "2026-10-01", "14:00", 4, 2))
	mock.ExpectExec(`UPDATE "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "bookings"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	released, err := svc.ExpireStaleHolds()
	assert.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireStaleHoldsSkipsConcurrentlyConfirmedBooking(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newReservationService(db)

	bookingID := uuid.New()
	experienceID := uuid.New()
	expired := time.Now().Add(-time.Minute)

	// The scan saw a stale pending booking, but a webhook confirmed it
	// before the sweep locked the row.
	mock.ExpectQuery(`SELECT \* FROM "bookings"`).
		WillReturnRows(sweepBookingRow(bookingID, experienceID, models.BookingPending, expired))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "bookings"(.+)FOR UPDATE`).
		WillReturnRows(sweepBookingRow(bookingID, experienceID, models.BookingConfirmed, expired))
	mock.ExpectCommit()

	released, err := svc.ExpireStaleHolds()
	assert.NoError(t, err)
	assert.Equal(t, 0, released, "a confirmed booking keeps its seats")
	assert.NoError(t, mock.ExpectationsWereMet(), "no capacity change and no delete may happen")
}
