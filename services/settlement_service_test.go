package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/hyungeunseanson/locally-server/models"
	"github.com/hyungeunseanson/locally-server/payments"
	"github.com/stretchr/testify/assert"
)

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	gateway := &stubGateway{}
	notifier := &stubNotifier{}
	svc := NewSettlementService(db, gateway, notifier)

	bookingID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "bookings"`).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingColumns()),
			bookingID, uuid.New(), uuid.New(), uuid.New(), uuid.New(),
			models.BookingConfirmed, "ord_dup", 100000, 10000, 110000, 80000))

	booking, err := svc.ConfirmPayment("ord_dup")
	assert.NoError(t, err)
	assert.Equal(t, bookingID, booking.ID)
	assert.Equal(t, models.BookingConfirmed, booking.Status)
	assert.Equal(t, 0, gateway.verifyCalls, "a replayed confirmation must not hit the gateway")
	assert.Empty(t, notifier.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPaymentUnknownOrder(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewSettlementService(db, &stubGateway{}, &stubNotifier{})

	mock.ExpectQuery(`SELECT \* FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows(bookingColumns()))

	_, err := svc.ConfirmPayment("ord_missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestConfirmPaymentAmountMismatchDeclines(t *testing.T) {
	db, mock := newMockDB(t)
	gateway := &stubGateway{
		verifyFn: func(orderID string) (*payments.ChargeReceipt, error) {
			return &payments.ChargeReceipt{
				OrderID: orderID,
				Amount:  90000, // guest owes 110000
				Status:  payments.ChargePaid,
				Method:  "card",
			}, nil
		},
	}
	notifier := &stubNotifier{}
	svc := NewSettlementService(db, gateway, notifier)

	bookingID := uuid.New()
	experienceID := uuid.New()
	guestID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "bookings"`).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingColumns()),
			bookingID, experienceID, guestID, uuid.New(), uuid.New(),
			models.BookingPending, "ord_short", 100000, 10000, 110000, 0))

	// The decline path re-checks the booking under lock, then releases
	// the held seats and flips it.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "bookings"(.+)FOR UPDATE`).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingColumns()),
			bookingID, experienceID, guestID, uuid.New(), uuid.New(),
			models.BookingPending, "ord_short", 100000, 10000, 110000, 0))
	mock.ExpectQuery(`SELECT \* FROM "availability_slots"(.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(slotColumns()).
			AddRow(uuid.New(), experienceID, "2026-10-01", "14:00", 4, 2))
	mock.ExpectExec(`UPDATE "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "bookings"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := svc.ConfirmPayment("ord_short")
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())

	if assert.Len(t, notifier.sent, 1) {
		assert.Equal(t, guestID, notifier.sent[0].RecipientID)
		assert.Equal(t, "payment_declined", notifier.sent[0].Type)
	}
}

func TestConfirmPaymentUnpaidChargeDeclines(t *testing.T) {
	db, mock := newMockDB(t)
	gateway := &stubGateway{
		verifyFn: func(orderID string) (*payments.ChargeReceipt, error) {
			return &payments.ChargeReceipt{OrderID: orderID, Amount: 110000, Status: payments.ChargeFailed}, nil
		},
	}
	notifier := &stubNotifier{}
	svc := NewSettlementService(db, gateway, notifier)

	experienceID := uuid.New()

	bookingID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "bookings"`).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingColumns()),
			bookingID, experienceID, uuid.New(), uuid.New(), uuid.New(),
			models.BookingPending, "ord_failed", 100000, 10000, 110000, 0))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "bookings"(.+)FOR UPDATE`).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingColumns()),
			bookingID, experienceID, uuid.New(), uuid.New(), uuid.New(),
			models.BookingPending, "ord_failed", 100000, 10000, 110000, 0))
	mock.ExpectQuery(`SELECT \* FROM "availability_slots"(.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(slotColumns()).
			AddRow(uuid.New(), experienceID, "2026-10-01", "14:00", 4, 2))
	mock.ExpectExec(`UPDATE "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "bookings"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := svc.ConfirmPayment("ord_failed")
	assert.ErrorIs(t, err, ErrGatewayVerification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPaymentSettlesBooking(t *testing.T) {
	db, mock := newMockDB(t)
	gateway := &stubGateway{
		verifyFn: func(orderID string) (*payments.ChargeReceipt, error) {
			return &payments.ChargeReceipt{
				OrderID: orderID,
				Amount:  110000,
				Status:  payments.ChargePaid,
				Method:  "card",
			}, nil
		},
	}
	notifier := &stubNotifier{}
	svc := NewSettlementService(db, gateway, notifier)

	bookingID := uuid.New()
	hostID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "bookings"`).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingColumns()),
			bookingID, uuid.New(), uuid.New(), hostID, uuid.New(),
			models.BookingPending, "ord_ok", 100000, 10000, 110000, 0))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "bookings"(.+)FOR UPDATE`).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingColumns()),
			bookingID, uuid.New(), uuid.New(), hostID, uuid.New(),
			models.BookingPending, "ord_ok", 100000, 10000, 110000, 0))
	mock.ExpectExec(`UPDATE "bookings"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking, err := svc.ConfirmPayment("ord_ok")
	assert.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, booking.Status)
	assert.Equal(t, "card", booking.PaymentMethod)
	assert.Equal(t, int64(80000), booking.HostPayoutAmount, "host keeps 80% of the base amount")
	assert.Equal(t, int64(30000), booking.PlatformRevenue, "platform keeps the fee plus the host share remainder")
	assert.Nil(t, booking.HoldExpiresAt)
	assert.NotNil(t, booking.DecidedAt)
	assert.Equal(t, 1, gateway.verifyCalls)
	assert.NoError(t, mock.ExpectationsWereMet())

	if assert.Len(t, notifier.sent, 1) {
		assert.Equal(t, hostID, notifier.sent[0].RecipientID)
		assert.Equal(t, "booking_confirmed", notifier.sent[0].Type)
	}
}

func TestDeclineSkipsAlreadyDecidedBooking(t *testing.T) {
	db, mock := newMockDB(t)
	gateway := &stubGateway{
		verifyFn: func(orderID string) (*payments.ChargeReceipt, error) {
			return &payments.ChargeReceipt{OrderID: orderID, Amount: 90000, Status: payments.ChargePaid, Method: "card"}, nil
		},
	}
	notifier := &stubNotifier{}
	svc := NewSettlementService(db, gateway, notifier)

	bookingID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "bookings"`).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingColumns()),
			bookingID, uuid.New(), uuid.New(), uuid.New(), uuid.New(),
			models.BookingPending, "ord_decided", 100000, 10000, 110000, 0))

	// A concurrent sweep already declined the booking and released its
	// seats; this decline must not release them a second time.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "bookings"(.+)FOR UPDATE`).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingColumns()),
			bookingID, uuid.New(), uuid.New(), uuid.New(), uuid.New(),
			models.BookingDeclined, "ord_decided", 100000, 10000, 110000, 0))
	mock.ExpectCommit()

	_, err := svc.ConfirmPayment("ord_decided")
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.Empty(t, notifier.sent, "a skipped decline must not notify the guest again")
	assert.NoError(t, mock.ExpectationsWereMet(), "no capacity change may happen")
}

func TestConfirmPaymentLostRaceKeepsWinner(t *testing.T) {
	db, mock := newMockDB(t)
	gateway := &stubGateway{
		verifyFn: func(orderID string) (*payments.ChargeReceipt, error) {
			return &payments.ChargeReceipt{OrderID: orderID, Amount: 110000, Status: payments.ChargePaid, Method: "card"}, nil
		},
	}
	svc := NewSettlementService(db, gateway, &stubNotifier{})

	bookingID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "bookings"`).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingColumns()),
			bookingID, uuid.New(), uuid.New(), uuid.New(), uuid.New(),
			models.BookingPending, "ord_race", 100000, 10000, 110000, 0))

	// Between verification and the locked re-read a concurrent webhook
	// already confirmed the booking.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "bookings"(.+)FOR UPDATE`).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingColumns()),
			bookingID, uuid.New(), uuid.New(), uuid.New(), uuid.New(),
			models.BookingConfirmed, "ord_race", 100000, 10000, 110000, 80000))
	mock.ExpectCommit()

	booking, err := svc.ConfirmPayment("ord_race")
	assert.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, booking.Status)
	assert.Equal(t, int64(80000), booking.HostPayoutAmount, "the winner's payout stands")
	assert.NoError(t, mock.ExpectationsWereMet())
}
