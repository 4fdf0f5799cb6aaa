package services

import (
	"log"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/hyungeunseanson/locally-server/payments"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction:   true,
		DisableNestedTransaction: true,
	})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

// stubGateway lets each test script the PSP's answers.
type stubGateway struct {
	createFn func(req payments.ChargeRequest) (*payments.ChargeSession, error)
	verifyFn func(orderID string) (*payments.ChargeReceipt, error)
	refundFn func(orderID string, amount int64, reason string) (*payments.RefundResult, error)

	verifyCalls int
	refundCalls int
}

func (g *stubGateway) CreateCharge(req payments.ChargeRequest) (*payments.ChargeSession, error) {
	if g.createFn == nil {
		return &payments.ChargeSession{Token: req.OrderID}, nil
	}
	return g.createFn(req)
}

func (g *stubGateway) VerifyCharge(orderID string) (*payments.ChargeReceipt, error) {
	g.verifyCalls++
	if g.verifyFn == nil {
		return nil, nil
	}
	return g.verifyFn(orderID)
}

func (g *stubGateway) Refund(orderID string, amount int64, reason string) (*payments.RefundResult, error) {
	g.refundCalls++
	if g.refundFn == nil {
		return nil, nil
	}
	return g.refundFn(orderID, amount, reason)
}

// stubNotifier records what would have been sent.
type sentNotification struct {
	RecipientID uuid.UUID
	Type        string
}

type stubNotifier struct {
	sent []sentNotification
}

func (n *stubNotifier) Send(recipientID uuid.UUID, ntype, title, body, link string) {
	n.sent = append(n.sent, sentNotification{RecipientID: recipientID, Type: ntype})
}

func bookingColumns() []string {
	return []string{
		"id", "experience_id", "guest_id", "host_id", "availability_slot_id",
		"date", "start_time", "guest_count", "is_private",
		"base_amount", "platform_fee", "total_amount", "host_payout_amount", "platform_revenue",
		"status", "payment_method", "external_order_id", "payout_status", "cancel_reason",
	}
}

func bookingRow(rows *sqlmock.Rows, id, experienceID, guestID, hostID, slotID uuid.UUID,
	status, orderID string, base, fee, total, payout int64) *sqlmock.Rows {
	return rows.AddRow(
		id, experienceID, guestID, hostID, slotID,
		"2026-10-01", "14:00", 2, false,
		base, fee, total, payout, total-payout,
		status, "card", orderID, "pending", nil,
	)
}

func slotColumns() []string {
	return []string{"id", "experience_id", "date", "start_time", "max_guests", "capacity_remaining"}
}

func testTime() time.Time {
	return time.Date(2026, 10, 1, 14, 0, 0, 0, time.Local)
}
