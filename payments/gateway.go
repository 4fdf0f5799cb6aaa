package payments

// Charge statuses as reported by the PSP.
const (
	ChargePaid      = "paid"
	ChargeFailed    = "failed"
	ChargeCancelled = "cancelled"
)

type ChargeRequest struct {
	OrderID     string
	Amount      int64
	Currency    string
	PayerName   string
	PayerEmail  string
	ProductName string
}

type ChargeSession struct {
	RedirectURL string `json:"redirect_url"`
	Token       string `json:"token"`
}

type ChargeReceipt struct {
	OrderID      string `json:"order_id"`
	GatewayTxnID string `json:"gateway_txn_id"`
	Amount       int64  `json:"amount"`
	Status       string `json:"status"`
	Method       string `json:"method"`
	ReceiptURL   string `json:"receipt_url"`
}

type RefundResult struct {
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
}

// Gateway is the payment collaborator. The engine never marks a
// booking paid or cancelled without a positive VerifyCharge/Refund
// response from this interface.
type Gateway interface {
	CreateCharge(req ChargeRequest) (*ChargeSession, error)
	VerifyCharge(orderID string) (*ChargeReceipt, error)
	Refund(orderID string, amount int64, reason string) (*RefundResult, error)
}
