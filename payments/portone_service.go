package payments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	config "github.com/hyungeunseanson/locally-server/configs"
)

// PortOneService talks to the PortOne REST API. Amounts are minor
// currency units (KRW has none, so whole won).
type PortOneService struct {
	BaseURL   string
	APIKey    string
	APISecret string

	tokenMutex  sync.RWMutex
	token       string
	tokenExpiry time.Time
}

func NewPortOneService() *PortOneService {
	return &PortOneService{
		BaseURL:   config.Config("PORTONE_API_BASE_URL"),
		APIKey:    config.Config("PORTONE_API_KEY"),
		APISecret: config.Config("PORTONE_API_SECRET"),
	}
}

func (s *PortOneService) getAccessToken() (string, error) {
	s.tokenMutex.RLock()
	if s.token != "" && time.Now().Before(s.tokenExpiry) {
		token := s.token
		s.tokenMutex.RUnlock()
		return token, nil
	}
	s.tokenMutex.RUnlock()

	s.tokenMutex.Lock()
	defer s.tokenMutex.Unlock()

	if s.token != "" && time.Now().Before(s.tokenExpiry) {
		return s.token, nil
	}

	log.Println("Fetching new PortOne access token...")
	payload, _ := json.Marshal(map[string]string{
		"imp_key":    s.APIKey,
		"imp_secret": s.APISecret,
	})
	resp, err := http.Post(fmt.Sprintf("%s/users/getToken", s.BaseURL), "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("PortOne token API returned non-200 status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	token := gjson.GetBytes(body, "response.access_token").String()
	if token == "" {
		return "", fmt.Errorf("PortOne token response missing access_token: %s", string(body))
	}

	s.token = token
	expiredAt := gjson.GetBytes(body, "response.expired_at").Int()
	if expiredAt > 0 {
		s.tokenExpiry = time.Unix(expiredAt, 0).Add(-60 * time.Second)
	} else {
		s.tokenExpiry = time.Now().Add(25 * time.Minute)
	}
	return s.token, nil
}

func (s *PortOneService) do(method, path string, payload any) ([]byte, error) {
	token, err := s.getAccessToken()
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(b)
	}

	req, err := http.NewRequest(method, s.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PortOne API %s returned %s: %s", path, resp.Status, string(body))
	}
	if code := gjson.GetBytes(body, "code").Int(); code != 0 {
		return nil, fmt.Errorf("PortOne API %s error %d: %s", path, code, gjson.GetBytes(body, "message").String())
	}
	return body, nil
}

// CreateCharge prepares the order on the PSP side so the amount cannot
// be tampered with in the client checkout.
func (s *PortOneService) CreateCharge(req ChargeRequest) (*ChargeSession, error) {
	body, err := s.do("POST", "/payments/prepare", map[string]any{
		"merchant_uid": req.OrderID,
		"amount":       req.Amount,
		"name":         req.ProductName,
		"buyer_name":   req.PayerName,
		"buyer_email":  req.PayerEmail,
	})
	if err != nil {
		return nil, err
	}
	return &ChargeSession{
		Token:       gjson.GetBytes(body, "response.merchant_uid").String(),
		RedirectURL: gjson.GetBytes(body, "response.redirect_url").String(),
	}, nil
}

// VerifyCharge looks the order up on the PSP by our merchant order id
// and returns what was actually charged, independent of anything the
// client claimed.
func (s *PortOneService) VerifyCharge(orderID string) (*ChargeReceipt, error) {
	body, err := s.do("GET", fmt.Sprintf("/payments/find/%s", orderID), nil)
	if err != nil {
		return nil, err
	}
	r := gjson.GetBytes(body, "response")
	if !r.Exists() {
		return nil, fmt.Errorf("PortOne payment lookup for %s returned empty response", orderID)
	}
	return &ChargeReceipt{
		OrderID:      r.Get("merchant_uid").String(),
		GatewayTxnID: r.Get("imp_uid").String(),
		Amount:       r.Get("amount").Int(),
		Status:       r.Get("status").String(),
		Method:       r.Get("pay_method").String(),
		ReceiptURL:   r.Get("receipt_url").String(),
	}, nil
}

func (s *PortOneService) Refund(orderID string, amount int64, reason string) (*RefundResult, error) {
	body, err := s.do("POST", "/payments/cancel", map[string]any{
		"merchant_uid": orderID,
		"amount":       amount,
		"reason":       reason,
		"checksum":     amount,
	})
	if err != nil {
		return nil, err
	}
	r := gjson.GetBytes(body, "response")
	return &RefundResult{
		OrderID: r.Get("merchant_uid").String(),
		Amount:  r.Get("cancel_amount").Int(),
		Status:  r.Get("status").String(),
	}, nil
}
