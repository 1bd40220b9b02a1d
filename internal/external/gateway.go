package external

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"
)

// GatewayClient talks to the hosted payment-page provider. All requests
// are signed with a SHA-256 token over the sorted parameter values.
type GatewayClient struct {
	baseURL     string
	merchantID  string
	secretKey   string
	successURL  string
	errorURL    string
	callbackURL string
	httpClient  *http.Client
}

type GatewayConfig struct {
	BaseURL     string
	MerchantID  string
	SecretKey   string
	SuccessURL  string
	ErrorURL    string
	CallbackURL string
	Timeout     time.Duration
}

// Gateway status vocabulary (the provider's, not ours).
const (
	GatewayStatusNew        = "NEW"
	GatewayStatusAuthorized = "AUTHORIZED"
	GatewayStatusConfirmed  = "CONFIRMED"
	GatewayStatusRejected   = "REJECTED"
	GatewayStatusCancelled  = "CANCELLED"
	GatewayStatusExpired    = "EXPIRED"
	GatewayStatusRefunded   = "REFUNDED"
)

type CreatePageRequest struct {
	MerchantID      string `json:"merchantId"`
	Token           string `json:"token"`
	Amount          int64  `json:"amount"`
	OrderID         string `json:"orderId"`
	Currency        string `json:"currency"`
	Description     string `json:"description,omitempty"`
	CustomerEmail   string `json:"email,omitempty"`
	SuccessURL      string `json:"successURL,omitempty"`
	ErrorURL        string `json:"errorURL,omitempty"`
	NotificationURL string `json:"notificationURL,omitempty"`
}

type CreatePageResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	OrderID       string `json:"orderId"`
	Status        string `json:"status"`
	PaymentURL    string `json:"paymentURL"`
	Message       string `json:"message,omitempty"`
}

type statusRequest struct {
	MerchantID    string `json:"merchantId"`
	Token         string `json:"token"`
	TransactionID string `json:"transactionId"`
}

type StatusResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

type refundRequest struct {
	MerchantID    string `json:"merchantId"`
	Token         string `json:"token"`
	TransactionID string `json:"transactionId"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason,omitempty"`
}

type refundResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type cancelRequest struct {
	MerchantID    string `json:"merchantId"`
	Token         string `json:"token"`
	TransactionID string `json:"transactionId"`
	Reason        string `json:"reason,omitempty"`
}

func NewGatewayClient(cfg GatewayConfig) *GatewayClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &GatewayClient{
		baseURL:     cfg.BaseURL,
		merchantID:  cfg.MerchantID,
		secretKey:   cfg.SecretKey,
		successURL:  cfg.SuccessURL,
		errorURL:    cfg.ErrorURL,
		callbackURL: cfg.CallbackURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// generateToken signs request parameters: values are sorted by key,
// concatenated together with the merchant id and secret, and hashed.
func (gc *GatewayClient) generateToken(params map[string]string) string {
	params["MerchantId"] = gc.merchantID
	params["Password"] = gc.secretKey

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var tokenString string
	for _, key := range keys {
		tokenString += params[key]
	}

	hash := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(hash[:])
}

// CreatePaymentPage opens a hosted payment page and returns its URL plus
// the provisional transaction id.
func (gc *GatewayClient) CreatePaymentPage(ctx context.Context, amount int64, currency, orderID, description, customerEmail string) (*CreatePageResponse, error) {
	token := gc.generateToken(map[string]string{
		"Amount":   strconv.FormatInt(amount, 10),
		"Currency": currency,
		"OrderId":  orderID,
	})

	req := CreatePageRequest{
		MerchantID:      gc.merchantID,
		Token:           token,
		Amount:          amount,
		OrderID:         orderID,
		Currency:        currency,
		Description:     description,
		CustomerEmail:   customerEmail,
		SuccessURL:      gc.successURL,
		ErrorURL:        gc.errorURL,
		NotificationURL: gc.callbackURL,
	}

	var result CreatePageResponse
	if err := gc.post(ctx, "/payments/init", req, &result); err != nil {
		return nil, err
	}

	if !result.Success {
		return nil, fmt.Errorf("payment page creation rejected: %s", result.Message)
	}

	return &result, nil
}

// GetStatus queries the gateway for the current state of a transaction.
func (gc *GatewayClient) GetStatus(ctx context.Context, transactionID string) (*StatusResponse, error) {
	token := gc.generateToken(map[string]string{
		"TransactionId": transactionID,
	})

	req := statusRequest{
		MerchantID:    gc.merchantID,
		Token:         token,
		TransactionID: transactionID,
	}

	var result StatusResponse
	if err := gc.post(ctx, "/payments/check", req, &result); err != nil {
		return nil, err
	}

	if !result.Success {
		return nil, fmt.Errorf("status check rejected for transaction %s", transactionID)
	}

	return &result, nil
}

// Refund returns funds for a completed transaction.
func (gc *GatewayClient) Refund(ctx context.Context, transactionID string, amount int64, reason string) error {
	token := gc.generateToken(map[string]string{
		"Amount":        strconv.FormatInt(amount, 10),
		"TransactionId": transactionID,
	})

	req := refundRequest{
		MerchantID:    gc.merchantID,
		Token:         token,
		TransactionID: transactionID,
		Amount:        amount,
		Reason:        reason,
	}

	var result refundResponse
	if err := gc.post(ctx, "/payments/refund", req, &result); err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("refund rejected: %s", result.Message)
	}

	return nil
}

// CancelPayment voids a transaction that was opened but not captured.
func (gc *GatewayClient) CancelPayment(ctx context.Context, transactionID, reason string) error {
	token := gc.generateToken(map[string]string{
		"TransactionId": transactionID,
	})

	req := cancelRequest{
		MerchantID:    gc.merchantID,
		Token:         token,
		TransactionID: transactionID,
		Reason:        reason,
	}

	var result refundResponse
	if err := gc.post(ctx, "/payments/cancel", req, &result); err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("cancel rejected: %s", result.Message)
	}

	return nil
}

// ValidateCallback verifies the token the gateway attaches to webhook
// payloads. The expected token covers transaction id, status and amount.
func (gc *GatewayClient) ValidateCallback(transactionID, status string, amount int64, token string) bool {
	expected := gc.generateToken(map[string]string{
		"Amount":        strconv.FormatInt(amount, 10),
		"Status":        status,
		"TransactionId": transactionID,
	})
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}

func (gc *GatewayClient) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, gc.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := gc.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
