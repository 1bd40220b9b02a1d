package external

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *GatewayClient {
	return NewGatewayClient(GatewayConfig{
		BaseURL:     baseURL,
		MerchantID:  "merchant-1",
		SecretKey:   "s3cret",
		SuccessURL:  "http://localhost/success",
		ErrorURL:    "http://localhost/fail",
		CallbackURL: "http://localhost/notifications",
	})
}

func TestCreatePaymentPage(t *testing.T) {
	var received CreatePageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/init", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(CreatePageResponse{
			Success:       true,
			TransactionID: "tx-100",
			OrderID:       received.OrderID,
			Status:        GatewayStatusNew,
			PaymentURL:    "https://pay.example.com/tx-100",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.CreatePaymentPage(t.Context(), 15000, "ILS", "order-1", "Consultation", "dana@example.com")
	require.NoError(t, err)

	assert.Equal(t, "tx-100", resp.TransactionID)
	assert.Equal(t, "https://pay.example.com/tx-100", resp.PaymentURL)

	assert.Equal(t, "merchant-1", received.MerchantID)
	assert.Equal(t, int64(15000), received.Amount)
	assert.Equal(t, "http://localhost/notifications", received.NotificationURL)
	assert.NotEmpty(t, received.Token)
}

func TestCreatePaymentPageRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(CreatePageResponse{Success: false, Message: "merchant suspended"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CreatePaymentPage(t.Context(), 15000, "ILS", "order-1", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merchant suspended")
}

func TestGatewayServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetStatus(t.Context(), "tx-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestTokenIsDeterministicAndSorted(t *testing.T) {
	client := newTestClient("http://unused")

	a := client.generateToken(map[string]string{"Amount": "100", "OrderId": "o-1"})
	b := client.generateToken(map[string]string{"OrderId": "o-1", "Amount": "100"})
	c := client.generateToken(map[string]string{"Amount": "101", "OrderId": "o-1"})

	assert.Equal(t, a, b, "parameter order must not change the token")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestValidateCallback(t *testing.T) {
	client := newTestClient("http://unused")

	token := client.generateToken(map[string]string{
		"Amount":        strconv.FormatInt(15000, 10),
		"Status":        GatewayStatusConfirmed,
		"TransactionId": "tx-1",
	})

	assert.True(t, client.ValidateCallback("tx-1", GatewayStatusConfirmed, 15000, token))
	assert.False(t, client.ValidateCallback("tx-1", GatewayStatusConfirmed, 15001, token))
	assert.False(t, client.ValidateCallback("tx-1", GatewayStatusRejected, 15000, token))
	assert.False(t, client.ValidateCallback("tx-2", GatewayStatusConfirmed, 15000, token))
	assert.False(t, client.ValidateCallback("tx-1", GatewayStatusConfirmed, 15000, "forged"))
}

func TestRefund(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/refund", r.URL.Path)

		var req refundRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tx-1", req.TransactionID)
		assert.Equal(t, int64(5000), req.Amount)

		json.NewEncoder(w).Encode(refundResponse{Success: true, Status: GatewayStatusRefunded})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	require.NoError(t, client.Refund(t.Context(), "tx-1", 5000, "customer request"))
}
