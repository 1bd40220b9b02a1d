package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vireo/internal/errors"
	"vireo/internal/external"
	"vireo/internal/models"
	"vireo/internal/service"
)

// stub backs every service dependency with canned answers. Handlers are
// tested through real services so status mapping covers the actual error
// values the services produce.
type stub struct {
	svc        *models.ServiceDefinition
	business   *models.Business
	reserveErr error
	claimErr   error
	payment    *models.Payment
}

func (s *stub) GetByID(_ context.Context, _ string) (*models.ServiceDefinition, error) {
	return s.svc, nil
}
func (s *stub) List(_ context.Context) ([]models.ServiceDefinition, error) {
	if s.svc == nil {
		return nil, nil
	}
	return []models.ServiceDefinition{*s.svc}, nil
}

type stubBusinesses struct{ business *models.Business }

func (s *stubBusinesses) Create(_ context.Context, business *models.Business) error {
	business.ID = 1
	return nil
}

func (s *stubBusinesses) GetByID(_ context.Context, _ int64) (*models.Business, error) {
	return s.business, nil
}

type stubAppointments struct{ reserveErr error }

func (s *stubAppointments) Reserve(_ context.Context, appt *models.Appointment) error {
	if s.reserveErr != nil {
		return s.reserveErr
	}
	appt.ID = "appt-1"
	appt.Status = models.ReservationConfirmed
	return nil
}
func (s *stubAppointments) GetByID(_ context.Context, _ string) (*models.Appointment, error) {
	return nil, nil
}
func (s *stubAppointments) Cancel(_ context.Context, _ string) error { return nil }
func (s *stubAppointments) ListLiveBetween(_ context.Context, _ int64, _, _ time.Time) ([]models.Appointment, error) {
	return nil, nil
}

type stubEvents struct{}

func (s *stubEvents) Create(_ context.Context, event *models.Event) error {
	event.ID = 1
	return nil
}
func (s *stubEvents) GetByID(_ context.Context, _ int64) (*models.Event, error)  { return nil, nil }
func (s *stubEvents) List(_ context.Context, _, _ int) ([]models.Event, error)   { return nil, nil }
func (s *stubEvents) ClaimSeat(_ context.Context, _ *models.Occupant) error      { return nil }
func (s *stubEvents) ReleaseSeat(_ context.Context, _ int64) error               { return nil }
func (s *stubEvents) GetOccupantByID(_ context.Context, _ int64) (*models.Occupant, error) {
	return nil, nil
}
func (s *stubEvents) UpdateOccupantStatus(_ context.Context, _ int64, _ string) error { return nil }

type stubPayments struct{ payment *models.Payment }

func (s *stubPayments) Create(_ context.Context, payment *models.Payment) error {
	payment.ID = "pay-1"
	return nil
}
func (s *stubPayments) GetByID(_ context.Context, _ string) (*models.Payment, error) {
	return s.payment, nil
}
func (s *stubPayments) GetByTransactionID(_ context.Context, _ string) (*models.Payment, error) {
	return s.payment, nil
}
func (s *stubPayments) GetByOrderID(_ context.Context, _ string) (*models.Payment, error) {
	return s.payment, nil
}
func (s *stubPayments) GetByReservation(_ context.Context, _, _ string) (*models.Payment, error) {
	return nil, nil
}
func (s *stubPayments) BindReservation(_ context.Context, _, _ string) error      { return nil }
func (s *stubPayments) MarkProcessing(_ context.Context, _, _ string) error       { return nil }
func (s *stubPayments) Delete(_ context.Context, _ string) error                  { return nil }
func (s *stubPayments) SetRefundReason(_ context.Context, _, _ string) error      { return nil }
func (s *stubPayments) Transition(_ context.Context, _, _ string, _ ...string) (bool, error) {
	return true, nil
}
func (s *stubPayments) ListStaleProcessing(_ context.Context, _ time.Time) ([]models.Payment, error) {
	return nil, nil
}

type stubGateway struct{ validToken string }

func (s *stubGateway) CreatePaymentPage(_ context.Context, _ int64, _, orderID, _, _ string) (*external.CreatePageResponse, error) {
	return &external.CreatePageResponse{
		Success:       true,
		TransactionID: "tx-1",
		OrderID:       orderID,
		PaymentURL:    "https://pay.example.com/tx-1",
	}, nil
}
func (s *stubGateway) GetStatus(_ context.Context, _ string) (*external.StatusResponse, error) {
	return nil, nil
}
func (s *stubGateway) Refund(_ context.Context, _ string, _ int64, _ string) error { return nil }
func (s *stubGateway) CancelPayment(_ context.Context, _, _ string) error          { return nil }
func (s *stubGateway) ValidateCallback(_, _ string, _ int64, token string) bool {
	return token == s.validToken
}

type stubPublisher struct{}

func (s *stubPublisher) Publish(_ string, _ interface{}) error { return nil }

func newTestRouter(cfg *stub) *gin.Engine {
	gin.SetMode(gin.TestMode)

	services := service.New(service.Deps{
		Services:           cfg,
		Businesses:         &stubBusinesses{business: cfg.business},
		Appointments:       &stubAppointments{reserveErr: cfg.reserveErr},
		Events:             &stubEvents{},
		Payments:           &stubPayments{payment: cfg.payment},
		Gateway:            &stubGateway{validToken: "good"},
		Publisher:          &stubPublisher{},
		PlatformFeePercent: 5.0,
	})

	h := NewHandlers(services, nil, nil)

	router := gin.New()
	router.POST("/api/appointments", h.BookAppointment)
	router.GET("/api/services", h.ListServices)
	router.GET("/api/payments/:id", h.GetPayment)
	router.POST("/api/payments/notifications", h.OnPaymentUpdates)
	return router
}

func openBusiness() *models.Business {
	return &models.Business{ID: 1, Name: "Clinic", HorizonDays: 365, CloseMinute: 1440}
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// tomorrowNoon is a window that is always bookable: inside opening
// hours, past any lead time, within the horizon.
func tomorrowNoon() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour).Add(36 * time.Hour)
}

func bookBody(start time.Time) string {
	body, _ := json.Marshal(models.BookAppointmentRequest{
		BusinessID:  1,
		ServiceID:   "consultation",
		WindowStart: start,
		Customer:    models.CustomerInfo{Name: "Dana"},
	})
	return string(body)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBookAppointmentCreated(t *testing.T) {
	router := newTestRouter(&stub{
		svc:      &models.ServiceDefinition{ID: "consultation", DurationMinutes: 30, PriceCents: 15000, Currency: "ILS"},
		business: openBusiness(),
	})

	w := doJSON(router, http.MethodPost, "/api/appointments", bookBody(tomorrowNoon()))

	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.BookAppointmentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "appt-1", resp.Appointment.ID)
	assert.Equal(t, "https://pay.example.com/tx-1", resp.PaymentURL)
}

func TestBookAppointmentConflictMapsTo409(t *testing.T) {
	router := newTestRouter(&stub{
		svc:        &models.ServiceDefinition{ID: "consultation", DurationMinutes: 30, PriceCents: 15000, Currency: "ILS"},
		business:   openBusiness(),
		reserveErr: apperrors.ErrSlotConflict,
	})

	w := doJSON(router, http.MethodPost, "/api/appointments", bookBody(tomorrowNoon()))

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "slot_conflict", decodeError(t, w).Code)
}

func TestBookAppointmentUnknownServiceMapsTo400(t *testing.T) {
	router := newTestRouter(&stub{business: openBusiness()})

	w := doJSON(router, http.MethodPost, "/api/appointments", bookBody(tomorrowNoon()))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unknown_service", decodeError(t, w).Code)
}

func TestBookAppointmentMalformedBody(t *testing.T) {
	router := newTestRouter(&stub{})

	w := doJSON(router, http.MethodPost, "/api/appointments", "{not json")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decodeError(t, w).Code)
}

func TestGetPaymentNotFoundMapsTo404(t *testing.T) {
	router := newTestRouter(&stub{})

	w := doJSON(router, http.MethodGet, "/api/payments/pay-404", "")

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "payment_not_found", decodeError(t, w).Code)
}

func TestCallbackBadSignatureMapsTo400(t *testing.T) {
	router := newTestRouter(&stub{})

	body := `{"transactionId":"tx-1","status":"CONFIRMED","amount":15000,"token":"forged"}`
	w := doJSON(router, http.MethodPost, "/api/payments/notifications", body)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "callback_rejected", decodeError(t, w).Code)
}

func TestCallbackUnknownTransactionAcknowledged(t *testing.T) {
	router := newTestRouter(&stub{})

	body := `{"transactionId":"tx-unknown","status":"CONFIRMED","amount":15000,"token":"good"}`
	w := doJSON(router, http.MethodPost, "/api/payments/notifications", body)

	require.Equal(t, http.StatusOK, w.Code)
}
