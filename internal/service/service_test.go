package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	apperrors "vireo/internal/errors"
	"vireo/internal/external"
	"vireo/internal/models"
)

// In-memory store fakes. The fakes reproduce the contracts the real
// repositories provide: atomic overlap-checked reserve, conditional seat
// claim, conditional payment transitions.

type fakeServiceStore struct {
	items map[string]models.ServiceDefinition
}

func (f *fakeServiceStore) GetByID(_ context.Context, id string) (*models.ServiceDefinition, error) {
	if svc, ok := f.items[id]; ok {
		return &svc, nil
	}
	return nil, nil
}

func (f *fakeServiceStore) List(_ context.Context) ([]models.ServiceDefinition, error) {
	var out []models.ServiceDefinition
	for _, svc := range f.items {
		out = append(out, svc)
	}
	return out, nil
}

type fakeBusinessStore struct {
	mu    sync.Mutex
	seq   int64
	items map[int64]models.Business
}

func (f *fakeBusinessStore) Create(_ context.Context, business *models.Business) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq = int64(len(f.items)) + 100
	business.ID = f.seq
	f.items[business.ID] = *business
	return nil
}

func (f *fakeBusinessStore) GetByID(_ context.Context, id int64) (*models.Business, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.items[id]; ok {
		return &b, nil
	}
	return nil, nil
}

type fakeAppointmentStore struct {
	mu    sync.Mutex
	seq   int
	items map[string]*models.Appointment
}

func newFakeAppointmentStore() *fakeAppointmentStore {
	return &fakeAppointmentStore{items: make(map[string]*models.Appointment)}
}

func (f *fakeAppointmentStore) Reserve(_ context.Context, appt *models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.items {
		if existing.BusinessID != appt.BusinessID {
			continue
		}
		if existing.Status == models.ReservationCancelled {
			continue
		}
		if existing.StartsAt.Before(appt.EndsAt) && existing.EndsAt.After(appt.StartsAt) {
			return apperrors.ErrSlotConflict
		}
	}

	f.seq++
	appt.ID = fmt.Sprintf("appt-%d", f.seq)
	appt.Status = models.ReservationConfirmed
	copied := *appt
	f.items[appt.ID] = &copied
	return nil
}

func (f *fakeAppointmentStore) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if appt, ok := f.items[id]; ok {
		copied := *appt
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeAppointmentStore) Cancel(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if appt, ok := f.items[id]; ok && appt.Status != models.ReservationCancelled {
		appt.Status = models.ReservationCancelled
	}
	return nil
}

func (f *fakeAppointmentStore) ListLiveBetween(_ context.Context, businessID int64, from, to time.Time) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Appointment
	for _, appt := range f.items {
		if appt.BusinessID != businessID || appt.Status == models.ReservationCancelled {
			continue
		}
		if appt.StartsAt.Before(to) && appt.EndsAt.After(from) {
			out = append(out, *appt)
		}
	}
	return out, nil
}

type fakeEventStore struct {
	mu        sync.Mutex
	seq       int64
	events    map[int64]*models.Event
	occupants map[int64]*models.Occupant
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{
		events:    make(map[int64]*models.Event),
		occupants: make(map[int64]*models.Occupant),
	}
}

func (f *fakeEventStore) Create(_ context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	event.ID = f.seq
	copied := *event
	f.events[event.ID] = &copied
	return nil
}

func (f *fakeEventStore) GetByID(_ context.Context, id int64) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event, ok := f.events[id]; ok {
		copied := *event
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeEventStore) List(_ context.Context, _, _ int) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, event := range f.events {
		out = append(out, *event)
	}
	return out, nil
}

func (f *fakeEventStore) ClaimSeat(_ context.Context, occ *models.Occupant) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	event, ok := f.events[occ.EventID]
	if !ok || event.OccupantCount >= event.Capacity {
		return apperrors.ErrCapacityExceeded
	}
	event.OccupantCount++

	f.seq++
	occ.ID = f.seq
	copied := *occ
	f.occupants[occ.ID] = &copied
	return nil
}

func (f *fakeEventStore) ReleaseSeat(_ context.Context, occupantID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	occ, ok := f.occupants[occupantID]
	if !ok || occ.Status == models.OccupantCancelled {
		return nil
	}
	occ.Status = models.OccupantCancelled
	if event, ok := f.events[occ.EventID]; ok && event.OccupantCount > 0 {
		event.OccupantCount--
	}
	return nil
}

func (f *fakeEventStore) GetOccupantByID(_ context.Context, id int64) (*models.Occupant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if occ, ok := f.occupants[id]; ok {
		copied := *occ
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeEventStore) UpdateOccupantStatus(_ context.Context, id int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if occ, ok := f.occupants[id]; ok {
		occ.Status = status
	}
	return nil
}

type fakePaymentStore struct {
	mu    sync.Mutex
	seq   int
	items map[string]*models.Payment
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{items: make(map[string]*models.Payment)}
}

func (f *fakePaymentStore) Create(_ context.Context, payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	payment.ID = fmt.Sprintf("pay-%d", f.seq)
	copied := *payment
	f.items[payment.ID] = &copied
	return nil
}

func (f *fakePaymentStore) GetByID(_ context.Context, id string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if payment, ok := f.items[id]; ok {
		copied := *payment
		return &copied, nil
	}
	return nil, nil
}

func (f *fakePaymentStore) GetByTransactionID(_ context.Context, transactionID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, payment := range f.items {
		if payment.GatewayTransactionID != nil && *payment.GatewayTransactionID == transactionID {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentStore) GetByOrderID(_ context.Context, orderID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, payment := range f.items {
		if payment.OrderID != nil && *payment.OrderID == orderID {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentStore) GetByReservation(_ context.Context, kind, reservationID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, payment := range f.items {
		if payment.ReservationKind == kind && payment.ReservationID == reservationID {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentStore) BindReservation(_ context.Context, paymentID, reservationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if payment, ok := f.items[paymentID]; ok {
		payment.ReservationID = reservationID
	}
	return nil
}

func (f *fakePaymentStore) MarkProcessing(_ context.Context, id, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if payment, ok := f.items[id]; ok && payment.Status == models.PaymentPending {
		payment.Status = models.PaymentProcessing
		payment.GatewayTransactionID = &transactionID
	}
	return nil
}

func (f *fakePaymentStore) Transition(_ context.Context, id, to string, allowedFrom ...string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment, ok := f.items[id]
	if !ok {
		return false, nil
	}
	for _, from := range allowedFrom {
		if payment.Status == from {
			payment.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePaymentStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *fakePaymentStore) SetRefundReason(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if payment, ok := f.items[id]; ok {
		payment.RefundReason = &reason
	}
	return nil
}

func (f *fakePaymentStore) ListStaleProcessing(_ context.Context, _ time.Time) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, payment := range f.items {
		if payment.Status == models.PaymentProcessing {
			out = append(out, *payment)
		}
	}
	return out, nil
}

func (f *fakePaymentStore) byStatus(status string) []models.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, payment := range f.items {
		if payment.Status == status {
			out = append(out, *payment)
		}
	}
	return out
}

type fakeGateway struct {
	mu          sync.Mutex
	failCreate  bool
	failStatus  bool
	status      string
	validToken  string
	seq         int
	created     int
	cancelled   []string
	refunded    []string
}

func (f *fakeGateway) CreatePaymentPage(_ context.Context, _ int64, _, orderID, _, _ string) (*external.CreatePageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return nil, fmt.Errorf("gateway down")
	}
	f.seq++
	f.created++
	return &external.CreatePageResponse{
		Success:       true,
		TransactionID: fmt.Sprintf("tx-%d", f.seq),
		OrderID:       orderID,
		Status:        external.GatewayStatusNew,
		PaymentURL:    fmt.Sprintf("https://pay.example.com/tx-%d", f.seq),
	}, nil
}

func (f *fakeGateway) GetStatus(_ context.Context, transactionID string) (*external.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStatus {
		return nil, fmt.Errorf("gateway down")
	}
	return &external.StatusResponse{
		Success:       true,
		TransactionID: transactionID,
		Status:        f.status,
	}, nil
}

func (f *fakeGateway) Refund(_ context.Context, transactionID string, _ int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunded = append(f.refunded, transactionID)
	return nil
}

func (f *fakeGateway) CancelPayment(_ context.Context, transactionID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, transactionID)
	return nil
}

func (f *fakeGateway) ValidateCallback(_, _ string, _ int64, token string) bool {
	return token == f.validToken
}

type publishedMessage struct {
	subject string
	data    interface{}
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []publishedMessage
}

func (f *fakePublisher) Publish(subject string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, publishedMessage{subject: subject, data: data})
	return nil
}

func (f *fakePublisher) countSubject(subject string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.msgs {
		if m.subject == subject {
			n++
		}
	}
	return n
}

// testEnv wires services against the fakes with a frozen clock.
type testEnv struct {
	services     *Services
	appointments *fakeAppointmentStore
	events       *fakeEventStore
	payments     *fakePaymentStore
	gateway      *fakeGateway
	publisher    *fakePublisher
	now          time.Time
}

func newTestEnv() *testEnv {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	payee := "acct-42"

	env := &testEnv{
		appointments: newFakeAppointmentStore(),
		events:       newFakeEventStore(),
		payments:     newFakePaymentStore(),
		gateway:      &fakeGateway{status: external.GatewayStatusConfirmed, validToken: "good"},
		publisher:    &fakePublisher{},
		now:          now,
	}

	services := New(Deps{
		Services: &fakeServiceStore{items: map[string]models.ServiceDefinition{
			"consultation": {ID: "consultation", DisplayName: "Consultation", DurationMinutes: 30, PriceCents: 15000, Currency: "ILS"},
			"treatment":    {ID: "treatment", DisplayName: "Treatment", DurationMinutes: 60, PriceCents: 30000, Currency: "ILS"},
		}},
		Businesses: &fakeBusinessStore{items: map[int64]models.Business{
			1: {ID: 1, Name: "Clinic", LeadTimeMin: 60, HorizonDays: 90, OpenMinute: 540, CloseMinute: 1080, PayeeAccountID: &payee},
			2: {ID: 2, Name: "Studio", LeadTimeMin: 0, HorizonDays: 30, OpenMinute: 0, CloseMinute: 1440},
		}},
		Appointments:       env.appointments,
		Events:             env.events,
		Payments:           env.payments,
		Gateway:            env.gateway,
		Publisher:          env.publisher,
		PlatformFeePercent: 5.0,
		ProcessingTimeout:  15 * time.Minute,
	})

	services.Bookings.now = func() time.Time { return env.now }
	services.Payments.now = func() time.Time { return env.now }

	env.services = services
	return env
}

func (env *testEnv) addEvent(serviceID *string, capacity int) *models.Event {
	event := &models.Event{
		BusinessID: 1,
		Title:      "Workshop",
		ServiceID:  serviceID,
		StartsAt:   env.now.Add(48 * time.Hour),
		Capacity:   capacity,
	}
	_ = env.events.Create(context.Background(), event)
	return event
}

func strPtr(s string) *string { return &s }

func occupantIDOf(payment *models.Payment) int64 {
	id, _ := strconv.ParseInt(payment.ReservationID, 10, 64)
	return id
}
