package service

import (
	"context"
	"time"

	"vireo/internal/external"
	"vireo/internal/metrics"
	"vireo/internal/models"
)

// Store interfaces are satisfied by the repository package. Services
// depend on them rather than on concrete repositories so tests can
// substitute in-memory fakes.

type ServiceStore interface {
	GetByID(ctx context.Context, id string) (*models.ServiceDefinition, error)
	List(ctx context.Context) ([]models.ServiceDefinition, error)
}

type BusinessStore interface {
	Create(ctx context.Context, business *models.Business) error
	GetByID(ctx context.Context, id int64) (*models.Business, error)
}

type AppointmentStore interface {
	Reserve(ctx context.Context, appt *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	Cancel(ctx context.Context, id string) error
	ListLiveBetween(ctx context.Context, businessID int64, from, to time.Time) ([]models.Appointment, error)
}

type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	List(ctx context.Context, page, pageSize int) ([]models.Event, error)
	ClaimSeat(ctx context.Context, occ *models.Occupant) error
	ReleaseSeat(ctx context.Context, occupantID int64) error
	GetOccupantByID(ctx context.Context, id int64) (*models.Occupant, error)
	UpdateOccupantStatus(ctx context.Context, id int64, status string) error
}

type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	GetByReservation(ctx context.Context, kind, reservationID string) (*models.Payment, error)
	BindReservation(ctx context.Context, paymentID, reservationID string) error
	MarkProcessing(ctx context.Context, id, transactionID string) error
	Transition(ctx context.Context, id, to string, allowedFrom ...string) (bool, error)
	Delete(ctx context.Context, id string) error
	SetRefundReason(ctx context.Context, id, reason string) error
	ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]models.Payment, error)
}

// Gateway is the slice of the payment provider client the services use.
type Gateway interface {
	CreatePaymentPage(ctx context.Context, amount int64, currency, orderID, description, customerEmail string) (*external.CreatePageResponse, error)
	GetStatus(ctx context.Context, transactionID string) (*external.StatusResponse, error)
	Refund(ctx context.Context, transactionID string, amount int64, reason string) error
	CancelPayment(ctx context.Context, transactionID, reason string) error
	ValidateCallback(transactionID, status string, amount int64, token string) bool
}

type Publisher interface {
	Publish(subject string, data interface{}) error
}

// Services bundles the domain services for wiring.
type Services struct {
	Bookings *BookingService
	Payments *PaymentService
}

type Deps struct {
	Services     ServiceStore
	Businesses   BusinessStore
	Appointments AppointmentStore
	Events       EventStore
	Payments     PaymentStore
	Gateway      Gateway
	Publisher    Publisher
	Metrics      *metrics.Metrics

	PlatformFeePercent float64
	ProcessingTimeout  time.Duration
}

func New(deps Deps) *Services {
	payments := NewPaymentService(deps)
	return &Services{
		Bookings: NewBookingService(deps, payments),
		Payments: payments,
	}
}
