package models

import (
	"time"
)

// Reservation statuses shared by appointments and event occupants.
const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
)

// Occupant sub-statuses.
const (
	OccupantPendingPayment = "pending-payment"
	OccupantFree           = "free"
	OccupantConfirmed      = "confirmed"
	OccupantCancelled      = "cancelled"
)

// Payment statuses. The last four are terminal.
const (
	PaymentPending    = "pending"
	PaymentProcessing = "processing"
	PaymentCompleted  = "completed"
	PaymentFailed     = "failed"
	PaymentCancelled  = "cancelled"
	PaymentRefunded   = "refunded"
)

// Payment methods. Everything except "gateway" is settled manually.
const (
	MethodGateway      = "gateway"
	MethodCash         = "cash"
	MethodBankTransfer = "bank-transfer"
	MethodBit          = "bit"
)

// Reservation kinds used by the payments table weak reference.
const (
	KindAppointment = "appointment"
	KindEvent       = "event"
)

// ServiceDefinition is an immutable pricing catalog entry. It is the only
// source of truth for what a booking costs and how long it takes.
type ServiceDefinition struct {
	ID              string    `json:"id" db:"id"`
	DisplayName     string    `json:"display_name" db:"display_name"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	PriceCents      int64     `json:"price_cents" db:"price_cents"`
	Currency        string    `json:"currency" db:"currency"`
	CreatedAt       time.Time `json:"-" db:"created_at"`
}

// Business holds per-business booking bounds and the optional downstream
// payee account that enables split payments.
type Business struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	LeadTimeMin    int       `json:"lead_time_min" db:"lead_time_min"`
	HorizonDays    int       `json:"horizon_days" db:"horizon_days"`
	OpenMinute     int       `json:"open_minute" db:"open_minute"`
	CloseMinute    int       `json:"close_minute" db:"close_minute"`
	PayeeAccountID *string   `json:"payee_account_id,omitempty" db:"payee_account_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Appointment is a reservation of a business time window.
type Appointment struct {
	ID            string    `json:"id" db:"id"`
	BusinessID    int64     `json:"business_id" db:"business_id"`
	ServiceID     string    `json:"service_id" db:"service_id"`
	CustomerName  string    `json:"customer_name" db:"customer_name"`
	CustomerEmail *string   `json:"customer_email,omitempty" db:"customer_email"`
	CustomerPhone *string   `json:"customer_phone,omitempty" db:"customer_phone"`
	StartsAt      time.Time `json:"starts_at" db:"starts_at"`
	EndsAt        time.Time `json:"ends_at" db:"ends_at"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Event is a finite-capacity resource. OccupantCount is only ever changed
// by the conditional increment/decrement in the repository.
type Event struct {
	ID            int64     `json:"id" db:"id"`
	BusinessID    int64     `json:"business_id" db:"business_id"`
	Title         string    `json:"title" db:"title"`
	Description   *string   `json:"description,omitempty" db:"description"`
	ServiceID     *string   `json:"service_id,omitempty" db:"service_id"`
	StartsAt      time.Time `json:"starts_at" db:"starts_at"`
	Capacity      int       `json:"capacity" db:"capacity"`
	OccupantCount int       `json:"occupant_count" db:"occupant_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Occupant is one claimed seat of an event.
type Occupant struct {
	ID            int64     `json:"id" db:"id"`
	EventID       int64     `json:"event_id" db:"event_id"`
	CustomerName  string    `json:"customer_name" db:"customer_name"`
	CustomerEmail *string   `json:"customer_email,omitempty" db:"customer_email"`
	CustomerPhone *string   `json:"customer_phone,omitempty" db:"customer_phone"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Payment references its reservation weakly: lookup only, not ownership.
// PlatformFeeCents is pinned at creation time and never recomputed.
type Payment struct {
	ID                   string    `json:"id" db:"id"`
	ReservationKind      string    `json:"reservation_kind" db:"reservation_kind"`
	ReservationID        string    `json:"reservation_id" db:"reservation_id"`
	AmountCents          int64     `json:"amount_cents" db:"amount_cents"`
	Currency             string    `json:"currency" db:"currency"`
	Status               string    `json:"status" db:"status"`
	Method               string    `json:"method" db:"method"`
	OrderID              *string   `json:"order_id,omitempty" db:"order_id"`
	GatewayTransactionID *string   `json:"gateway_transaction_id,omitempty" db:"gateway_transaction_id"`
	PlatformFeeCents     int64     `json:"platform_fee_cents" db:"platform_fee_cents"`
	PayeeAccountID       *string   `json:"payee_account_id,omitempty" db:"payee_account_id"`
	RefundReason         *string   `json:"refund_reason,omitempty" db:"refund_reason"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// AmountToTransferCents is what reaches the business's payee account.
func (p *Payment) AmountToTransferCents() int64 {
	return p.AmountCents - p.PlatformFeeCents
}

// IsTerminal reports whether the payment can no longer change state
// through reconciliation.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}

// Receipt is issued exactly once per completed payment.
type Receipt struct {
	ID          int64     `json:"id" db:"id"`
	PaymentID   string    `json:"payment_id" db:"payment_id"`
	Number      string    `json:"number" db:"number"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	Currency    string    `json:"currency" db:"currency"`
	IssuedAt    time.Time `json:"issued_at" db:"issued_at"`
}
