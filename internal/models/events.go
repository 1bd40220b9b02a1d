package models

import "time"

// NATS subjects
const (
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
	EventPaymentOpened        = "payment.opened"
	EventPaymentCompleted     = "payment.completed"
	EventPaymentFailed        = "payment.failed"
	EventPaymentRefunded      = "payment.refunded"
)

// ReservationConfirmedEvent is published after the atomic reserve wins.
type ReservationConfirmedEvent struct {
	Kind          string    `json:"kind"`
	ReservationID string    `json:"reservation_id"`
	BusinessID    int64     `json:"business_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail *string   `json:"customer_email,omitempty"`
	CustomerPhone *string   `json:"customer_phone,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	Timestamp     time.Time `json:"timestamp"`
}

type ReservationCancelledEvent struct {
	Kind          string    `json:"kind"`
	ReservationID string    `json:"reservation_id"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

type PaymentOpenedEvent struct {
	PaymentID   string    `json:"payment_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Method      string    `json:"method"`
	Timestamp   time.Time `json:"timestamp"`
}

// PaymentCompletedEvent drives receipt generation and the notification
// chain in the consumer process.
type PaymentCompletedEvent struct {
	PaymentID     string    `json:"payment_id"`
	TransactionID string    `json:"transaction_id"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
}

type PaymentFailedEvent struct {
	PaymentID     string    `json:"payment_id"`
	TransactionID string    `json:"transaction_id"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

type PaymentRefundedEvent struct {
	PaymentID   string    `json:"payment_id"`
	AmountCents int64     `json:"amount_cents"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}
