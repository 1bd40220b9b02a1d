package models

import "time"

// CustomerInfo travels with every booking request. Price or duration
// fields a client may attach are deliberately absent: charges come from
// the catalog only.
type CustomerInfo struct {
	Name  string  `json:"name" binding:"required"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// BookAppointmentRequest - запрос на бронирование окна у бизнеса
type BookAppointmentRequest struct {
	BusinessID  int64        `json:"business_id" binding:"required"`
	ServiceID   string       `json:"service_id" binding:"required"`
	WindowStart time.Time    `json:"window_start" binding:"required"`
	Customer    CustomerInfo `json:"customer" binding:"required"`
	Method      string       `json:"method,omitempty"`
}

// BookAppointmentResponse returns the confirmed reservation together with
// the payment the caller has to pursue.
type BookAppointmentResponse struct {
	Appointment *Appointment `json:"appointment"`
	PaymentID   string       `json:"payment_id"`
	PaymentURL  string       `json:"payment_url,omitempty"`
}

// RegisterForEventRequest - запрос на регистрацию участника события
type RegisterForEventRequest struct {
	EventID  int64        `json:"event_id" binding:"required"`
	Customer CustomerInfo `json:"customer" binding:"required"`
	Method   string       `json:"method,omitempty"`
}

type RegisterForEventResponse struct {
	Occupant   *Occupant `json:"occupant"`
	PaymentID  string    `json:"payment_id,omitempty"`
	PaymentURL string    `json:"payment_url,omitempty"`
}

// CancelAppointmentRequest - запрос на отмену бронирования
type CancelAppointmentRequest struct {
	AppointmentID string `json:"appointment_id" binding:"required"`
}

// RefundPaymentRequest accepts an optional amount (default: full) and reason.
type RefundPaymentRequest struct {
	PaymentID   string `json:"payment_id" binding:"required"`
	AmountCents *int64 `json:"amount_cents,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// PaymentCallbackPayload - модель webhook уведомлений от платежного шлюза
type PaymentCallbackPayload struct {
	TransactionID string `json:"transactionId" binding:"required"`
	OrderID       string `json:"orderId"`
	Status        string `json:"status" binding:"required"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Token         string `json:"token"`
	Timestamp     string `json:"timestamp"`
}

// CreateBusinessRequest - модель для регистрации бизнеса
type CreateBusinessRequest struct {
	Name           string  `json:"name" binding:"required"`
	LeadTimeMin    int     `json:"lead_time_min"`
	HorizonDays    int     `json:"horizon_days"`
	OpenMinute     int     `json:"open_minute"`
	CloseMinute    int     `json:"close_minute"`
	PayeeAccountID *string `json:"payee_account_id,omitempty"`
}

// CreateEventRequest - модель для создания события
type CreateEventRequest struct {
	BusinessID  int64     `json:"business_id" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description *string   `json:"description,omitempty"`
	ServiceID   *string   `json:"service_id,omitempty"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	Capacity    int       `json:"capacity" binding:"required"`
}

type CreateEventResponse struct {
	ID int64 `json:"id"`
}

// ListEventsResponseItem - элемент списка событий
type ListEventsResponseItem struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	Capacity  int       `json:"capacity"`
	SeatsLeft int       `json:"seats_left"`
}

type ListEventsResponse []ListEventsResponseItem

// AvailabilitySlot is a free appointment window offered to clients.
type AvailabilitySlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type AvailabilityResponse struct {
	BusinessID int64              `json:"business_id"`
	ServiceID  string             `json:"service_id"`
	Date       string             `json:"date"`
	Slots      []AvailabilitySlot `json:"slots"`
}

// ErrorResponse carries a stable machine-readable code next to the
// localized message so clients can choose "retry" vs "pick another".
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
