package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/stan.go"

	"vireo/internal/metrics"
	"vireo/internal/models"
	"vireo/internal/notify"
	"vireo/internal/repository"
)

type Handlers struct {
	repos      *repository.Repositories
	emailChain *notify.Chain
	smsChain   *notify.Chain
	metrics    *metrics.Metrics
}

func NewHandlers(repos *repository.Repositories, emailChain, smsChain *notify.Chain, m *metrics.Metrics) *Handlers {
	return &Handlers{
		repos:      repos,
		emailChain: emailChain,
		smsChain:   smsChain,
		metrics:    m,
	}
}

// HandleReservationConfirmed sends the booking confirmation. A message
// that cannot be parsed is acked and dropped; delivery failures are
// logged but the message is still acked, because retrying a notification
// indefinitely is worse than losing it.
func (h *Handlers) HandleReservationConfirmed(m *stan.Msg) {
	var event models.ReservationConfirmedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal reservation confirmed event", "error", err)
		m.Ack()
		return
	}

	slog.Info("Processing reservation confirmed event",
		"kind", event.Kind, "reservation_id", event.ReservationID)

	content := notify.Content{
		Subject: "Booking confirmed",
		Body: fmt.Sprintf("Hi %s, your booking for %s is confirmed.",
			event.CustomerName, event.StartsAt.Format("2 Jan 2006 15:04")),
	}
	h.deliver(context.Background(), event.CustomerEmail, event.CustomerPhone, content)

	m.Ack()
}

func (h *Handlers) HandleReservationCancelled(m *stan.Msg) {
	var event models.ReservationCancelledEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal reservation cancelled event", "error", err)
		m.Ack()
		return
	}

	slog.Info("Processing reservation cancelled event",
		"kind", event.Kind, "reservation_id", event.ReservationID, "reason", event.Reason)

	ctx := context.Background()
	email, phone, name := h.lookupContact(ctx, event.Kind, event.ReservationID)
	if name == "" {
		m.Ack()
		return
	}

	content := notify.Content{
		Subject: "Booking cancelled",
		Body:    fmt.Sprintf("Hi %s, your booking was cancelled: %s.", name, event.Reason),
	}
	h.deliver(ctx, email, phone, content)

	m.Ack()
}

// HandlePaymentCompleted issues the receipt and sends it to the customer.
// Receipt creation is idempotent, so a redelivered message costs nothing.
// Storage errors leave the message unacked for redelivery.
func (h *Handlers) HandlePaymentCompleted(m *stan.Msg) {
	var event models.PaymentCompletedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment completed event", "error", err)
		m.Ack()
		return
	}

	slog.Info("Processing payment completed event", "payment_id", event.PaymentID)

	ctx := context.Background()
	payment, err := h.repos.Payments.GetByID(ctx, event.PaymentID)
	if err != nil {
		slog.Error("Failed to load payment", "payment_id", event.PaymentID, "error", err)
		return
	}
	if payment == nil {
		slog.Warn("Payment completed event for unknown payment", "payment_id", event.PaymentID)
		m.Ack()
		return
	}

	receipt := &models.Receipt{
		PaymentID:   payment.ID,
		Number:      fmt.Sprintf("RCP-%s", uuid.New().String()),
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
	}

	created, err := h.repos.Payments.CreateReceipt(ctx, receipt)
	if err != nil {
		slog.Error("Failed to create receipt", "payment_id", payment.ID, "error", err)
		return
	}
	if !created {
		slog.Info("Receipt already issued", "payment_id", payment.ID)
		m.Ack()
		return
	}

	email, phone, name := h.lookupContact(ctx, payment.ReservationKind, payment.ReservationID)
	if name != "" {
		content := notify.Content{
			Subject: "Payment received",
			Body: fmt.Sprintf("Hi %s, we received your payment of %d.%02d %s. Receipt %s.",
				name, payment.AmountCents/100, payment.AmountCents%100, payment.Currency, receipt.Number),
		}
		h.deliver(ctx, email, phone, content)
	}

	m.Ack()
}

func (h *Handlers) HandlePaymentFailed(m *stan.Msg) {
	var event models.PaymentFailedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment failed event", "error", err)
		m.Ack()
		return
	}

	slog.Info("Processing payment failed event", "payment_id", event.PaymentID, "reason", event.Reason)

	ctx := context.Background()
	payment, err := h.repos.Payments.GetByID(ctx, event.PaymentID)
	if err != nil || payment == nil {
		m.Ack()
		return
	}

	email, phone, name := h.lookupContact(ctx, payment.ReservationKind, payment.ReservationID)
	if name != "" {
		content := notify.Content{
			Subject: "Payment failed",
			Body:    fmt.Sprintf("Hi %s, your payment did not go through and the booking was released.", name),
		}
		h.deliver(ctx, email, phone, content)
	}

	m.Ack()
}

func (h *Handlers) HandlePaymentRefunded(m *stan.Msg) {
	var event models.PaymentRefundedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment refunded event", "error", err)
		m.Ack()
		return
	}

	slog.Info("Processing payment refunded event", "payment_id", event.PaymentID)

	ctx := context.Background()
	payment, err := h.repos.Payments.GetByID(ctx, event.PaymentID)
	if err != nil || payment == nil {
		m.Ack()
		return
	}

	email, phone, name := h.lookupContact(ctx, payment.ReservationKind, payment.ReservationID)
	if name != "" {
		content := notify.Content{
			Subject: "Refund issued",
			Body: fmt.Sprintf("Hi %s, your refund of %d.%02d %s is on its way.",
				name, event.AmountCents/100, event.AmountCents%100, payment.Currency),
		}
		h.deliver(ctx, email, phone, content)
	}

	m.Ack()
}

// lookupContact resolves the customer behind a reservation reference.
func (h *Handlers) lookupContact(ctx context.Context, kind, reservationID string) (email, phone *string, name string) {
	switch kind {
	case models.KindAppointment:
		appt, err := h.repos.Appointments.GetByID(ctx, reservationID)
		if err != nil || appt == nil {
			return nil, nil, ""
		}
		return appt.CustomerEmail, appt.CustomerPhone, appt.CustomerName
	case models.KindEvent:
		var occupantID int64
		if _, err := fmt.Sscanf(reservationID, "%d", &occupantID); err != nil {
			return nil, nil, ""
		}
		occ, err := h.repos.Events.GetOccupantByID(ctx, occupantID)
		if err != nil || occ == nil {
			return nil, nil, ""
		}
		return occ.CustomerEmail, occ.CustomerPhone, occ.CustomerName
	}
	return nil, nil, ""
}

// deliver sends through email first, falling back to SMS when the
// customer has no email address. Each medium has its own fallback chain.
func (h *Handlers) deliver(ctx context.Context, email, phone *string, content notify.Content) {
	if email != nil && *email != "" && h.emailChain.Enabled() {
		_, err := h.emailChain.Send(ctx, *email, content)
		h.countDelivery(notify.MediumEmail, err)
		if err == nil {
			return
		}
		slog.Error("Email delivery failed", "error", err)
	}

	if phone != nil && *phone != "" && h.smsChain.Enabled() {
		_, err := h.smsChain.Send(ctx, *phone, content)
		h.countDelivery(notify.MediumSMS, err)
		if err != nil {
			slog.Error("SMS delivery failed", "error", err)
		}
	}
}

func (h *Handlers) countDelivery(medium notify.Medium, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "delivered"
	if err != nil {
		outcome = "failed"
	}
	h.metrics.NotifyDeliveries.WithLabelValues(string(medium), outcome).Inc()
}
