package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	apperrors "vireo/internal/errors"
	"vireo/internal/external"
	"vireo/internal/metrics"
	"vireo/internal/models"
)

// PaymentService owns the payment lifecycle. Every status change goes
// through the store's conditional transition, so a webhook replay, a
// sweep pass and a manual settlement racing each other resolve to
// exactly one winner.
type PaymentService struct {
	store        PaymentStore
	appointments AppointmentStore
	events       EventStore
	gateway      Gateway
	publisher    Publisher
	metrics      *metrics.Metrics

	feePercent        float64
	processingTimeout time.Duration
	now               func() time.Time
}

func NewPaymentService(deps Deps) *PaymentService {
	return &PaymentService{
		store:             deps.Payments,
		appointments:      deps.Appointments,
		events:            deps.Events,
		gateway:           deps.Gateway,
		publisher:         deps.Publisher,
		metrics:           deps.Metrics,
		feePercent:        deps.PlatformFeePercent,
		processingTimeout: deps.ProcessingTimeout,
		now:               time.Now,
	}
}

// OpenPending creates the payment row in pending state. The charge and
// the platform fee are pinned here, from the catalog entry and the fee
// percentage in force right now; later fee changes never touch it.
func (s *PaymentService) OpenPending(ctx context.Context, kind, reservationID string, svc *models.ServiceDefinition, business *models.Business, method string) (*models.Payment, error) {
	orderID := uuid.New().String()

	payment := &models.Payment{
		ReservationKind:  kind,
		ReservationID:    reservationID,
		AmountCents:      svc.PriceCents,
		Currency:         svc.Currency,
		Status:           models.PaymentPending,
		Method:           method,
		OrderID:          &orderID,
		PlatformFeeCents: platformFeeCents(svc.PriceCents, s.feePercent, business.PayeeAccountID),
		PayeeAccountID:   business.PayeeAccountID,
	}

	if err := s.store.Create(ctx, payment); err != nil {
		return nil, err
	}

	return payment, nil
}

// StartGateway opens a hosted payment page for a pending payment and
// moves it to processing. Returns the page URL for the client.
func (s *PaymentService) StartGateway(ctx context.Context, payment *models.Payment, description string, customerEmail *string) (string, error) {
	email := ""
	if customerEmail != nil {
		email = *customerEmail
	}

	page, err := s.gateway.CreatePaymentPage(ctx, payment.AmountCents, payment.Currency, *payment.OrderID, description, email)
	if err != nil {
		return "", err
	}

	if err := s.store.MarkProcessing(ctx, payment.ID, page.TransactionID); err != nil {
		return "", err
	}
	payment.Status = models.PaymentProcessing
	payment.GatewayTransactionID = &page.TransactionID

	s.publishOpened(payment)
	s.countPayment(models.PaymentProcessing)

	return page.PaymentURL, nil
}

// ForceCancel pushes a live payment straight to cancelled. Used as the
// compensating step when the seat claim behind a payment is lost.
func (s *PaymentService) ForceCancel(ctx context.Context, paymentID, reason string) {
	moved, err := s.store.Transition(ctx, paymentID, models.PaymentCancelled,
		models.PaymentPending, models.PaymentProcessing)
	if err != nil {
		slog.Error("Failed to force-cancel payment", "payment_id", paymentID, "error", err)
		return
	}
	if moved {
		slog.Info("Payment force-cancelled", "payment_id", paymentID, "reason", reason)
		s.countPayment(models.PaymentCancelled)
	}
}

// VoidForReservation cancels whatever live payment belongs to a
// reservation that was just cancelled. Terminal payments are left alone.
func (s *PaymentService) VoidForReservation(ctx context.Context, kind, reservationID, reason string) error {
	payment, err := s.store.GetByReservation(ctx, kind, reservationID)
	if err != nil {
		return err
	}
	if payment == nil || payment.IsTerminal() {
		return nil
	}

	if payment.GatewayTransactionID != nil {
		if err := s.gateway.CancelPayment(ctx, *payment.GatewayTransactionID, reason); err != nil {
			slog.Error("Failed to cancel payment at gateway", "payment_id", payment.ID, "error", err)
		}
	}

	moved, err := s.store.Transition(ctx, payment.ID, models.PaymentCancelled,
		models.PaymentPending, models.PaymentProcessing)
	if err != nil {
		return err
	}
	if moved {
		s.countPayment(models.PaymentCancelled)
	}
	return nil
}

// GetPayment returns one payment.
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperrors.ErrPaymentNotFound
	}
	return payment, nil
}

// ReconcileCallback processes one gateway webhook. Idempotent: the
// conditional status transition swallows replays, and a callback for a
// transaction we do not know is acknowledged with a warning so the
// gateway stops retrying it.
func (s *PaymentService) ReconcileCallback(ctx context.Context, payload *models.PaymentCallbackPayload) error {
	if !s.gateway.ValidateCallback(payload.TransactionID, payload.Status, payload.Amount, payload.Token) {
		return apperrors.ErrCallbackRejected
	}

	payment, err := s.store.GetByTransactionID(ctx, payload.TransactionID)
	if err != nil {
		return err
	}
	if payment == nil && payload.OrderID != "" {
		payment, err = s.store.GetByOrderID(ctx, payload.OrderID)
		if err != nil {
			return err
		}
	}
	if payment == nil {
		slog.Warn("Callback for unknown transaction acknowledged",
			"transaction_id", payload.TransactionID, "order_id", payload.OrderID, "status", payload.Status)
		return nil
	}

	target := mapGatewayStatus(payload.Status)
	if target == "" {
		// NEW / AUTHORIZED: nothing to settle yet.
		return nil
	}

	return s.applyTransition(ctx, payment, target, payload.TransactionID)
}

// mapGatewayStatus translates the provider's vocabulary into ours. An
// empty result means the status carries no settlement decision.
func mapGatewayStatus(status string) string {
	switch status {
	case external.GatewayStatusConfirmed:
		return models.PaymentCompleted
	case external.GatewayStatusRejected, external.GatewayStatusExpired:
		return models.PaymentFailed
	case external.GatewayStatusCancelled:
		return models.PaymentCancelled
	case external.GatewayStatusRefunded:
		return models.PaymentRefunded
	}
	return ""
}

// applyTransition performs the conditional status change plus its side
// effects. Only the goroutine that wins the transition runs the side
// effects; everyone else sees moved == false and does nothing.
func (s *PaymentService) applyTransition(ctx context.Context, payment *models.Payment, target, transactionID string) error {
	var (
		moved bool
		err   error
	)

	switch target {
	case models.PaymentCompleted:
		moved, err = s.store.Transition(ctx, payment.ID, target,
			models.PaymentPending, models.PaymentProcessing)
	case models.PaymentFailed, models.PaymentCancelled:
		moved, err = s.store.Transition(ctx, payment.ID, target,
			models.PaymentPending, models.PaymentProcessing)
	case models.PaymentRefunded:
		moved, err = s.store.Transition(ctx, payment.ID, target, models.PaymentCompleted)
	}
	if err != nil {
		return err
	}
	if !moved {
		slog.Info("Payment transition replayed, no change",
			"payment_id", payment.ID, "target", target, "transaction_id", transactionID)
		return nil
	}

	s.countPayment(target)

	switch target {
	case models.PaymentCompleted:
		if err := s.confirmReservation(ctx, payment); err != nil {
			slog.Error("Failed to confirm reservation after payment", "payment_id", payment.ID, "error", err)
		}
		s.publish(models.EventPaymentCompleted, models.PaymentCompletedEvent{
			PaymentID:     payment.ID,
			TransactionID: transactionID,
			AmountCents:   payment.AmountCents,
			Currency:      payment.Currency,
			Timestamp:     s.now(),
		})
	case models.PaymentFailed:
		if err := s.releaseReservation(ctx, payment); err != nil {
			slog.Error("Failed to release reservation after payment failure", "payment_id", payment.ID, "error", err)
		}
		s.publish(models.EventPaymentFailed, models.PaymentFailedEvent{
			PaymentID:     payment.ID,
			TransactionID: transactionID,
			Reason:        "gateway reported failure",
			Timestamp:     s.now(),
		})
	case models.PaymentCancelled:
		if err := s.releaseReservation(ctx, payment); err != nil {
			slog.Error("Failed to release reservation after payment cancellation", "payment_id", payment.ID, "error", err)
		}
	case models.PaymentRefunded:
		// The reservation stands. Whether a refunded booking is also
		// cancelled is a separate business decision.
		s.publish(models.EventPaymentRefunded, models.PaymentRefundedEvent{
			PaymentID:   payment.ID,
			AmountCents: payment.AmountCents,
			Timestamp:   s.now(),
		})
	}

	return nil
}

// MarkPaid settles a manual-method payment (cash, bank transfer, bit)
// through the same transition machinery the gateway path uses.
func (s *PaymentService) MarkPaid(ctx context.Context, paymentID string) error {
	payment, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment.Method == models.MethodGateway {
		return apperrors.ErrPaymentState
	}

	moved, err := s.store.Transition(ctx, payment.ID, models.PaymentCompleted, models.PaymentPending)
	if err != nil {
		return err
	}
	if !moved {
		return apperrors.ErrPaymentState
	}

	s.countPayment(models.PaymentCompleted)

	if err := s.confirmReservation(ctx, payment); err != nil {
		slog.Error("Failed to confirm reservation after manual settlement", "payment_id", payment.ID, "error", err)
	}
	s.publish(models.EventPaymentCompleted, models.PaymentCompletedEvent{
		PaymentID:   payment.ID,
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		Timestamp:   s.now(),
	})

	return nil
}

// Refund returns funds for a completed payment. Partial amounts are
// accepted; the payment still moves to refunded as a whole. The
// reservation is left untouched: cancelling a refunded booking is its
// own operation.
func (s *PaymentService) Refund(ctx context.Context, req *models.RefundPaymentRequest) error {
	payment, err := s.GetPayment(ctx, req.PaymentID)
	if err != nil {
		return err
	}
	if payment.Status != models.PaymentCompleted {
		return apperrors.ErrPaymentState
	}

	amount := payment.AmountCents
	if req.AmountCents != nil {
		amount = *req.AmountCents
	}
	if amount <= 0 || amount > payment.AmountCents {
		return apperrors.ErrInvalidAmount
	}

	if payment.Method == models.MethodGateway && payment.GatewayTransactionID != nil {
		if err := s.gateway.Refund(ctx, *payment.GatewayTransactionID, amount, req.Reason); err != nil {
			return apperrors.ErrGatewayUnavailable.WithCause(err)
		}
	}

	moved, err := s.store.Transition(ctx, payment.ID, models.PaymentRefunded, models.PaymentCompleted)
	if err != nil {
		return err
	}
	if !moved {
		return apperrors.ErrPaymentState
	}

	s.countPayment(models.PaymentRefunded)

	if req.Reason != "" {
		if err := s.store.SetRefundReason(ctx, payment.ID, req.Reason); err != nil {
			slog.Error("Failed to record refund reason", "payment_id", payment.ID, "error", err)
		}
	}

	s.publish(models.EventPaymentRefunded, models.PaymentRefundedEvent{
		PaymentID:   payment.ID,
		AmountCents: amount,
		Reason:      req.Reason,
		Timestamp:   s.now(),
	})

	return nil
}

// SweepStaleProcessing re-checks payments stuck in processing against the
// gateway and settles them. Returns how many payments changed state.
// Gateway errors leave the payment for the next pass.
func (s *PaymentService) SweepStaleProcessing(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.processingTimeout)
	stale, err := s.store.ListStaleProcessing(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	settled := 0
	for i := range stale {
		payment := &stale[i]
		if payment.GatewayTransactionID == nil {
			// Processing without a transaction id should not happen; void it.
			s.ForceCancel(ctx, payment.ID, "processing without transaction id")
			if err := s.releaseReservation(ctx, payment); err != nil {
				slog.Error("Failed to release reservation during sweep", "payment_id", payment.ID, "error", err)
			}
			settled++
			continue
		}

		status, err := s.statusWithRetry(ctx, *payment.GatewayTransactionID)
		if err != nil {
			slog.Warn("Sweep could not reach gateway, deferring payment",
				"payment_id", payment.ID, "error", err)
			continue
		}

		target := mapGatewayStatus(status.Status)
		if target == "" {
			// Still open at the gateway past the timeout: void both sides.
			if err := s.gateway.CancelPayment(ctx, *payment.GatewayTransactionID, "processing timeout"); err != nil {
				slog.Error("Failed to cancel expired payment at gateway", "payment_id", payment.ID, "error", err)
			}
			target = models.PaymentCancelled
		}

		if err := s.applyTransition(ctx, payment, target, *payment.GatewayTransactionID); err != nil {
			slog.Error("Sweep transition failed", "payment_id", payment.ID, "error", err)
			continue
		}
		settled++
	}

	return settled, nil
}

func (s *PaymentService) statusWithRetry(ctx context.Context, transactionID string) (*external.StatusResponse, error) {
	var lastErr error
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		status, err := s.gateway.GetStatus(ctx, transactionID)
		if err == nil {
			return status, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

// confirmReservation finalizes the booking behind a completed payment.
// Appointments are confirmed at reserve time already; event occupants
// move from pending-payment to confirmed here.
func (s *PaymentService) confirmReservation(ctx context.Context, payment *models.Payment) error {
	if payment.ReservationKind != models.KindEvent {
		return nil
	}
	occupantID, err := strconv.ParseInt(payment.ReservationID, 10, 64)
	if err != nil {
		return err
	}
	return s.events.UpdateOccupantStatus(ctx, occupantID, models.OccupantConfirmed)
}

// releaseReservation gives the booked resource back after the payment
// behind it died.
func (s *PaymentService) releaseReservation(ctx context.Context, payment *models.Payment) error {
	switch payment.ReservationKind {
	case models.KindAppointment:
		return s.appointments.Cancel(ctx, payment.ReservationID)
	case models.KindEvent:
		occupantID, err := strconv.ParseInt(payment.ReservationID, 10, 64)
		if err != nil {
			return err
		}
		return s.events.ReleaseSeat(ctx, occupantID)
	}
	return nil
}

func (s *PaymentService) publishOpened(payment *models.Payment) {
	s.publish(models.EventPaymentOpened, models.PaymentOpenedEvent{
		PaymentID:   payment.ID,
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		Method:      payment.Method,
		Timestamp:   s.now(),
	})
}

func (s *PaymentService) publish(subject string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(subject, data); err != nil {
		slog.Error("Failed to publish payment event", "subject", subject, "error", err)
	}
}

func (s *PaymentService) countPayment(status string) {
	if s.metrics == nil {
		return
	}
	s.metrics.PaymentOutcomes.WithLabelValues(status).Inc()
}
