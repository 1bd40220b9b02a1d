package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"vireo/internal/database"
	"vireo/internal/models"
)

type PaymentRepository struct {
	db *database.DB
}

func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (reservation_kind, reservation_id, amount_cents, currency,
		                      status, method, order_id, platform_fee_cents, payee_account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		payment.ReservationKind,
		payment.ReservationID,
		payment.AmountCents,
		payment.Currency,
		payment.Status,
		payment.Method,
		payment.OrderID,
		payment.PlatformFeeCents,
		payment.PayeeAccountID,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return r.getOne(ctx, `WHERE gateway_transaction_id = $1`, transactionID)
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	return r.getOne(ctx, `WHERE order_id = $1`, orderID)
}

// GetByReservation finds the newest payment attached to a reservation.
func (r *PaymentRepository) GetByReservation(ctx context.Context, kind, reservationID string) (*models.Payment, error) {
	return r.getOne(ctx,
		`WHERE reservation_kind = $1 AND reservation_id = $2 ORDER BY created_at DESC LIMIT 1`,
		kind, reservationID)
}

func (r *PaymentRepository) getOne(ctx context.Context, where string, args ...any) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `
		SELECT id, reservation_kind, reservation_id, amount_cents, currency, status, method,
		       order_id, gateway_transaction_id, platform_fee_cents, payee_account_id,
		       refund_reason, created_at, updated_at
		FROM payments ` + where

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&payment.ID,
		&payment.ReservationKind,
		&payment.ReservationID,
		&payment.AmountCents,
		&payment.Currency,
		&payment.Status,
		&payment.Method,
		&payment.OrderID,
		&payment.GatewayTransactionID,
		&payment.PlatformFeeCents,
		&payment.PayeeAccountID,
		&payment.RefundReason,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return payment, err
}

// BindReservation points a payment at the reservation it settles. Event
// registrations open the payment before the occupant row exists, so the
// reference is filled in after the seat claim succeeds.
func (r *PaymentRepository) BindReservation(ctx context.Context, paymentID, reservationID string) error {
	query := `UPDATE payments SET reservation_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, reservationID, paymentID)
	return err
}

// MarkProcessing attaches the gateway transaction id and moves the
// payment out of pending.
func (r *PaymentRepository) MarkProcessing(ctx context.Context, id, transactionID string) error {
	query := `
		UPDATE payments
		SET status = 'processing', gateway_transaction_id = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'`

	_, err := r.db.ExecContext(ctx, query, transactionID, id)
	return err
}

// Transition moves the payment to a new status only if the current
// status is in allowedFrom, reporting whether a row actually changed.
// Reconciliation relies on this compare-and-swap for idempotency:
// replaying a webhook against a terminal payment matches zero rows.
func (r *PaymentRepository) Transition(ctx context.Context, id, to string, allowedFrom ...string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)`

	res, err := r.db.ExecContext(ctx, query, to, id, pq.Array(allowedFrom))
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// Delete removes a payment record that never reached the gateway.
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	return err
}

func (r *PaymentRepository) SetRefundReason(ctx context.Context, id, reason string) error {
	query := `UPDATE payments SET refund_reason = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, reason, id)
	return err
}

// ListStaleProcessing returns payments stuck in processing since before
// the cutoff; the sweep re-checks them against the gateway.
func (r *PaymentRepository) ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	query := `
		SELECT id, reservation_kind, reservation_id, amount_cents, currency, status, method,
		       order_id, gateway_transaction_id, platform_fee_cents, payee_account_id,
		       refund_reason, created_at, updated_at
		FROM payments
		WHERE status = 'processing' AND updated_at < $1
		ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var payment models.Payment
		err := rows.Scan(
			&payment.ID,
			&payment.ReservationKind,
			&payment.ReservationID,
			&payment.AmountCents,
			&payment.Currency,
			&payment.Status,
			&payment.Method,
			&payment.OrderID,
			&payment.GatewayTransactionID,
			&payment.PlatformFeeCents,
			&payment.PayeeAccountID,
			&payment.RefundReason,
			&payment.CreatedAt,
			&payment.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

// CreateReceipt issues the receipt for a completed payment exactly once;
// the unique constraint on payment_id makes webhook replays harmless.
func (r *PaymentRepository) CreateReceipt(ctx context.Context, receipt *models.Receipt) (bool, error) {
	query := `
		INSERT INTO receipts (payment_id, number, amount_cents, currency)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (payment_id) DO NOTHING
		RETURNING id, issued_at`

	err := r.db.QueryRowContext(ctx, query,
		receipt.PaymentID,
		receipt.Number,
		receipt.AmountCents,
		receipt.Currency,
	).Scan(&receipt.ID, &receipt.IssuedAt)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
