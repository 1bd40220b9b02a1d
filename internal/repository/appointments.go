package repository

import (
	"context"
	"database/sql"
	"time"

	"vireo/internal/database"
	apperrors "vireo/internal/errors"
	"vireo/internal/models"
)

type AppointmentRepository struct {
	db *database.DB
}

func NewAppointmentRepository(db *database.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Reserve atomically checks for window overlap and inserts the
// appointment as confirmed. The business row is locked for the duration
// of the transaction, which serializes all reservation attempts for one
// business across every process instance; a plain check-then-insert
// would let two racers both observe an empty window.
func (r *AppointmentRepository) Reserve(ctx context.Context, appt *models.Appointment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var businessID int64
	lockQuery := `SELECT id FROM businesses WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, lockQuery, appt.BusinessID).Scan(&businessID); err != nil {
		if err == sql.ErrNoRows {
			return apperrors.ErrBusinessNotFound
		}
		return err
	}

	// Half-open interval intersection over live reservations.
	var conflict bool
	overlapQuery := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE business_id = $1
			  AND status IN ('pending', 'confirmed')
			  AND starts_at < $3
			  AND ends_at > $2
		)`
	if err := tx.QueryRowContext(ctx, overlapQuery, appt.BusinessID, appt.StartsAt, appt.EndsAt).Scan(&conflict); err != nil {
		return err
	}

	if conflict {
		return apperrors.ErrSlotConflict
	}

	insertQuery := `
		INSERT INTO appointments (business_id, service_id, customer_name, customer_email,
		                          customer_phone, starts_at, ends_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'confirmed')
		RETURNING id, status, created_at, updated_at`

	err = tx.QueryRowContext(ctx, insertQuery,
		appt.BusinessID,
		appt.ServiceID,
		appt.CustomerName,
		appt.CustomerEmail,
		appt.CustomerPhone,
		appt.StartsAt,
		appt.EndsAt,
	).Scan(&appt.ID, &appt.Status, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	appt := &models.Appointment{}
	query := `
		SELECT id, business_id, service_id, customer_name, customer_email, customer_phone,
		       starts_at, ends_at, status, created_at, updated_at
		FROM appointments
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&appt.ID,
		&appt.BusinessID,
		&appt.ServiceID,
		&appt.CustomerName,
		&appt.CustomerEmail,
		&appt.CustomerPhone,
		&appt.StartsAt,
		&appt.EndsAt,
		&appt.Status,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return appt, err
}

// Cancel frees the window. Already-cancelled appointments are a no-op.
func (r *AppointmentRepository) Cancel(ctx context.Context, id string) error {
	query := `
		UPDATE appointments
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status != 'cancelled'`

	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// ListLiveBetween returns pending/confirmed appointments whose window
// intersects [from, to), ordered by start. Used for availability listings.
func (r *AppointmentRepository) ListLiveBetween(ctx context.Context, businessID int64, from, to time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	query := `
		SELECT id, business_id, service_id, customer_name, customer_email, customer_phone,
		       starts_at, ends_at, status, created_at, updated_at
		FROM appointments
		WHERE business_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND starts_at < $3
		  AND ends_at > $2
		ORDER BY starts_at`

	rows, err := r.db.QueryContext(ctx, query, businessID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var appt models.Appointment
		err := rows.Scan(
			&appt.ID,
			&appt.BusinessID,
			&appt.ServiceID,
			&appt.CustomerName,
			&appt.CustomerEmail,
			&appt.CustomerPhone,
			&appt.StartsAt,
			&appt.EndsAt,
			&appt.Status,
			&appt.CreatedAt,
			&appt.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}

	return appts, rows.Err()
}
