package repository

import (
	"context"
	"database/sql"

	"vireo/internal/database"
	apperrors "vireo/internal/errors"
	"vireo/internal/models"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (business_id, title, description, service_id, starts_at, capacity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, occupant_count, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		event.BusinessID,
		event.Title,
		event.Description,
		event.ServiceID,
		event.StartsAt,
		event.Capacity,
	).Scan(&event.ID, &event.OccupantCount, &event.CreatedAt, &event.UpdatedAt)
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, business_id, title, description, service_id, starts_at,
		       capacity, occupant_count, created_at, updated_at
		FROM events
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.BusinessID,
		&event.Title,
		&event.Description,
		&event.ServiceID,
		&event.StartsAt,
		&event.Capacity,
		&event.OccupantCount,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return event, err
}

func (r *EventRepository) List(ctx context.Context, page, pageSize int) ([]models.Event, error) {
	var events []models.Event
	query := `
		SELECT id, business_id, title, description, service_id, starts_at,
		       capacity, occupant_count, created_at, updated_at
		FROM events
		ORDER BY starts_at
		LIMIT $1 OFFSET $2`

	offset := 0
	if page > 1 {
		offset = (page - 1) * pageSize
	}

	rows, err := r.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.BusinessID,
			&event.Title,
			&event.Description,
			&event.ServiceID,
			&event.StartsAt,
			&event.Capacity,
			&event.OccupantCount,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// ClaimSeat increments the occupant counter only while it is below
// capacity and appends the occupant row in the same transaction. The
// conditional UPDATE is the compare-and-swap: when two registrations
// race for the last seat, exactly one sees RowsAffected == 1.
func (r *EventRepository) ClaimSeat(ctx context.Context, occ *models.Occupant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	claimQuery := `
		UPDATE events
		SET occupant_count = occupant_count + 1, updated_at = NOW()
		WHERE id = $1 AND occupant_count < capacity`

	res, err := tx.ExecContext(ctx, claimQuery, occ.EventID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Full, or the event does not exist; callers check existence first.
		return apperrors.ErrCapacityExceeded
	}

	insertQuery := `
		INSERT INTO occupants (event_id, customer_name, customer_email, customer_phone, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(ctx, insertQuery,
		occ.EventID,
		occ.CustomerName,
		occ.CustomerEmail,
		occ.CustomerPhone,
		occ.Status,
	).Scan(&occ.ID, &occ.CreatedAt, &occ.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ReleaseSeat cancels an occupant and gives the seat back. Idempotent:
// releasing an already-cancelled occupant changes nothing.
func (r *EventRepository) ReleaseSeat(ctx context.Context, occupantID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cancelQuery := `
		UPDATE occupants
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status != 'cancelled'
		RETURNING event_id`

	var eventID int64
	err = tx.QueryRowContext(ctx, cancelQuery, occupantID).Scan(&eventID)
	if err == sql.ErrNoRows {
		return tx.Commit()
	}
	if err != nil {
		return err
	}

	decrementQuery := `
		UPDATE events
		SET occupant_count = occupant_count - 1, updated_at = NOW()
		WHERE id = $1 AND occupant_count > 0`

	if _, err := tx.ExecContext(ctx, decrementQuery, eventID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *EventRepository) GetOccupantByID(ctx context.Context, id int64) (*models.Occupant, error) {
	occ := &models.Occupant{}
	query := `
		SELECT id, event_id, customer_name, customer_email, customer_phone,
		       status, created_at, updated_at
		FROM occupants
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&occ.ID,
		&occ.EventID,
		&occ.CustomerName,
		&occ.CustomerEmail,
		&occ.CustomerPhone,
		&occ.Status,
		&occ.CreatedAt,
		&occ.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return occ, err
}

func (r *EventRepository) UpdateOccupantStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE occupants SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, status, id)
	return err
}
