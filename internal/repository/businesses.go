package repository

import (
	"context"
	"database/sql"

	"vireo/internal/database"
	"vireo/internal/models"
)

type BusinessRepository struct {
	db *database.DB
}

func NewBusinessRepository(db *database.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

func (r *BusinessRepository) Create(ctx context.Context, business *models.Business) error {
	query := `
		INSERT INTO businesses (name, lead_time_min, horizon_days, open_minute, close_minute, payee_account_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		business.Name,
		business.LeadTimeMin,
		business.HorizonDays,
		business.OpenMinute,
		business.CloseMinute,
		business.PayeeAccountID,
	).Scan(&business.ID, &business.CreatedAt, &business.UpdatedAt)
}

func (r *BusinessRepository) GetByID(ctx context.Context, id int64) (*models.Business, error) {
	business := &models.Business{}
	query := `
		SELECT id, name, lead_time_min, horizon_days, open_minute, close_minute,
		       payee_account_id, created_at, updated_at
		FROM businesses
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&business.ID,
		&business.Name,
		&business.LeadTimeMin,
		&business.HorizonDays,
		&business.OpenMinute,
		&business.CloseMinute,
		&business.PayeeAccountID,
		&business.CreatedAt,
		&business.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return business, err
}
