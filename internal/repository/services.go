package repository

import (
	"context"
	"database/sql"

	"vireo/internal/database"
	"vireo/internal/models"
)

// ServiceRepository reads the pricing catalog. The catalog is seeded by
// migration and never written at request time.
type ServiceRepository struct {
	db *database.DB
}

func NewServiceRepository(db *database.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (r *ServiceRepository) GetByID(ctx context.Context, id string) (*models.ServiceDefinition, error) {
	svc := &models.ServiceDefinition{}
	query := `
		SELECT id, display_name, duration_minutes, price_cents, currency, created_at
		FROM services
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&svc.ID,
		&svc.DisplayName,
		&svc.DurationMinutes,
		&svc.PriceCents,
		&svc.Currency,
		&svc.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return svc, err
}

func (r *ServiceRepository) List(ctx context.Context) ([]models.ServiceDefinition, error) {
	var services []models.ServiceDefinition
	query := `
		SELECT id, display_name, duration_minutes, price_cents, currency, created_at
		FROM services
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var svc models.ServiceDefinition
		err := rows.Scan(
			&svc.ID,
			&svc.DisplayName,
			&svc.DurationMinutes,
			&svc.PriceCents,
			&svc.Currency,
			&svc.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}

	return services, rows.Err()
}
