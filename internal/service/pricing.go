package service

import (
	"context"
	"math"

	apperrors "vireo/internal/errors"
	"vireo/internal/models"
)

// ResolveService looks up a catalog entry by id. Client-supplied price or
// duration never enters a booking: this lookup is the only source.
func (s *BookingService) ResolveService(ctx context.Context, id string) (*models.ServiceDefinition, error) {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, apperrors.ErrUnknownService
	}
	return svc, nil
}

// ListServices returns the full catalog.
func (s *BookingService) ListServices(ctx context.Context) ([]models.ServiceDefinition, error) {
	return s.services.List(ctx)
}

// platformFeeCents computes the fee pinned onto a payment at creation.
// Businesses without a payee account settle everything through the
// platform account, so no split applies.
func platformFeeCents(amountCents int64, feePercent float64, payeeAccountID *string) int64 {
	if payeeAccountID == nil || *payeeAccountID == "" {
		return 0
	}
	return int64(math.Round(float64(amountCents) * feePercent / 100))
}
