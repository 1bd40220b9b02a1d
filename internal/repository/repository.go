package repository

import (
	"vireo/internal/database"
)

// Repositories bundles all repositories for wiring.
type Repositories struct {
	Services     *ServiceRepository
	Businesses   *BusinessRepository
	Appointments *AppointmentRepository
	Events       *EventRepository
	Payments     *PaymentRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Services:     NewServiceRepository(db),
		Businesses:   NewBusinessRepository(db),
		Appointments: NewAppointmentRepository(db),
		Events:       NewEventRepository(db),
		Payments:     NewPaymentRepository(db),
	}
}
