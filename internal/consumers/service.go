package consumers

import (
	"context"
	"log/slog"

	"vireo/internal/config"
	"vireo/internal/database"
	"vireo/internal/external"
	"vireo/internal/messaging"
	"vireo/internal/metrics"
	"vireo/internal/models"
	"vireo/internal/notify"
	"vireo/internal/repository"
	"vireo/internal/service"
)

// ConsumerService runs the out-of-band side of bookings: customer
// notifications and receipt issuance. Everything here is best effort
// relative to the booking itself; a failed delivery never reverses a
// reservation.
type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers

	// Services is exposed for the background jobs that share this process.
	Services *service.Services
}

func NewConsumerService(cfg *config.Config, m *metrics.Metrics) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(db)

	// Provider chains are verified once at startup; providers that do not
	// respond are dropped and the medium may end up disabled.
	ctx := context.Background()
	emailChain := notify.NewChainFromConfig(ctx, notify.MediumEmail, cfg.Notify)
	smsChain := notify.NewChainFromConfig(ctx, notify.MediumSMS, cfg.Notify)

	handlers := NewHandlers(repos, emailChain, smsChain, m)

	services := service.New(service.Deps{
		Services:           repos.Services,
		Businesses:         repos.Businesses,
		Appointments:       repos.Appointments,
		Events:             repos.Events,
		Payments:           repos.Payments,
		Gateway:            external.NewGatewayClient(cfg.Gateway),
		Publisher:          natsClient,
		Metrics:            m,
		PlatformFeePercent: cfg.PlatformFeePercent,
		ProcessingTimeout:  cfg.ProcessingTimeout,
	})

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: handlers,
		Services: services,
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	if _, err := cs.nats.SubscribeQueue(models.EventReservationConfirmed, "consumers", cs.handlers.HandleReservationConfirmed); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.EventReservationCancelled, "consumers", cs.handlers.HandleReservationCancelled); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.EventPaymentCompleted, "consumers", cs.handlers.HandlePaymentCompleted); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.EventPaymentFailed, "consumers", cs.handlers.HandlePaymentFailed); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.EventPaymentRefunded, "consumers", cs.handlers.HandlePaymentRefunded); err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
