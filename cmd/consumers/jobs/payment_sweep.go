package jobs

import (
	"context"
	"log/slog"
	"time"

	"vireo/internal/service"
)

// PaymentSweepJob periodically reconciles payments stuck in processing
// against the gateway. A lost webhook otherwise leaves a reservation
// held by a payment that will never settle.
type PaymentSweepJob struct {
	payments *service.PaymentService
	interval time.Duration
	ticker   *time.Ticker
	done     chan bool
}

func NewPaymentSweepJob(payments *service.PaymentService, interval time.Duration) *PaymentSweepJob {
	return &PaymentSweepJob{
		payments: payments,
		interval: interval,
		done:     make(chan bool),
	}
}

// Start begins the background sweep loop. The first pass runs immediately.
func (j *PaymentSweepJob) Start(ctx context.Context) {
	slog.Info("Starting payment sweep job", "interval", j.interval.String())

	j.ticker = time.NewTicker(j.interval)

	go j.sweep(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.sweep(ctx)
			case <-j.done:
				slog.Info("Payment sweep job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job
func (j *PaymentSweepJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *PaymentSweepJob) sweep(ctx context.Context) {
	settled, err := j.payments.SweepStaleProcessing(ctx)
	if err != nil {
		slog.Error("Payment sweep failed", "error", err)
		return
	}

	if settled > 0 {
		slog.Info("Payment sweep settled stale payments", "count", settled)
	} else {
		slog.Debug("Payment sweep found nothing to settle")
	}
}
