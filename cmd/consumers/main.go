package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vireo/cmd/consumers/jobs"
	"vireo/internal/config"
	"vireo/internal/consumers"
	"vireo/internal/logger"
	"vireo/internal/metrics"
)

func main() {
	log.Println("Starting consumers service...")

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Consumers get their own NATS client id
	cfg.NATS.ClientID = "vireo-consumers"

	m := metrics.New("vireo_consumers")

	consumerService, err := consumers.NewConsumerService(cfg, m)
	if err != nil {
		log.Fatalf("Failed to create consumer service: %v", err)
	}

	if err := consumerService.Start(); err != nil {
		log.Fatalf("Failed to start consumers: %v", err)
	}

	// Background reconciliation of payments stuck in processing.
	ctx, cancel := context.WithCancel(context.Background())
	sweepJob := jobs.NewPaymentSweepJob(consumerService.Services.Payments, cfg.SweepInterval)
	sweepJob.Start(ctx)

	// Expose delivery and sweep metrics for scraping.
	metricsAddr := ":" + getMetricsPort()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()

	log.Println("Consumers service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down consumers service...")

	sweepJob.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := consumerService.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Consumers service stopped")
}

func getMetricsPort() string {
	if port := os.Getenv("CONSUMER_METRICS_PORT"); port != "" {
		return port
	}
	return "9091"
}
