package api

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vireo/internal/cache"
	"vireo/internal/config"
	"vireo/internal/database"
	"vireo/internal/external"
	"vireo/internal/handlers"
	"vireo/internal/messaging"
	"vireo/internal/metrics"
	"vireo/internal/middleware"
	"vireo/internal/repository"
	"vireo/internal/search"
	"vireo/internal/service"
)

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	services *service.Services
	repos    *repository.Repositories
	handlers *handlers.Handlers
}

// NewServer создает новый экземпляр сервера
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	// Cache and search degrade gracefully: listings fall back to Postgres.
	valkeyClient, err := cache.NewValkeyClient(cfg.Cache)
	if err != nil {
		slog.Warn("Valkey unavailable, listings will not be cached", "error", err)
		valkeyClient = nil
	}

	eventIndex, err := search.NewEventIndex(cfg.Search)
	if err != nil {
		slog.Warn("Elasticsearch unavailable, event search disabled", "error", err)
		eventIndex = nil
	}

	gatewayClient := external.NewGatewayClient(cfg.Gateway)

	repos := repository.NewRepositories(db)
	m := metrics.New("vireo")

	services := service.New(service.Deps{
		Services:           repos.Services,
		Businesses:         repos.Businesses,
		Appointments:       repos.Appointments,
		Events:             repos.Events,
		Payments:           repos.Payments,
		Gateway:            gatewayClient,
		Publisher:          natsClient,
		Metrics:            m,
		PlatformFeePercent: cfg.PlatformFeePercent,
		ProcessingTimeout:  cfg.ProcessingTimeout,
	})

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(m))

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkeyClient,
		services: services,
		repos:    repos,
		handlers: handlers.NewHandlers(services, valkeyClient, eventIndex),
	}

	server.setupRoutes()

	return server
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	h := s.handlers

	api := s.router.Group("/api")
	{
		businesses := api.Group("/businesses")
		{
			businesses.POST("", h.CreateBusiness)
			businesses.GET("/:id", h.GetBusiness)
		}

		services := api.Group("/services")
		{
			services.GET("", h.ListServices)
		}

		appointments := api.Group("/appointments")
		{
			appointments.POST("", h.BookAppointment)
			appointments.GET("/:id", h.GetAppointment)
			appointments.PATCH("/cancel", h.CancelAppointment)
		}

		api.GET("/availability", h.Availability)

		events := api.Group("/events")
		{
			events.POST("", h.CreateEvent)
			events.GET("", h.ListEvents)
			events.GET("/:id", h.GetEvent)
			events.POST("/register", h.RegisterForEvent)
		}

		payments := api.Group("/payments")
		{
			payments.GET("/success", h.NotifyPaymentCompleted)
			payments.GET("/fail", h.NotifyPaymentFailed)
			payments.POST("/notifications", h.OnPaymentUpdates)
			payments.GET("/:id", h.GetPayment)
			payments.PATCH("/:id/markPaid", h.MarkPaymentPaid)
			payments.POST("/refund", h.RefundPayment)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "vireo-api",
		"version": "1.0.0",
	})
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			log.Printf("Error closing Valkey connection: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
			return err
		}
	}

	return nil
}
