package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"vireo/internal/cache"
	"vireo/internal/database"
	"vireo/internal/external"
	"vireo/internal/messaging"
	"vireo/internal/notify"
	"vireo/internal/search"
)

// Config is built once at startup and passed into constructors; nothing
// reads the environment after Load returns.
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Platform fee percentage applied when a business has a payee account.
	// Pinned on each payment at creation time.
	PlatformFeePercent float64

	// Payments stuck in processing longer than this are eligible for the
	// reconciliation sweep.
	ProcessingTimeout time.Duration
	SweepInterval     time.Duration

	Database database.Config
	NATS     messaging.Config
	Gateway  external.GatewayConfig
	Cache    cache.Config
	Search   search.Config
	Notify   notify.Config
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8082"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		PlatformFeePercent: getEnvFloat("PLATFORM_FEE_PERCENT", 5.0),
		ProcessingTimeout:  time.Duration(getEnvInt("PAYMENT_PROCESSING_TIMEOUT_MIN", 15)) * time.Minute,
		SweepInterval:      time.Duration(getEnvInt("PAYMENT_SWEEP_INTERVAL_MIN", 5)) * time.Minute,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "vireo"),
			Password:           getEnv("DB_PASSWORD", "vireo123"),
			DBName:             getEnv("DB_NAME", "vireo"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "vireo"),
			ClientID:  getEnv("NATS_CLIENT_ID", "vireo-api"),
		},

		Gateway: external.GatewayConfig{
			BaseURL:     getEnv("PAYMENT_GATEWAY_URL", "https://gateway.example.com/api/v1"),
			MerchantID:  getEnv("PAYMENT_MERCHANT_ID", ""),
			SecretKey:   getEnv("PAYMENT_SECRET_KEY", ""),
			SuccessURL:  getEnv("PAYMENT_SUCCESS_URL", "http://localhost:8082/api/payments/success"),
			ErrorURL:    getEnv("PAYMENT_ERROR_URL", "http://localhost:8082/api/payments/fail"),
			CallbackURL: getEnv("PAYMENT_CALLBACK_URL", "http://localhost:8082/api/payments/notifications"),
			Timeout:     time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},

		Cache: cache.Config{
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: getEnv("VALKEY_PASSWORD", ""),
			TTL:      time.Duration(getEnvInt("VALKEY_TTL_SEC", 30)) * time.Second,
		},

		Search: search.Config{
			Addresses: getEnvList("ELASTICSEARCH_ADDRS", "http://localhost:9200"),
			Index:     getEnv("ELASTICSEARCH_EVENTS_INDEX", "events"),
		},

		Notify: notify.Config{
			Email: []notify.ProviderConfig{
				{
					Name:    getEnv("EMAIL_PRIMARY_NAME", "mailcourier"),
					BaseURL: getEnv("EMAIL_PRIMARY_URL", ""),
					APIKey:  getEnv("EMAIL_PRIMARY_KEY", ""),
				},
				{
					Name:    getEnv("EMAIL_BACKUP_NAME", "smtpbridge"),
					BaseURL: getEnv("EMAIL_BACKUP_URL", ""),
					APIKey:  getEnv("EMAIL_BACKUP_KEY", ""),
				},
			},
			SMS: []notify.ProviderConfig{
				{
					Name:    getEnv("SMS_PRIMARY_NAME", "smscenter"),
					BaseURL: getEnv("SMS_PRIMARY_URL", ""),
					APIKey:  getEnv("SMS_PRIMARY_KEY", ""),
				},
			},
			Timeout: time.Duration(getEnvInt("NOTIFY_TIMEOUT_SEC", 10)) * time.Second,
		},
	}
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
