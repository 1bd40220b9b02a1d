package notify

import (
	"context"
	"time"
)

// Medium is the delivery channel a provider serves.
type Medium string

const (
	MediumEmail Medium = "email"
	MediumSMS   Medium = "sms"
)

// Content is what gets delivered; providers pick the fields they need.
type Content struct {
	Subject string
	Body    string
}

// SendResult reports a single delivery attempt.
type SendResult struct {
	ProviderName      string
	ProviderMessageID string
}

// Provider is one interchangeable channel provider. Send delivers to a
// single recipient; Verify is called once before the provider joins the
// active chain.
type Provider interface {
	Name() string
	Send(ctx context.Context, recipient string, content Content) (*SendResult, error)
	Verify(ctx context.Context) bool
}

// ProviderConfig configures one HTTP delivery provider. A provider with
// an empty BaseURL is treated as not configured and skipped.
type ProviderConfig struct {
	Name    string
	BaseURL string
	APIKey  string
}

// Config lists providers per medium, in fallback order.
type Config struct {
	Email   []ProviderConfig
	SMS     []ProviderConfig
	Timeout time.Duration
}
