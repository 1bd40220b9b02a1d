package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// Chain tries providers in configured order until one delivers. A chain
// with no verified providers is disabled: sends return ErrMediumDisabled
// instead of panicking or blocking the caller.
type Chain struct {
	medium    Medium
	providers []Provider
}

// ErrMediumDisabled is returned when no provider for a medium passed
// verification at startup.
var ErrMediumDisabled = fmt.Errorf("no active providers for medium")

// NewChain verifies each candidate once and keeps only the ones that
// respond. Order is preserved.
func NewChain(ctx context.Context, medium Medium, candidates []Provider) *Chain {
	var active []Provider
	for _, p := range candidates {
		if p.Verify(ctx) {
			active = append(active, p)
			slog.Info("Notification provider verified", "medium", medium, "provider", p.Name())
		} else {
			slog.Warn("Notification provider failed verification, skipping", "medium", medium, "provider", p.Name())
		}
	}

	if len(active) == 0 {
		slog.Warn("No notification providers available, medium disabled", "medium", medium)
	}

	return &Chain{medium: medium, providers: active}
}

// NewChainFromConfig builds the chain for a medium out of its configured
// HTTP providers, skipping unconfigured entries.
func NewChainFromConfig(ctx context.Context, medium Medium, cfg Config) *Chain {
	var configs []ProviderConfig
	switch medium {
	case MediumEmail:
		configs = cfg.Email
	case MediumSMS:
		configs = cfg.SMS
	}

	var candidates []Provider
	for _, pc := range configs {
		if pc.BaseURL == "" {
			continue
		}
		candidates = append(candidates, newHTTPProvider(pc, cfg.Timeout))
	}

	return NewChain(ctx, medium, candidates)
}

// Enabled reports whether at least one provider survived verification.
func (c *Chain) Enabled() bool {
	return len(c.providers) > 0
}

// Medium returns the channel this chain serves.
func (c *Chain) Medium() Medium {
	return c.medium
}

// Send walks the chain: the first provider that reports success wins.
// Failures are logged and the next provider is tried; if every provider
// fails, the aggregate error names the last failure. Send never panics
// and its error must never be allowed to reverse a booking.
func (c *Chain) Send(ctx context.Context, recipient string, content Content) (*SendResult, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMediumDisabled, c.medium)
	}

	var lastErr error
	for _, p := range c.providers {
		result, err := p.Send(ctx, recipient, content)
		if err == nil {
			slog.Info("Notification delivered",
				"medium", c.medium,
				"provider", p.Name(),
				"message_id", result.ProviderMessageID)
			return result, nil
		}

		lastErr = err
		slog.Warn("Notification provider failed, trying next",
			"medium", c.medium,
			"provider", p.Name(),
			"error", err)
	}

	return nil, fmt.Errorf("all %s providers failed (%d tried): %w", c.medium, len(c.providers), lastErr)
}
