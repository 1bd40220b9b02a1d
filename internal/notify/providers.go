package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// httpProvider is the shared HTTP transport for both media: a JSON POST
// to /send authorized by API key, and a GET /health for verification.
type httpProvider struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

type sendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	Error     string `json:"error,omitempty"`
}

func newHTTPProvider(cfg ProviderConfig, timeout time.Duration) *httpProvider {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &httpProvider{
		name:    cfg.Name,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *httpProvider) Name() string {
	return p.name
}

func (p *httpProvider) Send(ctx context.Context, recipient string, content Content) (*SendResult, error) {
	body, err := json.Marshal(sendRequest{
		To:      recipient,
		Subject: content.Subject,
		Body:    content.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/send", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider %s send failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("provider %s returned unreadable response: %w", p.name, err)
	}

	if !result.Success {
		return nil, fmt.Errorf("provider %s rejected message: %s", p.name, result.Error)
	}

	return &SendResult{
		ProviderName:      p.name,
		ProviderMessageID: result.MessageID,
	}, nil
}

func (p *httpProvider) Verify(ctx context.Context) bool {
	if p.baseURL == "" || p.apiKey == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// NewEmailProvider builds an email delivery provider from config.
func NewEmailProvider(cfg ProviderConfig, timeout time.Duration) Provider {
	return newHTTPProvider(cfg, timeout)
}

// NewSMSProvider builds an SMS delivery provider from config.
func NewSMSProvider(cfg ProviderConfig, timeout time.Duration) Provider {
	return newHTTPProvider(cfg, timeout)
}
