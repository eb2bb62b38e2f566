// Package mail is a minimal client for the transactional email provider.
// One POST per message; failures surface to the caller, which decides
// whether a missed reminder matters.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/examanalyzer/backend/internal/config"
)

const requestTimeout = 30 * time.Second

// Client sends email through the configured HTTP endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	from       string
	httpClient *http.Client
}

// NewClient requires the credential up front, mirroring the other external
// providers: a missing key fails the single request that needs it.
func NewClient(cfg config.MailConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mail API key must be configured")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("mail sender address must be configured")
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

type message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send delivers one message.
func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	body, err := json.Marshal(message{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("email provider returned status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
