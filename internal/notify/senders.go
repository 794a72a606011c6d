package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/utils"
)

// LogSender writes warnings to the log. Used in development and when no
// delivery channel is configured.
type LogSender struct{}

func (LogSender) Name() string { return "log" }

// Send implements Sender.
func (LogSender) Send(_ context.Context, w Warning) error {
	log.Info().
		Str("email", utils.MaskEmail(w.Email)).
		Str("tier", w.Tier).
		Int("used", w.Used).
		Int("limit", w.DailyLimit).
		Msg("quota threshold reached")
	return nil
}

// WebhookSender POSTs the warning as JSON, e.g. to the platform's mailer.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a sender. A nil client uses http.DefaultClient.
func NewWebhookSender(url string, client *http.Client) *WebhookSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookSender{url: url, client: client}
}

func (*WebhookSender) Name() string { return "webhook" }

type webhookPayload struct {
	Event   string  `json:"event"`
	Warning Warning `json:"warning"`
	Subject string  `json:"subject"`
	Body    string  `json:"body"`
}

// Send implements Sender.
func (s *WebhookSender) Send(ctx context.Context, w Warning) error {
	body, err := json.Marshal(webhookPayload{
		Event:   "quota.threshold",
		Warning: w,
		Subject: w.Subject(),
		Body:    w.Body(),
	})
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, config.MaxErrorBodyLogLen))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}
