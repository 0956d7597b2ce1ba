// Package notifier delivers operator notifications. The webhook variant
// posts to a chat-platform incoming webhook; the log variant is the fallback
// when no webhook is configured so critical escalations never vanish.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Webhook posts notifications as JSON to a configured URL.
type Webhook struct {
	url        string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewWebhook creates a webhook notifier.
func NewWebhook(url string, timeout time.Duration, logger zerolog.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type payload struct {
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	SentAt   string `json:"sent_at"`
}

// Notify delivers a routine message.
func (w *Webhook) Notify(ctx context.Context, subject, message string) error {
	return w.post(ctx, subject, message, "info")
}

// NotifyCritical delivers a message that must reach the operator.
func (w *Webhook) NotifyCritical(ctx context.Context, subject, message string) error {
	return w.post(ctx, subject, message, "critical")
}

func (w *Webhook) post(ctx context.Context, subject, message, severity string) error {
	body, err := json.Marshal(payload{
		Subject:  subject,
		Message:  message,
		Severity: severity,
		SentAt:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook delivery: status %d", resp.StatusCode)
	}

	return nil
}

// Log writes notifications to the structured log only.
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a log-only notifier.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, subject, message string) error {
	l.logger.Info().Str("subject", subject).Msg(message)
	return nil
}

func (l *Log) NotifyCritical(ctx context.Context, subject, message string) error {
	l.logger.Error().Str("subject", subject).Msg(message)
	return nil
}
