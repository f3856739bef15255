// Package alertsink delivers formatted alerts to chat webhooks, a NATS
// subject or the process log.
package alertsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"adtraffic/internal/bootstrap/logging"
	"adtraffic/internal/errs"
	"adtraffic/internal/ports"
)

// DeliveryError is returned when a webhook answers with a non-2xx status.
type DeliveryError struct {
	Sink       string
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s webhook returned status %d", e.Sink, e.StatusCode)
	}
	return fmt.Sprintf("%s webhook returned status %d: %s", e.Sink, e.StatusCode, e.Body)
}

// WebhookSink posts {"text": ...} to a Slack or Teams incoming webhook.
type WebhookSink struct {
	name       string
	url        string
	httpClient *http.Client
}

var _ ports.AlertSink = (*WebhookSink)(nil)

func NewWebhookSink(name string, url string, timeout time.Duration) (*WebhookSink, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("webhook url is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSink{
		name:       name,
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type webhookBody struct {
	Text string `json:"text"`
}

func (s *WebhookSink) Notify(ctx context.Context, kind ports.AlertKind, msg ports.AlertMessage) error {
	body, err := json.Marshal(webhookBody{Text: renderText(msg)})
	if err != nil {
		return errs.Wrap(err, "encode webhook body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(err, "create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errs.Wrapf(err, "post %s webhook", s.name)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DeliveryError{Sink: s.name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	logging.Debug(ctx, "alert delivered",
		slog.String("sink", s.name),
		slog.String("kind", string(kind)),
	)
	return nil
}

func renderText(msg ports.AlertMessage) string {
	if strings.TrimSpace(msg.Title) == "" {
		return msg.Text
	}
	return "*" + msg.Title + "*\n\n" + msg.Text
}
