// Package notify renders and delivers workflow notification emails.
// Delivery is best-effort: callers log failures and carry on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Message is one outgoing email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// FunctionSender posts messages as JSON to an external mail function,
// authenticated with a bearer service key.
type FunctionSender struct {
	url        string
	serviceKey string
	client     *http.Client
}

// NewFunctionSender creates a FunctionSender. A zero timeout defaults to 10s.
func NewFunctionSender(url, serviceKey string, timeout time.Duration) *FunctionSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FunctionSender{
		url:        url,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: timeout},
	}
}

// Send posts msg to the mail function. Any non-2xx response is an error.
func (s *FunctionSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send to mail function: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail function returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

// LogSender only logs messages. Used in development.
type LogSender struct {
	Logger *zap.Logger
}

// Send logs the message envelope.
func (s LogSender) Send(_ context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("notification (log mode)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("htmlBytes", len(msg.HTML)))
	return nil
}
