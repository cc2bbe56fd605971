package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// EmailConfig configures the transactional email API.
type EmailConfig struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
}

type emailPayload struct {
	From     string            `json:"from"`
	To       []string          `json:"to"`
	Subject  string            `json:"subject"`
	Text     string            `json:"text"`
	Priority string            `json:"priority,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// EmailSender posts messages to an HTTP email API.
type EmailSender struct {
	client *resty.Client
	from   string
}

// NewEmailSender builds an email sender.
func NewEmailSender(cfg EmailConfig) *EmailSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &EmailSender{client: client, from: cfg.From}
}

// Send implements Sender.
func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoAddress
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(emailPayload{
			From:     s.from,
			To:       []string{msg.To},
			Subject:  msg.Subject,
			Text:     msg.Body,
			Priority: msg.Priority,
			Tags:     msg.Metadata,
		}).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("send email: unexpected status %d", resp.StatusCode())
	}
	return nil
}
