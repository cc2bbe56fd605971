package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

// SMSConfig holds Twilio credentials.
type SMSConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	FromNumber string
	Timeout    time.Duration
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SMSSender sends text messages through the Twilio REST API.
type SMSSender struct {
	client     *resty.Client
	accountSID string
	from       string
}

// NewSMSSender builds an SMS sender.
func NewSMSSender(cfg SMSConfig) *SMSSender {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTwilioBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetHeader("Accept", "application/json")
	return &SMSSender{client: client, accountSID: cfg.AccountSID, from: cfg.FromNumber}
}

// Send implements Sender. SMS has no subject line, so it is prepended to the body.
func (s *SMSSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoAddress
	}
	body := msg.Body
	if msg.Subject != "" {
		body = msg.Subject + ": " + body
	}
	var apiErr twilioError
	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   msg.To,
			"From": s.from,
			"Body": body,
		}).
		SetError(&apiErr).
		SetPathParam("sid", s.accountSID).
		Post("/2010-04-01/Accounts/{sid}/Messages.json")
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("send sms: status %d: %s (code %d)", resp.StatusCode(), apiErr.Message, apiErr.Code)
	}
	return nil
}
