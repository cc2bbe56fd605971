// Package llm wraps the hosted language model used to read student messages.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrEmptyCompletion is returned when the model answers without content.
var ErrEmptyCompletion = errors.New("llm returned an empty completion")

const extractionInstructions = `You read messages sent by hostel residents to the hostel office.
Classify the message into exactly one intent: guest_request, leave_request, maintenance_request,
room_cleaning, rule_inquiry, general_query or unknown.
Extract the fields relevant to that intent using these keys when present: guest_name, guest_phone,
start_date, end_date, purpose, reason, emergency_contact, issue_type, problem_description, location,
urgency, complexity, room_number, cleaning_type, preferred_time, topic.
Dates must be ISO-8601. The current time is %s.
Answer with a single JSON object: {"intent": string, "entities": object, "confidence": number between 0 and 1}.`

// Config configures the client.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// Result is the structured reading of a message.
type Result struct {
	Intent     string                 `json:"intent"`
	Entities   map[string]interface{} `json:"entities"`
	Confidence float64                `json:"confidence"`
	Cached     bool                   `json:"-"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client calls a chat-completions endpoint with retry and caches completions.
type Client struct {
	http    *resty.Client
	model   string
	cache   *ResponseCache
	observe func(hit bool)
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCache sets the response cache.
func WithCache(cache *ResponseCache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithCacheObserver is called with the outcome of every cache lookup.
func WithCacheObserver(observe func(hit bool)) Option {
	return func(c *Client) {
		c.observe = observe
	}
}

// WithClock overrides the time given to the model as "now".
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a client. Transient failures (network errors, 429 and
// 5xx) are retried with exponential backoff up to MaxRetries times.
func NewClient(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	retryWait := cfg.RetryWait
	if retryWait <= 0 {
		retryWait = time.Second
	}
	retryMaxWait := cfg.RetryMaxWait
	if retryMaxWait < retryWait {
		retryMaxWait = 8 * retryWait
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	c := &Client{
		http:   httpClient,
		model:  model,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Extract classifies text and extracts its entities.
func (c *Client) Extract(ctx context.Context, text string) (*Result, error) {
	now := c.now()
	system := fmt.Sprintf(extractionInstructions, now.Format(time.RFC3339))
	// Relative dates resolve against the reference day, so it is part of the key.
	cacheKey := c.model + "\n" + now.Format("2006-01-02") + "\n" + text

	if c.cache != nil {
		cached, hit := c.cache.Get(cacheKey)
		if c.observe != nil {
			c.observe(hit)
		}
		if hit {
			result, err := parseCompletion(cached)
			if err == nil {
				result.Cached = true
				return result, nil
			}
		}
	}

	content, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: text},
	})
	if err != nil {
		return nil, err
	}
	result, err := parseCompletion(content)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Put(cacheKey, content)
	}
	return result, nil
}

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	var out chatResponse
	var failure apiError
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:          c.model,
			Messages:       messages,
			Temperature:    0,
			ResponseFormat: map[string]string{"type": "json_object"},
		}).
		SetResult(&out).
		SetError(&failure).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	c.logger.Debug("llm completion",
		zap.Int("status", resp.StatusCode()),
		zap.Int("attempts", resp.Request.Attempt),
		zap.Duration("latency", time.Since(start)))
	if resp.IsError() {
		return "", fmt.Errorf("llm request: status %d: %s", resp.StatusCode(), failure.Error.Message)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

// parseCompletion decodes the model's JSON answer, tolerating a fenced code block.
func parseCompletion(content string) (*Result, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")

	var result Result
	if err := json.Unmarshal([]byte(strings.TrimSpace(trimmed)), &result); err != nil {
		return nil, fmt.Errorf("decode llm completion: %w", err)
	}
	if result.Intent == "" {
		return nil, fmt.Errorf("decode llm completion: missing intent")
	}
	if result.Entities == nil {
		result.Entities = map[string]interface{}{}
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return &result, nil
}
