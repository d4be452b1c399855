// Package provider is the HTTP client for the hosted completion provider.
// The provider speaks the OpenAI chat-completions wire format; the base URL
// and both model names are configurable so the same client serves the chat
// and classification calls.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const DefaultTimeout = 25 * time.Second

// ErrTimeout marks a request cancelled by the request deadline. It is a
// distinct cause from other provider failures: a timed-out call is never
// retried against the fallback model.
var ErrTimeout = errors.New("provider request timed out")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Options struct {
	Temperature float64
	MaxTokens   int
	// JSONObject requests strictly JSON-shaped output (response_format).
	JSONObject bool
}

// Completion is the extracted reply. Model is the model that actually
// answered, which differs from the configured one after a fallback.
type Completion struct {
	Content string
	Model   string
}

type Config struct {
	BaseURL       string
	APIKey        string
	Model         string
	FallbackModel string
	Timeout       time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	TopP           float64         `json:"top_p"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// Complete sends one chat-completion request against the given model under
// the client's timeout. An empty reply is returned as an empty Completion,
// not an error; the caller decides on a placeholder.
func (c *Client) Complete(ctx context.Context, model string, messages []Message, opts Options) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		TopP:        1,
		Stream:      false,
	}
	if opts.JSONObject {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed chatResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if decodeErr == nil {
			if parsed.Error != nil && parsed.Error.Message != "" {
				detail = parsed.Error.Message
			} else if parsed.Message != "" {
				detail = parsed.Message
			}
		}
		return nil, fmt.Errorf("provider error: %s", detail)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", decodeErr)
	}

	answeredBy := parsed.Model
	if answeredBy == "" {
		answeredBy = model
	}
	content := ""
	if len(parsed.Choices) > 0 {
		content = parsed.Choices[0].Message.Content
	}
	return &Completion{Content: content, Model: answeredBy}, nil
}

// CompleteWithFallback tries the primary model, and on a non-timeout failure
// retries exactly once against the fallback model. A timeout fails outright.
// If the fallback also fails, the primary error is surfaced.
func (c *Client) CompleteWithFallback(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	completion, err := c.Complete(ctx, c.cfg.Model, messages, opts)
	if err == nil {
		return completion, nil
	}
	if errors.Is(err, ErrTimeout) {
		c.logger.Error("primary model timed out", zap.String("model", c.cfg.Model))
		return nil, err
	}

	c.logger.Warn("primary model failed, retrying with fallback",
		zap.String("model", c.cfg.Model),
		zap.String("fallback", c.cfg.FallbackModel),
		zap.Error(err))

	completion, fallbackErr := c.Complete(ctx, c.cfg.FallbackModel, messages, opts)
	if fallbackErr != nil {
		c.logger.Error("fallback model failed",
			zap.String("fallback", c.cfg.FallbackModel),
			zap.Error(fallbackErr))
		return nil, err
	}
	return completion, nil
}
