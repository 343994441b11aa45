// Package llm calls the configured chat-completion provider.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ccbot/internal/aiconfig"
	"ccbot/internal/constants"
	"ccbot/internal/logger"
	"ccbot/pkg/circuitbreaker"
	apperrors "ccbot/pkg/errors"
	"ccbot/pkg/metrics"
)

// Completer produces a completion for content under a system prompt.
type Completer interface {
	Complete(ctx context.Context, cfg aiconfig.Config, prompt, content string) (string, error)
}

type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	breaker    *circuitbreaker.Wrapper
	logger     logger.Logger
}

type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	// Breaker is optional.
	Breaker *circuitbreaker.Wrapper
	Logger  logger.Logger
}

func NewClient(opts Options) *Client {
	c := &Client{
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		breaker:    opts.Breaker,
		logger:     opts.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = constants.DefaultProviderTimeout
	}
	if c.logger == nil {
		c.logger = logger.NopLogger()
	}
	return c
}

func (c *Client) Complete(ctx context.Context, cfg aiconfig.Config, prompt, content string) (string, error) {
	if !cfg.Ready() {
		return "", apperrors.ErrConfigurationMissing.WithMessage("AI provider is disabled or has no API key")
	}

	if c.breaker == nil {
		return c.complete(ctx, cfg, prompt, content)
	}

	var text string
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		text, err = c.complete(ctx, cfg, prompt, content)
		return err
	})
	return text, err
}

func (c *Client) complete(ctx context.Context, cfg aiconfig.Config, prompt, content string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint, headers, body, err := buildRequest(cfg, prompt, content)
	if err != nil {
		return "", apperrors.ErrValidation.WithMessage(err.Error()).WithCause(err)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", apperrors.ErrValidation.WithMessage(fmt.Sprintf("invalid provider endpoint: %v", err)).WithCause(err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveLLMDuration(cfg.Provider, time.Since(start))
	if err != nil {
		metrics.IncLLMRequest(cfg.Provider, "transport_error")
		return "", apperrors.ErrNetwork.WithMessage(fmt.Sprintf("AI API request failed: %v", err)).WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.IncLLMRequest(cfg.Provider, "read_error")
		return "", apperrors.ErrNetwork.WithMessage(fmt.Sprintf("failed to read AI response: %v", err)).WithCause(err)
	}

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		metrics.IncLLMRequest(cfg.Provider, fmt.Sprintf("http_%d", resp.StatusCode))
		return "", apperrors.HTTPStatus(resp.StatusCode,
			fmt.Sprintf("AI API request failed: %d %s - %s", resp.StatusCode,
				http.StatusText(resp.StatusCode), truncate(string(respBody), constants.DiagnosticBodyLimit)))
	}

	var data interface{}
	if err := json.Unmarshal(respBody, &data); err != nil {
		metrics.IncLLMRequest(cfg.Provider, "decode_error")
		return "", apperrors.ErrUnknown.WithMessage(fmt.Sprintf("AI response is not JSON: %v", err)).WithCause(err)
	}

	text := extractText(cfg, data)
	if text == "" {
		metrics.IncLLMRequest(cfg.Provider, "empty")
		return "", apperrors.ErrUnknown.WithMessage("could not extract content from the AI response")
	}

	metrics.IncLLMRequest(cfg.Provider, "success")
	c.logger.DebugwCtx(ctx, "AI provider responded",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
