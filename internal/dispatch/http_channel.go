package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"ccbot/internal/constants"
	"ccbot/internal/logger"
	apperrors "ccbot/pkg/errors"
	"ccbot/pkg/metrics"
	"ccbot/pkg/retry"
)

type HTTPChannelConfig struct {
	WorkerURL      string
	AttemptTimeout time.Duration
	MaxAttempts    int
	RetryInterval  time.Duration
	// ConnectionAbortedDelay is added before the first retry when the first
	// attempt ended in ConnectionAborted.
	ConnectionAbortedDelay time.Duration
	Client                 *http.Client
	// Timer replaces the wall-clock timer between retries.
	Timer backoff.Timer
}

func DefaultHTTPChannelConfig(workerURL string) HTTPChannelConfig {
	return HTTPChannelConfig{
		WorkerURL:              workerURL,
		AttemptTimeout:         constants.DefaultHTTPAttemptTimeout,
		MaxAttempts:            constants.DefaultHTTPMaxAttempts,
		RetryInterval:          constants.DefaultRetryInterval,
		ConnectionAbortedDelay: constants.ConnectionAbortedFirstRetryDelay,
	}
}

// HTTPChannel delivers requests to the worker's public endpoint with a fixed,
// strictly sequential retry budget.
type HTTPChannel struct {
	workerURL string
	client    *http.Client
	timeout   time.Duration
	policy    retry.Policy
	logger    logger.Logger
}

func NewHTTPChannel(cfg HTTPChannelConfig, log logger.Logger) *HTTPChannel {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = constants.DefaultHTTPAttemptTimeout
	}

	abortedDelay := cfg.ConnectionAbortedDelay
	policy := retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		Interval:    cfg.RetryInterval,
		Timer:       cfg.Timer,
		ExtraDelay: func(attempt int, err error) time.Duration {
			if attempt == 0 && apperrors.CodeOf(err) == apperrors.CodeConnectionAborted {
				return abortedDelay
			}
			return 0
		},
	}

	c := &HTTPChannel{
		client:  client,
		timeout: cfg.AttemptTimeout,
		policy:  policy,
		logger:  log,
	}
	if strings.TrimSpace(cfg.WorkerURL) != "" {
		c.workerURL = NormalizeWorkerURL(cfg.WorkerURL)
	}
	return c
}

// WorkerURL returns the normalized worker URL, empty when unconfigured.
func (c *HTTPChannel) WorkerURL() string { return c.workerURL }

// NormalizeWorkerURL adds an https scheme when none is present and ensures a
// trailing slash. The result is not validated: a malformed URL surfaces as a
// classified error on the request that uses it.
func NormalizeWorkerURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return u
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

func (c *HTTPChannel) Attempt(ctx context.Context, req *Request) *Result {
	if c.workerURL == "" {
		return failed(req, ChannelHTTP, apperrors.ErrConfigurationMissing.
			WithMessage("AI worker URL is not configured"))
	}

	body, err := req.Body()
	if err != nil {
		return failed(req, ChannelHTTP, apperrors.ErrUnknown.
			WithMessage(fmt.Sprintf("failed to encode request: %v", err)).WithCause(err))
	}

	var data map[string]interface{}
	attempts, err := retry.RetryWithCallback(ctx, c.policy, func(attempt int) error {
		result, classified := c.send(ctx, body)
		if classified == nil {
			metrics.IncHTTPAttempt("success")
			data = result
			return nil
		}

		metrics.IncHTTPAttempt(string(classified.Code))
		c.logger.WarnwCtx(ctx, "HTTP attempt to AI worker failed",
			"request_id", req.ID(),
			"attempt", attempt+1,
			"max_attempts", c.policy.MaxAttempts,
			"error_code", string(classified.Code),
			"error", classified.Error(),
		)
		if !classified.IsRetryable() {
			return retry.NewFatalError(classified)
		}
		return classified
	}, func(attempt int, err error, next time.Duration) {
		c.logger.InfowCtx(ctx, "Retrying AI worker request",
			"request_id", req.ID(),
			"retry", attempt,
			"delay", next.String(),
		)
	})

	retries := attempts - 1
	if retries < 0 {
		retries = 0
	}

	if err != nil {
		res := failed(req, ChannelHTTP, apperrors.As(err))
		res.RetryCount = retries
		return res
	}

	res := delivered(req, ChannelHTTP, data)
	res.RetryCount = retries
	return res
}

func (c *HTTPChannel) send(ctx context.Context, body []byte) (map[string]interface{}, *apperrors.Error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.workerURL, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.ErrNetwork.
			WithMessage(fmt.Sprintf("invalid worker URL %q: %v", c.workerURL, err)).
			WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Requested-With", "XMLHttpRequest")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, ClassifyTransportError(attemptCtx, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, ClassifyResponse(resp)
	}

	data, classified := decodeSuccess(resp)
	if classified != nil && attemptCtx.Err() != nil {
		// The deadline hit while the body was streaming in.
		return nil, ClassifyTransportError(attemptCtx, attemptCtx.Err())
	}
	return data, classified
}
