package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"ccbot/internal/constants"
	"ccbot/internal/logger"
	apperrors "ccbot/pkg/errors"
	"ccbot/pkg/metrics"
)

// Binding is a service-to-service call path to the AI worker that does not
// traverse the public network. It takes a serialized request and returns an
// HTTP-shaped response.
type Binding interface {
	Do(ctx context.Context, body []byte) (*http.Response, error)
}

// HandlerBinding serves requests with an in-process handler, used when the AI
// worker runs inside the bot process.
type HandlerBinding struct {
	Handler http.Handler
}

func (b *HandlerBinding) Do(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	w := newBufferedResponse()
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Handler.ServeHTTP(w, req)
	}()

	select {
	case <-done:
		// A handler that returned because the deadline passed did not answer.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return w.response(req), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// bufferedResponse collects a handler's output into an *http.Response.
type bufferedResponse struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header)}
}

func (w *bufferedResponse) Header() http.Header { return w.header }

func (w *bufferedResponse) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *bufferedResponse) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(p)
}

func (w *bufferedResponse) response(req *http.Request) *http.Response {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        w.header,
		Body:          readCloser{bytes.NewReader(w.body.Bytes())},
		ContentLength: int64(w.body.Len()),
		Request:       req,
	}
}

type readCloser struct {
	*bytes.Reader
}

func (readCloser) Close() error { return nil }

// URLBinding posts to a private service address.
type URLBinding struct {
	URL    string
	Client *http.Client
}

func (b *URLBinding) Do(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

// DirectChannel makes one bounded attempt through the binding and records the
// verdict in the availability record. Its failures are never shown to users.
type DirectChannel struct {
	binding      Binding
	timeout      time.Duration
	availability *Availability
	logger       logger.Logger
}

func NewDirectChannel(binding Binding, timeout time.Duration, availability *Availability, log logger.Logger) *DirectChannel {
	if timeout <= 0 {
		timeout = constants.DefaultBindingTimeout
	}
	return &DirectChannel{
		binding:      binding,
		timeout:      timeout,
		availability: availability,
		logger:       log,
	}
}

func (c *DirectChannel) Attempt(ctx context.Context, req *Request) *Result {
	body, err := req.Body()
	if err != nil {
		// The binding was never called, so there is no verdict to record.
		return failed(req, ChannelDirectBinding, apperrors.ErrUnknown.
			WithMessage(fmt.Sprintf("failed to encode request: %v", err)).WithCause(err))
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, classified := c.roundTrip(attemptCtx, body)
	if classified != nil {
		c.availability.Record(false)
		metrics.SetDirectBindingAvailable(false)
		c.logger.WarnwCtx(ctx, "Direct binding attempt failed",
			"request_id", req.ID(),
			"error_code", string(classified.Code),
			"error", classified.Error(),
		)
		return failed(req, ChannelDirectBinding, classified)
	}

	c.availability.Record(true)
	metrics.SetDirectBindingAvailable(true)
	c.logger.DebugwCtx(ctx, "Direct binding attempt succeeded", "request_id", req.ID())
	return delivered(req, ChannelDirectBinding, data)
}

func (c *DirectChannel) roundTrip(ctx context.Context, body []byte) (map[string]interface{}, *apperrors.Error) {
	resp, err := c.binding.Do(ctx, body)
	if err != nil {
		return nil, ClassifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, ClassifyResponse(resp)
	}
	return decodeSuccess(resp)
}
