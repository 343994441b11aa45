package dispatch

import (
	apperrors "ccbot/pkg/errors"
)

// Channel identifies the path a request was delivered (or resolved) through.
type Channel int

const (
	ChannelDirectBinding Channel = iota + 1
	ChannelHTTP
	ChannelLocalFallback
)

func (c Channel) String() string {
	switch c {
	case ChannelDirectBinding:
		return "direct_binding"
	case ChannelHTTP:
		return "http"
	case ChannelLocalFallback:
		return "local_fallback"
	default:
		return "none"
	}
}

// Outcome is either Delivered with the worker's JSON answer or Failed with a
// classified error. Exactly one of Data and Err is meaningful.
type Outcome struct {
	Delivered bool
	Data      map[string]interface{}
	Err       *apperrors.Error
}

func Delivered(data map[string]interface{}) Outcome {
	return Outcome{Delivered: true, Data: data}
}

func Failed(err *apperrors.Error) Outcome {
	if err == nil {
		err = apperrors.ErrUnknown
	}
	return Outcome{Err: err}
}

// Result is what every dispatch returns.
type Result struct {
	RequestID string
	Kind      Kind
	Outcome   Outcome
	Channel   Channel
	// RetryCount is only meaningful when Channel is ChannelHTTP.
	RetryCount int

	// Processed, Fallback and ErrorReason describe a local fallback resolution.
	Processed   bool
	Fallback    bool
	ErrorReason string
}

func (r *Result) Succeeded() bool {
	return r != nil && r.Outcome.Delivered
}

func (r *Result) Err() *apperrors.Error {
	if r == nil {
		return nil
	}
	return r.Outcome.Err
}

func delivered(req *Request, ch Channel, data map[string]interface{}) *Result {
	return &Result{
		RequestID: req.ID(),
		Kind:      req.Kind(),
		Outcome:   Delivered(data),
		Channel:   ch,
	}
}

func failed(req *Request, ch Channel, err *apperrors.Error) *Result {
	return &Result{
		RequestID: req.ID(),
		Kind:      req.Kind(),
		Outcome:   Failed(err),
		Channel:   ch,
	}
}
