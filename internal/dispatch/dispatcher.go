package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ccbot/internal/constants"
	"ccbot/internal/logger"
	apperrors "ccbot/pkg/errors"
	"ccbot/pkg/logging"
	"ccbot/pkg/metrics"
	"ccbot/pkg/tracing"
)

// Step is a state of the dispatch cascade.
type Step int

const (
	StepSelectChannel Step = iota
	StepAttemptPrimary
	StepAttemptSecondary
	StepFallback
	StepTerminal
)

func (s Step) String() string {
	switch s {
	case StepSelectChannel:
		return "select_channel"
	case StepAttemptPrimary:
		return "attempt_primary"
	case StepAttemptSecondary:
		return "attempt_secondary"
	case StepFallback:
		return "fallback"
	case StepTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Input is what a step reports to the state machine.
type Input int

const (
	// InputSelectedDirect and InputSelectedHTTP come out of StepSelectChannel.
	InputSelectedDirect Input = iota
	InputSelectedHTTP
	InputDelivered
	InputFailed
	// InputResolved comes out of StepFallback.
	InputResolved
)

// Position is where a request is in the cascade: the current step and the
// channel that the current attempt step uses.
type Position struct {
	Step    Step
	Channel Channel
}

// Transition returns the successor of s for input in. ok is false when the
// pair has no defined successor.
func Transition(s Position, in Input) (next Position, ok bool) {
	switch s.Step {
	case StepSelectChannel:
		switch in {
		case InputSelectedDirect:
			return Position{StepAttemptPrimary, ChannelDirectBinding}, true
		case InputSelectedHTTP:
			return Position{StepAttemptPrimary, ChannelHTTP}, true
		}
	case StepAttemptPrimary:
		switch in {
		case InputDelivered:
			return Position{StepTerminal, s.Channel}, true
		case InputFailed:
			if s.Channel == ChannelDirectBinding {
				return Position{StepAttemptSecondary, ChannelHTTP}, true
			}
			return Position{StepFallback, ChannelLocalFallback}, true
		}
	case StepAttemptSecondary:
		switch in {
		case InputDelivered:
			return Position{StepTerminal, s.Channel}, true
		case InputFailed:
			return Position{StepFallback, ChannelLocalFallback}, true
		}
	case StepFallback:
		if in == InputResolved {
			return Position{StepTerminal, ChannelLocalFallback}, true
		}
	}
	return s, false
}

// AuditSink receives every terminal result. Publishing is best-effort.
type AuditSink interface {
	PublishDispatch(ctx context.Context, event AuditEvent) error
}

type AuditEvent struct {
	RequestID  string    `json:"request_id"`
	Kind       string    `json:"kind"`
	Channel    string    `json:"channel"`
	Delivered  bool      `json:"delivered"`
	ErrorCode  string    `json:"error_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	RetryCount int       `json:"retry_count"`
	Fallback   bool      `json:"fallback"`
	CreatedAt  time.Time `json:"created_at"`
	DurationMs int64     `json:"duration_ms"`
}

type attempter interface {
	Attempt(ctx context.Context, req *Request) *Result
}

type Options struct {
	// Binding is optional; without it every request goes over HTTP.
	Binding        Binding
	BindingTimeout time.Duration
	Availability   *Availability
	HTTP           HTTPChannelConfig
	Messenger      Messenger
	Audit          AuditSink
	Logger         logger.Logger
}

// Dispatcher drives requests through the cascade
// SelectChannel, AttemptPrimary, AttemptSecondary, Fallback, Terminal.
type Dispatcher struct {
	availability *Availability
	direct       attempter
	http         attempter
	fallback     *LocalFallback
	audit        AuditSink
	logger       logger.Logger
	tracer       trace.Tracer
}

func New(opts Options) *Dispatcher {
	log := opts.Logger
	if log == nil {
		log = logger.NopLogger()
	}

	availability := opts.Availability
	if availability == nil {
		availability = NewAvailability(constants.DefaultAvailabilityTTL, nil)
	}

	httpChannel := NewHTTPChannel(opts.HTTP, log)

	d := &Dispatcher{
		availability: availability,
		http:         httpChannel,
		fallback:     NewLocalFallback(opts.Messenger, httpChannel.WorkerURL(), log),
		audit:        opts.Audit,
		logger:       log,
		tracer:       tracing.GetTracer("ccbot/dispatch"),
	}
	if opts.Binding != nil {
		d.direct = NewDirectChannel(opts.Binding, opts.BindingTimeout, availability, log)
	}
	return d
}

func (d *Dispatcher) Availability() *Availability { return d.availability }

// Dispatch runs the cascade for req. It always returns exactly one Result and
// never panics; faults inside a channel become Failed outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (result *Result) {
	if req == nil {
		err := apperrors.ErrValidation.WithMessage("nil dispatch request")
		d.logger.ErrorwCtx(ctx, "Refusing to dispatch a nil request")
		return &Result{
			Outcome:     Failed(err),
			Channel:     ChannelLocalFallback,
			Processed:   true,
			Fallback:    true,
			ErrorReason: err.Error(),
		}
	}

	start := time.Now()
	ctx = logging.WithRequestID(ctx, req.ID())
	ctx, span := d.tracer.Start(ctx, "dispatch."+req.Kind().String(),
		trace.WithAttributes(
			attribute.String("dispatch.request_id", req.ID()),
			attribute.String("dispatch.kind", req.Kind().String()),
		))

	var (
		last        *Result
		fallbackRan bool
	)

	defer func() {
		if r := recover(); r != nil {
			panicErr := apperrors.RecoverPanic(r)
			d.logger.ErrorwCtx(ctx, "Dispatch panicked outside a channel attempt", "error", panicErr.Error())
			// The fallback answers at most once per request.
			if fallbackRan && last != nil {
				result = last
			} else {
				result = d.runFallback(ctx, req, panicErr)
			}
		}
		d.finish(ctx, span, req, result, time.Since(start))
	}()

	state := Position{Step: StepSelectChannel}

	for state.Step != StepTerminal {
		var in Input

		switch state.Step {
		case StepSelectChannel:
			in = d.selectInput()
		case StepAttemptPrimary, StepAttemptSecondary:
			last = d.attempt(ctx, state.Channel, req)
			in = InputFailed
			if last.Succeeded() {
				in = InputDelivered
			}
		case StepFallback:
			fallbackRan = true
			last = d.runFallback(ctx, req, last.Err())
			in = InputResolved
		}

		next, ok := Transition(state, in)
		if !ok {
			// Unreachable while Transition covers every step; resolve locally
			// rather than loop.
			d.logger.ErrorwCtx(ctx, "Undefined dispatch transition",
				"step", state.Step.String(),
				"input", int(in),
			)
			return d.runFallback(ctx, req, apperrors.ErrInternal.WithMessage("undefined dispatch transition"))
		}

		d.logger.DebugwCtx(ctx, "Dispatch transition",
			"from", state.Step.String(),
			"to", next.Step.String(),
			"channel", next.Channel.String(),
		)
		state = next
	}

	return last
}

func (d *Dispatcher) selectInput() Input {
	stateNow, lastCheckedAt := d.availability.Snapshot()
	ch := SelectChannel(d.direct != nil, stateNow, lastCheckedAt, d.availability.TTL(), d.availability.Now())
	if ch == ChannelDirectBinding {
		return InputSelectedDirect
	}
	return InputSelectedHTTP
}

// attempt runs one channel and converts a panic into a Failed result.
func (d *Dispatcher) attempt(ctx context.Context, ch Channel, req *Request) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			panicErr := apperrors.RecoverPanic(r)
			d.logger.ErrorwCtx(ctx, "Channel attempt panicked",
				"channel", ch.String(),
				"error", panicErr.Error(),
			)
			res = failed(req, ch, panicErr)
			if ch == ChannelDirectBinding {
				d.availability.Record(false)
			}
		}
	}()

	var channel attempter
	switch ch {
	case ChannelDirectBinding:
		channel = d.direct
	case ChannelHTTP:
		channel = d.http
	}
	if channel == nil {
		return failed(req, ch, apperrors.ErrConfigurationMissing.
			WithMessage(fmt.Sprintf("%s channel is not configured", ch)))
	}

	res = channel.Attempt(ctx, req)
	if res == nil {
		res = failed(req, ch, apperrors.ErrUnknown.WithMessage("channel returned no result"))
	}
	return res
}

func (d *Dispatcher) runFallback(ctx context.Context, req *Request, cause *apperrors.Error) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			panicErr := apperrors.RecoverPanic(r)
			d.logger.ErrorwCtx(ctx, "Local fallback panicked", "error", panicErr.Error())
			res = failed(req, ChannelLocalFallback, panicErr)
			res.Processed = true
			res.Fallback = true
			res.ErrorReason = panicErr.Error()
		}
	}()
	return d.fallback.Handle(ctx, req, cause)
}

func (d *Dispatcher) finish(ctx context.Context, span trace.Span, req *Request, res *Result, elapsed time.Duration) {
	defer span.End()

	outcome := "delivered"
	if !res.Succeeded() {
		outcome = "failed"
	}
	metrics.IncDispatch(req.Kind().String(), res.Channel.String(), outcome)
	metrics.ObserveDispatchDuration(req.Kind().String(), res.Channel.String(), elapsed)

	span.SetAttributes(
		attribute.String("dispatch.channel", res.Channel.String()),
		attribute.Int("dispatch.retry_count", res.RetryCount),
	)
	if err := res.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	d.logger.InfowCtx(ctx, "Dispatch finished",
		"kind", req.Kind().String(),
		"channel", res.Channel.String(),
		"outcome", outcome,
		"retry_count", res.RetryCount,
		"duration_ms", elapsed.Milliseconds(),
	)

	if d.audit == nil {
		return
	}
	event := AuditEvent{
		RequestID:  req.ID(),
		Kind:       req.Kind().String(),
		Channel:    res.Channel.String(),
		Delivered:  res.Succeeded(),
		RetryCount: res.RetryCount,
		Fallback:   res.Fallback,
		CreatedAt:  req.CreatedAt(),
		DurationMs: elapsed.Milliseconds(),
	}
	if err := res.Err(); err != nil {
		event.ErrorCode = string(err.Code)
		event.Error = err.Error()
	}
	if err := d.audit.PublishDispatch(ctx, event); err != nil {
		d.logger.WarnwCtx(ctx, "Failed to publish dispatch audit event", "error", err)
	}
}
