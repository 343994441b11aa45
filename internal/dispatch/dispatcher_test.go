package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccbot/internal/logger"
	apperrors "ccbot/pkg/errors"
)

type recordingAudit struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (a *recordingAudit) PublishDispatch(_ context.Context, e AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return nil
}

type harness struct {
	clock     *fakeClock
	timer     *recordingTimer
	messenger *fakeMessenger
	audit     *recordingAudit
	httpCalls *int32
}

func newHarness(t *testing.T, binding Binding, httpStatus int, mutate ...func(*Options)) (*Dispatcher, *harness) {
	t.Helper()

	var calls int32
	workerURL := ""
	if httpStatus != 0 {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(httpStatus)
			_, _ = w.Write([]byte(`{"success":true}`))
		}))
		t.Cleanup(srv.Close)
		workerURL = srv.URL
	}

	h := &harness{
		clock:     newFakeClock(),
		timer:     newRecordingTimer(),
		messenger: &fakeMessenger{},
		audit:     &recordingAudit{},
		httpCalls: &calls,
	}

	httpCfg := DefaultHTTPChannelConfig(workerURL)
	httpCfg.Timer = h.timer

	opts := Options{
		Binding:      binding,
		Availability: NewAvailability(60*time.Second, h.clock),
		HTTP:         httpCfg,
		Messenger:    h.messenger,
		Audit:        h.audit,
		Logger:       logger.NopLogger(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	return New(opts), h
}

func (h *harness) HTTPCalls() int { return int(atomic.LoadInt32(h.httpCalls)) }

func TestDispatch_DirectBindingWhenAvailable(t *testing.T) {
	binding := &countingBinding{handler: okHandler()}
	d, h := newHarness(t, binding, http.StatusOK)
	d.Availability().Seed(StateAvailable, h.clock.Now().Add(-time.Hour))

	res := d.Dispatch(context.Background(), scanRequest())

	require.True(t, res.Succeeded())
	assert.Equal(t, ChannelDirectBinding, res.Channel)
	assert.Equal(t, 1, binding.Calls())
	assert.Equal(t, 0, h.HTTPCalls())
	assert.Equal(t, "Task received", res.Outcome.Data["message"])

	state, checked := d.Availability().Snapshot()
	assert.Equal(t, StateAvailable, state)
	assert.Equal(t, h.clock.Now(), checked)
}

func TestDispatch_SkipsBindingWhileUnavailable(t *testing.T) {
	binding := &countingBinding{handler: okHandler()}
	d, h := newHarness(t, binding, http.StatusOK)
	d.Availability().Seed(StateUnavailable, h.clock.Now().Add(-10*time.Second))

	res := d.Dispatch(context.Background(), scanRequest())

	require.True(t, res.Succeeded())
	assert.Equal(t, ChannelHTTP, res.Channel)
	assert.Equal(t, 0, binding.Calls())
	assert.Equal(t, 1, h.HTTPCalls())
}

func TestDispatch_ReprobesAfterTTL(t *testing.T) {
	binding := &countingBinding{handler: okHandler()}
	d, h := newHarness(t, binding, http.StatusOK)
	d.Availability().Seed(StateUnavailable, h.clock.Now().Add(-61*time.Second))

	res := d.Dispatch(context.Background(), scanRequest())

	require.True(t, res.Succeeded())
	assert.Equal(t, ChannelDirectBinding, res.Channel)
	assert.Equal(t, 1, binding.Calls())

	state, _ := d.Availability().Snapshot()
	assert.Equal(t, StateAvailable, state)
}

func TestDispatch_BindingFailureFallsThroughToHTTP(t *testing.T) {
	binding := &countingBinding{err: errBindingDown}
	d, h := newHarness(t, binding, http.StatusOK)

	res := d.Dispatch(context.Background(), scanRequest())

	require.True(t, res.Succeeded())
	assert.Equal(t, ChannelHTTP, res.Channel)
	assert.Equal(t, 1, binding.Calls())
	assert.Equal(t, 1, h.HTTPCalls())

	state, _ := d.Availability().Snapshot()
	assert.Equal(t, StateUnavailable, state)

	// The next request within the TTL goes straight to HTTP.
	h.clock.Advance(30 * time.Second)
	res = d.Dispatch(context.Background(), scanRequest())
	assert.Equal(t, ChannelHTTP, res.Channel)
	assert.Equal(t, 1, binding.Calls())
}

func TestDispatch_WithoutBindingUsesHTTP(t *testing.T) {
	d, h := newHarness(t, nil, http.StatusOK)

	res := d.Dispatch(context.Background(), testRequest(900))

	require.True(t, res.Succeeded())
	assert.Equal(t, ChannelHTTP, res.Channel)
	assert.Equal(t, 1, h.HTTPCalls())
	assert.Empty(t, h.messenger.Sent())
}

func TestDispatch_AllChannelsFailTestRequest(t *testing.T) {
	binding := &countingBinding{err: errBindingDown}
	d, h := newHarness(t, binding, http.StatusServiceUnavailable)

	res := d.Dispatch(context.Background(), testRequest(900))

	require.False(t, res.Succeeded())
	assert.Equal(t, ChannelLocalFallback, res.Channel)
	assert.True(t, res.Processed)
	assert.True(t, res.Fallback)
	assert.Equal(t, apperrors.CodeHTTPStatus, res.Err().Code)
	assert.Equal(t, 3, h.HTTPCalls())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.timer.Waits())

	sent := h.messenger.Sent()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].Edit)
	assert.Contains(t, sent[0].Text, "Failed to reach the AI worker")
}

func TestDispatch_AllChannelsFailScanIsSilent(t *testing.T) {
	d, h := newHarness(t, nil, http.StatusInternalServerError)

	res := d.Dispatch(context.Background(), scanRequest())

	assert.Equal(t, ChannelLocalFallback, res.Channel)
	assert.True(t, res.Fallback)
	assert.Empty(t, h.messenger.Sent())
}

func TestDispatch_MissingWorkerURL(t *testing.T) {
	d, h := newHarness(t, nil, 0)

	res := d.Dispatch(context.Background(), testRequest(0))

	assert.Equal(t, ChannelLocalFallback, res.Channel)
	assert.Equal(t, apperrors.CodeConfigurationMissing, res.Err().Code)
	require.Len(t, h.messenger.Sent(), 1)
	assert.Contains(t, h.messenger.Sent()[0].Text, "configure the AI worker URL")
}

func TestDispatch_PanickingBindingBecomesFailure(t *testing.T) {
	d, h := newHarness(t, panicBinding{}, http.StatusOK)

	var res *Result
	require.NotPanics(t, func() {
		res = d.Dispatch(context.Background(), scanRequest())
	})

	require.True(t, res.Succeeded())
	assert.Equal(t, ChannelHTTP, res.Channel)
	assert.Equal(t, 1, h.HTTPCalls())

	state, _ := d.Availability().Snapshot()
	assert.Equal(t, StateUnavailable, state)
}

func TestDispatch_PanickingMessengerIsContained(t *testing.T) {
	d, _ := newHarness(t, nil, 0)
	d.fallback = NewLocalFallback(panicMessenger{}, "", logger.NopLogger())

	var res *Result
	require.NotPanics(t, func() {
		res = d.Dispatch(context.Background(), testRequest(0))
	})
	assert.Equal(t, ChannelLocalFallback, res.Channel)
	assert.Equal(t, apperrors.CodeUnknown, res.Err().Code)
	assert.True(t, res.Fallback)
}

func TestDispatch_PublishesAuditEvent(t *testing.T) {
	d, h := newHarness(t, nil, http.StatusOK)
	req := scanRequest()

	d.Dispatch(context.Background(), req)

	require.Len(t, h.audit.events, 1)
	e := h.audit.events[0]
	assert.Equal(t, req.ID(), e.RequestID)
	assert.Equal(t, "scan", e.Kind)
	assert.Equal(t, "http", e.Channel)
	assert.True(t, e.Delivered)
	assert.Empty(t, e.ErrorCode)
}

func TestDispatch_ExactlyOneResultPerRequest(t *testing.T) {
	d, h := newHarness(t, nil, http.StatusOK)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NotNil(t, d.Dispatch(context.Background(), scanRequest()))
		}()
	}
	wg.Wait()

	assert.Len(t, h.audit.events, 10)
	assert.Equal(t, 10, h.HTTPCalls())
}

type panicMessenger struct{}

func (panicMessenger) SendReply(context.Context, int64, int64, string) (int64, error) {
	panic("send exploded")
}

func (panicMessenger) EditText(context.Context, int64, int64, string) error {
	panic("edit exploded")
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from Position
		in   Input
		want Position
	}{
		{Position{Step: StepSelectChannel}, InputSelectedDirect, Position{StepAttemptPrimary, ChannelDirectBinding}},
		{Position{Step: StepSelectChannel}, InputSelectedHTTP, Position{StepAttemptPrimary, ChannelHTTP}},
		{Position{StepAttemptPrimary, ChannelDirectBinding}, InputDelivered, Position{StepTerminal, ChannelDirectBinding}},
		{Position{StepAttemptPrimary, ChannelDirectBinding}, InputFailed, Position{StepAttemptSecondary, ChannelHTTP}},
		{Position{StepAttemptPrimary, ChannelHTTP}, InputDelivered, Position{StepTerminal, ChannelHTTP}},
		{Position{StepAttemptPrimary, ChannelHTTP}, InputFailed, Position{StepFallback, ChannelLocalFallback}},
		{Position{StepAttemptSecondary, ChannelHTTP}, InputDelivered, Position{StepTerminal, ChannelHTTP}},
		{Position{StepAttemptSecondary, ChannelHTTP}, InputFailed, Position{StepFallback, ChannelLocalFallback}},
		{Position{StepFallback, ChannelLocalFallback}, InputResolved, Position{StepTerminal, ChannelLocalFallback}},
	}

	defined := make(map[[2]int]bool)
	for _, tt := range tests {
		next, ok := Transition(tt.from, tt.in)
		require.True(t, ok, "%s + %d", tt.from.Step, tt.in)
		assert.Equal(t, tt.want, next, "%s + %d", tt.from.Step, tt.in)
		defined[[2]int{int(tt.from.Step), int(tt.in)}] = true
	}

	// Every other step/input pair is undefined, including anything out of Terminal.
	steps := []Step{StepSelectChannel, StepAttemptPrimary, StepAttemptSecondary, StepFallback, StepTerminal}
	inputs := []Input{InputSelectedDirect, InputSelectedHTTP, InputDelivered, InputFailed, InputResolved}
	for _, s := range steps {
		for _, in := range inputs {
			if defined[[2]int{int(s), int(in)}] {
				continue
			}
			_, ok := Transition(Position{Step: s, Channel: ChannelHTTP}, in)
			assert.False(t, ok, "%s + %d should be undefined", s, in)
		}
	}
}

// hangingHandler blocks until the binding gives up on the request.
func hangingHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
}

func TestDispatch_BindingTimeout(t *testing.T) {
	tests := []struct {
		name       string
		httpStatus int
		req        func() *Request
		channel    Channel
		delivered  bool
		messages   int
	}{
		{"scan falls through to http", http.StatusOK, scanRequest, ChannelHTTP, true, 0},
		{"test falls through to http silently", http.StatusOK, func() *Request { return testRequest(0) }, ChannelHTTP, true, 0},
		{"scan without worker url resolves locally", 0, scanRequest, ChannelLocalFallback, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binding := &countingBinding{handler: hangingHandler()}
			d, h := newHarness(t, binding, tt.httpStatus, func(o *Options) {
				o.BindingTimeout = 50 * time.Millisecond
			})

			start := time.Now()
			res := d.Dispatch(context.Background(), tt.req())

			assert.Less(t, time.Since(start), 5*time.Second)
			assert.Equal(t, 1, binding.Calls())
			assert.Equal(t, tt.channel, res.Channel)
			assert.Equal(t, tt.delivered, res.Succeeded())
			assert.Len(t, h.messenger.Sent(), tt.messages)

			state, checked := d.Availability().Snapshot()
			assert.Equal(t, StateUnavailable, state)
			assert.Equal(t, h.clock.Now(), checked)
		})
	}
}

func TestDirectChannel_TimeoutIsClassified(t *testing.T) {
	availability := NewAvailability(time.Minute, newFakeClock())
	ch := NewDirectChannel(&HandlerBinding{Handler: hangingHandler()}, 20*time.Millisecond, availability, logger.NopLogger())

	res := ch.Attempt(context.Background(), scanRequest())

	require.False(t, res.Succeeded())
	assert.Equal(t, apperrors.CodeTimeout, res.Err().Code)
	state, _ := availability.Snapshot()
	assert.Equal(t, StateUnavailable, state)
}

func TestDispatch_NilRequest(t *testing.T) {
	d, h := newHarness(t, nil, http.StatusOK)

	var res *Result
	require.NotPanics(t, func() {
		res = d.Dispatch(context.Background(), nil)
	})
	require.NotNil(t, res)
	assert.False(t, res.Succeeded())
	assert.Equal(t, ChannelLocalFallback, res.Channel)
	assert.Equal(t, apperrors.CodeValidation, res.Err().Code)
	assert.Equal(t, 0, h.HTTPCalls())
	assert.Empty(t, h.audit.events)
}

func TestDispatch_PanicOutsideChannelRunsFallback(t *testing.T) {
	d, h := newHarness(t, nil, 0)
	// Selection reads the availability record outside any channel attempt.
	d.availability = nil

	var res *Result
	require.NotPanics(t, func() {
		res = d.Dispatch(context.Background(), testRequest(0))
	})

	require.NotNil(t, res)
	assert.Equal(t, ChannelLocalFallback, res.Channel)
	assert.True(t, res.Processed)
	assert.True(t, res.Fallback)
	assert.Equal(t, apperrors.CodeUnknown, res.Err().Code)

	sent := h.messenger.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(42), sent[0].ReplyTo)
	require.Len(t, h.audit.events, 1)
	assert.True(t, h.audit.events[0].Fallback)
}

func TestDispatch_UnencodablePayloadLeavesAvailabilityAlone(t *testing.T) {
	binding := &countingBinding{handler: okHandler()}
	d, h := newHarness(t, binding, http.StatusOK)

	req := NewRequest(KindScan, map[string]interface{}{"bad": make(chan int)}, time.Unix(1700000000, 0))
	res := d.Dispatch(context.Background(), req)

	assert.False(t, res.Succeeded())
	assert.Equal(t, ChannelLocalFallback, res.Channel)
	assert.Equal(t, 0, binding.Calls())
	assert.Equal(t, 0, h.HTTPCalls())

	state, _ := d.Availability().Snapshot()
	assert.Equal(t, StateUnknown, state)
}
