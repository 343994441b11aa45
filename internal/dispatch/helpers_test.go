package dispatch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"ccbot/internal/telegram"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingTimer struct {
	mu    sync.Mutex
	waits []time.Duration
	c     chan time.Time
}

func newRecordingTimer() *recordingTimer {
	return &recordingTimer{c: make(chan time.Time, 1)}
}

func (t *recordingTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.waits = append(t.waits, d)
	t.mu.Unlock()
	t.c <- time.Now()
}

func (t *recordingTimer) Stop() {}

func (t *recordingTimer) C() <-chan time.Time { return t.c }

func (t *recordingTimer) Waits() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.waits...)
}

type sentMessage struct {
	ChatID    int64
	ReplyTo   int64
	MessageID int64
	Text      string
	Edit      bool
}

type fakeMessenger struct {
	mu      sync.Mutex
	editErr error
	sent    []sentMessage
}

func (m *fakeMessenger) SendReply(_ context.Context, chatID, replyTo int64, text string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{ChatID: chatID, ReplyTo: replyTo, Text: text})
	return int64(len(m.sent)), nil
}

func (m *fakeMessenger) EditText(_ context.Context, chatID, messageID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		return m.editErr
	}
	m.sent = append(m.sent, sentMessage{ChatID: chatID, MessageID: messageID, Text: text, Edit: true})
	return nil
}

func (m *fakeMessenger) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

// countingBinding serves every call with handler and counts calls.
type countingBinding struct {
	mu      sync.Mutex
	calls   int
	handler http.Handler
	err     error
}

func (b *countingBinding) Do(ctx context.Context, body []byte) (*http.Response, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	return (&HandlerBinding{Handler: b.handler}).Do(ctx, body)
}

func (b *countingBinding) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type panicBinding struct{}

func (panicBinding) Do(context.Context, []byte) (*http.Response, error) {
	panic("binding exploded")
}

var errBindingDown = errors.New("binding down")

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true,"message":"Task received"}`))
	})
}

func testRequest(notificationID int64) *Request {
	req, err := NewRequestFrom(KindTest, TestPayload{
		TestContent:           "buy cheap followers now",
		Message:               &telegram.Message{MessageID: 42, Chat: telegram.Chat{ID: -100}},
		ChatID:                -100,
		NotificationMessageID: notificationID,
		TestMode:              true,
	}, time.Unix(1700000000, 0))
	if err != nil {
		panic(err)
	}
	return req
}

func scanRequest() *Request {
	req, err := NewRequestFrom(KindScan, ScanPayload{
		Text:    "hello",
		Message: &telegram.Message{MessageID: 7, Chat: telegram.Chat{ID: -100}},
		ChatID:  -100,
	}, time.Unix(1700000000, 0))
	if err != nil {
		panic(err)
	}
	return req
}
