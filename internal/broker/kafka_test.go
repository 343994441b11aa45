package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccbot/internal/config"
	"ccbot/internal/dispatch"
	"ccbot/internal/logger"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaProducer_PublishDispatch(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaProducer(w, "ccbot.dispatch", "bot-service", logger.NopLogger())

	event := dispatch.AuditEvent{
		RequestID:  "req-1",
		Kind:       "test",
		Channel:    "http",
		Delivered:  true,
		RetryCount: 1,
		CreatedAt:  time.Unix(1700000000, 0).UTC(),
	}
	require.NoError(t, p.PublishDispatch(context.Background(), event))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "ccbot.dispatch", msg.Topic)
	assert.Equal(t, []byte("req-1"), msg.Key)

	var decoded dispatch.AuditEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event, decoded)
}

func TestKafkaProducer_PublishDispatchWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newKafkaProducer(w, "ccbot.dispatch", "bot-service", logger.NopLogger())

	err := p.PublishDispatch(context.Background(), dispatch.AuditEvent{RequestID: "req-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestKafkaProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaProducer(w, "t", "bot-service", logger.NopLogger())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(config.BrokerConfig{}, "bot-service", logger.NopLogger())
	require.NoError(t, err)
	assert.IsType(t, NopProducer{}, p)
	assert.NoError(t, p.PublishDispatch(context.Background(), dispatch.AuditEvent{}))

	p, err = NewProducer(config.BrokerConfig{
		Type:  "kafka",
		Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}, AuditTopic: "audit"},
	}, "bot-service", logger.NopLogger())
	require.NoError(t, err)
	assert.IsType(t, &KafkaProducer{}, p)

	_, err = NewProducer(config.BrokerConfig{Type: "rabbitmq"}, "bot-service", logger.NopLogger())
	assert.Error(t, err)
}
