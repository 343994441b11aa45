package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ccbot/internal/config"
	"ccbot/internal/constants"
	"ccbot/internal/dispatch"
	"ccbot/internal/logger"
	"ccbot/pkg/metrics"
	"ccbot/pkg/tracing"
)

// messageWriter is the subset of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer      messageWriter
	topic       string
	serviceName string
	logger      logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, serviceName string, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return newKafkaProducer(w, cfg.AuditTopic, serviceName, log)
}

func newKafkaProducer(w messageWriter, topic, serviceName string, log logger.Logger) *KafkaProducer {
	return &KafkaProducer{
		writer:      w,
		topic:       topic,
		serviceName: serviceName,
		logger:      log,
	}
}

// PublishDispatch writes event keyed by request id so every event of one
// request lands on the same partition.
func (p *KafkaProducer) PublishDispatch(ctx context.Context, event dispatch.AuditEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	headers := tracing.InjectTraceContext(ctx, []kafka.Header{})

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   p.topic,
		Key:     []byte(event.RequestID),
		Value:   body,
		Headers: headers,
		Time:    start,
	})
	metrics.ObserveKafkaWriteDuration(p.serviceName, p.topic, time.Since(start))
	if err != nil {
		metrics.IncKafkaWriteError(p.serviceName, p.topic)
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncKafkaMessagesWritten(p.serviceName, p.topic)
	metrics.ObserveKafkaMessageSize(p.serviceName, p.topic, len(body))
	p.logger.DebugwCtx(ctx, "Published dispatch audit event",
		"topic", p.topic,
		"request_id", event.RequestID,
		"channel", event.Channel,
	)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
