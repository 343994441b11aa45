package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebhookUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_updates_total",
			Help: "Total number of Telegram updates received by the webhook (count)",
		},
		[]string{"route"},
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands handled (count)",
		},
		[]string{"command", "status"},
	)

	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_requests_total",
			Help: "Total number of AI requests dispatched, by terminal channel (count)",
		},
		[]string{"kind", "channel", "outcome"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_ms",
			Help:    "End-to-end dispatch duration in milliseconds",
			Buckets: []float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"kind", "channel"},
	)

	HTTPAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_http_attempts_total",
			Help: "Total number of HTTP attempts to the AI worker (count)",
		},
		[]string{"status"},
	)

	DirectBindingAvailable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_direct_binding_available",
			Help: "Last observed direct binding verdict (1=available, 0=unavailable)",
		},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"service", "strategy", "reason"},
	)

	WorkerTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_tasks_total",
			Help: "Total number of tasks accepted by the AI worker (count)",
		},
		[]string{"type", "status"},
	)

	ScanVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_verdicts_total",
			Help: "Total number of scan verdicts produced by the AI worker (count)",
		},
		[]string{"verdict"},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total number of requests to LLM providers (count)",
		},
		[]string{"provider", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_ms",
			Help:    "Duration of LLM provider requests in milliseconds",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"provider"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaWriteErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_write_errors_total",
			Help: "Total number of failed Kafka writes (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000},
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DedupChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "update_dedup_checks_total",
			Help: "Total number of update deduplication checks, by result (count)",
		},
		[]string{"result"},
	)

	DedupCheckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "update_dedup_check_duration_ms",
			Help:    "Duration of update deduplication checks in milliseconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	KVOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kv_operations_total",
			Help: "Total number of key-value store operations (count)",
		},
		[]string{"operation", "status"},
	)
)

var (
	sharedOnce sync.Once
	rateOnce   sync.Once
)

// registerShared registers collectors that both the bot and the embedded
// worker touch.
func registerShared() {
	sharedOnce.Do(func() {
		prometheus.MustRegister(FallbackUsageTotal)
		prometheus.MustRegister(KVOperationsTotal)
	})
}

func RegisterBotMetrics() {
	prometheus.MustRegister(WebhookUpdatesTotal)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(DedupChecksTotal)
	prometheus.MustRegister(DedupCheckDuration)
	registerShared()
}

func RegisterDispatchMetrics() {
	prometheus.MustRegister(DispatchTotal)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(HTTPAttemptsTotal)
	prometheus.MustRegister(DirectBindingAvailable)
	registerShared()
}

func RegisterWorkerMetrics() {
	prometheus.MustRegister(WorkerTasksTotal)
	prometheus.MustRegister(ScanVerdictsTotal)
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	registerShared()
}

func RegisterRateLimitMetrics() {
	rateOnce.Do(func() {
		prometheus.MustRegister(RateLimitRequestsTotal)
	})
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaWriteErrorsTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func IncWebhookUpdate(route string) {
	WebhookUpdatesTotal.WithLabelValues(route).Inc()
}

func IncCommand(command, status string) {
	CommandsTotal.WithLabelValues(command, status).Inc()
}

func IncDispatch(kind, channel, outcome string) {
	DispatchTotal.WithLabelValues(kind, channel, outcome).Inc()
}

func ObserveDispatchDuration(kind, channel string, duration time.Duration) {
	DispatchDuration.WithLabelValues(kind, channel).Observe(float64(duration.Milliseconds()))
}

func IncHTTPAttempt(status string) {
	HTTPAttemptsTotal.WithLabelValues(status).Inc()
}

func SetDirectBindingAvailable(available bool) {
	if available {
		DirectBindingAvailable.Set(1)
		return
	}
	DirectBindingAvailable.Set(0)
}

func IncFallbackUsage(service, strategy, reason string) {
	FallbackUsageTotal.WithLabelValues(service, strategy, reason).Inc()
}

func IncWorkerTask(taskType, status string) {
	WorkerTasksTotal.WithLabelValues(taskType, status).Inc()
}

func IncScanVerdict(violation bool) {
	ScanVerdictsTotal.WithLabelValues(strconv.FormatBool(violation)).Inc()
}

func IncLLMRequest(provider, status string) {
	LLMRequestsTotal.WithLabelValues(provider, status).Inc()
}

func ObserveLLMDuration(provider string, duration time.Duration) {
	LLMRequestDuration.WithLabelValues(provider).Observe(float64(duration.Milliseconds()))
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaWriteError(service, topic string) {
	KafkaWriteErrorsTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic).Observe(float64(sizeBytes))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDedupCheck(result string) {
	DedupChecksTotal.WithLabelValues(result).Inc()
}

func ObserveDedupDuration(duration time.Duration) {
	DedupCheckDuration.Observe(float64(duration.Microseconds()) / 1000)
}

func IncKVOperation(operation, status string) {
	KVOperationsTotal.WithLabelValues(operation, status).Inc()
}
