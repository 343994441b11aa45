package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout     = 10 * time.Second
	DefaultTelegramAPIURL  = "https://api.telegram.org"
	DefaultProviderTimeout = 30 * time.Second
)

// Dispatch cascade timing.
const (
	DefaultBindingTimeout     = 3 * time.Second
	DefaultHTTPAttemptTimeout = 8 * time.Second
	DefaultAvailabilityTTL    = 60 * time.Second
	DefaultHTTPMaxAttempts    = 3
	DefaultRetryInterval      = 1000 * time.Millisecond

	// ConnectionAbortedFirstRetryDelay is added on top of the linear backoff
	// before the first retry when the first attempt ended in ConnectionAborted.
	// Later retries after the same condition use the plain backoff.
	ConnectionAbortedFirstRetryDelay = 2 * time.Second
)

const (
	RequestTypeScan = "ai_scan"
	RequestTypeTest = "ai_test"
)

const (
	DefaultKVNamespace = "TG_AUTOCCB_BOT"
	AIConfigKey        = "ai:config"

	CacheKeyPrefixUpdate = "update:"
	// DefaultUpdateDedupTTL covers Telegram's redelivery window for updates
	// that were not acknowledged in time.
	DefaultUpdateDedupTTL = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// DiagnosticBodyLimit bounds non-JSON error bodies kept for diagnostics.
	DiagnosticBodyLimit = 150

	// TestContentPreviewLimit bounds the test content echoed in fallback replies.
	TestContentPreviewLimit  = 50
	DebugContentPreviewLimit = 100
	DefaultTestContent       = "This is a test message"
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

// ViolationMarker prefixes an LLM verdict that flags a message.
const ViolationMarker = "【违规】"

const (
	// DefaultMaxTokens caps completion length for scan and test prompts.
	DefaultMaxTokens = 200
	AnthropicVersion = "2023-06-01"
	TestSystemPrompt = "You are a helpful assistant."
)

const (
	ProviderOpenAI           = "openai"
	ProviderClaude           = "claude"
	ProviderGemini           = "gemini"
	ProviderDeepSeek         = "deepseek"
	ProviderOpenAICompatible = "openai_compatible"
	ProviderCustom           = "custom"
)

const (
	ServiceNameBot      = "bot-service"
	ServiceNameAIWorker = "ai-worker"
)
