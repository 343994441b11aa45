package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ccbot/pkg/logging"
)

type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})
	Sync() error
	With(keysAndValues ...interface{}) Logger

	DebugwCtx(ctx context.Context, msg string, keysAndValues ...interface{})
	InfowCtx(ctx context.Context, msg string, keysAndValues ...interface{})
	WarnwCtx(ctx context.Context, msg string, keysAndValues ...interface{})
	ErrorwCtx(ctx context.Context, msg string, keysAndValues ...interface{})
}

// SugaredLogger adds context fields (update, chat, request ids and the
// active trace id) to zap's sugared logger.
type SugaredLogger struct {
	*zap.SugaredLogger
	// ctx reports the caller of the ...wCtx method, not logCtx.
	ctx         *zap.SugaredLogger
	serviceName string
}

func wrap(s *zap.SugaredLogger, serviceName string) *SugaredLogger {
	return &SugaredLogger{
		SugaredLogger: s,
		ctx:           s.WithOptions(zap.AddCallerSkip(2)),
		serviceName:   serviceName,
	}
}

// SetServiceName tags entries whose context carries no service name.
func (l *SugaredLogger) SetServiceName(name string) {
	l.serviceName = name
}

func New(level string) (Logger, error) {
	return NewWithFormat(level, "json")
}

// NewWithFormat builds a production zap logger. format is "json" or
// "console"; an unknown level falls back to info.
func NewWithFormat(level, format string) (Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	// Every update matters for moderation audits.
	cfg.Sampling = nil
	cfg.Encoding = "json"
	if format == "console" {
		cfg.Encoding = "console"
	}

	enc := &cfg.EncoderConfig
	enc.TimeKey = "timestamp"
	enc.LevelKey = "level"
	enc.MessageKey = "message"
	enc.CallerKey = "caller"
	enc.StacktraceKey = "stacktrace"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.LowercaseLevelEncoder

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return wrap(zapLogger.Sugar(), ""), nil
}

// NewFromCore wraps an existing core, e.g. an observer in tests.
func NewFromCore(core zapcore.Core) *SugaredLogger {
	return wrap(zap.New(core).Sugar(), "")
}

func NopLogger() Logger {
	return wrap(zap.NewNop().Sugar(), "")
}

func (l *SugaredLogger) With(keysAndValues ...interface{}) Logger {
	return wrap(l.SugaredLogger.With(keysAndValues...), l.serviceName)
}

func (l *SugaredLogger) DebugwCtx(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.logCtx(ctx, zapcore.DebugLevel, msg, keysAndValues)
}

func (l *SugaredLogger) InfowCtx(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.logCtx(ctx, zapcore.InfoLevel, msg, keysAndValues)
}

func (l *SugaredLogger) WarnwCtx(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.logCtx(ctx, zapcore.WarnLevel, msg, keysAndValues)
}

func (l *SugaredLogger) ErrorwCtx(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.logCtx(ctx, zapcore.ErrorLevel, msg, keysAndValues)
}

func (l *SugaredLogger) logCtx(ctx context.Context, lvl zapcore.Level, msg string, keysAndValues []interface{}) {
	if !l.Desugar().Core().Enabled(lvl) {
		return
	}
	fields := l.contextFields(ctx)
	l.ctx.Logw(lvl, msg, append(fields, keysAndValues...)...)
}

func (l *SugaredLogger) contextFields(ctx context.Context) []interface{} {
	fields := logging.GetLogFields(ctx)

	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, "trace_id", sc.TraceID().String())
	}
	// A service name set on the context wins over the logger's own.
	if l.serviceName != "" && logging.GetServiceName(ctx) == "" {
		fields = append(fields, "service_name", l.serviceName)
	}
	return fields
}
