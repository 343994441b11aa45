package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EarlyLog writes to stderr before the configured logger exists, i.e. while
// the config file is still being located and parsed. Only Fatal exits.
type EarlyLog struct {
	log *zap.SugaredLogger
}

func NewEarlyLog(serviceName string) *EarlyLog {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.Lock(os.Stderr),
		zapcore.InfoLevel,
	)
	return &EarlyLog{log: zap.New(core).Sugar().With("service_name", serviceName)}
}

func (l *EarlyLog) Error(msg string, args ...interface{}) {
	l.log.Errorf(msg, args...)
}

func (l *EarlyLog) Fatal(msg string, args ...interface{}) {
	l.log.Fatalf(msg, args...)
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	l.log.Warnf(msg, args...)
}

func (l *EarlyLog) Info(msg string, args ...interface{}) {
	l.log.Infof(msg, args...)
}
