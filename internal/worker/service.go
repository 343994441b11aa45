// Package worker runs scan and test requests against the configured LLM
// provider and posts the outcome back to the chat.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"ccbot/internal/aiconfig"
	"ccbot/internal/constants"
	"ccbot/internal/dispatch"
	"ccbot/internal/llm"
	"ccbot/internal/logger"
	"ccbot/internal/telegram"
	apperrors "ccbot/pkg/errors"
	"ccbot/pkg/logging"
	"ccbot/pkg/metrics"
)

// Chat is the subset of the Bot API the worker posts through.
type Chat interface {
	SendReply(ctx context.Context, chatID, replyTo int64, text string) (int64, error)
	EditText(ctx context.Context, chatID, messageID int64, text string) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// ConfigSource yields the current provider configuration.
type ConfigSource interface {
	Get(ctx context.Context) (aiconfig.Config, error)
}

type Options struct {
	Completer  llm.Completer
	Configs    ConfigSource
	Chat       Chat
	AutoDelete bool
	Logger     logger.Logger
}

type Service struct {
	completer  llm.Completer
	configs    ConfigSource
	chat       Chat
	autoDelete bool
	logger     logger.Logger

	wg sync.WaitGroup
}

func NewService(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.NopLogger()
	}
	return &Service{
		completer:  opts.Completer,
		configs:    opts.Configs,
		chat:       opts.Chat,
		autoDelete: opts.AutoDelete,
		logger:     log,
	}
}

// Submit runs the task in the background. The context only contributes its
// values; the task outlives the request that carried it.
func (s *Service) Submit(ctx context.Context, kind dispatch.Kind, data map[string]interface{}) {
	taskCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.ErrorwCtx(taskCtx, "Worker task panicked",
					"kind", kind.String(),
					"error", apperrors.RecoverPanic(r).Error(),
				)
				metrics.IncWorkerTask(kind.RequestType(), "panic")
			}
		}()
		s.Run(taskCtx, kind, data)
	}()
}

// Wait blocks until every submitted task has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Run executes one task synchronously.
func (s *Service) Run(ctx context.Context, kind dispatch.Kind, data map[string]interface{}) {
	switch kind {
	case dispatch.KindScan:
		var p dispatch.ScanPayload
		if err := decodeData(data, &p); err != nil {
			s.logger.ErrorwCtx(ctx, "Invalid scan payload", "error", err)
			metrics.IncWorkerTask(kind.RequestType(), "invalid")
			return
		}
		s.scan(logging.WithChatID(ctx, p.ChatID), p)
	case dispatch.KindTest:
		var p dispatch.TestPayload
		if err := decodeData(data, &p); err != nil {
			s.logger.ErrorwCtx(ctx, "Invalid test payload", "error", err)
			metrics.IncWorkerTask(kind.RequestType(), "invalid")
			return
		}
		s.test(logging.WithChatID(ctx, p.ChatID), p)
	}
}

// scan asks the provider for a verdict and, on a violation, warns the sender
// and optionally deletes the message. Failures stay silent in chat.
func (s *Service) scan(ctx context.Context, p dispatch.ScanPayload) {
	if p.Message == nil {
		s.logger.WarnwCtx(ctx, "Scan payload has no message")
		metrics.IncWorkerTask(constants.RequestTypeScan, "invalid")
		return
	}

	verdict, err := s.complete(ctx, p.CustomPrompt, p.Text)
	if err != nil {
		s.logger.ErrorwCtx(ctx, "AI scan failed",
			"message_id", p.Message.MessageID,
			"error", err,
		)
		metrics.IncWorkerTask(constants.RequestTypeScan, "failed")
		return
	}

	s.logger.InfowCtx(ctx, "AI scan verdict",
		"message_id", p.Message.MessageID,
		"verdict", verdict,
	)

	violation := strings.HasPrefix(verdict, constants.ViolationMarker)
	metrics.IncScanVerdict(violation)
	metrics.IncWorkerTask(constants.RequestTypeScan, "completed")
	if !violation {
		return
	}

	notice := strings.TrimSpace(strings.Replace(verdict, constants.ViolationMarker, "", 1))
	text := fmt.Sprintf("Hey @%s,\n\n%s", p.Message.From.DisplayName(), notice)
	if _, err := s.chat.SendReply(ctx, p.ChatID, p.Message.MessageID, text); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to send violation notice",
			"message_id", p.Message.MessageID,
			"error", err,
		)
	}

	if !s.autoDelete {
		return
	}
	if err := s.chat.DeleteMessage(ctx, p.ChatID, p.Message.MessageID); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to delete flagged message",
			"message_id", p.Message.MessageID,
			"error", err,
		)
	}
}

func (s *Service) test(ctx context.Context, p dispatch.TestPayload) {
	reply, err := s.complete(ctx, constants.TestSystemPrompt, p.TestContent)

	var text string
	if err != nil {
		s.logger.ErrorwCtx(ctx, "AI test failed", "error", err)
		metrics.IncWorkerTask(constants.RequestTypeTest, "failed")
		text = formatTestFailure(err)
	} else {
		metrics.IncWorkerTask(constants.RequestTypeTest, "completed")
		text = formatTestSuccess(p.TestContent, reply)
	}

	if p.NotificationMessageID != 0 {
		err = s.chat.EditText(ctx, p.ChatID, p.NotificationMessageID, text)
	} else {
		var replyTo int64
		if p.Message != nil {
			replyTo = p.Message.MessageID
		}
		_, err = s.chat.SendReply(ctx, p.ChatID, replyTo, text)
	}
	if err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to deliver AI test result", "error", err)
	}
}

func (s *Service) complete(ctx context.Context, prompt, content string) (string, error) {
	cfg, err := s.configs.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load AI config: %w", err)
	}
	return s.completer.Complete(ctx, cfg, prompt, content)
}

func decodeData(data map[string]interface{}, v interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func formatTestSuccess(input, reply string) string {
	return fmt.Sprintf("✅ AI test succeeded\n\n📝 Input:\n%s\n\n🤖 AI reply:\n%s", input, reply)
}

func formatTestFailure(err error) string {
	reason := apperrors.As(err).Message
	return fmt.Sprintf("❌ AI test failed\n\nReason: %s", reason)
}

var _ Chat = (*telegram.Client)(nil)
