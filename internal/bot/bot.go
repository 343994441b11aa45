// Package bot routes Telegram updates: administrator commands, debug replies
// and background AI scans of group messages.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"ccbot/internal/aiconfig"
	"ccbot/internal/constants"
	"ccbot/internal/dispatch"
	"ccbot/internal/logger"
	"ccbot/internal/telegram"
	"ccbot/pkg/cel"
	apperrors "ccbot/pkg/errors"
	"ccbot/pkg/logging"
	"ccbot/pkg/metrics"
)

// Messenger is the subset of the Bot API the bot talks through.
type Messenger interface {
	SendReply(ctx context.Context, chatID, replyTo int64, text string) (int64, error)
	SetMyCommands(ctx context.Context, commands []telegram.BotCommand) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req *dispatch.Request) *dispatch.Result
}

// ConfigStore edits the shared AI provider configuration.
type ConfigStore interface {
	Get(ctx context.Context) (aiconfig.Config, error)
	Set(ctx context.Context, field, value string) (string, interface{}, error)
	SetEnabled(ctx context.Context, enabled bool) error
	Disable(ctx context.Context) error
	ApplyPreset(ctx context.Context, name, apiKey string) error
}

// RuleEvaluator decides whether a message is worth scanning.
type RuleEvaluator interface {
	EvaluateRule(ctx context.Context, expression string, facts cel.MessageFacts) (bool, error)
}

type Options struct {
	Messenger  Messenger
	Dispatcher Dispatcher
	Configs    ConfigStore
	Scan       *ScanState
	AdminIDs   []int64

	DebugGroups    []int64
	DebugAllGroups bool
	CustomPrompt   string

	// Rules and Rule are optional; without them every eligible message is
	// scanned.
	Rules RuleEvaluator
	Rule  string

	// WorkerURL is shown to administrators in /aitest replies.
	WorkerURL string
	Clock     dispatch.Clock
	Logger    logger.Logger
}

type Bot struct {
	messenger  Messenger
	dispatcher Dispatcher
	configs    ConfigStore
	scan       *ScanState
	admins     map[int64]struct{}
	adminIDs   []int64

	debugGroups    map[int64]struct{}
	debugAllGroups bool
	customPrompt   string

	rules RuleEvaluator
	rule  string

	workerURL string
	clock     dispatch.Clock
	logger    logger.Logger
	commands  map[string]commandHandler

	wg sync.WaitGroup
}

func New(opts Options) *Bot {
	b := &Bot{
		messenger:      opts.Messenger,
		dispatcher:     opts.Dispatcher,
		configs:        opts.Configs,
		scan:           opts.Scan,
		admins:         make(map[int64]struct{}, len(opts.AdminIDs)),
		adminIDs:       append([]int64(nil), opts.AdminIDs...),
		debugGroups:    make(map[int64]struct{}, len(opts.DebugGroups)),
		debugAllGroups: opts.DebugAllGroups,
		customPrompt:   opts.CustomPrompt,
		rules:          opts.Rules,
		rule:           opts.Rule,
		workerURL:      opts.WorkerURL,
		clock:          opts.Clock,
		logger:         opts.Logger,
	}
	for _, id := range opts.AdminIDs {
		b.admins[id] = struct{}{}
	}
	for _, id := range opts.DebugGroups {
		b.debugGroups[id] = struct{}{}
	}
	if b.scan == nil {
		b.scan = NewScanState(false, nil)
	}
	if b.clock == nil {
		b.clock = dispatch.SystemClock
	}
	if b.logger == nil {
		b.logger = logger.NopLogger()
	}
	b.commands = b.commandTable()
	return b
}

// Wait blocks until every background dispatch has finished.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) isAdmin(u *telegram.User) bool {
	if u == nil {
		return false
	}
	_, ok := b.admins[u.ID]
	return ok
}

func (b *Bot) isDebugChat(chatID int64) bool {
	if b.debugAllGroups {
		return true
	}
	_, ok := b.debugGroups[chatID]
	return ok
}

// HandleUpdate routes one update. Replies are sent before it returns; AI
// dispatches continue in the background.
func (b *Bot) HandleUpdate(ctx context.Context, update *telegram.Update) {
	ctx = logging.WithUpdateID(ctx, update.UpdateID)

	msg := update.Message
	if msg == nil {
		metrics.IncWebhookUpdate("ignored")
		return
	}
	ctx = logging.WithChatID(ctx, msg.Chat.ID)

	switch {
	case msg.IsPrivate():
		metrics.IncWebhookUpdate("private")
		b.handlePrivate(ctx, msg)
	case msg.IsGroup():
		metrics.IncWebhookUpdate("group")
		b.handleGroup(ctx, msg)
	default:
		metrics.IncWebhookUpdate("ignored")
	}
}

func (b *Bot) handlePrivate(ctx context.Context, msg *telegram.Message) {
	name, args := splitCommand(msg.Text)

	if name == "/start" {
		b.reply(ctx, msg, "👋 Welcome to Auto-CCB Bot! This bot is mainly for group management.")
		return
	}
	if !b.isAdmin(msg.From) {
		b.reply(ctx, msg, "⚠️ Only administrators can use this bot")
		return
	}
	if handler, ok := b.commands[name]; ok {
		b.runCommand(ctx, name, handler, msg, args)
		return
	}
	b.reply(ctx, msg, "🔄 Feature in development, or command not recognised")
}

func (b *Bot) handleGroup(ctx context.Context, msg *telegram.Message) {
	if strings.HasPrefix(msg.Text, "/") {
		name, args := splitCommand(msg.Text)
		if handler, ok := b.commands[name]; ok {
			b.runCommand(ctx, name, handler, msg, args)
		}
		return
	}

	content, kind := ExtractContent(msg)
	parts := strings.Join(messageParts(msg), ", ")
	debug := b.isDebugChat(msg.Chat.ID)

	if debug {
		b.reply(ctx, msg, fmt.Sprintf("🔍 DEBUG message check:\nMessage ID: %d\nTypes: %s\nContent: %s",
			msg.MessageID, parts, preview(content, constants.DebugContentPreviewLimit)))
	}

	if reason := b.skipReason(ctx, msg, content, kind); reason != "" {
		b.logger.DebugwCtx(ctx, "Skipping AI scan", "message_id", msg.MessageID, "reason", reason)
		if debug {
			b.reply(ctx, msg, fmt.Sprintf("🔍 DEBUG: AI scan skipped - %s\nMessage ID: %d", reason, msg.MessageID))
		}
		return
	}

	if debug {
		b.reply(ctx, msg, fmt.Sprintf("🔍 DEBUG: AI scan started\nTypes: %s\nContent: %s",
			parts, preview(content, constants.DebugContentPreviewLimit)))
	}

	req, err := dispatch.NewRequestFrom(dispatch.KindScan, dispatch.ScanPayload{
		Text:           content,
		Message:        msg,
		ChatID:         msg.Chat.ID,
		AdminIDs:       b.adminIDs,
		CustomPrompt:   b.customPrompt,
		Debug:          debug,
		DebugGroups:    b.debugGroupList(),
		DebugAllGroups: b.debugAllGroups,
	}, b.clock.Now())
	if err != nil {
		b.logger.ErrorwCtx(ctx, "Failed to build scan request", "error", err)
		return
	}
	b.dispatchInBackground(ctx, req)
}

// skipReason explains why msg is not scanned, or returns "" when it is.
func (b *Bot) skipReason(ctx context.Context, msg *telegram.Message, content, kind string) string {
	switch {
	case !b.scan.Enabled():
		return "AI scanning is disabled"
	case msg.From == nil || msg.From.IsBot:
		return "sender is a bot"
	case b.isAdmin(msg.From):
		return "sender is a bot administrator"
	case !b.scan.Covers(msg.Chat.ID):
		return "AI scanning is not enabled in this group"
	}

	if b.rules == nil || b.rule == "" {
		return ""
	}
	ok, err := b.rules.EvaluateRule(ctx, b.rule, cel.MessageFacts{
		ChatID:    msg.Chat.ID,
		ChatType:  msg.Chat.Type,
		ChatTitle: msg.Chat.Title,
		UserID:    msg.From.ID,
		Username:  msg.From.Username,
		IsBot:     msg.From.IsBot,
		IsAdmin:   false,
		Content:   content,
		Kind:      kind,
	})
	if err != nil {
		b.logger.WarnwCtx(ctx, "Scan rule evaluation failed", "error", err)
		return "scan rule could not be evaluated"
	}
	if !ok {
		return "message does not match the scan rule"
	}
	return ""
}

func (b *Bot) debugGroupList() []int64 {
	out := make([]int64, 0, len(b.debugGroups))
	for id := range b.debugGroups {
		out = append(out, id)
	}
	return out
}

// dispatchInBackground hands req to the dispatcher without blocking the
// update. The request context only lends its values.
func (b *Bot) dispatchInBackground(ctx context.Context, req *dispatch.Request) {
	taskCtx := context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.ErrorwCtx(taskCtx, "Background dispatch panicked",
					"request_id", req.ID(),
					"error", apperrors.RecoverPanic(r).Error(),
				)
			}
		}()
		res := b.dispatcher.Dispatch(taskCtx, req)
		b.logger.DebugwCtx(taskCtx, "Background dispatch finished",
			"request_id", req.ID(),
			"channel", res.Channel.String(),
		)
	}()
}

func (b *Bot) reply(ctx context.Context, msg *telegram.Message, text string) int64 {
	id, err := b.messenger.SendReply(ctx, msg.Chat.ID, msg.MessageID, text)
	if err != nil {
		b.logger.ErrorwCtx(ctx, "Failed to send reply",
			"message_id", msg.MessageID,
			"error", err,
		)
		return 0
	}
	return id
}

// splitCommand returns the lower-cased command without any @botname suffix,
// and the trimmed remainder of the text.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	head, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, rest = text[:i], text[i:]
	}
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(rest)
}

// RegisterCommands publishes the command menu.
func (b *Bot) RegisterCommands(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := b.messenger.SetMyCommands(ctx, MenuCommands()); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}
