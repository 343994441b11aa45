package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"ccbot/internal/aiconfig"
	"ccbot/internal/constants"
	"ccbot/internal/dispatch"
	"ccbot/internal/telegram"
	apperrors "ccbot/pkg/errors"
	"ccbot/pkg/metrics"
)

type commandHandler struct {
	adminOnly bool
	run       func(ctx context.Context, msg *telegram.Message, args string) error
}

func (b *Bot) commandTable() map[string]commandHandler {
	return map[string]commandHandler{
		"/help":      {run: b.cmdHelp},
		"/aiconfig":  {adminOnly: true, run: b.cmdConfig},
		"/aiset":     {adminOnly: true, run: b.cmdConfig},
		"/aitest":    {adminOnly: true, run: b.cmdTest},
		"/aipreset":  {adminOnly: true, run: b.cmdPreset},
		"/aidisable": {adminOnly: true, run: b.cmdDisable},
		"/aiscan":    {adminOnly: true, run: b.cmdScan},
	}
}

// MenuCommands is the list published through setMyCommands.
func MenuCommands() []telegram.BotCommand {
	return []telegram.BotCommand{
		{Command: "help", Description: "Show help"},
		{Command: "aitest", Description: "Test the AI service"},
		{Command: "aiscan", Description: "Manage AI scanning"},
		{Command: "aiconfig", Description: "Show the AI configuration (admin)"},
		{Command: "aiset", Description: "Change an AI setting (admin)"},
		{Command: "aipreset", Description: "Apply an AI provider preset (admin)"},
		{Command: "aidisable", Description: "Disable the AI provider (admin)"},
	}
}

func (b *Bot) runCommand(ctx context.Context, name string, h commandHandler, msg *telegram.Message, args string) {
	if h.adminOnly && !b.isAdmin(msg.From) {
		metrics.IncCommand(name, "denied")
		b.reply(ctx, msg, "⛔ Permission denied\nOnly bot administrators can use this command")
		return
	}

	if err := h.run(ctx, msg, args); err != nil {
		metrics.IncCommand(name, "error")
		b.logger.ErrorwCtx(ctx, "Command failed", "command", name, "error", err)
		return
	}
	metrics.IncCommand(name, "ok")
}

// detailed reports whether msg may see configuration values and error
// details: only administrators in a private chat.
func (b *Bot) detailed(msg *telegram.Message) bool {
	return msg.IsPrivate() && b.isAdmin(msg.From)
}

func (b *Bot) cmdHelp(ctx context.Context, msg *telegram.Message, _ string) error {
	var s strings.Builder
	s.WriteString("📋 Bot commands\n\n")
	s.WriteString("--- General ---\n")
	s.WriteString("/help - Show this help\n")
	s.WriteString("\n--- AI commands (administrators only) ---\n")
	s.WriteString("/aiconfig - Show the AI configuration\n")
	s.WriteString("/aiset <field> <value> - Change an AI setting\n")
	s.WriteString("/aitest [content] - Test the AI service\n")
	s.WriteString("/aipreset <preset> <API key> - Apply a preset\n")
	s.WriteString("/aidisable - Disable the AI provider\n")
	s.WriteString("/aiscan status|enable|disable|addgroup|removegroup - Manage AI scanning\n")

	if b.isAdmin(msg.From) && !msg.IsPrivate() {
		groupStatus := "scanning not enabled"
		if b.scan.Covers(msg.Chat.ID) {
			groupStatus = "scanning enabled"
		}
		s.WriteString("\n--- System ---\n")
		fmt.Fprintf(&s, "Current chat ID: %d\n", msg.Chat.ID)
		fmt.Fprintf(&s, "AI scan: %s\n", enabledLabel(b.scan.Enabled()))
		fmt.Fprintf(&s, "This group: %s\n", groupStatus)
	}

	b.reply(ctx, msg, s.String())
	return nil
}

// cmdConfig serves both /aiconfig and /aiset: without arguments it lists the
// configuration, otherwise it sets one field.
func (b *Bot) cmdConfig(ctx context.Context, msg *telegram.Message, args string) error {
	if args == "" {
		cfg, err := b.configs.Get(ctx)
		if err != nil {
			b.reply(ctx, msg, "❌ Failed to load the AI configuration")
			return err
		}
		b.reply(ctx, msg, "🤖 Current AI configuration:\n\n"+aiconfig.Format(cfg))
		return nil
	}

	field, value := args, ""
	if i := strings.IndexFunc(args, unicode.IsSpace); i >= 0 {
		field, value = args[:i], strings.TrimSpace(args[i:])
	}

	name, parsed, err := b.configs.Set(ctx, field, value)
	if err != nil {
		text := "❌ Failed to update the configuration"
		if b.detailed(msg) {
			text += ": " + apperrors.As(err).Message
		} else {
			text += ", please contact an administrator"
		}
		b.reply(ctx, msg, text)
		if apperrors.IsValidation(err) {
			return nil
		}
		return err
	}

	var shown string
	switch {
	case name == aiconfig.FieldAPIKey:
		shown = aiconfig.Mask(value)
	case b.detailed(msg):
		raw, _ := json.Marshal(parsed)
		shown = string(raw)
	default:
		shown = "[hidden]"
	}
	b.reply(ctx, msg, fmt.Sprintf("✅ AI configuration updated\n%s: %s", name, shown))
	return nil
}

func (b *Bot) cmdTest(ctx context.Context, msg *telegram.Message, args string) error {
	content := args
	if content == "" {
		content = constants.DefaultTestContent
	}

	text := fmt.Sprintf("🚀 AI test request received\n📝 Test content: %s\n⏱️ Processing asynchronously...", content)
	if b.detailed(msg) {
		url := b.workerURL
		if url == "" {
			url = "URL not configured"
		}
		text += "\n🔄 Connecting to: " + url
	}
	notificationID := b.reply(ctx, msg, text)

	req, err := dispatch.NewRequestFrom(dispatch.KindTest, dispatch.TestPayload{
		TestContent:           content,
		Message:               msg,
		ChatID:                msg.Chat.ID,
		NotificationMessageID: notificationID,
	}, b.clock.Now())
	if err != nil {
		b.reply(ctx, msg, "❌ Failed to start the AI test")
		return err
	}
	b.dispatchInBackground(ctx, req)
	return nil
}

func (b *Bot) cmdPreset(ctx context.Context, msg *telegram.Message, args string) error {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.reply(ctx, msg, "⚠️ Missing preset name\nUsage: /aipreset <preset> <API key>\n\nAvailable presets:\n"+presetList(false))
		return nil
	}

	name := strings.ToLower(fields[0])
	if name == aiconfig.PresetDisable {
		return b.cmdDisable(ctx, msg, "")
	}
	if _, ok := aiconfig.LookupPreset(name); !ok {
		b.reply(ctx, msg, fmt.Sprintf("❌ Unknown preset: %s\n\nAvailable presets:\n%s", fields[0], presetList(true)))
		return nil
	}
	if len(fields) < 2 {
		b.reply(ctx, msg, "⚠️ Missing API key\nUsage: /aipreset <preset> <API key>")
		return nil
	}

	if err := b.configs.ApplyPreset(ctx, name, fields[1]); err != nil {
		b.reply(ctx, msg, "❌ Failed to apply preset: "+apperrors.As(err).Message)
		return err
	}
	b.reply(ctx, msg, fmt.Sprintf("✅ Applied the %s preset", name))
	return nil
}

func (b *Bot) cmdDisable(ctx context.Context, msg *telegram.Message, _ string) error {
	if err := b.configs.Disable(ctx); err != nil {
		b.reply(ctx, msg, "❌ Failed to disable the AI provider")
		return err
	}
	b.reply(ctx, msg, "✅ AI features disabled")
	return nil
}

func (b *Bot) cmdScan(ctx context.Context, msg *telegram.Message, args string) error {
	fields := strings.Fields(args)
	sub := "status"
	if len(fields) > 0 {
		sub = strings.ToLower(fields[0])
	}

	switch {
	case sub == "status":
		groups := "all groups"
		if list := b.scan.Groups(); len(list) > 0 {
			ids := make([]string, len(list))
			for i, id := range list {
				ids[i] = strconv.FormatInt(id, 10)
			}
			groups = strings.Join(ids, ", ")
		}
		b.reply(ctx, msg, fmt.Sprintf("📊 AI scan status\n\n"+
			"Global: %s\n"+
			"Enabled groups: %s\n\n"+
			"Use /aiscan enable|disable to switch scanning globally\n"+
			"Use /aiscan addgroup <group ID> to add a group\n"+
			"Use /aiscan removegroup <group ID> to remove a group",
			enabledLabel(b.scan.Enabled()), groups))
		return nil

	case sub == "enable" || sub == "disable":
		enabled := sub == "enable"
		if err := b.configs.SetEnabled(ctx, enabled); err != nil {
			b.reply(ctx, msg, "❌ Failed to update AI scanning")
			return err
		}
		b.scan.SetEnabled(enabled)
		b.reply(ctx, msg, fmt.Sprintf("✅ AI scanning %s globally", enabledLabel(enabled)))
		return nil

	case (sub == "addgroup" || sub == "removegroup") && len(fields) > 1:
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			b.reply(ctx, msg, "❌ Invalid group ID, please enter a numeric ID")
			return nil
		}
		b.reply(ctx, msg, b.changeGroup(sub == "addgroup", id))
		return nil
	}

	b.reply(ctx, msg, fmt.Sprintf("⚠️ Unknown AI scan command: %s\n\n"+
		"Available commands:\n"+
		"/aiscan status - Show AI scan status\n"+
		"/aiscan enable - Enable AI scanning\n"+
		"/aiscan disable - Disable AI scanning\n"+
		"/aiscan addgroup <group ID> - Add a group\n"+
		"/aiscan removegroup <group ID> - Remove a group", sub))
	return nil
}

func (b *Bot) changeGroup(add bool, id int64) string {
	const volatile = "\n⚠️ This change lasts until the next restart"
	if add {
		if b.scan.AddGroup(id) {
			return fmt.Sprintf("✅ Group %d added to the scan list%s", id, volatile)
		}
		return fmt.Sprintf("ℹ️ Group %d is already in the scan list", id)
	}
	if b.scan.RemoveGroup(id) {
		return fmt.Sprintf("✅ Group %d removed from the scan list%s", id, volatile)
	}
	return fmt.Sprintf("ℹ️ Group %d is not in the scan list", id)
}

func presetList(withDisable bool) string {
	var s strings.Builder
	for _, p := range aiconfig.Presets() {
		fmt.Fprintf(&s, "• %s - %s\n", p.Name, p.Description)
	}
	if withDisable {
		fmt.Fprintf(&s, "• %s - Disable AI features\n", aiconfig.PresetDisable)
	}
	return strings.TrimRight(s.String(), "\n")
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
