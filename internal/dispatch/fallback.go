package dispatch

import (
	"context"
	"fmt"
	"strings"

	"ccbot/internal/constants"
	"ccbot/internal/logger"
	apperrors "ccbot/pkg/errors"
	"ccbot/pkg/metrics"
)

// Messenger is the chat delivery capability the fallback needs.
type Messenger interface {
	SendReply(ctx context.Context, chatID, replyTo int64, text string) (int64, error)
	EditText(ctx context.Context, chatID, messageID int64, text string) error
}

// LocalFallback resolves a request once every remote channel has failed. Test
// requests get exactly one explanatory chat message; scans stay silent.
type LocalFallback struct {
	messenger Messenger
	workerURL string
	logger    logger.Logger
}

func NewLocalFallback(messenger Messenger, workerURL string, log logger.Logger) *LocalFallback {
	return &LocalFallback{
		messenger: messenger,
		workerURL: workerURL,
		logger:    log,
	}
}

func (f *LocalFallback) Handle(ctx context.Context, req *Request, cause *apperrors.Error) *Result {
	if cause == nil {
		cause = apperrors.ErrUnknown
	}

	res := failed(req, ChannelLocalFallback, cause)
	res.Processed = true
	res.Fallback = true
	res.ErrorReason = cause.Error()

	metrics.IncFallbackUsage(constants.ServiceNameBot, req.Kind().String(), string(cause.Code))

	if req.Kind() != KindTest {
		f.logger.InfowCtx(ctx, "Scan resolved by local fallback",
			"request_id", req.ID(),
			"error_code", string(cause.Code),
		)
		return res
	}

	var payload TestPayload
	if err := req.Decode(&payload); err != nil {
		f.logger.ErrorwCtx(ctx, "Failed to decode test payload for fallback",
			"request_id", req.ID(),
			"error", err,
		)
		return res
	}

	text := FallbackMessage(payload.TestContent, f.workerURL, cause)
	f.deliver(ctx, req, payload, text)
	return res
}

// deliver edits the in-progress notification when there is one, replying
// instead when there is none or the edit fails. Failures are only logged.
func (f *LocalFallback) deliver(ctx context.Context, req *Request, payload TestPayload, text string) {
	if f.messenger == nil {
		f.logger.WarnwCtx(ctx, "No messenger configured, dropping fallback message", "request_id", req.ID())
		return
	}

	var replyTo int64
	if payload.Message != nil {
		replyTo = payload.Message.MessageID
	}

	if payload.NotificationMessageID != 0 {
		err := f.messenger.EditText(ctx, payload.ChatID, payload.NotificationMessageID, text)
		if err == nil {
			return
		}
		f.logger.WarnwCtx(ctx, "Failed to edit notification, replying instead",
			"request_id", req.ID(),
			"notification_message_id", payload.NotificationMessageID,
			"error", err,
		)
	}

	if _, err := f.messenger.SendReply(ctx, payload.ChatID, replyTo, text); err != nil {
		f.logger.ErrorwCtx(ctx, "Failed to deliver fallback message",
			"request_id", req.ID(),
			"error", err,
		)
	}
}

// FallbackMessage renders the user-facing explanation for a failed test
// request, keyed off the error code.
func FallbackMessage(testContent, workerURL string, cause *apperrors.Error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ AI worker problem\n📝 Test content: %s\n", previewTestContent(testContent))

	switch cause.Code {
	case apperrors.CodeConfigurationMissing:
		b.WriteString("❌ Please configure the AI worker URL (dispatch.worker_url)")
	case apperrors.CodeTimeout:
		fmt.Fprintf(&b, "❌ Timed out connecting to the AI worker\n🔍 Please check:\n"+
			"• Worker URL: %s\n"+
			"• Whether the worker is running\n"+
			"• Whether the network connection is stable", workerURL)
	case apperrors.CodeConnectionAborted:
		fmt.Fprintf(&b, "❌ Connection aborted (error 1042)\n🔍 Possible causes:\n"+
			"• CORS: the worker does not send the right cross-origin headers\n"+
			"• Network: the worker may not be reachable from the bot server\n"+
			"• Security: a firewall or security policy may block the connection\n\n"+
			"🛠️ Suggested fixes:\n"+
			"1. Confirm the worker URL is correct: %s\n"+
			"2. Make sure the worker adds this response header:\n"+
			"   Access-Control-Allow-Origin: *\n"+
			"3. Try deploying the bot and the worker in the same network", workerURL)
	case apperrors.CodeNetworkError, apperrors.CodeHTTPStatus:
		fmt.Fprintf(&b, "❌ Failed to reach the AI worker\n🔍 Please check:\n"+
			"• Whether the worker URL is correct: %s\n"+
			"• Whether the worker is running\n"+
			"• Error details: %s", workerURL, cause.Error())
	default:
		fmt.Fprintf(&b, "❌ Async processing failed: %s", cause.Error())
	}
	return b.String()
}

func previewTestContent(s string) string {
	r := []rune(s)
	if len(r) <= constants.TestContentPreviewLimit {
		return s
	}
	return string(r[:constants.TestContentPreviewLimit-3]) + "..."
}
