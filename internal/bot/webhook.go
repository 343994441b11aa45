package bot

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"ccbot/internal/logger"
	"ccbot/internal/telegram"
	"ccbot/pkg/metrics"
)

// SecretTokenHeader carries the secret_token given to setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Deduplicator reports whether an update id is seen for the first time.
type Deduplicator interface {
	FirstSeen(ctx context.Context, updateID int64) bool
}

type WebhookHandler struct {
	bot    *Bot
	secret string
	dedup  Deduplicator
	logger logger.Logger
}

// NewWebhookHandler serves Telegram updates. An empty secret disables the
// header check; a nil dedup handles every delivery.
func NewWebhookHandler(b *Bot, secret string, dedup Deduplicator, log logger.Logger) *WebhookHandler {
	if log == nil {
		log = logger.NopLogger()
	}
	return &WebhookHandler{bot: b, secret: secret, dedup: dedup, logger: log}
}

func (h *WebhookHandler) RegisterRoutes(router gin.IRoutes) {
	router.POST("/webhook", h.HandleUpdate)
}

// HandleUpdate always answers 200 once the update is decoded so Telegram does
// not redeliver it.
func (h *WebhookHandler) HandleUpdate(c *gin.Context) {
	if h.secret != "" {
		got := c.GetHeader(SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":      "invalid secret token",
				"error_code": "UNAUTHORIZED",
			})
			return
		}
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.WarnwCtx(c.Request.Context(), "Rejected malformed update", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "invalid update",
			"error_code": "VALIDATION_ERROR",
		})
		return
	}

	if h.dedup != nil && !h.dedup.FirstSeen(c.Request.Context(), update.UpdateID) {
		metrics.IncWebhookUpdate("duplicate")
		c.String(http.StatusOK, "OK")
		return
	}

	h.bot.HandleUpdate(c.Request.Context(), &update)
	c.String(http.StatusOK, "OK")
}
