// Telegram webhook ingress.
//
// This file exposes POST /telegram/webhook: the endpoint Telegram delivers
// updates to. The handler is deliberately thin: it authenticates the
// delivery, schedules the update for asynchronous handling, and answers
// 200 OK immediately. Telegram retries delivery on any non-2xx or slow
// response, so the response never waits for (or reflects) the downstream
// outcome; retries are owned by the dispatch policy instead.
package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/jarekbird/telegram-receiver/internal/dispatch"
	"github.com/jarekbird/telegram-receiver/internal/http/middleware"
)

// telegramSecretHeader is the header Telegram echoes back when a secret
// token was registered with setWebhook.
const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler is the downstream consumer of a parsed update.
type UpdateHandler interface {
	Handle(ctx context.Context, upd *models.Update) error
}

// WebhookHandler receives Telegram webhook deliveries.
type WebhookHandler struct {
	// Secret is the expected X-Telegram-Bot-Api-Secret-Token value. Empty
	// disables authentication (dev mode).
	Secret string
	// Updates consumes parsed updates asynchronously.
	Updates UpdateHandler
	// Policy bounds retries of a failed handling attempt.
	Policy dispatch.Policy
	// Logger is the base logger for dispatched work (request-scoped loggers
	// die with the request).
	Logger zerolog.Logger

	// submit is a test seam; defaults to dispatch.Submit.
	submit func(logger zerolog.Logger, name string, p dispatch.Policy, fn func(ctx context.Context) error)
}

// Receive handles POST /telegram/webhook.
//
// Responses:
//   - 401 when a secret is configured and the header does not match
//   - 200 "OK" otherwise, including for unparseable bodies (logged); a 4xx
//     would only make Telegram redeliver the same broken payload
func (h *WebhookHandler) Receive(c *gin.Context) {
	if h.Secret != "" {
		got := c.GetHeader(telegramSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid webhook secret")
			return
		}
	}

	lg := middleware.LoggerFrom(c)

	var upd models.Update
	if err := json.NewDecoder(c.Request.Body).Decode(&upd); err != nil {
		lg.Warn().Err(err).Msg("undecodable webhook body")
		c.String(http.StatusOK, "OK")
		return
	}

	submit := h.submit
	if submit == nil {
		submit = dispatch.Submit
	}
	update := upd
	submit(h.Logger, "telegram_update", h.Policy, func(ctx context.Context) error {
		return h.Updates.Handle(ctx, &update)
	})

	c.String(http.StatusOK, "OK")
}
