// Webhook management endpoints.
//
// This file exposes the admin surface for the Telegram webhook registration:
//   - POST   /telegram/set_webhook
//   - GET    /telegram/webhook_info
//   - DELETE /telegram/webhook
//
// All three require the admin secret, supplied either as the X-Admin-Secret
// header or as an admin_secret query/body parameter; the header wins when
// both are present.
package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jarekbird/telegram-receiver/internal/http/middleware"
	"github.com/jarekbird/telegram-receiver/internal/telegram"
)

// adminSecretHeader carries the admin secret; it takes priority over the
// admin_secret parameter.
const adminSecretHeader = "X-Admin-Secret"

// AdminHandler manages the bot's webhook registration against the Telegram
// API.
type AdminHandler struct {
	// Secret guards the endpoints (config default "changeme").
	Secret string
	// Telegram performs the webhook API calls.
	Telegram telegram.API
	// WebhookURL is the default URL registered when the request carries none.
	WebhookURL string
	// WebhookSecret is the secret token registered alongside the URL.
	WebhookSecret string
}

// authorized checks the admin secret from header first, then query/body.
func (h *AdminHandler) authorized(c *gin.Context) bool {
	got := c.GetHeader(adminSecretHeader)
	if got == "" {
		got = c.Query("admin_secret")
	}
	if got == "" {
		got = c.PostForm("admin_secret")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) == 1
}

// setWebhookRequest optionally overrides the configured webhook URL.
type setWebhookRequest struct {
	URL string `json:"url"`
}

// SetWebhook handles POST /telegram/set_webhook.
func (h *AdminHandler) SetWebhook(c *gin.Context) {
	if !h.authorized(c) {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid admin secret")
		return
	}

	var req setWebhookRequest
	// Body is optional; ignore binding errors and fall back to config.
	_ = c.ShouldBindJSON(&req)
	url := req.URL
	if url == "" {
		url = h.WebhookURL
	}
	if url == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no webhook url configured or provided")
		return
	}

	if err := h.Telegram.SetWebhook(c.Request.Context(), url, h.WebhookSecret); err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Str("url", url).Msg("set webhook failed")
		fail(c, http.StatusBadGateway, ErrCodeWebhookFailed, "could not register webhook with telegram")
		return
	}
	ok(c, http.StatusOK, gin.H{"status": "ok", "url": url})
}

// WebhookInfo handles GET /telegram/webhook_info.
func (h *AdminHandler) WebhookInfo(c *gin.Context) {
	if !h.authorized(c) {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid admin secret")
		return
	}

	info, err := h.Telegram.WebhookInfo(c.Request.Context())
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("webhook info failed")
		fail(c, http.StatusBadGateway, ErrCodeWebhookFailed, "could not fetch webhook info from telegram")
		return
	}
	ok(c, http.StatusOK, info)
}

// DeleteWebhook handles DELETE /telegram/webhook. The drop_pending_updates
// query parameter additionally discards queued updates on Telegram's side.
func (h *AdminHandler) DeleteWebhook(c *gin.Context) {
	if !h.authorized(c) {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid admin secret")
		return
	}

	dropPending := c.Query("drop_pending_updates") == "true"
	if err := h.Telegram.DeleteWebhook(c.Request.Context(), dropPending); err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("delete webhook failed")
		fail(c, http.StatusBadGateway, ErrCodeWebhookFailed, "could not delete webhook with telegram")
		return
	}
	ok(c, http.StatusOK, gin.H{"status": "ok", "dropped_pending_updates": dropPending})
}
