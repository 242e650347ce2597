// Automation completion callback ingress.
//
// This file exposes POST /cursor-runner/callback: the endpoint the
// automation service invokes when an iterate task finishes. The handler
// authenticates the caller, consumes the matching pending request exactly
// once, and relays the result back to the originating chat: as synthesized
// voice when the original prompt arrived as audio and voice output is
// enabled, otherwise as text.
package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jarekbird/telegram-receiver/internal/domain"
	"github.com/jarekbird/telegram-receiver/internal/http/middleware"
	"github.com/jarekbird/telegram-receiver/internal/services"
	"github.com/jarekbird/telegram-receiver/internal/utils"
)

// runnerSecretHeader authenticates callbacks from the automation service.
const runnerSecretHeader = "X-Cursor-Runner-Secret"

// PendingTaker is the slice of the pending-request store the callback path
// needs: a consume-once lookup.
type PendingTaker interface {
	Take(ctx context.Context, requestID string) (*domain.PendingRequest, error)
}

// Replier renders the relayed result back to the chat.
type Replier interface {
	Reply(ctx context.Context, chatID int64, text string, originalWasAudio bool) error
}

// CallbackHandler receives completion callbacks from the automation service.
type CallbackHandler struct {
	// Secret is the expected X-Cursor-Runner-Secret value. Empty disables
	// authentication (dev mode), mirroring the webhook ingress.
	Secret string
	// Pending consumes the stored correlation record.
	Pending PendingTaker
	// Replies delivers the rendered result.
	Replies Replier
}

// callbackRequest is the JSON body posted by the automation service.
type callbackRequest struct {
	RequestID string `json:"requestId" binding:"required"`
	Status    string `json:"status"`
	Output    string `json:"output"`
	Error     string `json:"error"`
}

// Receive handles POST /cursor-runner/callback.
//
// Responses:
//   - 401 invalid shared secret
//   - 400 undecodable body or missing requestId
//   - 404 no pending request for the ID (expired or already consumed)
//   - 502 the reply could not be delivered to Telegram
//   - 200 result relayed
func (h *CallbackHandler) Receive(c *gin.Context) {
	if h.Secret != "" {
		got := c.GetHeader(runnerSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			services.ObserveCallback("unauthorized")
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid callback secret")
			return
		}
	}

	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		services.ObserveCallback("error")
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid callback body")
		return
	}

	lg := middleware.LoggerFrom(c)

	pending, err := h.Pending.Take(c.Request.Context(), req.RequestID)
	if err != nil {
		services.ObserveCallback("error")
		lg.Error().Err(err).Str("request_id", req.RequestID).Msg("pending request lookup failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "pending request lookup failed")
		return
	}
	if pending == nil {
		services.ObserveCallback("expired")
		lg.Warn().Str("request_id", req.RequestID).Msg("callback for unknown or expired pending request")
		fail(c, http.StatusNotFound, ErrCodeCallbackExpired, "pending request not found or expired")
		return
	}

	text := renderCallbackReply(req)
	if err := h.Replies.Reply(c.Request.Context(), pending.ChatID, text, pending.OriginalWasAudio); err != nil {
		services.ObserveCallback("error")
		lg.Error().Err(err).
			Str("request_id", req.RequestID).
			Int64("chat_id", pending.ChatID).
			Msg("callback reply delivery failed")
		fail(c, http.StatusBadGateway, ErrCodeReplyFailed, "could not deliver reply to telegram")
		return
	}

	services.ObserveCallback("delivered")
	lg.Info().
		Str("request_id", req.RequestID).
		Int64("chat_id", pending.ChatID).
		Str("status", req.Status).
		Bool("original_was_audio", pending.OriginalWasAudio).
		Msg("automation result relayed")
	ok(c, http.StatusOK, gin.H{"status": "ok"})
}

// renderCallbackReply maps a callback body onto the chat reply text.
func renderCallbackReply(req callbackRequest) string {
	if strings.EqualFold(req.Status, "failed") {
		detail := req.Error
		if detail == "" {
			detail = "no details provided"
		}
		return services.CallbackFailedPrefix + utils.Truncate(detail, services.NoticeMaxLen)
	}
	if strings.TrimSpace(req.Output) == "" {
		return services.CallbackEmptyOutput
	}
	return utils.Truncate(req.Output, services.NoticeMaxLen)
}
