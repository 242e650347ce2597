package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/jarekbird/telegram-receiver/internal/domain"
	"github.com/jarekbird/telegram-receiver/internal/extapi"
	"github.com/jarekbird/telegram-receiver/internal/speech"
	"github.com/jarekbird/telegram-receiver/internal/telegram"
	"github.com/jarekbird/telegram-receiver/internal/utils"
)

// Reserved local commands, matched as a case-insensitive prefix. A prompt
// matching one of these is never forwarded to the automation service.
var (
	localCommandRE = regexp.MustCompile(`(?i)^/(start|help|status)`)
	welcomeRE      = regexp.MustCompile(`(?i)^/(start|help)`)
	statusRE       = regexp.MustCompile(`(?i)^/status`)
)

// MessageHandler executes exactly one action per incoming update: reply as a
// local command, forward to the automation service, or nothing (logged).
//
// Processing for message and edited_message updates:
//  1. Detect an audio attachment and record originalWasAudio before any
//     mutation.
//  2. If audio is present, download and transcribe it, replacing the message
//     text with the result. Empty or failed transcription sends a notice and
//     stops.
//  3. Non-blank text that is not a reserved command is forwarded; both an
//     accepted forward and a classified forward failure short-circuit the
//     handler (the failure is handled, not re-raised).
//  4. Everything else gets a local reply, rendered as voice when the
//     original was audio and voice output is enabled.
//
// Errors escaping these steps are caught once in Handle, which logs them,
// sends a best-effort apology to the chat, and re-raises so the dispatcher
// can apply its retry policy.
type MessageHandler struct {
	Telegram    telegram.API
	Transcriber speech.Transcriber
	Responder   *Responder
	Forwarder   Forwarder
	Logger      zerolog.Logger
}

// Handle routes one update. It returns nil for handled updates (including
// handled failures that were reported to the chat) and an error only when an
// unexpected failure should count against the dispatcher's retry budget.
func (h *MessageHandler) Handle(ctx context.Context, upd *models.Update) error {
	kind := domain.ClassifyUpdate(upd)
	updatesRouted.WithLabelValues(kind.String()).Inc()

	var err error
	switch kind {
	case domain.UpdateMessage, domain.UpdateEditedMessage:
		err = h.handleMessage(ctx, domain.PrimaryMessage(upd))
	case domain.UpdateCallbackQuery:
		err = h.handleCallbackQuery(ctx, upd.CallbackQuery)
	default:
		h.Logger.Info().Int64("update_id", upd.ID).Msg("unhandled update shape")
		return nil
	}

	if err != nil {
		h.Logger.Error().Err(err).
			Int64("update_id", upd.ID).
			Str("kind", kind.String()).
			Msg("update handling failed")
		if ref, ok := domain.ExtractChatRef(upd); ok {
			if sendErr := h.Telegram.SendMessage(ctx, ref.ChatID, ApologyMessage); sendErr != nil {
				h.Logger.Warn().Err(sendErr).Int64("chat_id", ref.ChatID).Msg("apology send failed")
			}
		}
		return err
	}
	return nil
}

func (h *MessageHandler) handleMessage(ctx context.Context, m *models.Message) error {
	ref := domain.ChatRef{ChatID: m.Chat.ID, MessageID: m.ID}

	fileID, hasAudio := domain.AudioFileID(m)
	originalWasAudio := hasAudio

	text := m.Text
	if hasAudio {
		transcript, err := h.transcribe(ctx, fileID)
		if err != nil {
			if extapi.IsClassified(err) {
				notice := TranscriptionErrorPrefix + utils.Truncate(err.Error(), NoticeMaxLen)
				return h.Telegram.SendMessage(ctx, ref.ChatID, notice)
			}
			return err
		}
		if strings.TrimSpace(transcript) == "" {
			transcriptionsTotal.WithLabelValues("empty").Inc()
			return h.Telegram.SendMessage(ctx, ref.ChatID, TranscriptionEmptyNotice)
		}
		transcriptionsTotal.WithLabelValues("ok").Inc()
		// The transcription replaces the message text from here on.
		text = transcript
	}

	return h.routeText(ctx, ref, text, originalWasAudio)
}

// handleCallbackQuery acknowledges the press (best-effort) and runs the
// forward-or-local-command flow with the callback's data as the prompt.
func (h *MessageHandler) handleCallbackQuery(ctx context.Context, cq *models.CallbackQuery) error {
	if err := h.Telegram.AnswerCallbackQuery(ctx, cq.ID); err != nil {
		h.Logger.Warn().Err(err).Str("callback_query_id", cq.ID).Msg("callback acknowledgment failed")
	}

	m := cq.Message.Message
	if m == nil {
		h.Logger.Info().Str("callback_query_id", cq.ID).Msg("callback query carries no accessible message")
		return nil
	}

	ref := domain.ChatRef{ChatID: m.Chat.ID, MessageID: m.ID}
	return h.routeText(ctx, ref, cq.Data, false)
}

// routeText decides between forwarding and local command handling for the
// (possibly transcription-replaced) text of an update.
func (h *MessageHandler) routeText(ctx context.Context, ref domain.ChatRef, text string, originalWasAudio bool) error {
	trimmed := strings.TrimSpace(text)

	if trimmed != "" && !localCommandRE.MatchString(trimmed) {
		outcome, err := h.Forwarder.Forward(ctx, ref, trimmed, originalWasAudio)
		if err != nil {
			return err
		}
		if outcome == ForwardFailed {
			return h.Telegram.SendMessage(ctx, ref.ChatID, ForwardErrorNotice)
		}
		// Accepted: the reply arrives later through the callback path.
		return nil
	}

	return h.Responder.Reply(ctx, ref.ChatID, localReply(trimmed), originalWasAudio)
}

func (h *MessageHandler) transcribe(ctx context.Context, fileID string) (string, error) {
	path, cleanup, err := h.Telegram.DownloadFile(ctx, fileID)
	if err != nil {
		transcriptionsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	defer cleanup()

	text, err := h.Transcriber.Transcribe(ctx, path)
	if err != nil {
		transcriptionsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	return text, nil
}

// localReply maps a non-forwarded prompt to its fixed response.
func localReply(trimmed string) string {
	switch {
	case trimmed == "":
		return EmptyPromptReply
	case welcomeRE.MatchString(trimmed):
		return WelcomeMessage
	case statusRE.MatchString(trimmed):
		return StatusMessage
	default:
		return EchoPrefix + trimmed
	}
}
