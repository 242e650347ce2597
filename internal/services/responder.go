package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jarekbird/telegram-receiver/internal/domain"
	"github.com/jarekbird/telegram-receiver/internal/speech"
	"github.com/jarekbird/telegram-receiver/internal/telegram"
)

// Responder renders a reply back to a chat, either as plain HTML text or as
// synthesized speech when the originating message was audio and voice output
// is not disabled.
//
// Voice delivery is best-effort: a synthesis or voice-send failure falls back
// to sending the original text instead of surfacing an error. The generated
// audio file is removed on every exit path.
type Responder struct {
	Telegram    telegram.API
	Synthesizer speech.Synthesizer
	Settings    SettingsProvider
	Logger      zerolog.Logger
}

// Reply delivers text to chatID. When originalWasAudio is true and the
// audio-output flag has not been disabled, the reply is synthesized and sent
// as a voice message, falling back to text on any failure along the way.
func (r *Responder) Reply(ctx context.Context, chatID int64, text string, originalWasAudio bool) error {
	if originalWasAudio && !r.Settings.Enabled(ctx, domain.SettingAudioOutputDisabled) {
		if r.replyVoice(ctx, chatID, text) {
			return nil
		}
	}
	return r.Telegram.SendMessage(ctx, chatID, text)
}

// replyVoice attempts the synthesize-and-send path and reports whether the
// voice message went out.
func (r *Responder) replyVoice(ctx context.Context, chatID int64, text string) bool {
	path, cleanup, err := r.Synthesizer.Synthesize(ctx, text)
	if err != nil {
		r.Logger.Warn().Err(err).Int64("chat_id", chatID).Msg("speech synthesis failed, falling back to text")
		return false
	}
	defer cleanup()

	if err := r.Telegram.SendVoice(ctx, chatID, path); err != nil {
		r.Logger.Warn().Err(err).Int64("chat_id", chatID).Msg("voice send failed, falling back to text")
		return false
	}
	return true
}
