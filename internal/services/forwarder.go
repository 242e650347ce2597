package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jarekbird/telegram-receiver/internal/domain"
	"github.com/jarekbird/telegram-receiver/internal/extapi"
	"github.com/jarekbird/telegram-receiver/internal/runner"
	"github.com/jarekbird/telegram-receiver/internal/telegram"
)

// ForwardOutcome is the handled result of a forward attempt. A classified
// service failure is reported as ForwardFailed rather than an error: the
// caller notifies the chat and treats the update as handled, so no
// local-command fallback reply is produced for it.
type ForwardOutcome int

const (
	// ForwardAccepted means the runner accepted the task; the reply arrives
	// later through the callback endpoint.
	ForwardAccepted ForwardOutcome = iota
	// ForwardFailed means the runner call failed with a classified service
	// error. The pending record has been removed (best-effort).
	ForwardFailed
)

// Forwarder submits a prompt to the automation service and tracks it for
// later correlation.
type Forwarder interface {
	Forward(ctx context.Context, ref domain.ChatRef, prompt string, originalWasAudio bool) (ForwardOutcome, error)
}

// PendingWriter is the slice of the pending-request store the forwarder
// needs.
type PendingWriter interface {
	Put(ctx context.Context, req *domain.PendingRequest) error
	Delete(ctx context.Context, requestID string) error
}

// AutomationForwarder implements Forwarder against the cursor-runner client
// and the Redis pending-request store.
type AutomationForwarder struct {
	Runner   runner.Client
	Pending  PendingWriter
	Settings SettingsProvider
	Telegram telegram.API
	Logger   zerolog.Logger
}

// Forward stores a pending request and submits the prompt as an iterate
// task. The record is written before the remote call so that a crash between
// store and call still expires cleanly via TTL.
//
// Unclassified errors (including a failed store write) propagate to the
// caller; classified runner errors are converted into ForwardFailed after a
// best-effort removal of the just-stored record.
func (f *AutomationForwarder) Forward(ctx context.Context, ref domain.ChatRef, prompt string, originalWasAudio bool) (ForwardOutcome, error) {
	requestID := NewRequestID(time.Now())

	req := &domain.PendingRequest{
		RequestID:        requestID,
		ChatID:           ref.ChatID,
		MessageID:        ref.MessageID,
		Prompt:           prompt,
		OriginalWasAudio: originalWasAudio,
		CreatedAt:        time.Now().UTC(),
	}
	if err := f.Pending.Put(ctx, req); err != nil {
		forwardsTotal.WithLabelValues("error").Inc()
		return ForwardFailed, fmt.Errorf("store pending request: %w", err)
	}

	if f.Settings.Enabled(ctx, domain.SettingForwardDebugAck) {
		if err := f.Telegram.SendMessage(ctx, ref.ChatID, ProcessingAck); err != nil {
			f.Logger.Warn().Err(err).Int64("chat_id", ref.ChatID).Msg("debug ack send failed")
		}
	}

	if err := f.Runner.Iterate(ctx, prompt, requestID); err != nil {
		if !extapi.IsClassified(err) {
			forwardsTotal.WithLabelValues("error").Inc()
			return ForwardFailed, err
		}

		f.Logger.Warn().Err(err).
			Str("request_id", requestID).
			Str("error_kind", string(extapi.KindOf(err))).
			Int64("chat_id", ref.ChatID).
			Msg("automation forward failed")

		if delErr := f.Pending.Delete(ctx, requestID); delErr != nil {
			f.Logger.Warn().Err(delErr).Str("request_id", requestID).Msg("pending request cleanup failed")
		}
		forwardsTotal.WithLabelValues("failed").Inc()
		return ForwardFailed, nil
	}

	f.Logger.Info().
		Str("request_id", requestID).
		Int64("chat_id", ref.ChatID).
		Bool("original_was_audio", originalWasAudio).
		Msg("prompt forwarded to automation service")
	forwardsTotal.WithLabelValues("accepted").Inc()
	return ForwardAccepted, nil
}

// NewRequestID builds the correlation key for a forward attempt:
// "telegram-" + unix seconds + "-" + 8 random hex chars. The random suffix
// keeps IDs unique across forwards within the same second.
func NewRequestID(now time.Time) string {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("telegram-%d-%s", now.Unix(), hex.EncodeToString(buf[:]))
}
