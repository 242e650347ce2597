// Package domain defines the core types of the relay: the classification of
// incoming Telegram updates, the pending-request correlation record, and the
// shared feature-flag model. These types carry no transport or persistence
// behavior of their own.
package domain

import (
	"strings"

	"github.com/go-telegram/bot/models"
)

// UpdateKind identifies which variant of a Telegram update is populated.
// Exactly one variant is set per update; an update with none of the three
// recognized variants is classified as UpdateUnhandled.
type UpdateKind int

const (
	// UpdateUnhandled marks an update carrying none of the recognized variants.
	UpdateUnhandled UpdateKind = iota
	// UpdateMessage marks a plain incoming message.
	UpdateMessage
	// UpdateEditedMessage marks an edit to a previously sent message.
	UpdateEditedMessage
	// UpdateCallbackQuery marks an inline-button press.
	UpdateCallbackQuery
)

// String returns the snake_case name of the kind, suitable for logs and
// metric labels.
func (k UpdateKind) String() string {
	switch k {
	case UpdateMessage:
		return "message"
	case UpdateEditedMessage:
		return "edited_message"
	case UpdateCallbackQuery:
		return "callback_query"
	default:
		return "unhandled"
	}
}

// ClassifyUpdate maps a raw Telegram update onto its variant. Message wins
// over edited_message, which wins over callback_query, mirroring the order
// Telegram itself populates them (at most one is ever set).
func ClassifyUpdate(u *models.Update) UpdateKind {
	switch {
	case u == nil:
		return UpdateUnhandled
	case u.Message != nil:
		return UpdateMessage
	case u.EditedMessage != nil:
		return UpdateEditedMessage
	case u.CallbackQuery != nil:
		return UpdateCallbackQuery
	default:
		return UpdateUnhandled
	}
}

// PrimaryMessage returns the message payload of a message or edited_message
// update, or nil for every other shape.
func PrimaryMessage(u *models.Update) *models.Message {
	switch {
	case u == nil:
		return nil
	case u.Message != nil:
		return u.Message
	case u.EditedMessage != nil:
		return u.EditedMessage
	default:
		return nil
	}
}

// ChatRef locates the chat (and originating message) a reply should target.
type ChatRef struct {
	ChatID    int64
	MessageID int
}

// ExtractChatRef pulls a ChatRef out of a raw update, checking message,
// edited_message, and callback_query.message in that order. The boolean is
// false when no chat can be located (e.g. a callback query whose nested
// message is inaccessible).
func ExtractChatRef(u *models.Update) (ChatRef, bool) {
	if m := PrimaryMessage(u); m != nil {
		return ChatRef{ChatID: m.Chat.ID, MessageID: m.ID}, true
	}
	if u != nil && u.CallbackQuery != nil {
		if m := u.CallbackQuery.Message.Message; m != nil {
			return ChatRef{ChatID: m.Chat.ID, MessageID: m.ID}, true
		}
	}
	return ChatRef{}, false
}

// AudioFileID returns the Telegram file ID of an audio attachment on the
// message, if any. Voice messages win, then the audio field, then a document
// whose MIME type starts with "audio/".
func AudioFileID(m *models.Message) (string, bool) {
	switch {
	case m == nil:
		return "", false
	case m.Voice != nil:
		return m.Voice.FileID, true
	case m.Audio != nil:
		return m.Audio.FileID, true
	case m.Document != nil && strings.HasPrefix(m.Document.MimeType, "audio/"):
		return m.Document.FileID, true
	default:
		return "", false
	}
}
