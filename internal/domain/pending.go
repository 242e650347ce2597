package domain

import "time"

// PendingRequest correlates a prompt forwarded to the automation service with
// the chat that produced it. It is written to the pending-request store before
// the forward call is issued and is consumed exactly once when the matching
// completion callback arrives (or expires via TTL if no callback ever does).
//
// RequestID is the sole correlation key between the synchronous webhook path
// and the asynchronous callback path; it is globally unique per forward
// attempt.
type PendingRequest struct {
	RequestID        string    `json:"request_id"`
	ChatID           int64     `json:"chat_id"`
	MessageID        int       `json:"message_id"`
	Prompt           string    `json:"prompt"`
	OriginalWasAudio bool      `json:"original_was_audio"`
	CreatedAt        time.Time `json:"created_at"`
}
