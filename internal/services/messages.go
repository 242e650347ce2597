// Package services implements the relay's business logic: the per-update
// message handler, the automation forwarder, the reply responder, and the
// feature-flag settings provider.
//
// This file centralizes the fixed user-facing texts so that handler code and
// tests reference a single source. Raw error details are never surfaced to
// end users beyond the truncated transcription notice.
package services

// Fixed chat texts.
const (
	// WelcomeMessage replies to /start and /help.
	WelcomeMessage = "👋 Hi! Send me a prompt (text or voice) and I'll forward it to the automation service.\n\n" +
		"Commands:\n" +
		"/start, /help — show this message\n" +
		"/status — check whether I'm online"

	// StatusMessage replies to /status.
	StatusMessage = "✅ I'm online and ready to help!"

	// TranscriptionEmptyNotice is sent when the speech service returned no text.
	TranscriptionEmptyNotice = "⚠️ I couldn't transcribe your audio message. Please try again."

	// TranscriptionErrorPrefix prefixes the truncated transcription error.
	TranscriptionErrorPrefix = "⚠️ Audio transcription failed: "

	// ForwardErrorNotice is sent when the automation service rejected or
	// could not receive a forwarded prompt.
	ForwardErrorNotice = "⚠️ I couldn't hand your request to the automation service. Please try again later."

	// ProcessingAck is the optional debug acknowledgment sent before a
	// forward completes.
	ProcessingAck = "⏳ Processing your request…"

	// ApologyMessage is the best-effort notice sent when an unexpected error
	// escapes the handler.
	ApologyMessage = "😔 Sorry, something went wrong while processing your message."

	// EchoPrefix prefixes the placeholder reply for non-command, non-forwarded text.
	EchoPrefix = "You said: "

	// EmptyPromptReply answers messages that carry no usable text at all.
	EmptyPromptReply = "I didn't catch that — send me some text or a voice message."

	// CallbackFailedPrefix prefixes the reply for a failed automation run.
	CallbackFailedPrefix = "⚠️ The automation task failed: "

	// CallbackEmptyOutput stands in when a completed run produced no output.
	CallbackEmptyOutput = "✅ Done — the automation task completed without output."
)

// NoticeMaxLen caps how much of an adapter error is echoed into a chat notice.
const NoticeMaxLen = 4000
