package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/jarekbird/telegram-receiver/internal/domain"
	"github.com/jarekbird/telegram-receiver/internal/extapi"
)

// ---------------------------------------------------------------------------
// Fakes shared by the service tests.
// ---------------------------------------------------------------------------

type sentMessage struct {
	chatID int64
	text   string
}

// fakeTelegram records outbound Telegram calls and returns configured errors.
type fakeTelegram struct {
	messages []sentMessage
	voices   []sentMessage
	acks     []string

	sendErr  error
	voiceErr error
	ackErr   error

	downloadPath string
	downloadErr  error
	cleanups     int
}

func (f *fakeTelegram) SendMessage(_ context.Context, chatID int64, text string) error {
	f.messages = append(f.messages, sentMessage{chatID: chatID, text: text})
	return f.sendErr
}

func (f *fakeTelegram) SendVoice(_ context.Context, chatID int64, path string) error {
	f.voices = append(f.voices, sentMessage{chatID: chatID, text: path})
	return f.voiceErr
}

func (f *fakeTelegram) AnswerCallbackQuery(_ context.Context, id string) error {
	f.acks = append(f.acks, id)
	return f.ackErr
}

func (f *fakeTelegram) DownloadFile(_ context.Context, fileID string) (string, func(), error) {
	if f.downloadErr != nil {
		return "", nil, f.downloadErr
	}
	return f.downloadPath, func() { f.cleanups++ }, nil
}

func (f *fakeTelegram) SetWebhook(_ context.Context, _, _ string) error    { return nil }
func (f *fakeTelegram) DeleteWebhook(_ context.Context, _ bool) error      { return nil }
func (f *fakeTelegram) WebhookInfo(_ context.Context) (*models.WebhookInfo, error) {
	return &models.WebhookInfo{}, nil
}

type fakeTranscriber struct {
	text  string
	err   error
	paths []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	f.paths = append(f.paths, path)
	return f.text, f.err
}

type fakeSynthesizer struct {
	path     string
	err      error
	cleanups int
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _ string) (string, func(), error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.path, func() { f.cleanups++ }, nil
}

type forwardCall struct {
	ref    domain.ChatRef
	prompt string
	audio  bool
}

type fakeForwarder struct {
	outcome ForwardOutcome
	err     error
	calls   []forwardCall
}

func (f *fakeForwarder) Forward(_ context.Context, ref domain.ChatRef, prompt string, audio bool) (ForwardOutcome, error) {
	f.calls = append(f.calls, forwardCall{ref: ref, prompt: prompt, audio: audio})
	return f.outcome, f.err
}

func newTestHandler(tg *fakeTelegram, tr *fakeTranscriber, fw *fakeForwarder, flags StaticSettings) *MessageHandler {
	return &MessageHandler{
		Telegram:    tg,
		Transcriber: tr,
		Responder: &Responder{
			Telegram:    tg,
			Synthesizer: &fakeSynthesizer{path: "/tmp/voice.ogg"},
			Settings:    flags,
			Logger:      zerolog.Nop(),
		},
		Forwarder: fw,
		Logger:    zerolog.Nop(),
	}
}

func textUpdate(chatID int64, msgID int, text string) *models.Update {
	return &models.Update{
		ID:      1,
		Message: &models.Message{ID: msgID, Chat: models.Chat{ID: chatID}, Text: text},
	}
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

func TestHandle_StatusCommand_RepliesLocallyWithoutForward(t *testing.T) {
	tg := &fakeTelegram{}
	fw := &fakeForwarder{}
	h := newTestHandler(tg, &fakeTranscriber{}, fw, StaticSettings{})

	if err := h.Handle(context.Background(), textUpdate(42, 7, "/status")); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(fw.calls) != 0 {
		t.Fatalf("reserved command must not be forwarded, got %d forwards", len(fw.calls))
	}
	if len(tg.messages) != 1 || tg.messages[0].text != StatusMessage {
		t.Fatalf("expected status reply, got %+v", tg.messages)
	}
	if tg.messages[0].chatID != 42 {
		t.Fatalf("reply sent to chat %d, want 42", tg.messages[0].chatID)
	}
}

func TestHandle_CommandsAreCaseInsensitive(t *testing.T) {
	for _, cmd := range []string{"/START", "/Help", "/STATUS", "/status@my_bot"} {
		tg := &fakeTelegram{}
		fw := &fakeForwarder{}
		h := newTestHandler(tg, &fakeTranscriber{}, fw, StaticSettings{})

		if err := h.Handle(context.Background(), textUpdate(1, 1, cmd)); err != nil {
			t.Fatalf("%s: Handle returned error: %v", cmd, err)
		}
		if len(fw.calls) != 0 {
			t.Errorf("%s: reserved command was forwarded", cmd)
		}
		if len(tg.messages) != 1 {
			t.Errorf("%s: expected exactly one local reply, got %d", cmd, len(tg.messages))
		}
	}
}

func TestHandle_TextPrompt_Forwarded(t *testing.T) {
	tg := &fakeTelegram{}
	fw := &fakeForwarder{outcome: ForwardAccepted}
	h := newTestHandler(tg, &fakeTranscriber{}, fw, StaticSettings{})

	if err := h.Handle(context.Background(), textUpdate(42, 7, "  Build me a login page  ")); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(fw.calls) != 1 {
		t.Fatalf("expected 1 forward, got %d", len(fw.calls))
	}
	call := fw.calls[0]
	if call.prompt != "Build me a login page" {
		t.Errorf("prompt not trimmed: %q", call.prompt)
	}
	if call.ref.ChatID != 42 || call.ref.MessageID != 7 {
		t.Errorf("wrong chat ref: %+v", call.ref)
	}
	if call.audio {
		t.Error("text prompt flagged as audio")
	}
	if len(tg.messages) != 0 {
		t.Errorf("accepted forward must not send a reply, got %+v", tg.messages)
	}
}

func TestHandle_ForwardFailed_SendsNoticeAndSucceeds(t *testing.T) {
	tg := &fakeTelegram{}
	fw := &fakeForwarder{outcome: ForwardFailed}
	h := newTestHandler(tg, &fakeTranscriber{}, fw, StaticSettings{})

	if err := h.Handle(context.Background(), textUpdate(42, 7, "deploy")); err != nil {
		t.Fatalf("handled failure must not re-raise, got %v", err)
	}
	if len(tg.messages) != 1 || tg.messages[0].text != ForwardErrorNotice {
		t.Fatalf("expected forward error notice, got %+v", tg.messages)
	}
}

func TestHandle_ForwardError_PropagatesAndApologizes(t *testing.T) {
	tg := &fakeTelegram{}
	fw := &fakeForwarder{outcome: ForwardFailed, err: errors.New("redis down")}
	h := newTestHandler(tg, &fakeTranscriber{}, fw, StaticSettings{})

	err := h.Handle(context.Background(), textUpdate(42, 7, "deploy"))
	if err == nil {
		t.Fatal("expected unclassified error to propagate")
	}
	if len(tg.messages) != 1 || tg.messages[0].text != ApologyMessage {
		t.Fatalf("expected apology, got %+v", tg.messages)
	}
}

func TestHandle_EditedMessage_RoutedLikeMessage(t *testing.T) {
	tg := &fakeTelegram{}
	fw := &fakeForwarder{outcome: ForwardAccepted}
	h := newTestHandler(tg, &fakeTranscriber{}, fw, StaticSettings{})

	upd := &models.Update{
		ID:            2,
		EditedMessage: &models.Message{ID: 9, Chat: models.Chat{ID: 5}, Text: "fix the typo"},
	}
	if err := h.Handle(context.Background(), upd); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(fw.calls) != 1 || fw.calls[0].prompt != "fix the typo" {
		t.Fatalf("edited message not forwarded: %+v", fw.calls)
	}
}

func TestHandle_UnhandledShape_IsNoop(t *testing.T) {
	tg := &fakeTelegram{}
	fw := &fakeForwarder{}
	h := newTestHandler(tg, &fakeTranscriber{}, fw, StaticSettings{})

	if err := h.Handle(context.Background(), &models.Update{ID: 3}); err != nil {
		t.Fatalf("unhandled update must be a noop, got %v", err)
	}
	if len(tg.messages) != 0 || len(fw.calls) != 0 {
		t.Fatal("unhandled update triggered side effects")
	}
}

func TestHandle_EmptyText_GetsFallbackReply(t *testing.T) {
	tg := &fakeTelegram{}
	fw := &fakeForwarder{}
	h := newTestHandler(tg, &fakeTranscriber{}, fw, StaticSettings{})

	if err := h.Handle(context.Background(), textUpdate(1, 1, "   ")); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(fw.calls) != 0 {
		t.Fatal("blank text must not be forwarded")
	}
	if len(tg.messages) != 1 || tg.messages[0].text != EmptyPromptReply {
		t.Fatalf("expected empty-prompt reply, got %+v", tg.messages)
	}
}

// ---------------------------------------------------------------------------
// Audio
// ---------------------------------------------------------------------------

func voiceUpdate(chatID int64, msgID int, fileID string) *models.Update {
	return &models.Update{
		ID: 4,
		Message: &models.Message{
			ID:    msgID,
			Chat:  models.Chat{ID: chatID},
			Voice: &models.Voice{FileID: fileID},
		},
	}
}

func TestHandle_VoiceMessage_TranscribedAndForwarded(t *testing.T) {
	tg := &fakeTelegram{downloadPath: "/tmp/in.oga"}
	tr := &fakeTranscriber{text: "build me a login page"}
	fw := &fakeForwarder{outcome: ForwardAccepted}
	h := newTestHandler(tg, tr, fw, StaticSettings{})

	if err := h.Handle(context.Background(), voiceUpdate(42, 7, "file-1")); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(tr.paths) != 1 || tr.paths[0] != "/tmp/in.oga" {
		t.Fatalf("transcriber got paths %v", tr.paths)
	}
	if tg.cleanups != 1 {
		t.Errorf("downloaded file not cleaned up (cleanups=%d)", tg.cleanups)
	}
	if len(fw.calls) != 1 {
		t.Fatalf("expected 1 forward, got %d", len(fw.calls))
	}
	if fw.calls[0].prompt != "build me a login page" {
		t.Errorf("transcript not used as prompt: %q", fw.calls[0].prompt)
	}
	if !fw.calls[0].audio {
		t.Error("originalWasAudio not recorded for voice message")
	}
}

func TestHandle_VoiceStatusCommand_RepliesWithVoice(t *testing.T) {
	tg := &fakeTelegram{downloadPath: "/tmp/in.oga"}
	tr := &fakeTranscriber{text: "/status"}
	fw := &fakeForwarder{}
	h := newTestHandler(tg, tr, fw, StaticSettings{})

	if err := h.Handle(context.Background(), voiceUpdate(42, 7, "file-1")); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(fw.calls) != 0 {
		t.Fatal("transcribed reserved command must not be forwarded")
	}
	if len(tg.voices) != 1 {
		t.Fatalf("expected a voice reply, got voices=%d messages=%d", len(tg.voices), len(tg.messages))
	}
}

func TestHandle_EmptyTranscription_SendsNotice(t *testing.T) {
	tg := &fakeTelegram{downloadPath: "/tmp/in.oga"}
	tr := &fakeTranscriber{text: "   "}
	fw := &fakeForwarder{}
	h := newTestHandler(tg, tr, fw, StaticSettings{})

	if err := h.Handle(context.Background(), voiceUpdate(42, 7, "file-1")); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(fw.calls) != 0 {
		t.Fatal("empty transcription must not be forwarded")
	}
	if len(tg.messages) != 1 || tg.messages[0].text != TranscriptionEmptyNotice {
		t.Fatalf("expected empty-transcription notice, got %+v", tg.messages)
	}
}

func TestHandle_ClassifiedTranscriptionError_SendsNotice(t *testing.T) {
	tg := &fakeTelegram{downloadPath: "/tmp/in.oga"}
	tr := &fakeTranscriber{err: extapi.Newf(extapi.KindTranscription, "transcribe", "service returned status 503")}
	fw := &fakeForwarder{}
	h := newTestHandler(tg, tr, fw, StaticSettings{})

	if err := h.Handle(context.Background(), voiceUpdate(42, 7, "file-1")); err != nil {
		t.Fatalf("classified failure must be handled, got %v", err)
	}
	if len(tg.messages) != 1 {
		t.Fatalf("expected one notice, got %+v", tg.messages)
	}
	if !strings.HasPrefix(tg.messages[0].text, TranscriptionErrorPrefix) {
		t.Errorf("notice missing prefix: %q", tg.messages[0].text)
	}
	if len(fw.calls) != 0 {
		t.Fatal("failed transcription must not be forwarded")
	}
}

func TestHandle_UnclassifiedTranscriptionError_Propagates(t *testing.T) {
	tg := &fakeTelegram{downloadPath: "/tmp/in.oga"}
	tr := &fakeTranscriber{err: errors.New("disk full")}
	fw := &fakeForwarder{}
	h := newTestHandler(tg, tr, fw, StaticSettings{})

	if err := h.Handle(context.Background(), voiceUpdate(42, 7, "file-1")); err == nil {
		t.Fatal("expected unclassified error to propagate")
	}
	if len(tg.messages) != 1 || tg.messages[0].text != ApologyMessage {
		t.Fatalf("expected apology, got %+v", tg.messages)
	}
}

func TestHandle_ClassifiedDownloadError_SendsNotice(t *testing.T) {
	tg := &fakeTelegram{downloadErr: extapi.Newf(extapi.KindConnection, "download_file", "connect refused")}
	fw := &fakeForwarder{}
	h := newTestHandler(tg, &fakeTranscriber{}, fw, StaticSettings{})

	if err := h.Handle(context.Background(), voiceUpdate(42, 7, "file-1")); err != nil {
		t.Fatalf("classified download failure must be handled, got %v", err)
	}
	if len(tg.messages) != 1 || !strings.HasPrefix(tg.messages[0].text, TranscriptionErrorPrefix) {
		t.Fatalf("expected transcription notice, got %+v", tg.messages)
	}
}

// ---------------------------------------------------------------------------
// Callback queries
// ---------------------------------------------------------------------------

func TestHandle_CallbackQuery_AcksAndForwardsData(t *testing.T) {
	tg := &fakeTelegram{}
	fw := &fakeForwarder{outcome: ForwardAccepted}
	h := newTestHandler(tg, &fakeTranscriber{}, fw, StaticSettings{})

	upd := &models.Update{
		ID: 5,
		CallbackQuery: &models.CallbackQuery{
			ID:   "cbq-1",
			Data: "deploy it",
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{ID: 12, Chat: models.Chat{ID: 99}},
			},
		},
	}
	if err := h.Handle(context.Background(), upd); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(tg.acks) != 1 || tg.acks[0] != "cbq-1" {
		t.Fatalf("callback not acknowledged: %v", tg.acks)
	}
	if len(fw.calls) != 1 || fw.calls[0].prompt != "deploy it" {
		t.Fatalf("callback data not forwarded: %+v", fw.calls)
	}
	if fw.calls[0].audio {
		t.Error("callback query can never be audio")
	}
	if fw.calls[0].ref.ChatID != 99 {
		t.Errorf("wrong chat: %d", fw.calls[0].ref.ChatID)
	}
}

func TestHandle_CallbackQuery_InaccessibleMessage_IsNoop(t *testing.T) {
	tg := &fakeTelegram{}
	fw := &fakeForwarder{}
	h := newTestHandler(tg, &fakeTranscriber{}, fw, StaticSettings{})

	upd := &models.Update{
		ID:            6,
		CallbackQuery: &models.CallbackQuery{ID: "cbq-2", Data: "deploy"},
	}
	if err := h.Handle(context.Background(), upd); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(tg.acks) != 1 {
		t.Fatal("callback still needs an ack")
	}
	if len(fw.calls) != 0 || len(tg.messages) != 0 {
		t.Fatal("inaccessible callback message must stop processing")
	}
}

func TestHandle_CallbackQuery_AckFailureIsNonFatal(t *testing.T) {
	tg := &fakeTelegram{ackErr: errors.New("too old")}
	fw := &fakeForwarder{outcome: ForwardAccepted}
	h := newTestHandler(tg, &fakeTranscriber{}, fw, StaticSettings{})

	upd := &models.Update{
		ID: 7,
		CallbackQuery: &models.CallbackQuery{
			ID:   "cbq-3",
			Data: "retry",
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{ID: 1, Chat: models.Chat{ID: 2}},
			},
		},
	}
	if err := h.Handle(context.Background(), upd); err != nil {
		t.Fatalf("ack failure must not abort handling, got %v", err)
	}
	if len(fw.calls) != 1 {
		t.Fatal("data not forwarded after failed ack")
	}
}

// ---------------------------------------------------------------------------
// Local replies
// ---------------------------------------------------------------------------

func TestLocalReply(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", EmptyPromptReply},
		{"/start", WelcomeMessage},
		{"/help", WelcomeMessage},
		{"/HELP", WelcomeMessage},
		{"/status", StatusMessage},
		{"/StAtUs", StatusMessage},
	}
	for _, tc := range cases {
		if got := localReply(tc.in); got != tc.want {
			t.Errorf("localReply(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := localReply("hello"); got != EchoPrefix+"hello" {
		t.Errorf("localReply(hello) = %q", got)
	}
}
