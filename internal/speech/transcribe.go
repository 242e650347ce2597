// Package speech contains the two speech adapters: a transcriber that turns a
// downloaded audio file into text, and a synthesizer that turns reply text
// into a voice file. Both call external REST services and report failures
// through the classified error taxonomy in internal/extapi.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jarekbird/telegram-receiver/internal/extapi"
)

// Transcriber converts a local audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// HTTPTranscriber calls a speech-to-text REST endpoint with a multipart file
// upload and expects a JSON body of the form {"text": "..."}.
type HTTPTranscriber struct {
	// BaseURL is the root of the transcription service, without trailing slash.
	BaseURL string
	// APIKey, when set, is sent as a bearer token.
	APIKey string
	// HTTPClient defaults to a client with a 60s timeout.
	HTTPClient *http.Client
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the file at audioPath and returns the recognized text.
// The text may be empty when the service recognized nothing; callers decide
// what an empty transcription means.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	const op = "transcribe"

	f, err := os.Open(audioPath)
	if err != nil {
		return "", extapi.New(extapi.KindTranscription, op, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", extapi.New(extapi.KindTranscription, op, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", extapi.New(extapi.KindTranscription, op, err)
	}
	if err := mw.Close(); err != nil {
		return "", extapi.New(extapi.KindTranscription, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/transcriptions", &body)
	if err != nil {
		return "", extapi.New(extapi.KindTranscription, op, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if t.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.APIKey)
	}

	resp, err := t.client().Do(req)
	if err != nil {
		return "", extapi.Classify(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", extapi.Newf(extapi.KindTranscription, op, "transcription service returned status %d", resp.StatusCode)
	}

	var out transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", extapi.New(extapi.KindInvalidResponse, op, err)
	}
	return out.Text, nil
}

func (t *HTTPTranscriber) client() *http.Client {
	if t.HTTPClient != nil {
		return t.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}
