package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jarekbird/telegram-receiver/internal/extapi"
)

// Synthesizer converts text into a local OGG voice file.
type Synthesizer interface {
	// Synthesize returns the path of the generated audio file and a cleanup
	// func that removes it. The cleanup func is non-nil whenever err is nil
	// and is safe to call more than once.
	Synthesize(ctx context.Context, text string) (path string, cleanup func(), err error)
}

// HTTPSynthesizer calls a text-to-speech REST endpoint with a JSON body of
// the form {"text": "..."} and streams the audio response to a temp file.
type HTTPSynthesizer struct {
	// BaseURL is the root of the synthesis service, without trailing slash.
	BaseURL string
	// APIKey, when set, is sent as a bearer token.
	APIKey string
	// TempDir is where generated audio files land (OS default when empty).
	TempDir string
	// HTTPClient defaults to a client with a 60s timeout.
	HTTPClient *http.Client
}

type synthesisRequest struct {
	Text string `json:"text"`
}

// Synthesize generates a voice file for text.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) (string, func(), error) {
	const op = "synthesize"

	payload, err := json.Marshal(synthesisRequest{Text: text})
	if err != nil {
		return "", nil, extapi.New(extapi.KindSynthesis, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/speech", bytes.NewReader(payload))
	if err != nil {
		return "", nil, extapi.New(extapi.KindSynthesis, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return "", nil, extapi.Classify(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, extapi.Newf(extapi.KindSynthesis, op, "synthesis service returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(s.TempDir, "telegram-voice-*.ogg")
	if err != nil {
		return "", nil, extapi.New(extapi.KindSynthesis, op, err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, extapi.Classify(op, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, extapi.New(extapi.KindSynthesis, op, err)
	}

	var once sync.Once
	cleanup := func() { once.Do(func() { os.Remove(tmp.Name()) }) }
	return tmp.Name(), cleanup, nil
}

func (s *HTTPSynthesizer) client() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}
