package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/jarekbird/telegram-receiver/internal/extapi"
)

func TestSynthesize_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/speech" {
			t.Errorf("path = %s, want /speech", r.URL.Path)
		}
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if req.Text != "hello there" {
			t.Errorf("text = %q", req.Text)
		}
		w.Write([]byte("OggS synthesized audio"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	sy := &HTTPSynthesizer{BaseURL: srv.URL, TempDir: dir}

	path, cleanup, err := sy.Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.HasSuffix(path, ".ogg") {
		t.Errorf("generated file %q lacks .ogg suffix", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read generated file: %v", err)
	}
	if string(data) != "OggS synthesized audio" {
		t.Errorf("file content = %q", data)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cleanup did not remove the generated file")
	}
	cleanup() // safe to call twice
}

func TestSynthesize_ServerError_ClassifiedAsSynthesis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sy := &HTTPSynthesizer{BaseURL: srv.URL, TempDir: t.TempDir()}
	_, _, err := sy.Synthesize(context.Background(), "hello")
	if extapi.KindOf(err) != extapi.KindSynthesis {
		t.Fatalf("kind = %q, want synthesis (err=%v)", extapi.KindOf(err), err)
	}
}

func TestSynthesize_ConnectionFailure_Classified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	sy := &HTTPSynthesizer{BaseURL: srv.URL, TempDir: t.TempDir()}
	_, _, err := sy.Synthesize(context.Background(), "hello")
	if !extapi.IsClassified(err) {
		t.Fatalf("transport failure must be classified, got %v", err)
	}
}

func TestSynthesize_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("audio"))
	}))
	defer srv.Close()

	sy := &HTTPSynthesizer{BaseURL: srv.URL, APIKey: "key-2", TempDir: t.TempDir()}
	_, cleanup, err := sy.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	defer cleanup()
	if gotAuth != "Bearer key-2" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}
