package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zhouzirui/haley/backend/internal/config"
)

func testConfig(baseURL string) config.TTSConfig {
	return config.TTSConfig{
		APIKey:  "secret",
		BaseURL: baseURL,
		Model:   "tts-test",
		Voice:   "alloy",
		Format:  "mp3",
		Timeout: 5 * time.Second,
	}
}

func TestStreamSendsRequestAndYieldsChunks(t *testing.T) {
	audio := bytes.Repeat([]byte{0x1, 0x2, 0x3}, ChunkSize)

	var gotAuth string
	var gotBody speechRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	stream, err := client.Stream(context.Background(), "hello", "")
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}
	defer stream.Close()

	var received []byte
	chunks := 0
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next err: %v", err)
		}
		if len(chunk) > ChunkSize {
			t.Fatalf("chunk larger than ChunkSize: %d", len(chunk))
		}
		chunks++
		received = append(received, chunk...)
	}

	if !bytes.Equal(received, audio) {
		t.Fatalf("audio mismatch: got %d bytes want %d", len(received), len(audio))
	}
	if chunks < 3 {
		t.Fatalf("expected the body to be split into several chunks, got %d", chunks)
	}
	if stream.Total() != len(audio) {
		t.Fatalf("unexpected total: %d", stream.Total())
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotBody.Input != "hello" || gotBody.Voice != "alloy" || gotBody.Model != "tts-test" || gotBody.ResponseFormat != "mp3" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
}

func TestStreamReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Stream(context.Background(), "hello", "nova")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", statusErr.StatusCode)
	}
}

func TestStreamValidatesInput(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.APIKey = ""
	if _, err := NewClient(cfg).Stream(context.Background(), "hello", ""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	if _, err := NewClient(testConfig("http://127.0.0.1:1")).Stream(context.Background(), "  ", ""); err == nil {
		t.Fatal("expected error for empty text")
	}
}

type stalledBody struct {
	reads int
}

func (b *stalledBody) Read([]byte) (int, error) {
	b.reads++
	return 0, nil
}

func (b *stalledBody) Close() error { return nil }

func TestNextStopsOnStalledBody(t *testing.T) {
	body := &stalledBody{}
	stream := &AudioStream{body: body, buf: make([]byte, ChunkSize)}

	if _, err := stream.Next(); !errors.Is(err, io.ErrNoProgress) {
		t.Fatalf("expected io.ErrNoProgress, got %v", err)
	}
	if body.reads != maxEmptyReads {
		t.Fatalf("expected %d reads, got %d", maxEmptyReads, body.reads)
	}
}
