package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/zhouzirui/haley/backend/internal/config"
)

// ChunkSize bounds the size of each audio chunk handed to callers.
const ChunkSize = 4096

// ErrNotConfigured is returned when no TTS API key is configured.
var ErrNotConfigured = errors.New("tts api key is not configured")

// StatusError reports a non-success HTTP status from the TTS endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tts request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("tts request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client 流式语音合成 HTTP 客户端
type Client struct {
	cfg        config.TTSConfig
	httpClient *http.Client
}

// NewClient 创建流式语音合成客户端
func NewClient(cfg config.TTSConfig) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewClientWithHTTP allows tests to inject an http.Client.
func NewClientWithHTTP(cfg config.TTSConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// Stream starts a synthesis request and returns the chunked audio body.
// A non-2xx status is returned as *StatusError before any audio is produced.
func (c *Client) Stream(ctx context.Context, text, voice string) (*AudioStream, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("tts text is empty")
	}
	if voice == "" {
		voice = c.cfg.Voice
	}

	body, err := json.Marshal(speechRequest{
		Model:          c.cfg.Model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: c.cfg.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build tts request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	log.Printf("[tts] stream opened voice=%s chars=%d latency=%s", voice, len(text), time.Since(start).Round(time.Millisecond))
	return &AudioStream{body: resp.Body, buf: make([]byte, ChunkSize)}, nil
}

const maxEmptyReads = 100

// AudioStream yields the raw audio body in chunks of at most ChunkSize bytes.
type AudioStream struct {
	body  io.ReadCloser
	buf   []byte
	total int
}

// Next returns the next chunk, or io.EOF once the body is drained.
// The returned slice is only valid until the following call.
// A body that keeps returning no data and no error yields io.ErrNoProgress.
func (s *AudioStream) Next() ([]byte, error) {
	for i := 0; i < maxEmptyReads; i++ {
		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.total += n
			return s.buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, io.ErrNoProgress
}

// Total reports how many audio bytes have been read so far.
func (s *AudioStream) Total() int {
	return s.total
}

// Close releases the response body.
func (s *AudioStream) Close() error {
	return s.body.Close()
}
