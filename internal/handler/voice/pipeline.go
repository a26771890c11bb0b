package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/haley/backend/internal/model/chat"
	"github.com/zhouzirui/haley/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/haley/backend/internal/service/chat"
	"github.com/zhouzirui/haley/backend/internal/service/speech"
)

const (
	pongWait     = 60 * time.Second
	pingPeriod   = 54 * time.Second
	writeWait    = 10 * time.Second
	inboundQueue = 16
)

// audioErrorMessage is what the browser sees when synthesis fails; details stay in the log.
const audioErrorMessage = "Sorry, I couldn't generate audio for that reply."

// ErrResponderUnavailable is returned when no language model could be configured.
var ErrResponderUnavailable = errors.New("language model unavailable")

// Responder produces the assistant reply for a user message given prior turns.
type Responder interface {
	Reply(ctx context.Context, history []chat.Turn, userText string) (string, error)
}

// unavailableResponder stands in when the language model failed to initialise,
// so the failure surfaces on first use as the fallback reply.
type unavailableResponder struct{}

func (unavailableResponder) Reply(context.Context, []chat.Turn, string) (string, error) {
	return "", ErrResponderUnavailable
}

// PipelineHandler relays browser text to the LLM and streams synthesized audio back.
type PipelineHandler struct {
	sessions  *chatservice.Service
	responder Responder
	tts       *speech.Client
	voice     string
	upgrader  websocket.Upgrader
}

// NewPipelineHandler 创建分段式（LLM + TTS）中继处理器
func NewPipelineHandler(sessions *chatservice.Service, responder Responder, tts *speech.Client, voice string) *PipelineHandler {
	if responder == nil {
		responder = unavailableResponder{}
	}
	return &PipelineHandler{
		sessions:  sessions,
		responder: responder,
		tts:       tts,
		voice:     voice,
		upgrader:  newUpgrader(),
	}
}

// ServeHTTP owns one browser connection and its session for the connection's lifetime.
func (h *PipelineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session, err := h.sessions.Open(ctx)
	if err != nil {
		log.Printf("[websocket] open session failed: %v", err)
		return
	}
	defer h.sessions.Close(context.Background(), session.ID)
	log.Printf("[websocket] new connection session=%s", session.ID)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	inbound := make(chan chat.Envelope, inboundQueue)
	go h.readLoop(cancel, conn, session.ID, inbound)
	go h.pingLoop(ctx, conn)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[websocket] connection closed session=%s", session.ID)
			return
		case env, ok := <-inbound:
			if !ok {
				log.Printf("[websocket] connection closed session=%s", session.ID)
				return
			}
			h.handleEnvelope(ctx, conn, session.ID, env)
		}
	}
}

// readLoop keeps reading while replies are being produced so that a browser
// disconnect cancels ctx and aborts any in-flight upstream call. Messages that
// arrive while the queue is full are dropped.
func (h *PipelineHandler) readLoop(cancel context.CancelFunc, conn *websocket.Conn, sessionID string, inbound chan<- chat.Envelope) {
	defer close(inbound)
	defer cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Printf("[websocket] read error session=%s: %v", sessionID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var env chat.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("[websocket] ignoring malformed message session=%s: %v", sessionID, err)
			continue
		}

		// Never block here: pong handling and disconnect detection both depend on this loop reading.
		select {
		case inbound <- env:
		default:
			log.Printf("[websocket] inbound queue full, dropping %s session=%s", env.Type, sessionID)
		}
	}
}

func (h *PipelineHandler) handleEnvelope(ctx context.Context, conn *websocket.Conn, sessionID string, env chat.Envelope) {
	switch env.Type {
	case chat.TypeUserMessage:
		h.handleUserMessage(ctx, conn, sessionID, env.Text)
	default:
		log.Printf("[websocket] ignoring message type=%q session=%s", env.Type, sessionID)
	}
}

func (h *PipelineHandler) handleUserMessage(ctx context.Context, conn *websocket.Conn, sessionID, raw string) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}

	if err := send(conn, chat.Envelope{Type: chat.TypeUserTranscript, Text: text}); err != nil {
		return
	}

	history, err := h.sessions.History(ctx, sessionID)
	if err != nil {
		log.Printf("[websocket] load history failed session=%s: %v", sessionID, err)
		return
	}
	if err := h.sessions.Append(ctx, sessionID, chat.Turn{Role: chat.RoleUser, Text: text}); err != nil {
		log.Printf("[websocket] save user turn failed session=%s: %v", sessionID, err)
	}

	reply, err := h.responder.Reply(ctx, history, text)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("[websocket] reply failed session=%s: %v", sessionID, err)
		reply = ai.FallbackReply
	}

	if err := h.sessions.Append(ctx, sessionID, chat.Turn{Role: chat.RoleAssistant, Text: reply}); err != nil {
		log.Printf("[websocket] save assistant turn failed session=%s: %v", sessionID, err)
	}

	if err := send(conn, chat.Envelope{Type: chat.TypeAssistantMessage, Text: reply}); err != nil {
		return
	}

	h.streamAudio(ctx, conn, sessionID, reply)
}

// streamAudio relays one synthesis. Failures end this stream with audio_error
// and leave the session running.
func (h *PipelineHandler) streamAudio(ctx context.Context, conn *websocket.Conn, sessionID, text string) {
	if err := send(conn, chat.Envelope{Type: chat.TypeAudioStart}); err != nil {
		return
	}

	if h.tts == nil {
		log.Printf("[tts] no client configured session=%s", sessionID)
		send(conn, chat.Envelope{Type: chat.TypeAudioError, Message: audioErrorMessage})
		return
	}

	stream, err := h.tts.Stream(ctx, text, h.voice)
	if err != nil {
		log.Printf("[tts] synthesis failed session=%s: %v", sessionID, err)
		if ctx.Err() == nil {
			send(conn, chat.Envelope{Type: chat.TypeAudioError, Message: audioErrorMessage})
		}
		return
	}
	defer stream.Close()

	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Printf("[tts] stream interrupted session=%s after %d bytes: %v", sessionID, stream.Total(), err)
			if ctx.Err() == nil {
				send(conn, chat.Envelope{Type: chat.TypeAudioError, Message: audioErrorMessage})
			}
			return
		}
		if err := send(conn, chat.Envelope{Type: chat.TypeAudioChunk, Data: base64.StdEncoding.EncodeToString(chunk)}); err != nil {
			return
		}
	}

	send(conn, chat.Envelope{Type: chat.TypeAudioEnd})
	log.Printf("[tts] stream finished session=%s bytes=%d", sessionID, stream.Total())
}

// pingLoop 定期发送ping消息
func (h *PipelineHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func send(conn *websocket.Conn, env chat.Envelope) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(env); err != nil {
		log.Printf("[websocket] write %s failed: %v", env.Type, err)
		return err
	}
	return nil
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}
