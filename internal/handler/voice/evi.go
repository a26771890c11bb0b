package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/haley/backend/internal/config"
)

// Dialer opens the upstream websocket. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

type audioSettings struct {
	Encoding   string `json:"encoding"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sample_rate"`
}

type sessionSettings struct {
	Type  string        `json:"type"`
	Audio audioSettings `json:"audio"`
}

// defaultSessionSettings announces 16kHz mono linear PCM from the browser microphone.
var defaultSessionSettings = sessionSettings{
	Type: "session_settings",
	Audio: audioSettings{
		Encoding:   "linear16",
		Channels:   1,
		SampleRate: 16000,
	},
}

// EVIHandler bridges a browser websocket to a Hume EVI chat socket.
type EVIHandler struct {
	cfg      config.HumeConfig
	dialer   Dialer
	upgrader websocket.Upgrader
}

// NewEVIHandler 创建 EVI 中继处理器；dialer 为空时使用默认拨号器
func NewEVIHandler(cfg config.HumeConfig, dialer Dialer) *EVIHandler {
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 30 * time.Second,
		}
	}
	return &EVIHandler{
		cfg:      cfg,
		dialer:   dialer,
		upgrader: newUpgrader(),
	}
}

func (h *EVIHandler) upstreamURL() (string, error) {
	u, err := url.Parse(h.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid HUME_EVI_URL: %w", err)
	}
	q := u.Query()
	q.Set("api_key", h.cfg.APIKey)
	q.Set("config_id", h.cfg.ConfigID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ServeHTTP upgrades the browser connection and relays until either side closes.
func (h *EVIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	browser, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer browser.Close()

	upstreamURL, err := h.upstreamURL()
	if err != nil {
		log.Printf("[relay] %v", err)
		closeWithReason(browser, websocket.CloseInternalServerErr, "upstream misconfigured")
		return
	}

	upstream, _, err := h.dialer.DialContext(r.Context(), upstreamURL, nil)
	if err != nil {
		log.Printf("[relay] connect to Hume EVI failed: %v", err)
		closeWithReason(browser, websocket.CloseInternalServerErr, "upstream unavailable")
		return
	}
	defer upstream.Close()
	log.Println("[relay] connected to Hume EVI")

	if h.cfg.MaxMessageSize > 0 {
		upstream.SetReadLimit(h.cfg.MaxMessageSize)
	}

	if err := upstream.WriteJSON(defaultSessionSettings); err != nil {
		log.Printf("[relay] send session settings failed: %v", err)
		closeWithReason(browser, websocket.CloseInternalServerErr, "upstream rejected session settings")
		return
	}
	log.Println("[relay] sent session settings to Hume EVI")

	relay(browser, upstream)
}

// relay runs both forwarding directions and returns once both have stopped.
// The first direction to finish closes both sockets, which unblocks the other.
func relay(browser, upstream *websocket.Conn) {
	done := make(chan string, 2)

	go func() {
		err := forwardBrowserToUpstream(browser, upstream)
		log.Printf("[relay] browser->upstream closed: %v", err)
		done <- "browser"
	}()
	go func() {
		err := forwardUpstreamToBrowser(upstream, browser)
		log.Printf("[relay] upstream->browser closed: %v", err)
		done <- "upstream"
	}()

	first := <-done
	log.Printf("[relay] %s side ended, closing both connections", first)
	upstream.Close()
	browser.Close()
	<-done
}

// forwardBrowserToUpstream passes browser text frames through unmodified.
func forwardBrowserToUpstream(browser, upstream *websocket.Conn) error {
	for {
		messageType, data, err := browser.ReadMessage()
		if err != nil {
			return err
		}
		if messageType != websocket.TextMessage {
			log.Printf("[relay] dropping non-text browser frame type=%d size=%d", messageType, len(data))
			continue
		}
		if err := upstream.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
	}
}

// forwardUpstreamToBrowser decodes each upstream frame as JSON and re-emits it.
// A frame that is not JSON ends the relay.
func forwardUpstreamToBrowser(upstream, browser *websocket.Conn) error {
	for {
		_, data, err := upstream.ReadMessage()
		if err != nil {
			return err
		}
		var payload json.RawMessage
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode upstream message: %w", err)
		}
		if err := browser.WriteJSON(payload); err != nil {
			return err
		}
	}
}

func closeWithReason(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		log.Printf("[websocket] write close frame failed: %v", err)
	}
}
