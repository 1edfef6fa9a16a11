// Package sink is the output side of the Pipeline Orchestrator (§4.I): it
// hands each TranslatedMessage to whatever local UI layer is listening, over
// a websocket, the way the GUI itself would consume it. The GUI is out of
// scope; this package only owns the transport up to its door. Modeled on
// go-mizu-mizu's chat blueprint connection/hub pair, trimmed to one
// broadcast direction (no per-connection subscriptions, no inbound ops
// beyond ping/pong) since the client only ever receives: translated
// messages, plus periodic status snapshots.
package sink

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wct/internal/domain/chatmsg"
	"wct/internal/infra/logger"
	"wct/internal/status"

	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wireMessage is the JSON shape pushed to every connected client.
type wireMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// wireTranslated mirrors chatmsg.TranslatedMessage with a plain-string
// timestamp and channel name so the client never needs domain knowledge of
// the Channel enum or time.Time's wire format.
type wireTranslated struct {
	Timestamp   string `json:"timestamp"`
	Channel     string `json:"channel"`
	Author      string `json:"author"`
	Server      string `json:"server"`
	Text        string `json:"text"`
	Translated  string `json:"translated,omitempty"`
	SourceLang  string `json:"source_lang,omitempty"`
	TargetLang  string `json:"target_lang,omitempty"`
	Success     bool   `json:"success"`
	ErrorKind   string `json:"error_kind,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

func toWire(m chatmsg.TranslatedMessage) wireTranslated {
	w := wireTranslated{
		Timestamp:  m.Message.Timestamp.Format(chatmsg.TimestampLayout),
		Channel:    m.Message.Channel.String(),
		Author:     m.Message.Author,
		Server:     m.Message.Server,
		Text:       m.Message.Text,
		SourceLang: m.SourceLang,
	}
	if m.Translation != nil {
		w.Translated = m.Translation.TranslatedText
		w.TargetLang = m.Translation.TargetLang
		w.Success = m.Translation.Success
		w.ErrorKind = m.Translation.ErrorKind.String()
		w.ErrorDetail = m.Translation.ErrorDetail
	}
	return w
}

// Hub fans a TranslatedMessage out to every connected websocket client and
// pushes a status snapshot to each client every 2 s. There is no inbound
// command surface the other way; the client is a pure reader.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	checker *status.Checker
}

// New builds a Hub. checker may be nil; no status snapshots are then pushed.
func New(checker *status.Checker) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		checker: checker,
	}
}

// Broadcast hands msg to every currently connected client. Safe to call from
// the pipeline's consumer goroutine as the onMessage callback.
func (h *Hub) Broadcast(msg chatmsg.TranslatedMessage) {
	payload, err := json.Marshal(wireMessage{Type: "message", Data: toWire(msg)})
	if err != nil {
		logger.Warn("sink: marshal message failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.send(payload)
	}
}

// ServeHTTP upgrades the request to a websocket and registers the resulting
// client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("sink: upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, sendCh: make(chan []byte, sendBuffer)}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.closeOnce()
}

// readPump discards anything the client sends besides standard pong frames;
// its only job is to notice disconnects.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	statusTicker := time.NewTicker(2 * time.Second)
	defer statusTicker.Stop()

	for {
		select {
		case message, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-statusTicker.C:
			if h.checker == nil {
				continue
			}
			payload, err := json.Marshal(wireMessage{Type: "status", Data: h.checker.Snapshot().String()})
			if err != nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type client struct {
	conn    *websocket.Conn
	sendCh  chan []byte
	closeMu sync.Once
}

func (c *client) send(payload []byte) {
	select {
	case c.sendCh <- payload:
	default:
		logger.Warn("sink: client send buffer full, dropping message")
	}
}

func (c *client) closeOnce() {
	c.closeMu.Do(func() {
		close(c.sendCh)
	})
}
