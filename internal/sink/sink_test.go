package sink

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"wct/internal/domain/chatmsg"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsToConnectedClient(t *testing.T) {
	h := New(nil)
	conn := dialHub(t, h)

	// Give the server goroutine a moment to register the client.
	time.Sleep(50 * time.Millisecond)

	msg := chatmsg.TranslatedMessage{
		Message: chatmsg.ChatMessage{
			Channel: chatmsg.ChannelSay,
			Author:  "Hero",
			Server:  "Stormrage",
			Text:    "hello",
		},
		Translation: &chatmsg.TranslationOutcome{
			OriginalText:   "hello",
			TranslatedText: "привет",
			SourceLang:     "EN",
			TargetLang:     "RU",
			Success:        true,
		},
		SourceLang: "EN",
	}
	h.Broadcast(msg)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var envelope wireMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Type != "message" {
		t.Fatalf("expected type message, got %q", envelope.Type)
	}
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	h := New(nil)
	conn := dialHub(t, h)
	time.Sleep(50 * time.Millisecond)

	conn.Close()
	time.Sleep(50 * time.Millisecond)

	h.mu.Lock()
	n := len(h.clients)
	h.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected 0 clients after disconnect, got %d", n)
	}
}
