package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// recordingHandler collects dispatched messages and disconnects.
type recordingHandler struct {
	mu          sync.Mutex
	messages    []any
	disconnects int
}

func (h *recordingHandler) HandleMessage(c *Client, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

func (h *recordingHandler) HandleDisconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnects++
}

func (h *recordingHandler) snapshot() ([]any, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]any(nil), h.messages...), h.disconnects
}

func startHub(t *testing.T, handler Handler) (*Hub, string) {
	t.Helper()

	hub := NewHub(handler)
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEnvelope reads frames until one of the wanted type arrives.
func readEnvelope(t *testing.T, conn *websocket.Conn, want MessageType) Envelope {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read: %v", err)
		}
		if env.Type == want {
			return env
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHubDispatchesToHandler(t *testing.T) {
	handler := &recordingHandler{}
	_, url := startHub(t, handler)
	conn := dial(t, url)

	frame := `{"type":"move","data":{"roomId":"r1","action":"up"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitFor(t, func() bool {
		msgs, _ := handler.snapshot()
		return len(msgs) == 1
	})

	msgs, _ := handler.snapshot()
	move, ok := msgs[0].(*Move)
	if !ok {
		t.Fatalf("got %T", msgs[0])
	}
	if move.RoomID != "r1" || move.Action != "up" {
		t.Errorf("payload = %+v", move)
	}
}

func TestHubRejectsMalformedFrame(t *testing.T) {
	handler := &recordingHandler{}
	_, url := startHub(t, handler)
	conn := dial(t, url)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"warp"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	env := readEnvelope(t, conn, TypeError)
	var payload ErrorPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("parse error payload: %v", err)
	}
	if payload.Code != "INVALID_PAYLOAD" {
		t.Errorf("code = %q", payload.Code)
	}

	if msgs, _ := handler.snapshot(); len(msgs) != 0 {
		t.Errorf("handler saw %d messages, want 0", len(msgs))
	}
}

func TestHubTracksOnlineCount(t *testing.T) {
	handler := &recordingHandler{}
	hub, url := startHub(t, handler)

	first := dial(t, url)
	env := readEnvelope(t, first, TypeOnlineUsers)
	var count OnlineUsers
	if err := json.Unmarshal(env.Data, &count); err != nil {
		t.Fatalf("parse onlineUsers: %v", err)
	}
	if count.Count != 1 {
		t.Errorf("count = %d, want 1", count.Count)
	}

	second := dial(t, url)
	waitFor(t, func() bool { return hub.Online() == 2 })

	second.Close()
	waitFor(t, func() bool { return hub.Online() == 1 })

	_, disconnects := handler.snapshot()
	if disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", disconnects)
	}
}

func TestHubBroadcastAll(t *testing.T) {
	handler := &recordingHandler{}
	hub, url := startHub(t, handler)

	first := dial(t, url)
	second := dial(t, url)
	waitFor(t, func() bool { return hub.Online() == 2 })

	hub.BroadcastAll(TypeRoomAvailable, map[string]any{"rooms": []string{"r1"}})

	for _, conn := range []*websocket.Conn{first, second} {
		env := readEnvelope(t, conn, TypeRoomAvailable)
		if len(env.Data) == 0 {
			t.Error("broadcast carried no payload")
		}
	}
}
