package websocket

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound buffer per client.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// Handler receives every parsed inbound message from a client.
type Handler interface {
	HandleMessage(c *Client, msg any)
	HandleDisconnect(c *Client)
}

// Client is one connected participant. It satisfies the room registry's
// connection handle interface, so rooms broadcast to it directly.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.Mutex
	closed  bool
	address string
}

// Address returns the participant identity bound to this connection, empty
// until the client has joined a room.
func (c *Client) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

// SetAddress binds the participant identity after a successful join.
func (c *Client) SetAddress(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.address = addr
}

// Send marshals and queues one message. It never blocks; a client that
// cannot drain its buffer drops the message instead of stalling the caller.
func (c *Client) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

// SendMessage wraps a payload in an envelope and queues it.
func (c *Client) SendMessage(t MessageType, payload any) error {
	env, err := NewEnvelope(t, payload)
	if err != nil {
		return err
	}
	return c.Send(env)
}

// SendError reports a typed failure to the client.
func (c *Client) SendError(code, message string) {
	if err := c.SendMessage(TypeError, ErrorPayload{Code: code, Message: message}); err != nil {
		log.Printf("websocket: error report lost: %v", err)
	}
}

// Close shuts the connection down via the hub. The unregister is handed off
// asynchronously so teardown paths running on the hub goroutine cannot
// deadlock against it; a duplicate unregister is a no-op.
func (c *Client) Close() error {
	go func() { c.hub.unregister <- c }()
	return nil
}

func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Hub maintains the set of connected clients and fans parsed messages into
// the handler.
type Hub struct {
	handler Handler

	mu      sync.Mutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
}

// NewHub creates a hub that dispatches to handler.
func NewHub(handler Handler) *Hub {
	return &Hub{
		handler:    handler,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// ServeWS handles a websocket upgrade request.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket: upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// Online returns the number of connected clients.
func (h *Hub) Online() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastAll sends an envelope to every connected client.
func (h *Hub) BroadcastAll(t MessageType, payload any) {
	env, err := NewEnvelope(t, payload)
	if err != nil {
		log.Printf("websocket: broadcast marshal failed: %v", err)
		return
	}

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.Send(env); err != nil {
			log.Printf("websocket: broadcast skipped a client: %v", err)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("websocket: client connected (online: %d)", count)
	h.BroadcastAll(TypeOnlineUsers, OnlineUsers{Count: count})
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, present := h.clients[client]
	if present {
		delete(h.clients, client)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !present {
		return
	}

	client.markClosed()
	close(client.send)

	if h.handler != nil {
		h.handler.HandleDisconnect(client)
	}
	log.Printf("websocket: client disconnected (online: %d)", count)
	h.BroadcastAll(TypeOnlineUsers, OnlineUsers{Count: count})
}

// readPump pumps messages from the connection into the handler.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket: read error: %v", err)
			}
			break
		}

		msg, err := ParseInbound(data)
		if err != nil {
			var unknown *ErrUnknownType
			if errors.As(err, &unknown) {
				c.SendError("INVALID_PAYLOAD", unknown.Error())
			} else {
				c.SendError("INVALID_PAYLOAD", "malformed message")
			}
			continue
		}
		if c.hub.handler != nil {
			c.hub.handler.HandleMessage(c, msg)
		}
	}
}

// writePump pumps queued messages to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
