// Package websocket provides the game-facing WebSocket transport.
//
// The websocket package implements:
//   - Real-time bidirectional communication with players
//   - Typed envelope parsing with an exhaustive message-kind switch
//   - Connection lifecycle management and online-user tracking
//   - Message routing into the game service
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// connections. Each client connection is handled by dedicated read and
// write goroutines. Parsed messages are dispatched to a Handler; the game
// service implements it.
//
// Message Protocol:
//
// Messages are JSON envelopes tagged by a "type" field:
//   - Incoming: {"type":"move","data":{"roomId":"r1","action":"up"}}
//   - Outgoing: {"type":"game:update","data":{...state...}}
//
// Clients identify themselves with their participant address in the
// joinRoom payload; the hub binds the address to the connection so room
// broadcasts reach the right sockets.
//
// Usage:
//
//	hub := websocket.NewHub(service)
//	go hub.Run()
//	http.HandleFunc("/ws", hub.ServeWS)
//
// Concurrency:
//
// The hub and client pumps are designed for concurrent operation. Client
// Send never blocks: a client that cannot drain its buffer loses messages
// and is eventually disconnected by the write pump rather than stalling a
// room broadcast.
package websocket
