package service

import (
	"context"

	"github.com/gridduel/server/transport/websocket"
)

// GameService defines all game-facing operations. It doubles as the
// websocket hub's message handler and as the read surface for the REST and
// MCP admin layers.
type GameService interface {
	// Wire dispatch
	HandleMessage(c *websocket.Client, msg any)
	HandleDisconnect(c *websocket.Client)

	// Admin / read paths
	ListRooms(ctx context.Context) []*RoomInfo
	RoomState(ctx context.Context, roomID string) (*RoomInfo, error)
	SessionAudit(ctx context.Context, roomID string) (*AuditInfo, error)
}
