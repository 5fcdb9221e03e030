package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridduel/server/game/engine"
	"github.com/gridduel/server/game/room"
	"github.com/gridduel/server/game/session"
)

// Wire error codes surfaced to clients alongside a human-readable message.
const (
	CodeRoomNotFound         = "ROOM_NOT_FOUND"
	CodeIdentityAlreadyBound = "IDENTITY_ALREADY_BOUND"
	CodeJoinFailed           = "JOIN_FAILED"
	CodeInvalidPayload       = "INVALID_PAYLOAD"
	CodeAuthTimeout          = "AUTH_TIMEOUT"
	CodeAuthRejected         = "AUTH_REJECTED"
	CodeSignatureMalformed   = "SIGNATURE_MALFORMED"
	CodeQuorumIncomplete     = "QUORUM_INCOMPLETE"
	CodeLedgerTimeout        = "LEDGER_TIMEOUT"
	CodeLedgerRejected       = "LEDGER_REJECTED"
	CodeSessionNotFound      = "SESSION_NOT_FOUND"
	CodeInternal             = "INTERNAL"
)

// RoomInfo is the read-model projection of a room returned by the admin
// surfaces and broadcast as room:state.
type RoomInfo struct {
	ID        string          `json:"id"`
	Lifecycle room.Lifecycle  `json:"lifecycle"`
	Occupants []string        `json:"occupants"`
	Table     string          `json:"table"`
	BetAmount decimal.Decimal `json:"bet_amount"`
	Asset     string          `json:"asset"`
	Phase     session.Phase   `json:"session_phase"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditInfo is the session audit trail exposed read-only to the REST and MCP
// layers.
type AuditInfo struct {
	SessionID string           `json:"session_id"`
	RoomID    string           `json:"room_id"`
	Unsettled bool             `json:"unsettled,omitempty"`
	Metadata  session.Metadata `json:"metadata"`
}

// Outbound websocket payloads owned by this layer.

type RoomCreated struct {
	Room *RoomInfo `json:"room"`
}

type RoomState struct {
	Room *RoomInfo `json:"room"`
}

type RoomReady struct {
	RoomID    string `json:"roomId"`
	SessionID string `json:"sessionId"`
}

type RoomsAvailable struct {
	Rooms []*RoomInfo `json:"rooms"`
}

type GameStarted struct {
	RoomID    string       `json:"roomId"`
	SessionID string       `json:"sessionId"`
	State     engine.State `json:"state"`
}

type GameUpdate struct {
	RoomID      string            `json:"roomId"`
	Participant string            `json:"participant"`
	Result      engine.MoveResult `json:"result"`
}

type GameOver struct {
	RoomID string       `json:"roomId"`
	Winner string       `json:"winner,omitempty"`
	Tie    bool         `json:"tie,omitempty"`
	State  engine.State `json:"state"`
}
