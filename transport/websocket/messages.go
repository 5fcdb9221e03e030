package websocket

import (
	"encoding/json"
	"fmt"
)

// MessageType tags every envelope on the game-facing connection.
type MessageType string

// Client → server.
const (
	TypeJoinRoom          MessageType = "joinRoom"
	TypeStartGame         MessageType = "startGame"
	TypeMove              MessageType = "move"
	TypeChangeDirection   MessageType = "changeDirection"
	TypeGetAvailableRooms MessageType = "getAvailableRooms"
	TypeSignature         MessageType = "appSession:signature"
)

// Server → client.
const (
	TypeRoomCreated      MessageType = "room:created"
	TypeRoomState        MessageType = "room:state"
	TypeRoomReady        MessageType = "room:ready"
	TypeRoomAvailable    MessageType = "room:available"
	TypeGameStarted      MessageType = "game:started"
	TypeGameUpdate       MessageType = "game:update"
	TypeGameOver         MessageType = "game:over"
	TypeOnlineUsers      MessageType = "onlineUsers"
	TypeError            MessageType = "error"
	TypeSignatureRequest MessageType = "appSession:signatureRequest"
)

// Envelope is the wire form of every message: a type tag plus a payload.
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope wraps a payload for sending.
func NewEnvelope(t MessageType, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Envelope{Type: t, Data: raw}, nil
}

// Inbound payloads, one struct per message kind.

type JoinRoom struct {
	Address string `json:"address"`
	RoomID  string `json:"roomId,omitempty"`
	Table   string `json:"table,omitempty"`
}

type StartGame struct {
	RoomID string `json:"roomId"`
}

type Move struct {
	RoomID string `json:"roomId"`
	Action string `json:"action"`
}

type GetAvailableRooms struct{}

type Signature struct {
	RoomID    string `json:"roomId"`
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

// ErrUnknownType reports an envelope the dispatcher has no variant for.
type ErrUnknownType struct {
	Type MessageType
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown message type %q", e.Type)
}

// ParseInbound decodes one client frame into its typed payload. The switch
// is exhaustive over the client → server message set; anything else is an
// ErrUnknownType.
func ParseInbound(data []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}

	payload := env.Data
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	decode := func(v any) (any, error) {
		if err := json.Unmarshal(payload, v); err != nil {
			return nil, fmt.Errorf("parse %s payload: %w", env.Type, err)
		}
		return v, nil
	}

	switch env.Type {
	case TypeJoinRoom:
		return decode(&JoinRoom{})
	case TypeStartGame:
		return decode(&StartGame{})
	case TypeMove, TypeChangeDirection:
		return decode(&Move{})
	case TypeGetAvailableRooms:
		return decode(&GetAvailableRooms{})
	case TypeSignature:
		return decode(&Signature{})
	default:
		return nil, &ErrUnknownType{Type: env.Type}
	}
}

// Outbound payloads.

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type OnlineUsers struct {
	Count int `json:"count"`
}

type SignatureRequest struct {
	RoomID   string          `json:"roomId"`
	Proposal json.RawMessage `json:"proposal"`
}
