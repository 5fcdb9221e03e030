package session

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridduel/server/clearnet"
)

var (
	ErrNoPendingSession = errors.New("no pending session for room")
	ErrSessionNotFound  = errors.New("session not found")
	ErrQuorumIncomplete = errors.New("quorum incomplete")
	ErrUnknownSigner    = errors.New("signer is not a session participant")
)

// Phase is the negotiation state derived for a room.
type Phase string

const (
	PhaseNone        Phase = "none"
	PhaseProposed    Phase = "proposed"
	PhaseSigning     Phase = "signing"
	PhaseEstablished Phase = "established"
	PhaseClosing     Phase = "closing"
	PhaseClosed      Phase = "closed"
)

// EventType names one entry kind of the fee ledger. The set is closed; an
// external auditor replays a session from exactly these events.
type EventType string

const (
	EventCreated    EventType = "created"
	EventActivated  EventType = "activated"
	EventCheckpoint EventType = "checkpoint"
	EventClosed     EventType = "closed"
)

// LedgerEvent is one append-only fee ledger entry. Entries are never mutated
// once written.
type LedgerEvent struct {
	Event     EventType        `json:"event"`
	Timestamp time.Time        `json:"timestamp"`
	Actor     string           `json:"actor"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

// Move is one sequence-numbered audit record of an in-game action. Sequence
// numbers are strictly increasing per session and never reused.
type Move struct {
	Participant string    `json:"participant"`
	Action      string    `json:"action"`
	Timestamp   time.Time `json:"timestamp"`
	Sequence    int       `json:"sequence"`
}

// Metadata is the session payload attached to every settlement submission:
// protocol markers, the wager, and the audit trail, merged with live game
// fields at checkpoint time.
type Metadata struct {
	GameType  string          `json:"game_type"`
	Protocol  string          `json:"protocol"`
	Version   string          `json:"version"`
	BetAmount decimal.Decimal `json:"bet_amount"`
	Asset     string          `json:"asset"`
	CreatedAt time.Time       `json:"created_at"`

	FeeLedger []LedgerEvent `json:"fee_ledger"`
	MoveLog   []Move        `json:"move_log"`

	// Live fields, populated on checkpoint and close only.
	Scores     map[string]int `json:"scores,omitempty"`
	MoveCounts map[string]int `json:"move_counts,omitempty"`
	ElapsedMS  int64          `json:"elapsed_ms,omitempty"`
}

// PendingSession is an unsigned channel proposal awaiting player signatures.
// Exactly one exists per room, from proposal generation until quorum
// assembly succeeds.
type PendingSession struct {
	RoomID string

	// Request is the frozen create_app_session tuple whose bytes every
	// signature covers. It must never be rebuilt while signatures are in
	// flight.
	Request clearnet.Request
	Params  clearnet.CreateSessionParams

	// Metadata is the decoded form of Params.SessionData, carried over into
	// the active session on establishment.
	Metadata Metadata

	// ParticipantOrder lists players first, the settlement service last.
	ParticipantOrder []string

	ServiceSignature    string
	CollectedSignatures map[string]string

	Nonce     uint64
	CreatedAt time.Time
}

// RequiredSignatures is the number of player signatures quorum assembly
// needs, excluding the service. CollectedSignatures itself must only be
// read or written through the arena, which guards it with the arena lock.
func (p *PendingSession) RequiredSignatures() int {
	return len(p.ParticipantOrder) - 1
}

// ActiveSession is an authorized, ledger-acknowledged channel session.
type ActiveSession struct {
	SessionID        string
	RoomID           string
	ParticipantOrder []string
	Allocations      []clearnet.Allocation
	Metadata         Metadata
	CreatedAt        time.Time

	// Unsettled marks a session whose close submission failed; the local
	// outcome stands and settlement is reconciled out-of-band.
	Unsettled bool

	moveCounts map[string]int
}

// MoveCount returns the audit counter for one participant.
func (a *ActiveSession) MoveCount(participant string) int {
	return a.moveCounts[participant]
}
