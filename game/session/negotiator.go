package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridduel/server/clearnet"
	"github.com/gridduel/server/game/config"
	"github.com/gridduel/server/validate"
)

// Custody policy: the settlement service alone carries the full
// authorization weight and can move session funds unilaterally; player
// signatures are consent attestations, not voting power. This is a
// deliberate trade-off of the protocol, kept as an explicit parameter
// rather than an equal-weight split.
const (
	ServiceWeight   int64  = 100
	QuorumThreshold uint64 = 100
)

// GameType tags every session payload with the game that produced it.
const GameType = "grid-duel"

// Ledger is the slice of the settlement client the negotiator needs.
// *clearnet.Client satisfies it; tests substitute a fake.
type Ledger interface {
	ServiceAddress() string
	BuildCreateRequest(params clearnet.CreateSessionParams) (clearnet.Request, error)
	SignRequest(req clearnet.Request) (string, error)
	SubmitCreate(ctx context.Context, req clearnet.Request, sigs []string) (string, error)
	SubmitCheckpoint(ctx context.Context, params clearnet.StateParams) error
	SubmitClose(ctx context.Context, params clearnet.StateParams) error
}

// Outcome is the terminal game result the close path settles on.
type Outcome struct {
	Winner string
	Tie    bool
}

// Negotiator drives the multi-party session protocol for every room. It is
// an explicit dependency of the handlers that use it; nothing in this
// package is a process-global.
type Negotiator struct {
	arena  *Arena
	ledger Ledger
}

func NewNegotiator(arena *Arena, ledger Ledger) *Negotiator {
	return &Negotiator{arena: arena, ledger: ledger}
}

// Arena exposes the session store for read paths (audit endpoints, tests).
func (n *Negotiator) Arena() *Arena {
	return n.arena
}

// Propose builds the channel definition for a room and freezes the request
// tuple every participant will sign. Calling Propose again while a proposal
// is outstanding returns the stored proposal unchanged: regenerating would
// issue a fresh nonce and desynchronize any signature collection already in
// flight.
func (n *Negotiator) Propose(roomID string, players []string, table *config.Table) (*PendingSession, error) {
	if p, ok := n.arena.Pending(roomID); ok {
		return p, nil
	}

	order := make([]string, 0, len(players)+1)
	for _, p := range players {
		addr, err := validate.Address(p)
		if err != nil {
			return nil, err
		}
		order = append(order, addr)
	}
	service := n.ledger.ServiceAddress()
	order = append(order, service)

	weights := make([]int64, len(order))
	weights[len(weights)-1] = ServiceWeight

	allocations := make([]clearnet.Allocation, 0, len(order))
	for _, p := range order[:len(order)-1] {
		allocations = append(allocations, clearnet.Allocation{
			Participant: p,
			Asset:       table.Asset,
			Amount:      table.BetAmount,
		})
	}
	allocations = append(allocations, clearnet.Allocation{
		Participant: service,
		Asset:       table.Asset,
		Amount:      decimal.Zero,
	})

	now := time.Now()
	metadata := Metadata{
		GameType:  GameType,
		Protocol:  clearnet.Protocol,
		Version:   "1",
		BetAmount: table.BetAmount,
		Asset:     table.Asset,
		CreatedAt: now,
		FeeLedger: []LedgerEvent{{Event: EventCreated, Timestamp: now, Actor: service}},
		MoveLog:   []Move{},
	}
	sessionData, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal session metadata: %w", err)
	}

	params := clearnet.CreateSessionParams{
		Definition: clearnet.Definition{
			Protocol:     clearnet.Protocol,
			Participants: order,
			Weights:      weights,
			Quorum:       QuorumThreshold,
			Challenge:    0,
			Nonce:        uint64(now.UnixMilli()),
		},
		Allocations: allocations,
		SessionData: string(sessionData),
	}

	req, err := n.ledger.BuildCreateRequest(params)
	if err != nil {
		return nil, err
	}
	serviceSig, err := n.ledger.SignRequest(req)
	if err != nil {
		return nil, err
	}

	pending := &PendingSession{
		RoomID:              roomID,
		Request:             req,
		Params:              params,
		Metadata:            metadata,
		ParticipantOrder:    order,
		ServiceSignature:    serviceSig,
		CollectedSignatures: make(map[string]string),
		Nonce:               params.Definition.Nonce,
		CreatedAt:           now,
	}
	if err := n.arena.PutPending(pending); err != nil {
		// Another handler proposed during our build; theirs wins.
		if stored, ok := n.arena.Pending(roomID); ok {
			return stored, nil
		}
		return nil, err
	}
	return pending, nil
}

// CollectSignature validates and stores one player signature over the
// frozen proposal tuple. Malformed input is rejected before any state is
// touched. The return value reports whether the collected count now equals
// the number of required player signers.
func (n *Negotiator) CollectSignature(roomID, address, sig string) (bool, error) {
	addr, err := validate.Address(address)
	if err != nil {
		return false, err
	}
	if err := validate.Signature(sig); err != nil {
		return false, err
	}
	collected, required, err := n.arena.StoreSignature(roomID, addr, sig)
	if err != nil {
		return false, err
	}
	return collected == required, nil
}

// Establish assembles the authorized envelope and submits it. Signatures
// are ordered exactly as the definition's participant list, service last;
// any other order is rejected by the settlement service. On submission
// failure the pending session survives untouched so the caller can retry
// with the same signatures and nonce — nothing about the signed content
// changes.
func (n *Negotiator) Establish(ctx context.Context, roomID string) (*ActiveSession, error) {
	p, ok := n.arena.Pending(roomID)
	if !ok {
		// Another handler may have finished assembly while we waited.
		if a, ok := n.arena.ActiveByRoom(roomID); ok {
			return a, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNoPendingSession, roomID)
	}
	// Quorum check and signature assembly read the collected-signature map,
	// which concurrent re-signs mutate, so both happen inside the arena.
	sigs, err := n.arena.AssembleSignatures(roomID)
	if err != nil {
		return nil, err
	}

	sessionID, err := n.ledger.SubmitCreate(ctx, p.Request, sigs)
	if err != nil {
		return nil, err
	}

	// Re-fetch after the round trip; a concurrent Establish may have won.
	if a, ok := n.arena.ActiveByRoom(roomID); ok {
		return a, nil
	}

	active := &ActiveSession{
		SessionID:        sessionID,
		RoomID:           roomID,
		ParticipantOrder: p.ParticipantOrder,
		Allocations:      p.Params.Allocations,
		Metadata:         p.Metadata,
		CreatedAt:        time.Now(),
	}
	n.arena.PutActive(active)
	n.arena.DeletePending(roomID)
	if err := n.arena.AppendEvent(sessionID, EventActivated, n.ledger.ServiceAddress(), nil); err != nil {
		log.Printf("session: record activation for %s: %v", sessionID, err)
	}
	return active, nil
}

// Checkpoint submits an advisory mid-game state snapshot: committed
// balances held constant, the audit trail merged with live scores and
// counters. Checkpointing is telemetry; a ledger failure is logged and
// gameplay continues, so this never returns a submission error.
func (n *Negotiator) Checkpoint(ctx context.Context, sessionID string, scores map[string]int) error {
	a, ok := n.arena.Active(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	if err := n.arena.AppendEvent(sessionID, EventCheckpoint, n.ledger.ServiceAddress(), nil); err != nil {
		return err
	}
	meta, err := n.arena.AuditSnapshot(sessionID)
	if err != nil {
		return err
	}
	meta.Scores = scores

	sessionData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal checkpoint metadata: %w", err)
	}
	params := clearnet.StateParams{
		AppSessionID: sessionID,
		Allocations:  a.Allocations,
		SessionData:  string(sessionData),
	}
	if err := n.ledger.SubmitCheckpoint(ctx, params); err != nil {
		log.Printf("session: checkpoint for %s failed (gameplay continues): %v", sessionID, err)
	}
	return nil
}

// Close computes the final payout from the outcome — winner-take-all on a
// decisive result, full refund of original contributions on a tie — and
// submits it with the terminal ledger event. On success the session is
// destroyed. On failure it is marked unsettled and kept for out-of-band
// reconciliation; the caller logs the error and tears the room down anyway,
// because local game state is authoritative for the user-visible outcome.
func (n *Negotiator) Close(ctx context.Context, sessionID string, outcome Outcome) error {
	a, ok := n.arena.Active(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	final, pot := closeAllocations(a, outcome)
	if err := n.arena.AppendEvent(sessionID, EventClosed, n.ledger.ServiceAddress(), &pot); err != nil {
		return err
	}
	meta, err := n.arena.AuditSnapshot(sessionID)
	if err != nil {
		return err
	}

	sessionData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal close metadata: %w", err)
	}
	params := clearnet.StateParams{
		AppSessionID: sessionID,
		Allocations:  final,
		SessionData:  string(sessionData),
	}
	if err := n.ledger.SubmitClose(ctx, params); err != nil {
		n.arena.MarkUnsettled(sessionID)
		return err
	}

	n.arena.DeleteActive(sessionID)
	return nil
}

// closeAllocations derives the payout vector. The committed bet amounts are
// the original contributions recorded at proposal time.
func closeAllocations(a *ActiveSession, outcome Outcome) ([]clearnet.Allocation, decimal.Decimal) {
	pot := decimal.Zero
	for _, alloc := range a.Allocations {
		pot = pot.Add(alloc.Amount)
	}

	final := make([]clearnet.Allocation, 0, len(a.Allocations))
	for _, alloc := range a.Allocations {
		amount := alloc.Amount // tie: everyone gets their contribution back
		if !outcome.Tie {
			if alloc.Participant == outcome.Winner {
				amount = pot
			} else {
				amount = decimal.Zero
			}
		}
		final = append(final, clearnet.Allocation{
			Participant: alloc.Participant,
			Asset:       alloc.Asset,
			Amount:      amount,
		})
	}
	return final, pot
}
