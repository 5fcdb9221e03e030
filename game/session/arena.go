package session

import (
	"fmt"
	"sync"
)

// Arena owns every pending and active session in the process. Pending
// sessions are keyed by room id, active sessions by the settlement-assigned
// session id, with a room index for lookups from the game loop.
type Arena struct {
	mu           sync.RWMutex
	pending      map[string]*PendingSession
	active       map[string]*ActiveSession
	activeByRoom map[string]string
}

func NewArena() *Arena {
	return &Arena{
		pending:      make(map[string]*PendingSession),
		active:       make(map[string]*ActiveSession),
		activeByRoom: make(map[string]string),
	}
}

// Pending returns the room's pending session, if any.
func (ar *Arena) Pending(roomID string) (*PendingSession, bool) {
	ar.mu.RLock()
	defer ar.mu.RUnlock()
	p, ok := ar.pending[roomID]
	return p, ok
}

// PutPending stores a proposal. A room holds at most one; storing over an
// existing entry is a programming error surfaced loudly.
func (ar *Arena) PutPending(p *PendingSession) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	if _, exists := ar.pending[p.RoomID]; exists {
		return fmt.Errorf("room %s already has a pending session", p.RoomID)
	}
	ar.pending[p.RoomID] = p
	return nil
}

// DeletePending removes the room's proposal after activation.
func (ar *Arena) DeletePending(roomID string) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	delete(ar.pending, roomID)
}

// PutActive stores an established session and indexes it by room.
func (ar *Arena) PutActive(a *ActiveSession) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	ar.active[a.SessionID] = a
	ar.activeByRoom[a.RoomID] = a.SessionID
}

// Active returns a session by id.
func (ar *Arena) Active(sessionID string) (*ActiveSession, bool) {
	ar.mu.RLock()
	defer ar.mu.RUnlock()
	a, ok := ar.active[sessionID]
	return a, ok
}

// ActiveByRoom returns the session bound to a room.
func (ar *Arena) ActiveByRoom(roomID string) (*ActiveSession, bool) {
	ar.mu.RLock()
	defer ar.mu.RUnlock()
	id, ok := ar.activeByRoom[roomID]
	if !ok {
		return nil, false
	}
	a, ok := ar.active[id]
	return a, ok
}

// StoreSignature records one player signature on the room's proposal. The
// signer must be a non-service participant of the definition, which also
// bounds the signature map at the participant count. Re-signing by the same
// address overwrites rather than double-counts.
func (ar *Arena) StoreSignature(roomID, address, sig string) (collected, required int, err error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	p, ok := ar.pending[roomID]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrNoPendingSession, roomID)
	}

	signer := false
	for _, player := range p.ParticipantOrder[:len(p.ParticipantOrder)-1] {
		if player == address {
			signer = true
			break
		}
	}
	if !signer {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownSigner, address)
	}

	p.CollectedSignatures[address] = sig
	return len(p.CollectedSignatures), p.RequiredSignatures(), nil
}

// AssembleSignatures builds the authorized signature vector for the room's
// proposal: one signature per player in definition order, the service
// signature last. It fails while any player signature is outstanding. The
// quorum check and map reads run under the arena lock, so a player
// re-sending its signature concurrently cannot race the assembly.
func (ar *Arena) AssembleSignatures(roomID string) ([]string, error) {
	ar.mu.RLock()
	defer ar.mu.RUnlock()

	p, ok := ar.pending[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPendingSession, roomID)
	}
	if len(p.CollectedSignatures) != p.RequiredSignatures() {
		return nil, fmt.Errorf("%w: have %d of %d signatures",
			ErrQuorumIncomplete, len(p.CollectedSignatures), p.RequiredSignatures())
	}

	sigs := make([]string, 0, len(p.ParticipantOrder))
	for _, player := range p.ParticipantOrder[:len(p.ParticipantOrder)-1] {
		sigs = append(sigs, p.CollectedSignatures[player])
	}
	return append(sigs, p.ServiceSignature), nil
}

// MarkUnsettled flags a session whose close submission failed.
func (ar *Arena) MarkUnsettled(sessionID string) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	if a, ok := ar.active[sessionID]; ok {
		a.Unsettled = true
	}
}

// DeleteActive removes a settled session.
func (ar *Arena) DeleteActive(sessionID string) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	if a, ok := ar.active[sessionID]; ok {
		delete(ar.activeByRoom, a.RoomID)
		delete(ar.active, sessionID)
	}
}

// Phase derives the negotiation phase for a room from arena contents.
func (ar *Arena) Phase(roomID string) Phase {
	ar.mu.RLock()
	defer ar.mu.RUnlock()

	if p, ok := ar.pending[roomID]; ok {
		if len(p.CollectedSignatures) > 0 {
			return PhaseSigning
		}
		return PhaseProposed
	}
	if id, ok := ar.activeByRoom[roomID]; ok {
		if ar.active[id].Unsettled {
			return PhaseClosing
		}
		return PhaseEstablished
	}
	return PhaseNone
}
