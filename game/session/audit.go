package session

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AppendMove records one validated in-game action on the session's move log
// and bumps the participant's counter. The action was already validated by
// the game engine; only the audit invariants are enforced here: the sequence
// number is previousLength+1, strictly increasing, never reused.
func (ar *Arena) AppendMove(sessionID, participant, action string, ts time.Time) (Move, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	a, ok := ar.active[sessionID]
	if !ok {
		return Move{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	move := Move{
		Participant: participant,
		Action:      action,
		Timestamp:   ts,
		Sequence:    len(a.Metadata.MoveLog) + 1,
	}
	a.Metadata.MoveLog = append(a.Metadata.MoveLog, move)
	if a.moveCounts == nil {
		a.moveCounts = make(map[string]int)
	}
	a.moveCounts[participant]++
	return move, nil
}

// AppendEvent writes one fee ledger entry. The ledger is append-only;
// nothing ever rewrites an existing entry.
func (ar *Arena) AppendEvent(sessionID string, event EventType, actor string, amount *decimal.Decimal) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	a, ok := ar.active[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	a.Metadata.FeeLedger = append(a.Metadata.FeeLedger, LedgerEvent{
		Event:     event,
		Timestamp: time.Now(),
		Actor:     actor,
		Amount:    amount,
	})
	return nil
}

// AuditSnapshot returns a copy of the session metadata with the live audit
// counters filled in, safe to marshal outside the arena lock.
func (ar *Arena) AuditSnapshot(sessionID string) (Metadata, error) {
	ar.mu.RLock()
	defer ar.mu.RUnlock()

	a, ok := ar.active[sessionID]
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	meta := a.Metadata
	meta.FeeLedger = append([]LedgerEvent(nil), a.Metadata.FeeLedger...)
	meta.MoveLog = append([]Move(nil), a.Metadata.MoveLog...)
	meta.MoveCounts = make(map[string]int, len(a.moveCounts))
	for p, n := range a.moveCounts {
		meta.MoveCounts[p] = n
	}
	meta.ElapsedMS = time.Since(a.CreatedAt).Milliseconds()
	return meta, nil
}
