package room

import (
	"fmt"
	"sync"
	"time"

	"github.com/gridduel/server/game/config"
	"github.com/gridduel/server/game/engine"
)

// Lifecycle is a room's phase. Transitions only move forward.
type Lifecycle string

const (
	StateWaiting Lifecycle = "waiting"
	StateReady   Lifecycle = "ready"
	StatePlaying Lifecycle = "playing"
	StateClosing Lifecycle = "closing"
	StateClosed  Lifecycle = "closed"
)

var lifecycleOrder = map[Lifecycle]int{
	StateWaiting: 0,
	StateReady:   1,
	StatePlaying: 2,
	StateClosing: 3,
	StateClosed:  4,
}

// Conn is the connection handle the registry fans broadcasts out to. The
// websocket transport provides the real implementation.
type Conn interface {
	Send(v any) error
	Close() error
}

// Room is one game instance plus its bound participant connections.
type Room struct {
	ID    string
	Table *config.Table

	mu        sync.Mutex
	lifecycle Lifecycle
	occupants []string
	conns     map[string]Conn
	game      *engine.Instance
	watch     *Watch
	createdAt time.Time
}

// Lifecycle returns the current phase.
func (r *Room) Lifecycle() Lifecycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lifecycle
}

// Advance moves the room forward to phase `to`. Re-entering the current
// phase is a no-op; moving backward is an error.
func (r *Room) Advance(to Lifecycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, target := lifecycleOrder[r.lifecycle], lifecycleOrder[to]
	if target == current {
		return nil
	}
	if target < current {
		return fmt.Errorf("room %s: cannot move %s back to %s", r.ID, r.lifecycle, to)
	}
	r.lifecycle = to
	return nil
}

// Occupants returns the bound identities in join order.
func (r *Room) Occupants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.occupants...)
}

// Game returns the room's engine instance, nil before the game starts.
func (r *Room) Game() *engine.Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game
}

// SetGame installs the engine instance when play begins.
func (r *Room) SetGame(g *engine.Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.game = g
}

// SetWatch installs the terminal poll for this room, stopping any previous
// one.
func (r *Room) SetWatch(w *Watch) {
	r.mu.Lock()
	prev := r.watch
	r.watch = w
	r.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}
}

func (r *Room) bindLocked(identity string, conn Conn) {
	if _, present := r.conns[identity]; !present {
		r.occupants = append(r.occupants, identity)
	}
	r.conns[identity] = conn
}

// CreatedAt returns when the room was allocated.
func (r *Room) CreatedAt() time.Time {
	return r.createdAt
}
