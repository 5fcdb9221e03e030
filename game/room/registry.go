package room

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gridduel/server/game/config"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrIdentityAlreadyBound = errors.New("identity already bound to another room")
	ErrJoinFailed           = errors.New("join failed")
)

// DefaultCapacity is the deployed occupancy cap. The registry itself
// supports any capacity.
const DefaultCapacity = 1

// GraceDelay is how long a closing room waits between the terminal
// broadcast and force-closing its connections, so clients see the result.
const GraceDelay = 5 * time.Second

// Registry is the single in-memory map of live rooms and identity bindings.
type Registry struct {
	mu         sync.RWMutex
	rooms      map[string]*Room
	byIdentity map[string]string
	capacity   int
}

// NewRegistry creates a registry with the given per-room occupancy cap;
// capacity <= 0 falls back to DefaultCapacity.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		rooms:      make(map[string]*Room),
		byIdentity: make(map[string]string),
		capacity:   capacity,
	}
}

// CreateRoom allocates a waiting room with owner as its sole occupant.
func (reg *Registry) CreateRoom(owner string, conn Conn, table *config.Table) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if bound, ok := reg.byIdentity[owner]; ok {
		return nil, fmt.Errorf("%w: %s is in room %s", ErrIdentityAlreadyBound, owner, bound)
	}

	r := &Room{
		ID:        uuid.NewString(),
		Table:     table,
		lifecycle: StateWaiting,
		conns:     make(map[string]Conn),
		createdAt: time.Now(),
	}
	r.bindLocked(owner, conn)
	reg.rooms[r.ID] = r
	reg.byIdentity[owner] = r.ID
	return r, nil
}

// Join binds identity to a room. Joining while bound to a different room is
// rejected; rejoining the same room replaces the stored connection, so a
// reconnect is not an error.
func (reg *Registry) Join(roomID, identity string, conn Conn) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	if bound, ok := reg.byIdentity[identity]; ok && bound != roomID {
		return nil, fmt.Errorf("%w: %s is in room %s", ErrIdentityAlreadyBound, identity, bound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, rejoining := r.conns[identity]
	if !rejoining && len(r.occupants) >= reg.capacity {
		return nil, fmt.Errorf("%w: room %s is full", ErrJoinFailed, roomID)
	}
	r.bindLocked(identity, conn)
	reg.byIdentity[identity] = roomID
	return r, nil
}

// Capacity returns the per-room occupancy cap.
func (reg *Registry) Capacity() int {
	return reg.capacity
}

// Get returns a room by id.
func (reg *Registry) Get(roomID string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[roomID]
	return r, ok
}

// RoomFor returns the room an identity is bound to.
func (reg *Registry) RoomFor(identity string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	id, ok := reg.byIdentity[identity]
	if !ok {
		return nil, false
	}
	r, ok := reg.rooms[id]
	return r, ok
}

// All lists every live room.
func (reg *Registry) All() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		out = append(out, r)
	}
	return out
}

// Available lists waiting rooms with open seats.
func (reg *Registry) Available() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var out []*Room
	for _, r := range reg.rooms {
		r.mu.Lock()
		open := r.lifecycle == StateWaiting && len(r.occupants) < reg.capacity
		r.mu.Unlock()
		if open {
			out = append(out, r)
		}
	}
	return out
}

// Broadcast fans a message out to every occupant's connection, silently
// skipping ones that fail to accept it.
func (reg *Registry) Broadcast(roomID string, v any) {
	r, ok := reg.Get(roomID)
	if !ok {
		return
	}

	r.mu.Lock()
	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	for _, c := range conns {
		if err := c.Send(v); err != nil {
			log.Printf("room %s: broadcast skipped a connection: %v", roomID, err)
		}
	}
}

// Close force-closes every bound connection and removes the room. This is
// always the terminal step of the lifecycle; calling it twice is harmless.
func (reg *Registry) Close(roomID string) {
	reg.mu.Lock()
	r, ok := reg.rooms[roomID]
	if !ok {
		reg.mu.Unlock()
		return
	}
	delete(reg.rooms, roomID)

	r.mu.Lock()
	for _, identity := range r.occupants {
		delete(reg.byIdentity, identity)
	}
	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	watch := r.watch
	r.lifecycle = StateClosed
	r.mu.Unlock()
	reg.mu.Unlock()

	if watch != nil {
		watch.Stop()
	}
	for _, c := range conns {
		if err := c.Close(); err != nil {
			log.Printf("room %s: closing connection: %v", roomID, err)
		}
	}
}
