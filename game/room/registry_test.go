package room

import (
	"errors"
	"sync"
	"testing"

	"github.com/gridduel/server/game/config"
)

const (
	alice = "0xaaaa000000000000000000000000000000000001"
	bob   = "0xbbbb000000000000000000000000000000000002"
)

// stubConn records messages and close calls.
type stubConn struct {
	mu     sync.Mutex
	sent   []any
	closed bool
	fail   bool
}

func (c *stubConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("send failed")
	}
	c.sent = append(c.sent, v)
	return nil
}

func (c *stubConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *stubConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *stubConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func testTable() *config.Table {
	return &config.Table{Name: "test", Asset: "usdc"}
}

func TestCreateRoomBindsOwner(t *testing.T) {
	reg := NewRegistry(1)
	r, err := reg.CreateRoom(alice, &stubConn{}, testTable())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if r.Lifecycle() != StateWaiting {
		t.Errorf("lifecycle = %s, want waiting", r.Lifecycle())
	}
	if occ := r.Occupants(); len(occ) != 1 || occ[0] != alice {
		t.Errorf("occupants = %v", occ)
	}

	// Owner cannot create a second room while bound.
	if _, err := reg.CreateRoom(alice, &stubConn{}, testTable()); !errors.Is(err, ErrIdentityAlreadyBound) {
		t.Errorf("got %v, want ErrIdentityAlreadyBound", err)
	}
}

func TestJoinRules(t *testing.T) {
	reg := NewRegistry(2)
	r1, err := reg.CreateRoom(alice, &stubConn{}, testTable())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	r2, err := reg.CreateRoom(bob, &stubConn{}, testTable())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	if _, err := reg.Join("missing", alice, &stubConn{}); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("got %v, want ErrRoomNotFound", err)
	}

	// Bound to a different room.
	if _, err := reg.Join(r2.ID, alice, &stubConn{}); !errors.Is(err, ErrIdentityAlreadyBound) {
		t.Errorf("got %v, want ErrIdentityAlreadyBound", err)
	}

	// Rejoining the same room with a new connection is a reconnect.
	fresh := &stubConn{}
	if _, err := reg.Join(r1.ID, alice, fresh); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	reg.Broadcast(r1.ID, "hello")
	if fresh.sentCount() != 1 {
		t.Error("broadcast did not reach the replacement connection")
	}
}

func TestJoinCapacity(t *testing.T) {
	reg := NewRegistry(1)
	r, err := reg.CreateRoom(alice, &stubConn{}, testTable())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	if _, err := reg.Join(r.ID, bob, &stubConn{}); !errors.Is(err, ErrJoinFailed) {
		t.Errorf("got %v, want ErrJoinFailed", err)
	}
}

func TestBroadcastSkipsFailedConnections(t *testing.T) {
	reg := NewRegistry(2)
	good := &stubConn{}
	bad := &stubConn{fail: true}

	r, err := reg.CreateRoom(alice, good, testTable())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := reg.Join(r.ID, bob, bad); err != nil {
		t.Fatalf("Join: %v", err)
	}

	reg.Broadcast(r.ID, "state")
	if good.sentCount() != 1 {
		t.Error("healthy connection missed the broadcast")
	}
}

func TestCloseTearsDownAndUnbinds(t *testing.T) {
	reg := NewRegistry(1)
	conn := &stubConn{}
	r, err := reg.CreateRoom(alice, conn, testTable())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	reg.Close(r.ID)

	if !conn.isClosed() {
		t.Error("connection not force-closed")
	}
	if _, ok := reg.Get(r.ID); ok {
		t.Error("room survived close")
	}

	// The identity is free again.
	if _, err := reg.CreateRoom(alice, &stubConn{}, testTable()); err != nil {
		t.Errorf("identity still bound after close: %v", err)
	}

	// Closing twice is harmless.
	reg.Close(r.ID)
}

func TestLifecycleForwardOnly(t *testing.T) {
	reg := NewRegistry(1)
	r, err := reg.CreateRoom(alice, &stubConn{}, testTable())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	for _, phase := range []Lifecycle{StateReady, StatePlaying, StateClosing, StateClosed} {
		if err := r.Advance(phase); err != nil {
			t.Fatalf("Advance(%s): %v", phase, err)
		}
	}

	// Re-entering the terminal phase is a no-op.
	if err := r.Advance(StateClosed); err != nil {
		t.Errorf("re-entering closed errored: %v", err)
	}
	// Moving backward is not.
	if err := r.Advance(StatePlaying); err == nil {
		t.Error("backward transition accepted")
	}
}
