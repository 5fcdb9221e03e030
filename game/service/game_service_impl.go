package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gridduel/server/clearnet"
	"github.com/gridduel/server/game/config"
	"github.com/gridduel/server/game/engine"
	"github.com/gridduel/server/game/room"
	"github.com/gridduel/server/game/session"
	"github.com/gridduel/server/transport/websocket"
	"github.com/gridduel/server/validate"
)

// checkpointEvery is the move cadence of advisory state checkpoints.
const checkpointEvery = 5

// ledgerTimeout bounds every settlement round trip driven by this layer.
const ledgerTimeout = 30 * time.Second

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	rooms    *room.Registry
	sessions *session.Negotiator
	tables   *config.Manager

	grace time.Duration
}

// NewGameService creates a new game service instance
func NewGameService(rooms *room.Registry, sessions *session.Negotiator, tables *config.Manager) GameService {
	return &gameServiceImpl{
		rooms:    rooms,
		sessions: sessions,
		tables:   tables,
		grace:    room.GraceDelay,
	}
}

// HandleMessage dispatches one parsed client message. Every variant of the
// inbound message set has a case here; the transport already rejected
// anything else.
func (s *gameServiceImpl) HandleMessage(c *websocket.Client, msg any) {
	switch m := msg.(type) {
	case *websocket.JoinRoom:
		s.handleJoin(c, m)
	case *websocket.Signature:
		s.handleSignature(c, m)
	case *websocket.StartGame:
		s.handleStart(c, m)
	case *websocket.Move:
		s.handleMove(c, m)
	case *websocket.GetAvailableRooms:
		s.handleRooms(c)
	default:
		c.SendError(CodeInvalidPayload, fmt.Sprintf("unhandled message %T", msg))
	}
}

// HandleDisconnect is invoked by the hub when a client's pumps exit. The
// identity binding survives so the participant can rejoin the same room with
// a fresh connection.
func (s *gameServiceImpl) HandleDisconnect(c *websocket.Client) {
	addr := c.Address()
	if addr == "" {
		return
	}
	if r, ok := s.rooms.RoomFor(addr); ok {
		log.Printf("service: %s disconnected from room %s, awaiting reconnect", addr, r.ID)
	}
}

// handleJoin binds the identity to a room, creating one when no room id is
// given. Once the room is full a session proposal is generated and every
// occupant is asked to sign it.
func (s *gameServiceImpl) handleJoin(c *websocket.Client, m *websocket.JoinRoom) {
	addr, err := validate.Address(m.Address)
	if err != nil {
		s.sendErr(c, err)
		return
	}
	c.SetAddress(addr)

	table := s.tables.Default()
	if m.Table != "" {
		table, err = s.tables.Load(m.Table)
		if err != nil {
			s.sendErr(c, err)
			return
		}
	}

	var r *room.Room
	if m.RoomID == "" {
		r, err = s.rooms.CreateRoom(addr, c, table)
		if err != nil {
			s.sendErr(c, err)
			return
		}
		if err := c.SendMessage(websocket.TypeRoomCreated, RoomCreated{Room: s.roomInfo(r)}); err != nil {
			log.Printf("service: room:created to %s lost: %v", addr, err)
		}
	} else {
		r, err = s.rooms.Join(m.RoomID, addr, c)
		if err != nil {
			s.sendErr(c, err)
			return
		}
	}

	s.rooms.Broadcast(r.ID, mustEnvelope(websocket.TypeRoomState, RoomState{Room: s.roomInfo(r)}))

	if len(r.Occupants()) >= s.rooms.Capacity() {
		s.propose(c, r)
	}
}

// propose generates (or re-reads) the room's channel proposal and fans the
// signature request out to every occupant. The proposal bytes are the frozen
// request tuple each player signs.
func (s *gameServiceImpl) propose(c *websocket.Client, r *room.Room) {
	p, err := s.sessions.Propose(r.ID, r.Occupants(), r.Table)
	if err != nil {
		s.sendErr(c, err)
		return
	}
	payload, err := p.Request.Payload()
	if err != nil {
		s.sendErr(c, err)
		return
	}
	s.rooms.Broadcast(r.ID, mustEnvelope(websocket.TypeSignatureRequest, websocket.SignatureRequest{
		RoomID:   r.ID,
		Proposal: payload,
	}))
}

// handleSignature records one player signature. When the collected count
// reaches quorum the authorized envelope is assembled and submitted; on
// submission failure the pending proposal survives, so the player can
// trigger a retry by re-sending the same signature.
func (s *gameServiceImpl) handleSignature(c *websocket.Client, m *websocket.Signature) {
	addr := m.Address
	if addr == "" {
		addr = c.Address()
	}

	done, err := s.sessions.CollectSignature(m.RoomID, addr, m.Signature)
	if err != nil {
		s.sendErr(c, err)
		return
	}
	if !done {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	active, err := s.sessions.Establish(ctx, m.RoomID)
	if err != nil {
		s.sendErr(c, err)
		return
	}

	// Re-fetch: the room may have been torn down while the ledger call was
	// in flight.
	r, ok := s.rooms.Get(m.RoomID)
	if !ok {
		s.sendErr(c, room.ErrRoomNotFound)
		return
	}
	if err := r.Advance(room.StateReady); err != nil {
		log.Printf("service: room %s: %v", r.ID, err)
	}
	s.rooms.Broadcast(r.ID, mustEnvelope(websocket.TypeRoomReady, RoomReady{
		RoomID:    r.ID,
		SessionID: active.SessionID,
	}))
}

// handleStart installs the engine instance and begins the terminal watch.
// A second startGame for a playing room re-broadcasts the current state
// instead of resetting the board.
func (s *gameServiceImpl) handleStart(c *websocket.Client, m *websocket.StartGame) {
	r, ok := s.rooms.Get(m.RoomID)
	if !ok {
		s.sendErr(c, room.ErrRoomNotFound)
		return
	}
	active, ok := s.sessions.Arena().ActiveByRoom(r.ID)
	if !ok {
		c.SendError(CodeSessionNotFound, "no established session for room")
		return
	}

	if g := r.Game(); g != nil {
		s.rooms.Broadcast(r.ID, mustEnvelope(websocket.TypeGameStarted, GameStarted{
			RoomID:    r.ID,
			SessionID: active.SessionID,
			State:     g.Snapshot(),
		}))
		return
	}

	game := engine.NewInstance(r.Table.Game, r.Occupants())
	r.SetGame(game)
	if err := r.Advance(room.StatePlaying); err != nil {
		s.sendErr(c, err)
		return
	}

	s.rooms.Broadcast(r.ID, mustEnvelope(websocket.TypeGameStarted, GameStarted{
		RoomID:    r.ID,
		SessionID: active.SessionID,
		State:     game.Snapshot(),
	}))

	roomID, sessionID := r.ID, active.SessionID
	r.SetWatch(room.StartWatch(room.PollInterval, game.IsTerminal, func(t engine.Terminal) {
		s.finishGame(roomID, sessionID, t)
	}))
}

// finishGame runs once per room, on first terminal detection: broadcast the
// outcome, close the session in a tracked goroutine with an explicit error
// sink, and schedule the registry teardown after the grace delay so clients
// see the result before their connections drop.
func (s *gameServiceImpl) finishGame(roomID, sessionID string, t engine.Terminal) {
	r, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}
	if err := r.Advance(room.StateClosing); err != nil {
		log.Printf("service: room %s: %v", roomID, err)
	}

	over := GameOver{RoomID: roomID, Winner: t.Winner, Tie: t.Tie}
	if g := r.Game(); g != nil {
		over.State = g.Snapshot()
	}
	s.rooms.Broadcast(roomID, mustEnvelope(websocket.TypeGameOver, over))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
		defer cancel()
		outcome := session.Outcome{Winner: t.Winner, Tie: t.Tie}
		if err := s.sessions.Close(ctx, sessionID, outcome); err != nil {
			log.Printf("service: close for session %s failed, settlement unresolved: %v", sessionID, err)
		}
	}()

	time.AfterFunc(s.grace, func() { s.rooms.Close(roomID) })
}

// handleMove applies one action, records it on the audit trail, and fans the
// updated state out. Every fifth recorded move triggers an advisory
// checkpoint in the background.
func (s *gameServiceImpl) handleMove(c *websocket.Client, m *websocket.Move) {
	addr := c.Address()
	if addr == "" {
		c.SendError(CodeInvalidPayload, "joinRoom first")
		return
	}

	r, ok := s.rooms.Get(m.RoomID)
	if !ok {
		r, ok = s.rooms.RoomFor(addr)
	}
	if !ok {
		s.sendErr(c, room.ErrRoomNotFound)
		return
	}

	game := r.Game()
	if game == nil || r.Lifecycle() != room.StatePlaying {
		c.SendError(CodeSessionNotFound, "game not running")
		return
	}

	action := engine.Action(m.Action)
	if !action.Valid() {
		c.SendError(CodeInvalidPayload, fmt.Sprintf("unknown action %q", m.Action))
		return
	}

	result := game.ApplyMove(addr, action)
	if !result.OK {
		// Rejected moves go back to the mover only; the board did not change.
		if err := c.SendMessage(websocket.TypeGameUpdate, GameUpdate{RoomID: r.ID, Participant: addr, Result: result}); err != nil {
			log.Printf("service: game:update to %s lost: %v", addr, err)
		}
		return
	}

	s.rooms.Broadcast(r.ID, mustEnvelope(websocket.TypeGameUpdate, GameUpdate{
		RoomID:      r.ID,
		Participant: addr,
		Result:      result,
	}))

	active, ok := s.sessions.Arena().ActiveByRoom(r.ID)
	if !ok {
		return
	}
	mv, err := s.sessions.Arena().AppendMove(active.SessionID, addr, m.Action, time.Now())
	if err != nil {
		log.Printf("service: audit append for session %s: %v", active.SessionID, err)
		return
	}
	if mv.Sequence%checkpointEvery == 0 {
		scores := scoresOf(game.Snapshot())
		sessionID := active.SessionID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
			defer cancel()
			if err := s.sessions.Checkpoint(ctx, sessionID, scores); err != nil {
				log.Printf("service: checkpoint for session %s: %v", sessionID, err)
			}
		}()
	}
}

func (s *gameServiceImpl) handleRooms(c *websocket.Client) {
	rooms := s.rooms.Available()
	infos := make([]*RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, s.roomInfo(r))
	}
	if err := c.SendMessage(websocket.TypeRoomAvailable, RoomsAvailable{Rooms: infos}); err != nil {
		log.Printf("service: room:available lost: %v", err)
	}
}

// ListRooms returns every live room, newest first not guaranteed.
func (s *gameServiceImpl) ListRooms(ctx context.Context) []*RoomInfo {
	rooms := s.rooms.All()
	infos := make([]*RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, s.roomInfo(r))
	}
	return infos
}

// RoomState returns one room's projection.
func (s *gameServiceImpl) RoomState(ctx context.Context, roomID string) (*RoomInfo, error) {
	r, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", room.ErrRoomNotFound, roomID)
	}
	return s.roomInfo(r), nil
}

// SessionAudit returns the audit trail of the room's established session.
func (s *gameServiceImpl) SessionAudit(ctx context.Context, roomID string) (*AuditInfo, error) {
	active, ok := s.sessions.Arena().ActiveByRoom(roomID)
	if !ok {
		return nil, fmt.Errorf("%w: room %s", session.ErrSessionNotFound, roomID)
	}
	meta, err := s.sessions.Arena().AuditSnapshot(active.SessionID)
	if err != nil {
		return nil, err
	}
	return &AuditInfo{
		SessionID: active.SessionID,
		RoomID:    roomID,
		Unsettled: active.Unsettled,
		Metadata:  meta,
	}, nil
}

func (s *gameServiceImpl) roomInfo(r *room.Room) *RoomInfo {
	return &RoomInfo{
		ID:        r.ID,
		Lifecycle: r.Lifecycle(),
		Occupants: r.Occupants(),
		Table:     r.Table.Name,
		BetAmount: r.Table.BetAmount,
		Asset:     r.Table.Asset,
		Phase:     s.sessions.Arena().Phase(r.ID),
		CreatedAt: r.CreatedAt(),
	}
}

func (s *gameServiceImpl) sendErr(c *websocket.Client, err error) {
	c.SendError(codeFor(err), err.Error())
}

// codeFor maps domain sentinels onto the wire error taxonomy.
func codeFor(err error) string {
	var wire *clearnet.WireError
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, room.ErrIdentityAlreadyBound):
		return CodeIdentityAlreadyBound
	case errors.Is(err, room.ErrJoinFailed):
		return CodeJoinFailed
	case errors.Is(err, validate.ErrSignatureMalformed):
		return CodeSignatureMalformed
	case errors.Is(err, validate.ErrAddressMalformed),
		errors.Is(err, validate.ErrInvalidPayload),
		errors.Is(err, session.ErrUnknownSigner),
		errors.Is(err, config.ErrConfigNotFound),
		errors.Is(err, config.ErrInvalidConfig):
		return CodeInvalidPayload
	case errors.Is(err, session.ErrQuorumIncomplete):
		return CodeQuorumIncomplete
	case errors.Is(err, session.ErrNoPendingSession),
		errors.Is(err, session.ErrSessionNotFound):
		return CodeSessionNotFound
	case errors.Is(err, clearnet.ErrAuthTimeout):
		return CodeAuthTimeout
	case errors.Is(err, clearnet.ErrAuthRejected):
		return CodeAuthRejected
	case errors.Is(err, clearnet.ErrRequestTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return CodeLedgerTimeout
	case errors.As(err, &wire),
		errors.Is(err, clearnet.ErrConnectionClosed):
		return CodeLedgerRejected
	default:
		return CodeInternal
	}
}

// mustEnvelope wraps an outbound payload, panicking only on marshal failure
// of our own types.
func mustEnvelope(t websocket.MessageType, payload any) websocket.Envelope {
	env, err := websocket.NewEnvelope(t, payload)
	if err != nil {
		panic(fmt.Sprintf("marshal %s payload: %v", t, err))
	}
	return env
}

// scoresOf projects the checkpoint score map out of a state snapshot.
func scoresOf(state engine.State) map[string]int {
	scores := make(map[string]int, len(state.Actors))
	for addr, actor := range state.Actors {
		scores[addr] = actor.Score
	}
	return scores
}
