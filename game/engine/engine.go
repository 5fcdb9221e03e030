package engine

import (
	"math/rand"
	"sync"
)

// Config controls instance creation. Zero values fall back to the package
// defaults.
type Config struct {
	GridSize   int `json:"grid_size"`
	CoinCount  int `json:"coin_count"`
	MoveBudget int `json:"move_budget"`

	// Seed makes coin placement deterministic when non-zero, used by tests.
	Seed int64 `json:"-"`
}

func (c Config) withDefaults() Config {
	if c.GridSize < MinGridSize || c.GridSize > MaxGridSize {
		c.GridSize = DefaultGridSize
	}
	if c.CoinCount <= 0 {
		c.CoinCount = DefaultCoinCount
	}
	if c.MoveBudget <= 0 {
		c.MoveBudget = DefaultMoveBudget
	}
	return c
}

// Instance is one running game. Methods are safe for concurrent use.
type Instance struct {
	mu    sync.Mutex
	cfg   Config
	state State
	order []string
}

// NewInstance creates a game for the given participants. Actors spawn in
// distinct corners; coins are scattered over free cells.
func NewInstance(cfg Config, participants []string) *Instance {
	cfg = cfg.withDefaults()
	inst := &Instance{
		cfg:   cfg,
		order: append([]string(nil), participants...),
		state: State{
			GridSize: cfg.GridSize,
			Actors:   make(map[string]*Actor, len(participants)),
		},
	}

	last := cfg.GridSize - 1
	corners := []Position{{0, 0}, {last, last}, {0, last}, {last, 0}}
	for i, p := range participants {
		inst.state.Actors[p] = &Actor{
			Position:  corners[i%len(corners)],
			MovesLeft: cfg.MoveBudget,
		}
	}

	inst.scatterCoins()
	return inst
}

func (inst *Instance) scatterCoins() {
	rng := rand.New(rand.NewSource(inst.cfg.Seed))
	if inst.cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	occupied := make(map[Position]bool)
	for _, a := range inst.state.Actors {
		occupied[a.Position] = true
	}
	for len(inst.state.Coins) < inst.cfg.CoinCount {
		pos := Position{X: rng.Intn(inst.cfg.GridSize), Y: rng.Intn(inst.cfg.GridSize)}
		if occupied[pos] {
			continue
		}
		occupied[pos] = true
		inst.state.Coins = append(inst.state.Coins, pos)
	}
}

// ApplyMove advances the game by one action for the given participant. It
// validates direction, grid bounds, and the actor's move budget; an invalid
// move leaves the state untouched.
func (inst *Instance) ApplyMove(participant string, action Action) MoveResult {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	actor, ok := inst.state.Actors[participant]
	if !ok {
		return MoveResult{Reason: "unknown participant"}
	}
	if !action.Valid() {
		return MoveResult{Reason: "unknown action"}
	}
	if inst.terminalLocked().Over {
		return MoveResult{Reason: "game over"}
	}
	if actor.MovesLeft <= 0 {
		return MoveResult{Reason: "move budget exhausted"}
	}

	next := actor.Position
	switch action {
	case ActionUp:
		next.Y--
	case ActionDown:
		next.Y++
	case ActionLeft:
		next.X--
	case ActionRight:
		next.X++
	}
	if next.X < 0 || next.Y < 0 || next.X >= inst.state.GridSize || next.Y >= inst.state.GridSize {
		return MoveResult{Reason: "out of bounds"}
	}

	actor.Position = next
	actor.MovesLeft--
	inst.state.Moves++

	for i, coin := range inst.state.Coins {
		if coin == next {
			inst.state.Coins = append(inst.state.Coins[:i], inst.state.Coins[i+1:]...)
			actor.Score++
			break
		}
	}

	snapshot := inst.snapshotLocked()
	return MoveResult{OK: true, State: &snapshot}
}

// IsTerminal reports whether the game is over and the outcome. The game ends
// when no coins remain or every actor has exhausted its move budget. The
// highest unique score wins; equal top scores tie.
func (inst *Instance) IsTerminal() Terminal {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.terminalLocked()
}

func (inst *Instance) terminalLocked() Terminal {
	exhausted := true
	for _, a := range inst.state.Actors {
		if a.MovesLeft > 0 {
			exhausted = false
			break
		}
	}
	if len(inst.state.Coins) > 0 && !exhausted {
		return Terminal{}
	}

	best, runnerUp := -1, -1
	winner := ""
	for _, p := range inst.order {
		score := inst.state.Actors[p].Score
		switch {
		case score > best:
			runnerUp = best
			best = score
			winner = p
		case score > runnerUp:
			runnerUp = score
		}
	}
	// No score at all is not a decisive result, even with a single actor.
	if best <= 0 || best == runnerUp {
		return Terminal{Over: true, Tie: true}
	}
	return Terminal{Over: true, Winner: winner}
}

// Snapshot returns a copy of the observable state.
func (inst *Instance) Snapshot() State {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.snapshotLocked()
}

func (inst *Instance) snapshotLocked() State {
	out := State{
		GridSize: inst.state.GridSize,
		Actors:   make(map[string]*Actor, len(inst.state.Actors)),
		Coins:    append([]Position(nil), inst.state.Coins...),
		Moves:    inst.state.Moves,
	}
	for p, a := range inst.state.Actors {
		copied := *a
		out.Actors[p] = &copied
	}
	return out
}
