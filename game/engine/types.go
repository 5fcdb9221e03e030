package engine

// Action is one of the four grid directions.
type Action string

const (
	ActionUp    Action = "up"
	ActionDown  Action = "down"
	ActionLeft  Action = "left"
	ActionRight Action = "right"
)

// Valid reports whether a is a known direction.
func (a Action) Valid() bool {
	switch a {
	case ActionUp, ActionDown, ActionLeft, ActionRight:
		return true
	}
	return false
}

const (
	MinGridSize = 5
	MaxGridSize = 50

	DefaultGridSize   = 9
	DefaultCoinCount  = 5
	DefaultMoveBudget = 40
)

// Position represents x,y coordinates on the grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Actor is one participant's piece on the grid.
type Actor struct {
	Position  Position `json:"position"`
	Score     int      `json:"score"`
	MovesLeft int      `json:"moves_left"`
}

// State is the full observable game state, broadcast to clients on every
// update.
type State struct {
	GridSize int               `json:"grid_size"`
	Actors   map[string]*Actor `json:"actors"`
	Coins    []Position        `json:"coins"`
	Moves    int               `json:"moves"`
}

// MoveResult reports whether an action applied and why not otherwise.
type MoveResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
	State  *State `json:"state,omitempty"`
}

// Terminal is the outcome of the terminal predicate. Winner is empty while
// the game runs and on a tie.
type Terminal struct {
	Over   bool   `json:"over"`
	Winner string `json:"winner,omitempty"`
	Tie    bool   `json:"tie,omitempty"`
}
