// Package engine provides the grid duel game logic.
//
// The engine implements the game mechanics including:
//   - Grid-based actor movement and wall collision
//   - Coin placement and collection scoring
//   - Move budgets and terminal detection
//
// Core Types:
//
// Instance holds one running game. ApplyMove advances it by a single action;
// IsTerminal reports whether the game is over and who won. The rest of the
// server treats this package as a black box: session negotiation, rooms, and
// settlement never inspect game internals beyond the terminal outcome and
// the snapshot used for checkpoints.
//
// Usage:
//
//	inst := engine.NewInstance(cfg, []string{playerAddr})
//	res := inst.ApplyMove(playerAddr, engine.ActionUp)
//	if !res.OK {
//		log.Println(res.Reason)
//	}
//	if term := inst.IsTerminal(); term.Over {
//		log.Printf("winner: %s", term.Winner)
//	}
//
// Game Rules:
//
// Each actor starts in its own corner of an N×N grid with a fixed move
// budget. Moving onto a coin collects it and scores a point. The game ends
// when every coin is collected or every actor has exhausted its budget; the
// highest unique score wins, equal top scores tie.
package engine
