// Package mcp exposes a small admin surface over the Model Context Protocol.
//
// The client is a thin proxy: every tool call is translated into a request
// against the REST API, so MCP sees exactly what an operator with curl sees.
// It deliberately has no write tools — rooms and sessions are only mutated
// through the websocket protocol, where identities and signatures live.
//
// Tools:
//
//	list_rooms    - live rooms with lifecycle and session phase
//	room_state    - one room's full projection
//	session_audit - the append-only move log and fee ledger of a session
//	list_tables   - stake tables available to joinRoom
package mcp
