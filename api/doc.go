// Package api provides the REST surface of the Grid Duel server.
//
// Routes:
//
//	GET /api/rooms            - list live rooms (sort/limit query params)
//	GET /api/rooms/{id}       - one room's state projection
//	GET /api/rooms/{id}/audit - the room's session audit trail
//	GET /api/tables           - stake tables available to joinRoom
//	GET /healthz              - liveness probe
//	/ws                       - websocket mount for game clients
//
// The API is read-only by design: every mutation of rooms and sessions goes
// through the websocket protocol, where identity binding and signatures
// live. The REST layer serves operators, the MCP admin surface, and
// debugging.
package api
