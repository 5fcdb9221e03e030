// Package service provides the orchestration layer for Grid Duel.
//
// The service package implements:
//   - Typed dispatch of game-facing websocket messages
//   - Room creation, identity binding and reconnect handling
//   - The channel session flow: propose, collect signatures, establish
//   - Gameplay: move application, audit recording, periodic checkpoints
//   - Terminal detection and the close/teardown sequence
//
// Core Interfaces:
//
// GameService is the main service interface. It is the websocket hub's
// message handler and at the same time the read surface the REST and MCP
// layers query for rooms and session audits.
//
// Architecture:
//
// The service layer sits between the transports (WebSocket/HTTP/MCP) and the
// domain packages: the room registry, the session negotiator and the game
// engine. It owns no state of its own beyond configuration knobs; rooms live
// in the registry and sessions in the negotiator's arena, and handlers
// re-fetch both after every settlement round trip.
//
// Usage:
//
//	registry := room.NewRegistry(0)
//	negotiator := session.NewNegotiator(session.NewArena(), ledger)
//	tables, _ := config.NewManager("configs")
//	svc := service.NewGameService(registry, negotiator, tables)
//
//	hub := websocket.NewHub(svc)
//	go hub.Run()
package service
