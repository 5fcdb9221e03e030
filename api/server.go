package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/gridduel/server/game/config"
	"github.com/gridduel/server/game/service"
	"github.com/gridduel/server/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	tables  *config.Manager
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, tables *config.Manager, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		tables:  tables,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Rooms and their sessions, read-only
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{id}", s.handleGetRoom).Methods("GET")
	api.HandleFunc("/rooms/{id}/audit", s.handleGetAudit).Methods("GET")

	// Stake tables
	api.HandleFunc("/tables", s.handleListTables).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.hub.ServeWS)

	// Health check
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Room Handlers

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.service.ListRooms(r.Context())

	query := r.URL.Query()
	order := query.Get("order") // "asc", "desc" (default: "desc")
	if order == "" {
		order = "desc"
	}

	sort.Slice(rooms, func(i, j int) bool {
		if order == "asc" {
			return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
		}
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})

	limit := len(rooms)
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(rooms) {
			limit = l
		}
	}
	rooms = rooms[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
		"order": order,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	roomID := vars["id"]

	info, err := s.service.RoomState(r.Context(), roomID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	roomID := vars["id"]

	audit, err := s.service.SessionAudit(r.Context(), roomID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, audit)
}

// Table Handlers

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.tables.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The built-in default is always available even with an empty config dir.
	out := []*config.Table{s.tables.Default()}
	out = append(out, tables...)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(out),
		"tables": out,
	})
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
