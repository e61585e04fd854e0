package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wricardo/tictactoe-server/game/service"
	"github.com/wricardo/tictactoe-server/game/session"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	router  *mux.Router
	handler http.Handler
}

// NewServer creates a new API server. ws serves /ws and metrics serves
// /metrics; either may be nil to leave the route out.
func NewServer(gameService service.GameService, ws, metrics http.Handler) *Server {
	s := &Server{
		service: gameService,
		router:  mux.NewRouter(),
	}

	s.setupRoutes(ws, metrics)
	s.handler = withCORS(s.router)
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes(ws, metrics http.Handler) {
	s.router.HandleFunc("/", s.handleRoot).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/test", s.handleTest).Methods("GET")

	// Game management
	api.HandleFunc("/games/create", s.handleCreateGame).Methods("POST")
	api.HandleFunc("/games/join/{gameId}", s.handleJoinGame).Methods("POST")
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games/{gameId}", s.handleGetGame).Methods("GET")

	if ws != nil {
		s.router.Handle("/ws", ws)
	}
	if metrics != nil {
		s.router.Handle("/metrics", metrics).Methods("GET")
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// withCORS allows any origin, answering preflight requests directly.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// respondGameError maps taxonomy errors to their status and message, and
// anything else to a 500 with fallback.
func respondGameError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	msg, ok := service.UserMessage(err)
	switch {
	case !ok:
		slog.ErrorContext(r.Context(), fallback, "error", err, "path", r.URL.Path)
		respondError(w, http.StatusInternalServerError, fallback)
	case errors.Is(err, session.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, msg)
	default:
		respondError(w, http.StatusBadRequest, msg)
	}
}

// Liveness Handlers

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("TicTacToe Server is running!"))
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Server is running",
	})
}

// Game Handlers

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	game, err := s.service.CreateGame(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create game", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create game")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"gameId":  game.ID,
	})
}

func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	game, err := s.service.CheckJoin(r.Context(), gameID)
	if err != nil {
		respondGameError(w, r, err, "Failed to join game")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"gameId":  game.ID,
	})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.service.ListGames(r.Context())
	if err != nil {
		respondGameError(w, r, err, "Failed to list games")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(games),
		"games":   games,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]

	game, err := s.service.GetGame(r.Context(), gameID)
	if err != nil {
		respondGameError(w, r, err, "Failed to get game")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"game":    game,
	})
}
