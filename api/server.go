package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wricardo/simonsays/game/registry"
	"github.com/wricardo/simonsays/game/service"
	"github.com/wricardo/simonsays/transport/websocket"
)

// Server represents the HTTP server used by boards, browsers and tools.
type Server struct {
	service   service.GameService
	hub       *websocket.Hub
	router    *mux.Router
	staticDir string
	mcp       http.Handler
	log       zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStaticDir sets the directory served at /.
func WithStaticDir(dir string) Option {
	return func(s *Server) {
		s.staticDir = dir
	}
}

// WithMCPHandler mounts h at POST /mcp.
func WithMCPHandler(h http.Handler) Option {
	return func(s *Server) {
		s.mcp = h
	}
}

// WithLogger sets the server logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service:   gameService,
		hub:       hub,
		router:    mux.NewRouter(),
		staticDir: "./static/",
		log:       log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "api").Logger()

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	// Hardware endpoint, kept at the path the board firmware posts to
	s.router.HandleFunc("/data", s.handleData).Methods("POST")

	api := s.router.PathPrefix("/api").Subrouter()

	// Game
	api.HandleFunc("/game", s.handleGetGame).Methods("GET")
	api.HandleFunc("/game/start", s.handleStartGame).Methods("POST")

	// Boards
	api.HandleFunc("/boards", s.handleListBoards).Methods("GET")
	api.HandleFunc("/boards/{id}/trigger", s.handleTriggerBoard).Methods("POST")
	api.HandleFunc("/boards/{id}", s.handleDisconnectBoard).Methods("DELETE")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	if s.mcp != nil {
		s.router.Handle("/mcp", s.mcp).Methods("POST")
	}

	// Static files
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Dur("took", time.Since(start)).
			Msg("request")
	})
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

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrGameInProgress):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoBoards):
		return http.StatusPreconditionFailed
	case errors.Is(err, service.ErrMissingBoardID):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrUnknownBoard):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Hardware Handlers

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
}

// chipID normalizes the chipId field to its decimal string form. The
// firmware sends a JSON number and the simulator a string. It returns ""
// when the field is missing or of any other type.
func chipID(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		if n, err := id.Int64(); err == nil {
			return strconv.FormatInt(n, 10)
		}
	}
	return ""
}

func distance(v any) float64 {
	if n, ok := v.(json.Number); ok {
		f, _ := n.Float64()
		return f
	}
	return 0
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if !isJSON(r) || dec.Decode(&data) != nil {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("received non-JSON data")
		respondJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Request must be JSON"})
		return
	}

	result, err := s.service.Trigger(r.Context(), service.TriggerEvent{
		ChipID:   chipID(data["chipId"]),
		Distance: distance(data["distance"]),
	})
	if errors.Is(err, service.ErrMissingBoardID) || (err == nil && result.Ignored) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Ignored unknown board"})
		return
	}
	if err != nil {
		respondJSON(w, errorStatus(err), map[string]string{"status": "error", "message": err.Error()})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "success",
		"received_data": data,
	})
}

// Game Handlers

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.Status(r.Context())
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.StartGame(r.Context())
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Board Handlers

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.service.Boards(r.Context())
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}

	connected := 0
	for _, b := range boards {
		if b.Connected {
			connected++
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(boards),
		"connected": connected,
		"boards":    boards,
	})
}

func (s *Server) handleTriggerBoard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	boardID := vars["id"]

	var req struct {
		Distance float64 `json:"distance"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := s.service.Trigger(r.Context(), service.TriggerEvent{ChipID: boardID, Distance: req.Distance})
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	if result.Ignored {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown board %s", boardID))
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDisconnectBoard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	boardID := vars["id"]

	if err := s.service.DisconnectBoard(r.Context(), boardID); err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Board %s disconnected", boardID),
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "observers not available", http.StatusServiceUnavailable)
		return
	}

	s.hub.ServeWS(w, r)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	observers := 0
	if s.hub != nil {
		observers = s.hub.ClientCount()
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"boards":    len(s.service.Roster()),
		"observers": observers,
	})
}
