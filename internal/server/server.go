package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/optcgsim/match-server-go/internal/config"
	"github.com/optcgsim/match-server-go/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server exposes the match engine over HTTP and WebSocket.
type Server struct {
	cfg    config.ServerConfig
	engine *game.Engine
	logger *zap.Logger

	mu    sync.Mutex
	rooms map[string]*room

	httpServer *http.Server
}

// New builds the server and its routes.
func New(cfg config.ServerConfig, engine *game.Engine, logger *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger,
		rooms:  make(map[string]*room),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/matches", s.handleCreateMatch)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:    cfg.Address,
		Handler: mux,
	}
	return s
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("address", s.cfg.Address))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	for _, r := range s.rooms {
		r.close()
	}
	s.mu.Unlock()

	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleCreateMatch creates a match and its room.
func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	if s.engine.MatchCount() >= s.cfg.MaxMatches {
		http.Error(w, "match capacity reached", http.StatusServiceUnavailable)
		return
	}

	m, err := s.engine.CreateMatch(game.MatchConfig{
		ID:      req.ID,
		Seed:    req.Seed,
		Players: req.Players,
	})
	if err != nil {
		s.logger.Warn("match creation rejected", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.rooms[m.ID()] = newRoom(m, s.cfg.ActionTimeout, s.logger)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(CreateMatchResponse{MatchID: m.ID()})
}

// handleWebSocket joins a player connection to a match room.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("match")
	playerID := r.URL.Query().Get("player")
	if matchID == "" || playerID == "" {
		http.Error(w, "match and player query parameters required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	rm, ok := s.rooms[matchID]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown match", http.StatusNotFound)
		return
	}
	if !rm.match.HasPlayer(playerID) {
		http.Error(w, "player is not in this match", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(rm, conn, playerID, s.logger)
	rm.register(c)
	go c.writePump()
	go c.readPump()
}
