package server

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/optcgsim/match-server-go/internal/game"
)

// room fans one match out to its connected players. Commands are already
// serialized by the match itself; the room only guards its client map and
// the stall timer.
type room struct {
	match   *game.Match
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	clients map[string]*client
	timer   *time.Timer
	closed  bool
}

func newRoom(match *game.Match, timeout time.Duration, logger *zap.Logger) *room {
	return &room{
		match:   match,
		logger:  logger.With(zap.String("matchId", match.ID())),
		timeout: timeout,
		clients: make(map[string]*client),
	}
}

// register attaches a player connection and sends the current state. A
// reconnect replaces the previous connection.
func (r *room) register(c *client) {
	r.mu.Lock()
	if prev, ok := r.clients[c.playerID]; ok {
		prev.closeSend()
	}
	r.clients[c.playerID] = c
	r.mu.Unlock()

	r.logger.Info("player connected", zap.String("player", c.playerID))
	c.enqueue(ServerMessage{Type: "joined", MatchID: r.match.ID(), PlayerID: c.playerID})
	snap := r.match.Snapshot(c.playerID)
	c.enqueue(ServerMessage{Type: "state", MatchID: r.match.ID(), State: &snap})
}

func (r *room) unregister(c *client) {
	r.mu.Lock()
	if cur, ok := r.clients[c.playerID]; ok && cur == c {
		delete(r.clients, c.playerID)
	}
	r.mu.Unlock()
	c.closeSend()
	r.logger.Info("player disconnected", zap.String("player", c.playerID))
}

// handleCommand applies one command to the match, answers the actor and
// pushes fresh snapshots to everyone.
func (r *room) handleCommand(c *client, cmd game.Command) {
	// A connection speaks only for its own player.
	cmd.PlayerID = c.playerID
	res := r.match.Execute(cmd)
	c.enqueue(ServerMessage{Type: "result", MatchID: r.match.ID(), Result: &res})
	r.broadcastState()
	r.armTimer()
}

// broadcastState pushes a per-viewer snapshot to every connected player.
func (r *room) broadcastState() {
	r.mu.Lock()
	clients := make([]*client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.Unlock()

	for _, c := range clients {
		snap := r.match.Snapshot(c.playerID)
		c.enqueue(ServerMessage{Type: "state", MatchID: r.match.ID(), State: &snap})
	}
}

// armTimer schedules the stall timeout. When it fires the match resolves
// the waiting decision to its default and play continues.
func (r *room) armTimer() {
	if r.timeout <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	if done, _ := r.match.Finished(); done {
		return
	}
	r.timer = time.AfterFunc(r.timeout, r.onTimeout)
}

func (r *room) onTimeout() {
	res := r.match.ResolveTimeout()
	if len(res.Events) == 0 {
		return
	}
	r.logger.Info("stalled decision resolved by timeout")
	r.broadcastState()
	r.armTimer()
}

// close stops the timer and drops every connection.
func (r *room) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
	for id, c := range r.clients {
		c.closeSend()
		delete(r.clients, id)
	}
}
