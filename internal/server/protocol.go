package server

import "github.com/optcgsim/match-server-go/internal/game"

// JSON protocol over the match WebSocket.
//
// The client sends commands; the server answers the acting client with a
// result and pushes a fresh per-viewer state snapshot to every connected
// player after each state change.

// ClientMessage is the envelope for all client-to-server messages.
type ClientMessage struct {
	Type string `json:"type"` // "command"

	Command *game.Command `json:"command,omitempty"`
}

// ServerMessage is the envelope for all server-to-client messages.
type ServerMessage struct {
	Type string `json:"type"` // "joined", "state", "result", "error"

	MatchID  string         `json:"matchId,omitempty"`
	PlayerID string         `json:"playerId,omitempty"`
	State    *game.Snapshot `json:"state,omitempty"`
	Result   *game.Result   `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// CreateMatchRequest is the POST /matches body.
type CreateMatchRequest struct {
	ID      string               `json:"id,omitempty"`
	Seed    int64                `json:"seed,omitempty"`
	Players [2]game.PlayerConfig `json:"players"`
}

// CreateMatchResponse is the POST /matches reply.
type CreateMatchResponse struct {
	MatchID string `json:"matchId"`
}
