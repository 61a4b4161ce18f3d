package game

import (
	"time"
)

type Game struct {
	ID            string      `json:"id" bson:"_id"`
	OwnerID       string      `json:"owner_id" bson:"owner_id"`
	FEN           string      `json:"fen" bson:"fen"`
	Moves         []Move      `json:"moves" bson:"moves"`
	CurrentPlayer string      `json:"current_player" bson:"current_player"`
	Status        string      `json:"status" bson:"status"`
	Difficulty    string      `json:"difficulty" bson:"difficulty"`
	PlayerColor   string      `json:"player_color" bson:"player_color"`
	Result        *GameResult `json:"result,omitempty" bson:"result,omitempty"`
	Completed     bool        `json:"completed" bson:"completed"`
	Version       int         `json:"-" bson:"version"` // CAS counter for concurrent writers
	CreatedAt     time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" bson:"updated_at"`
}

// @name Move
type Move struct {
	From      string    `json:"from" bson:"from"`
	To        string    `json:"to" bson:"to"`
	Notation  string    `json:"notation" bson:"notation"`
	Promotion string    `json:"promotion,omitempty" bson:"promotion,omitempty"`
	PlayedAt  time.Time `json:"played_at" bson:"played_at"`
}

type GameResult struct {
	Winner          string `json:"winner" bson:"winner"`
	Reason          string `json:"reason" bson:"reason"`
	MoveCount       int    `json:"move_count" bson:"move_count"`
	DurationSeconds int64  `json:"duration_seconds" bson:"duration_seconds"`
}

// RecentNotations returns the notations of the last n recorded moves,
// oldest first.
func (g *Game) RecentNotations(n int) []string {
	start := len(g.Moves) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(g.Moves)-start)
	for _, m := range g.Moves[start:] {
		out = append(out, m.Notation)
	}
	return out
}

type CreateGameRequest struct {
	Difficulty  string `json:"difficulty"`
	PlayerColor string `json:"player_color"`
}

type PlayerMoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

type UndoRequest struct {
	Count int `json:"count,omitempty"`
}

// @name MoveResult
type MoveResult struct {
	Move   Move        `json:"move"`
	FEN    string      `json:"fen"`
	Status string      `json:"status"`
	Result *GameResult `json:"result,omitempty"`
	Game   Game        `json:"game"`
}

// @name AIMoveResult
type AIMoveResult struct {
	Move           Move        `json:"move"`
	Notation       string      `json:"notation"`
	FEN            string      `json:"fen"`
	Status         string      `json:"status"`
	Result         *GameResult `json:"result,omitempty"`
	AttemptsUsed   int         `json:"attempts_used"`
	UsedFallback   bool        `json:"used_fallback"`
	FallbackReason string      `json:"fallback_reason,omitempty"`
}

// SuggestionRequest is what the external move-suggestion service receives.
type SuggestionRequest struct {
	FEN         string   `json:"fen"`
	Difficulty  string   `json:"difficulty"`
	RecentMoves []string `json:"recent_moves"`
}

// ValidMovesResponse lists either full moves for the position or, when a
// source square was given, just the reachable target squares.
type ValidMovesResponse struct {
	Moves   []Move   `json:"moves,omitempty"`
	Squares []string `json:"squares,omitempty"`
}
