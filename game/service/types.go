package service

import (
	"time"

	"github.com/wricardo/tictactoe-server/game/engine"
	"github.com/wricardo/tictactoe-server/game/session"
)

// PlayerInfo is the public view of a seated player.
type PlayerInfo struct {
	Name   string        `json:"name"`
	Symbol engine.Symbol `json:"symbol"`
}

// GameInfo provides information about a game session
type GameInfo struct {
	ID            string         `json:"id"`
	Board         engine.Board   `json:"board"`
	Players       []PlayerInfo   `json:"players"`
	CurrentPlayer engine.Symbol  `json:"currentPlayer"`
	Status        session.Status `json:"status"`
	Winner        engine.Outcome `json:"winner"`
	IsGameOver    bool           `json:"isGameOver"`
	MoveCount     int            `json:"moveCount"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// JoinResult contains the result of a join
type JoinResult struct {
	Symbol engine.Symbol `json:"symbol"`
	Game   *GameInfo     `json:"game"`
	// Started is true when both seats are filled after this join and the
	// game is still playable.
	Started bool `json:"started"`
}

// MoveResult contains the result of an accepted move
type MoveResult struct {
	Symbol engine.Symbol `json:"symbol"`
	Game   *GameInfo     `json:"game"`
}

// LeaveResult describes a connection leaving a game
type LeaveResult struct {
	Removed   bool `json:"removed"`
	Deleted   bool `json:"deleted"`
	Remaining int  `json:"remaining"`
}

func newGameInfo(s session.Session) *GameInfo {
	players := make([]PlayerInfo, len(s.Players))
	for i, p := range s.Players {
		players[i] = PlayerInfo{Name: p.Name, Symbol: p.Symbol}
	}
	return &GameInfo{
		ID:            s.ID,
		Board:         s.Board,
		Players:       players,
		CurrentPlayer: s.CurrentTurn,
		Status:        s.Status,
		Winner:        s.Outcome,
		IsGameOver:    s.IsOver(),
		MoveCount:     s.MoveCount,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}
