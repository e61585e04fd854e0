package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/tictactoe-server/game/engine"
)

var (
	ErrGameFull       = errors.New("game is full")
	ErrPlayerNotFound = errors.New("player not found")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrGameOver       = errors.New("game is over")
)

// MaxPlayers is the number of seats in a session.
const MaxPlayers = 2

// Status is the lifecycle phase of a session.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Player is a participant bound to one live connection.
type Player struct {
	ConnID string        `json:"-"`
	Name   string        `json:"name"`
	Symbol engine.Symbol `json:"symbol"`
}

// Session is one game between two players.
//
// Session is not safe for concurrent use. Mutating methods must only be
// called through Manager, which serializes access per session.
type Session struct {
	ID          string         `json:"id"`
	Board       engine.Board   `json:"board"`
	Players     []Player       `json:"players"`
	CurrentTurn engine.Symbol  `json:"currentPlayer"`
	Status      Status         `json:"status"`
	Outcome     engine.Outcome `json:"winner"`
	MoveCount   int            `json:"moveCount"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// New returns an empty session waiting for players.
func New(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Players:   make([]Player, 0, MaxPlayers),
		Status:    StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddPlayer seats a new player and returns the assigned symbol. The first
// player always gets X. When the second seat is filled in a waiting session
// the game starts with X to move.
func (s *Session) AddPlayer(connID, name string) (engine.Symbol, error) {
	if len(s.Players) >= MaxPlayers {
		return engine.None, ErrGameFull
	}

	symbol := engine.X
	if len(s.Players) == 1 {
		// A seat freed by a departed player is refilled with the symbol the
		// remaining player does not hold.
		symbol = s.Players[0].Symbol.Other()
	}

	s.Players = append(s.Players, Player{ConnID: connID, Name: name, Symbol: symbol})

	if len(s.Players) == MaxPlayers && s.Status == StatusWaiting {
		s.CurrentTurn = engine.X
		s.Status = StatusInProgress
	}

	return symbol, nil
}

// RemovePlayer removes the player bound to connID. Board, turn and status are
// left untouched. It reports whether a player was removed.
func (s *Session) RemovePlayer(connID string) bool {
	for i, p := range s.Players {
		if p.ConnID == connID {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			return true
		}
	}
	return false
}

// Move plays the mover's symbol at (row, col).
//
// The turn flips on every accepted move, including the one that ends the
// game; once finished the turn is inert but still reported to clients.
func (s *Session) Move(connID string, row, col int) error {
	player, ok := s.Player(connID)
	if !ok {
		return ErrPlayerNotFound
	}
	if player.Symbol != s.CurrentTurn {
		return ErrNotYourTurn
	}
	if s.Status == StatusFinished {
		return ErrGameOver
	}

	board, err := engine.ApplyMove(s.Board, row, col, player.Symbol)
	if err != nil {
		return fmt.Errorf("move by %s: %w", player.Symbol, err)
	}
	s.Board = board
	s.MoveCount++

	if outcome := engine.DetectOutcome(board); outcome != engine.OutcomeNone {
		s.Status = StatusFinished
		s.Outcome = outcome
	}
	s.CurrentTurn = s.CurrentTurn.Other()

	return nil
}

// Player returns the player bound to connID.
func (s *Session) Player(connID string) (Player, bool) {
	for _, p := range s.Players {
		if p.ConnID == connID {
			return p, true
		}
	}
	return Player{}, false
}

// IsOver reports whether the game has finished.
func (s *Session) IsOver() bool {
	return s.Status == StatusFinished
}

// Snapshot returns a copy that shares no memory with s.
func (s *Session) Snapshot() Session {
	cp := *s
	cp.Players = make([]Player, len(s.Players))
	copy(cp.Players, s.Players)
	return cp
}
