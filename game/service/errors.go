package service

import (
	"errors"

	"github.com/wricardo/tictactoe-server/game/engine"
	"github.com/wricardo/tictactoe-server/game/session"
)

// Client-facing messages for the game error taxonomy.
const (
	MsgGameNotFound   = "Game not found"
	MsgGameFull       = "Game is full"
	MsgPlayerNotFound = "Player not found"
	MsgNotYourTurn    = "Not your turn"
	MsgGameOver       = "Game is over"
	MsgInvalidMove    = "Invalid move"
)

// UserMessage maps err to the text shown to players. The second result is
// false for errors outside the game taxonomy, which callers should log and
// replace with a generic message.
func UserMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return MsgGameNotFound, true
	case errors.Is(err, session.ErrGameFull):
		return MsgGameFull, true
	case errors.Is(err, session.ErrPlayerNotFound):
		return MsgPlayerNotFound, true
	case errors.Is(err, session.ErrNotYourTurn):
		return MsgNotYourTurn, true
	case errors.Is(err, session.ErrGameOver):
		return MsgGameOver, true
	case errors.Is(err, engine.ErrInvalidMove):
		return MsgInvalidMove, true
	}
	return "", false
}

// resultLabel is the metrics label for the outcome of an operation.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, session.ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, session.ErrGameFull):
		return "full"
	case errors.Is(err, session.ErrPlayerNotFound):
		return "player_not_found"
	case errors.Is(err, session.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, session.ErrGameOver):
		return "game_over"
	case errors.Is(err, engine.ErrInvalidMove):
		return "invalid_move"
	}
	return "error"
}
