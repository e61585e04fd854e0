package service

import (
	"context"
)

// GameService defines all game-related operations
type GameService interface {
	// Game lifecycle
	CreateGame(ctx context.Context) (*GameInfo, error)
	GetGame(ctx context.Context, gameID string) (*GameInfo, error)
	ListGames(ctx context.Context) ([]*GameInfo, error)

	// CheckJoin reports whether gameID exists and has a free seat. It does
	// not reserve the seat.
	CheckJoin(ctx context.Context, gameID string) (*GameInfo, error)

	// Realtime operations, keyed by the caller's connection id
	JoinGame(ctx context.Context, gameID, connID, playerName string) (*JoinResult, error)
	MakeMove(ctx context.Context, gameID, connID string, row, col int) (*MoveResult, error)
	LeaveGame(ctx context.Context, gameID, connID string) (*LeaveResult, error)
}
