package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wricardo/tictactoe-server/game/engine"
	"github.com/wricardo/tictactoe-server/game/session"
	"github.com/wricardo/tictactoe-server/logging"
	"github.com/wricardo/tictactoe-server/metrics"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions *session.Manager
	metrics  *metrics.Metrics
}

// NewGameService creates a new game service instance. m may be nil.
func NewGameService(sessions *session.Manager, m *metrics.Metrics) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		metrics:  m,
	}
}

// CreateGame creates a new, empty game
func (s *gameServiceImpl) CreateGame(ctx context.Context) (*GameInfo, error) {
	sess, err := s.sessions.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	s.metrics.GameCreated()
	logging.WithGame(sess.ID).InfoContext(ctx, "Game created")

	return newGameInfo(sess), nil
}

// GetGame retrieves game information
func (s *gameServiceImpl) GetGame(ctx context.Context, gameID string) (*GameInfo, error) {
	sess, err := s.sessions.Get(gameID)
	if err != nil {
		return nil, fmt.Errorf("get game %s: %w", gameID, err)
	}
	return newGameInfo(sess), nil
}

// ListGames returns all live games, oldest first
func (s *gameServiceImpl) ListGames(ctx context.Context) ([]*GameInfo, error) {
	sessions := s.sessions.List()
	result := make([]*GameInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, newGameInfo(sess))
	}
	return result, nil
}

// CheckJoin validates that a game can accept another player
func (s *gameServiceImpl) CheckJoin(ctx context.Context, gameID string) (*GameInfo, error) {
	sess, err := s.sessions.Get(gameID)
	if err != nil {
		return nil, fmt.Errorf("check join %s: %w", gameID, err)
	}
	if len(sess.Players) >= session.MaxPlayers {
		return nil, fmt.Errorf("check join %s: %w", gameID, session.ErrGameFull)
	}
	return newGameInfo(sess), nil
}

// JoinGame seats the connection in the game
func (s *gameServiceImpl) JoinGame(ctx context.Context, gameID, connID, playerName string) (*JoinResult, error) {
	symbol, sess, err := s.sessions.Join(gameID, connID, playerName)
	s.metrics.JoinAttempt(resultLabel(err))
	if err != nil {
		return nil, fmt.Errorf("join game %s: %w", gameID, err)
	}

	logging.WithGame(sess.ID).InfoContext(ctx, "Player joined",
		"conn_id", connID,
		"player", playerName,
		"symbol", symbol,
		"players", len(sess.Players),
	)

	return &JoinResult{
		Symbol:  symbol,
		Game:    newGameInfo(sess),
		Started: len(sess.Players) == session.MaxPlayers && !sess.IsOver(),
	}, nil
}

// MakeMove plays the connection's symbol at (row, col)
func (s *gameServiceImpl) MakeMove(ctx context.Context, gameID, connID string, row, col int) (*MoveResult, error) {
	var (
		symbol engine.Symbol
		snap   session.Session
	)
	err := s.sessions.WithSession(gameID, func(sess *session.Session) error {
		if err := sess.Move(connID, row, col); err != nil {
			return err
		}
		p, _ := sess.Player(connID)
		symbol = p.Symbol
		snap = sess.Snapshot()
		return nil
	})
	s.metrics.MoveAttempt(resultLabel(err))
	if err != nil {
		return nil, fmt.Errorf("move in game %s: %w", gameID, err)
	}

	log := logging.WithGame(snap.ID)
	log.DebugContext(ctx, "Move accepted", "conn_id", connID, "symbol", symbol, "row", row, "col", col)
	if snap.IsOver() {
		s.metrics.GameFinished(string(snap.Outcome))
		log.InfoContext(ctx, "Game finished", "outcome", snap.Outcome, "moves", snap.MoveCount)
	}

	return &MoveResult{
		Symbol: symbol,
		Game:   newGameInfo(snap),
	}, nil
}

// LeaveGame removes the connection's player from the game
func (s *gameServiceImpl) LeaveGame(ctx context.Context, gameID, connID string) (*LeaveResult, error) {
	res, err := s.sessions.Leave(gameID, connID)
	if err != nil {
		return nil, fmt.Errorf("leave game %s: %w", gameID, err)
	}

	if res.Removed {
		logging.WithGame(res.Session.ID).InfoContext(ctx, "Player left",
			slog.String("conn_id", connID),
			slog.Int("remaining", res.Remaining),
			slog.Bool("deleted", res.Deleted),
		)
	}

	return &LeaveResult{
		Removed:   res.Removed,
		Deleted:   res.Deleted,
		Remaining: res.Remaining,
	}, nil
}
