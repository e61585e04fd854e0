package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wricardo/tictactoe-server/game/engine"
	"github.com/wricardo/tictactoe-server/game/service"
	"github.com/wricardo/tictactoe-server/game/session"
	"github.com/wricardo/tictactoe-server/metrics"
)

func newTestService(t *testing.T) (service.GameService, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	return service.NewGameService(session.NewManager(), m), m
}

func createStartedGame(t *testing.T, svc service.GameService) *service.GameInfo {
	t.Helper()
	ctx := context.Background()
	game, err := svc.CreateGame(ctx)
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if _, err := svc.JoinGame(ctx, game.ID, "alice", "Alice"); err != nil {
		t.Fatalf("JoinGame(alice) failed: %v", err)
	}
	if _, err := svc.JoinGame(ctx, game.ID, "bob", "Bob"); err != nil {
		t.Fatalf("JoinGame(bob) failed: %v", err)
	}
	return game
}

func TestCreateGame(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx)
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if len(game.ID) != 6 {
		t.Errorf("Expected 6 character id, got %q", game.ID)
	}
	if game.Status != session.StatusWaiting {
		t.Errorf("Expected waiting, got %s", game.Status)
	}
	if game.IsGameOver || game.Winner != engine.OutcomeNone {
		t.Error("New game should not be over")
	}
	if got := testutil.ToFloat64(m.GamesCreated); got != 1 {
		t.Errorf("Expected 1 game created, got %v", got)
	}

	fetched, err := svc.GetGame(ctx, game.ID)
	if err != nil {
		t.Fatalf("GetGame failed: %v", err)
	}
	if fetched.ID != game.ID {
		t.Errorf("Expected %s, got %s", game.ID, fetched.ID)
	}
}

func TestGetGame_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetGame(context.Background(), "NOPE00")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestListGames(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateGame(ctx); err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
	}

	games, err := svc.ListGames(ctx)
	if err != nil {
		t.Fatalf("ListGames failed: %v", err)
	}
	if len(games) != 3 {
		t.Errorf("Expected 3 games, got %d", len(games))
	}
}

func TestCheckJoin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	game, _ := svc.CreateGame(ctx)

	if _, err := svc.CheckJoin(ctx, game.ID); err != nil {
		t.Errorf("Empty game should be joinable, got %v", err)
	}
	if _, err := svc.CheckJoin(ctx, "ZZZZZZ"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	svc.JoinGame(ctx, game.ID, "alice", "Alice")
	info, err := svc.CheckJoin(ctx, game.ID)
	if err != nil {
		t.Fatalf("Game with one player should be joinable, got %v", err)
	}
	if len(info.Players) != 1 {
		t.Errorf("CheckJoin must not reserve a seat, got %d players", len(info.Players))
	}

	svc.JoinGame(ctx, game.ID, "bob", "Bob")
	if _, err := svc.CheckJoin(ctx, game.ID); !errors.Is(err, session.ErrGameFull) {
		t.Errorf("Expected ErrGameFull, got %v", err)
	}
}

func TestJoinGame(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	game, _ := svc.CreateGame(ctx)

	first, err := svc.JoinGame(ctx, game.ID, "alice", "Alice")
	if err != nil {
		t.Fatalf("JoinGame failed: %v", err)
	}
	if first.Symbol != engine.X || first.Started {
		t.Errorf("Expected X and not started, got %s/%v", first.Symbol, first.Started)
	}

	// Ids are case-insensitive.
	second, err := svc.JoinGame(ctx, strings.ToLower(game.ID), "bob", "Bob")
	if err != nil {
		t.Fatalf("JoinGame failed: %v", err)
	}
	if second.Symbol != engine.O || !second.Started {
		t.Errorf("Expected O and started, got %s/%v", second.Symbol, second.Started)
	}
	if second.Game.CurrentPlayer != engine.X || second.Game.Status != session.StatusInProgress {
		t.Errorf("Unexpected game state %+v", second.Game)
	}
	if len(second.Game.Players) != 2 || second.Game.Players[1].Name != "Bob" {
		t.Errorf("Unexpected players %+v", second.Game.Players)
	}

	_, err = svc.JoinGame(ctx, game.ID, "carol", "Carol")
	if !errors.Is(err, session.ErrGameFull) {
		t.Errorf("Expected ErrGameFull, got %v", err)
	}

	if got := testutil.ToFloat64(m.Joins.WithLabelValues("ok")); got != 2 {
		t.Errorf("Expected 2 successful joins, got %v", got)
	}
	if got := testutil.ToFloat64(m.Joins.WithLabelValues("full")); got != 1 {
		t.Errorf("Expected 1 full join, got %v", got)
	}
}

func TestMakeMove(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	game := createStartedGame(t, svc)

	res, err := svc.MakeMove(ctx, game.ID, "alice", 1, 1)
	if err != nil {
		t.Fatalf("MakeMove failed: %v", err)
	}
	if res.Symbol != engine.X {
		t.Errorf("Expected X, got %s", res.Symbol)
	}
	if res.Game.Board[1][1] != engine.X || res.Game.CurrentPlayer != engine.O {
		t.Errorf("Unexpected state after move: %+v", res.Game)
	}

	if _, err := svc.MakeMove(ctx, game.ID, "alice", 0, 0); !errors.Is(err, session.ErrNotYourTurn) {
		t.Errorf("Expected ErrNotYourTurn, got %v", err)
	}
	if _, err := svc.MakeMove(ctx, game.ID, "bob", 1, 1); !errors.Is(err, engine.ErrInvalidMove) {
		t.Errorf("Expected ErrInvalidMove, got %v", err)
	}
	if _, err := svc.MakeMove(ctx, game.ID, "carol", 0, 0); !errors.Is(err, session.ErrPlayerNotFound) {
		t.Errorf("Expected ErrPlayerNotFound, got %v", err)
	}
	if _, err := svc.MakeMove(ctx, "NOPE00", "bob", 0, 0); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	if got := testutil.ToFloat64(m.Moves.WithLabelValues("invalid_move")); got != 1 {
		t.Errorf("Expected 1 invalid move, got %v", got)
	}
}

func TestMakeMove_Win(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	game := createStartedGame(t, svc)

	var last *service.MoveResult
	for _, mv := range []struct {
		conn     string
		row, col int
	}{
		{"alice", 0, 0}, {"bob", 1, 0}, {"alice", 0, 1}, {"bob", 1, 1}, {"alice", 0, 2},
	} {
		res, err := svc.MakeMove(ctx, game.ID, mv.conn, mv.row, mv.col)
		if err != nil {
			t.Fatalf("%s (%d,%d) failed: %v", mv.conn, mv.row, mv.col, err)
		}
		last = res
	}

	if !last.Game.IsGameOver || last.Game.Winner != engine.OutcomeX {
		t.Errorf("Expected X to win, got %+v", last.Game)
	}
	if last.Game.Status != session.StatusFinished {
		t.Errorf("Expected finished, got %s", last.Game.Status)
	}
	if got := testutil.ToFloat64(m.GamesFinished.WithLabelValues("X")); got != 1 {
		t.Errorf("Expected 1 X win recorded, got %v", got)
	}

	if _, err := svc.MakeMove(ctx, game.ID, "bob", 2, 2); !errors.Is(err, session.ErrGameOver) {
		t.Errorf("Expected ErrGameOver, got %v", err)
	}
}

func TestJoinGame_RefillAfterFinish(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	game := createStartedGame(t, svc)

	for _, mv := range []struct {
		conn     string
		row, col int
	}{
		{"alice", 0, 0}, {"bob", 1, 0}, {"alice", 0, 1}, {"bob", 1, 1}, {"alice", 0, 2},
	} {
		if _, err := svc.MakeMove(ctx, game.ID, mv.conn, mv.row, mv.col); err != nil {
			t.Fatalf("%s (%d,%d) failed: %v", mv.conn, mv.row, mv.col, err)
		}
	}

	if _, err := svc.LeaveGame(ctx, game.ID, "alice"); err != nil {
		t.Fatalf("LeaveGame failed: %v", err)
	}
	res, err := svc.JoinGame(ctx, game.ID, "carol", "Carol")
	if err != nil {
		t.Fatalf("JoinGame failed: %v", err)
	}
	if res.Symbol != engine.X {
		t.Errorf("Expected the freed X seat, got %s", res.Symbol)
	}
	if res.Started {
		t.Error("Refilling a finished game must not report a start")
	}
	if !res.Game.IsGameOver {
		t.Error("Game should still be over")
	}
}

func TestJoinGame_RefillInProgress(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	game := createStartedGame(t, svc)

	if _, err := svc.LeaveGame(ctx, game.ID, "bob"); err != nil {
		t.Fatalf("LeaveGame failed: %v", err)
	}
	res, err := svc.JoinGame(ctx, game.ID, "carol", "Carol")
	if err != nil {
		t.Fatalf("JoinGame failed: %v", err)
	}
	if !res.Started || res.Symbol != engine.O {
		t.Errorf("Expected a restart with carol as O, got %+v", res)
	}
}

func TestLeaveGame(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	game := createStartedGame(t, svc)

	res, err := svc.LeaveGame(ctx, game.ID, "alice")
	if err != nil {
		t.Fatalf("LeaveGame failed: %v", err)
	}
	if !res.Removed || res.Deleted || res.Remaining != 1 {
		t.Errorf("Unexpected result %+v", res)
	}

	res, err = svc.LeaveGame(ctx, game.ID, "alice")
	if err != nil {
		t.Fatalf("LeaveGame failed: %v", err)
	}
	if res.Removed {
		t.Error("Second leave should not remove anyone")
	}

	res, err = svc.LeaveGame(ctx, game.ID, "bob")
	if err != nil {
		t.Fatalf("LeaveGame failed: %v", err)
	}
	if !res.Deleted {
		t.Error("Game should be deleted when its last player leaves")
	}
	if _, err := svc.GetGame(ctx, game.ID); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Expected deleted game to be gone, got %v", err)
	}
}

func TestNilMetrics(t *testing.T) {
	svc := service.NewGameService(session.NewManager(), nil)
	game := createStartedGame(t, svc)
	if _, err := svc.MakeMove(context.Background(), game.ID, "alice", 0, 0); err != nil {
		t.Errorf("MakeMove failed without metrics: %v", err)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
		ok   bool
	}{
		{session.ErrSessionNotFound, "Game not found", true},
		{fmt.Errorf("join game X: %w", session.ErrGameFull), "Game is full", true},
		{session.ErrPlayerNotFound, "Player not found", true},
		{session.ErrNotYourTurn, "Not your turn", true},
		{session.ErrGameOver, "Game is over", true},
		{fmt.Errorf("move: %w", engine.ErrInvalidMove), "Invalid move", true},
		{errors.New("boom"), "", false},
	}
	for _, tt := range tests {
		got, ok := service.UserMessage(tt.err)
		if got != tt.want || ok != tt.ok {
			t.Errorf("UserMessage(%v) = %q, %v; want %q, %v", tt.err, got, ok, tt.want, tt.ok)
		}
	}
}
