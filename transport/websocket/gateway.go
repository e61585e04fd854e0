package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/wricardo/tictactoe-server/game/service"
	"github.com/wricardo/tictactoe-server/game/session"
	"github.com/wricardo/tictactoe-server/logging"
	"github.com/wricardo/tictactoe-server/metrics"
)

// Rooms is the room-scoped publish/subscribe the gateway needs from the
// transport. Hub implements it.
type Rooms interface {
	Join(connID, room string)
	EmitToRoom(room, event string, data any)
	EmitToOthers(room, connID, event string, data any)
	EmitTo(connID, event string, data any)
}

// Gateway translates realtime events into game operations and fans the
// results out to the game's room.
type Gateway struct {
	games   service.GameService
	rooms   Rooms
	metrics *metrics.Metrics

	// locks holds one lock per game id. It is held across a game operation
	// and its broadcasts, so the room sees results in the order the registry
	// applied them. Different games never share a lock.
	locks gameLocks

	mu     sync.Mutex
	joined map[string]map[string]struct{} // conn id -> game ids
}

// NewGateway creates a gateway. m may be nil.
func NewGateway(games service.GameService, rooms Rooms, m *metrics.Metrics) *Gateway {
	return &Gateway{
		games:   games,
		rooms:   rooms,
		metrics: m,
		joined:  make(map[string]map[string]struct{}),
		locks:   gameLocks{held: make(map[string]*gameLock)},
	}
}

// HandleEvent dispatches one inbound event.
func (g *Gateway) HandleEvent(ctx context.Context, connID string, msg Message) {
	switch msg.Event {
	case EventJoinGame:
		g.metrics.EventReceived(msg.Event)
		g.guard(ctx, connID, msg.Event, MsgJoinFailed, func() { g.joinGame(ctx, connID, msg.Data) })
	case EventMakeMove:
		g.metrics.EventReceived(msg.Event)
		g.guard(ctx, connID, msg.Event, MsgMoveFailed, func() { g.makeMove(ctx, connID, msg.Data) })
	default:
		g.metrics.EventReceived("unknown")
		g.rooms.EmitTo(connID, EventError, MsgUnknownEvent+msg.Event)
	}
}

// HandleDisconnect removes the connection's player from every game it
// joined and tells the remaining players.
func (g *Gateway) HandleDisconnect(ctx context.Context, connID string) {
	defer func() {
		if r := recover(); r != nil {
			logging.WithConn(connID).ErrorContext(ctx, "Panic while handling disconnect",
				"panic", r, "stack", string(debug.Stack()))
		}
	}()

	for _, gameID := range g.untrack(connID) {
		g.leaveAndNotify(ctx, gameID, connID)
	}
}

func (g *Gateway) leaveAndNotify(ctx context.Context, gameID, connID string) {
	defer g.locks.lock(gameID)()

	if g.leave(ctx, gameID, connID) {
		g.rooms.EmitToOthers(gameID, connID, EventPlayerLeft, PlayerLeftPayload{Message: MsgOpponentLeft})
	}
}

// leave removes every seat connID holds in gameID, since a connection that
// joined twice holds both. It reports whether any seat was freed.
func (g *Gateway) leave(ctx context.Context, gameID, connID string) bool {
	removed := false
	for range session.MaxPlayers {
		res, err := g.games.LeaveGame(ctx, gameID, connID)
		if err != nil {
			// The sweep may have removed the game already.
			if !errors.Is(err, session.ErrSessionNotFound) {
				logging.WithConn(connID).ErrorContext(ctx, "Failed to leave game", "game_id", gameID, "error", err)
			}
			return removed
		}
		if !res.Removed {
			return removed
		}
		removed = true
		if res.Deleted {
			return removed
		}
	}
	return removed
}

func (g *Gateway) joinGame(ctx context.Context, connID string, data json.RawMessage) {
	var p JoinGamePayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.rooms.EmitTo(connID, EventError, MsgInvalidPayload)
		return
	}

	defer g.locks.lock(p.GameID)()

	res, err := g.games.JoinGame(ctx, p.GameID, connID, p.PlayerName)
	if err != nil {
		g.fail(ctx, connID, err, MsgJoinFailed)
		return
	}

	gameID := res.Game.ID
	g.rooms.Join(connID, gameID)
	g.track(connID, gameID)

	g.rooms.EmitTo(connID, EventPlayerAssigned, PlayerAssignedPayload{Symbol: res.Symbol})
	if res.Started {
		g.rooms.EmitToRoom(gameID, EventGameStart, GameStartPayload{
			Board:         res.Game.Board,
			CurrentPlayer: res.Game.CurrentPlayer,
			Players:       res.Game.Players,
		})
	}
	g.rooms.EmitToOthers(gameID, connID, EventPlayerJoined, PlayerJoinedPayload{
		GameID:     gameID,
		PlayerName: p.PlayerName,
	})
}

func (g *Gateway) makeMove(ctx context.Context, connID string, data json.RawMessage) {
	var p MakeMovePayload
	if err := json.Unmarshal(data, &p); err != nil || p.Row == nil || p.Col == nil {
		g.rooms.EmitTo(connID, EventError, MsgInvalidPayload)
		return
	}

	defer g.locks.lock(p.GameID)()

	res, err := g.games.MakeMove(ctx, p.GameID, connID, *p.Row, *p.Col)
	if err != nil {
		g.fail(ctx, connID, err, MsgMoveFailed)
		return
	}

	g.rooms.EmitToRoom(res.Game.ID, EventGameUpdate, GameUpdatePayload{
		Board:         res.Game.Board,
		CurrentPlayer: res.Game.CurrentPlayer,
		IsGameOver:    res.Game.IsGameOver,
		Winner:        res.Game.Winner,
	})
}

// fail reports err to the sender. Errors outside the game taxonomy are
// logged and replaced by generic.
func (g *Gateway) fail(ctx context.Context, connID string, err error, generic string) {
	log := logging.WithConn(connID)
	msg, ok := service.UserMessage(err)
	if !ok {
		log.ErrorContext(ctx, "Unexpected game error", "error", err)
		msg = generic
	} else {
		log.DebugContext(ctx, "Rejected event", "error", err)
	}
	g.rooms.EmitTo(connID, EventError, msg)
}

// guard runs fn and converts a panic into a generic error for the sender.
func (g *Gateway) guard(ctx context.Context, connID, event, generic string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.WithConn(connID).ErrorContext(ctx, "Panic in event handler",
				"event", event,
				"error", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			g.rooms.EmitTo(connID, EventError, generic)
		}
	}()
	fn()
}

func (g *Gateway) track(connID, gameID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	games, ok := g.joined[connID]
	if !ok {
		games = make(map[string]struct{})
		g.joined[connID] = games
	}
	games[gameID] = struct{}{}
}

// untrack clears and returns the games associated with connID.
func (g *Gateway) untrack(connID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	games := g.joined[connID]
	delete(g.joined, connID)

	ids := make([]string, 0, len(games))
	for id := range games {
		ids = append(ids, id)
	}
	return ids
}

// Joined returns the games connID has joined.
func (g *Gateway) Joined(connID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]string, 0, len(g.joined[connID]))
	for id := range g.joined[connID] {
		ids = append(ids, id)
	}
	return ids
}

type gameLock struct {
	mu   sync.Mutex
	refs int
}

// gameLocks is a mutex per normalized game id. An entry lives only while
// someone holds or waits for it.
type gameLocks struct {
	mu   sync.Mutex
	held map[string]*gameLock
}

// lock acquires the lock for gameID and returns its release function.
func (l *gameLocks) lock(gameID string) func() {
	key := session.NormalizeID(gameID)

	l.mu.Lock()
	gl, ok := l.held[key]
	if !ok {
		gl = &gameLock{}
		l.held[key] = gl
	}
	gl.refs++
	l.mu.Unlock()

	gl.mu.Lock()
	return func() {
		gl.mu.Unlock()

		l.mu.Lock()
		gl.refs--
		if gl.refs == 0 {
			delete(l.held, key)
		}
		l.mu.Unlock()
	}
}

// size reports how many game ids currently have a lock entry.
func (l *gameLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
