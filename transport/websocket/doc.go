// Package websocket provides the realtime transport for the tic-tac-toe server.
//
// Architecture:
//
// The package uses a hub-and-spoke model. A central Hub owns every
// connection and the rooms they belong to; each connection has a read
// goroutine and a write goroutine. The Hub event loop is the only place that
// changes room membership or writes to a client's send buffer, so a slow
// client is dropped instead of stalling the others.
//
// The Gateway sits on top of the Hub. It turns inbound events into
// GameService calls and publishes the results through the Rooms interface,
// one room per game.
//
// Message Protocol:
//
// Every text frame is a JSON envelope {"event": "<name>", "data": <payload>}.
//   - Incoming: joinGame {gameId, playerName}, makeMove {gameId, row, col}
//   - Outgoing: playerAssigned, gameStart, playerJoined, gameUpdate,
//     playerLeft and error (a plain string)
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithMetrics(m))
//	go hub.Run(ctx)
//
//	gateway := websocket.NewGateway(gameService, hub, m)
//	router.Handle("/ws", hub.Handler(gateway))
//
// Concurrency:
//
// Events from one connection are handled one at a time, in arrival order.
// Events from different connections run concurrently. The Gateway holds a
// lock per game across each operation and its broadcasts, so a room sees
// results in the order the session registry applied them; different games
// never wait on each other.
package websocket
