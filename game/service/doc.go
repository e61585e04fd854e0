// Package service provides the business logic layer for the tic-tac-toe server.
//
// GameService is the single entry point used by every transport (HTTP,
// WebSocket and MCP). It turns registry snapshots into GameInfo values,
// wraps registry and engine errors with context, and records metrics and
// structured logs for each operation.
//
// Usage:
//
//	sessions := session.NewManager()
//	gameService := service.NewGameService(sessions, metrics.New(reg))
//
//	game, err := gameService.CreateGame(ctx)
//	if err != nil {
//		return err
//	}
//	join, err := gameService.JoinGame(ctx, game.ID, connID, "Alice")
//
// Errors:
//
// Returned errors wrap the sentinels of the session and engine packages and
// can be matched with errors.Is. UserMessage converts them to the text shown
// to players.
package service
