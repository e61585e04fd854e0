// Package mcp provides a Model Context Protocol server for the tic-tac-toe server.
//
// The MCP server is a thin client over the REST API: every tool call is an
// HTTP request to the running server, so agents see exactly what HTTP
// clients see.
//
// MCP Tools:
//   - create_game: Create a new game
//   - check_join: Check that a game exists and has a free seat
//   - get_game: Render a game's board, players and status
//   - list_games: List all live games
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:3000", version)
//	response := client.GetMCPServer().HandleMessage(ctx, body)
package mcp
