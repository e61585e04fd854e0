package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/tictactoe-server/game/engine"
	"github.com/wricardo/tictactoe-server/game/service"
	"github.com/wricardo/tictactoe-server/game/session"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string, version string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer(version)
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer(version string) {
	c.mcpServer = server.NewMCPServer(
		"TicTacToe Server",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`TicTacToe Server - MCP Interface

This is a thin client that proxies all requests to the REST API server.
Games are played by two players over the /ws WebSocket endpoint; these tools
let an operator or agent create games and inspect them.

AVAILABLE TOOLS:
- create_game: Create a new game and get its 6 character id
- check_join: Check whether a game exists and still has a free seat
- get_game: Show the board, players and status of a game
- list_games: List all live games`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_game",
		Description: "Create a new tic-tac-toe game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleCreateGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "check_join",
		Description: "Check whether a game can be joined",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Game ID (case-insensitive)",
				},
			},
			Required: []string{"game_id"},
		},
	}, c.handleCheckJoin)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_game",
		Description: "Get the board and status of a game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Game ID (case-insensitive)",
				},
			},
			Required: []string{"game_id"},
		},
	}, c.handleGetGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List all live games",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListGames)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func gameIDArg(request mcp.CallToolRequest) (string, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	gameID, _ := args["game_id"].(string)
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return "", fmt.Errorf("game_id is required")
	}
	return gameID, nil
}

// Tool handlers

func (c *Client) handleCreateGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		GameID string `json:"gameId"`
	}
	if err := c.apiCall(ctx, "POST", "/api/games/create", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created game: %s\nShare this id with both players; they join over the WebSocket with a joinGame event.\n", response.GameID)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleCheckJoin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, err := gameIDArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		GameID string `json:"gameId"`
	}
	if err := c.apiCall(ctx, "POST", "/api/games/join/"+url.PathEscape(gameID), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Game %s has a free seat.\n", response.GameID)), nil
}

func (c *Client) handleGetGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, err := gameIDArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Game service.GameInfo `json:"game"`
	}
	if err := c.apiCall(ctx, "GET", "/api/games/"+url.PathEscape(gameID), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGame(&response.Game)), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int                `json:"count"`
		Games []service.GameInfo `json:"games"`
	}
	if err := c.apiCall(ctx, "GET", "/api/games", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Live Games (%d):\n\n", response.Count)
	for _, g := range response.Games {
		fmt.Fprintf(&sb, "- %s (%s, %d/%d players, Created: %s)\n",
			g.ID, g.Status, len(g.Players), session.MaxPlayers, g.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// formatGame renders a game as plain text for agents.
func formatGame(g *service.GameInfo) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Game %s\n", g.ID)
	fmt.Fprintf(&sb, "Status: %s\n", g.Status)

	if len(g.Players) == 0 {
		sb.WriteString("Players: none\n")
	} else {
		names := make([]string, len(g.Players))
		for i, p := range g.Players {
			names[i] = fmt.Sprintf("%s (%s)", p.Name, p.Symbol)
		}
		fmt.Fprintf(&sb, "Players: %s\n", strings.Join(names, ", "))
	}

	switch {
	case g.Winner == engine.OutcomeDraw:
		sb.WriteString("Result: draw\n")
	case g.Winner != engine.OutcomeNone:
		fmt.Fprintf(&sb, "Result: %s wins\n", g.Winner)
	case g.CurrentPlayer != engine.None:
		fmt.Fprintf(&sb, "Turn: %s\n", g.CurrentPlayer)
	}

	sb.WriteString("\n")
	sb.WriteString(formatBoard(g.Board))
	return sb.String()
}

// formatBoard draws the grid with "." for empty cells.
func formatBoard(b engine.Board) string {
	var sb strings.Builder
	for row := 0; row < engine.Size; row++ {
		cells := make([]string, engine.Size)
		for col := 0; col < engine.Size; col++ {
			cells[col] = "."
			if s := b.At(row, col); s != engine.None {
				cells[col] = string(s)
			}
		}
		sb.WriteString(" " + strings.Join(cells, " | ") + "\n")
		if row < engine.Size-1 {
			sb.WriteString("---+---+---\n")
		}
	}
	return sb.String()
}
