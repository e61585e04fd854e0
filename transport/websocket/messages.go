package websocket

import (
	"encoding/json"

	"github.com/wricardo/tictactoe-server/game/engine"
	"github.com/wricardo/tictactoe-server/game/service"
)

// Inbound events
const (
	EventJoinGame = "joinGame"
	EventMakeMove = "makeMove"
)

// Outbound events
const (
	EventPlayerAssigned = "playerAssigned"
	EventGameStart      = "gameStart"
	EventPlayerJoined   = "playerJoined"
	EventGameUpdate     = "gameUpdate"
	EventPlayerLeft     = "playerLeft"
	EventError          = "error"
)

// Error texts that are not part of the game error taxonomy.
const (
	MsgJoinFailed      = "Failed to join game"
	MsgMoveFailed      = "Failed to make move"
	MsgInvalidPayload  = "Invalid payload"
	MsgTooManyRequests = "Too many requests"
	MsgUnknownEvent    = "Unknown event: "
	MsgOpponentLeft    = "Opponent has left the game"
)

// Message is the envelope of every WebSocket text frame.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// encodeMessage marshals an outbound frame.
func encodeMessage(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Event: event, Data: payload})
}

type JoinGamePayload struct {
	GameID     string `json:"gameId"`
	PlayerName string `json:"playerName"`
}

type MakeMovePayload struct {
	GameID string `json:"gameId"`
	Row    *int   `json:"row"`
	Col    *int   `json:"col"`
}

type PlayerAssignedPayload struct {
	Symbol engine.Symbol `json:"symbol"`
}

type GameStartPayload struct {
	Board         engine.Board         `json:"board"`
	CurrentPlayer engine.Symbol        `json:"currentPlayer"`
	Players       []service.PlayerInfo `json:"players"`
}

type PlayerJoinedPayload struct {
	GameID     string `json:"gameId"`
	PlayerName string `json:"playerName"`
}

type GameUpdatePayload struct {
	Board         engine.Board   `json:"board"`
	CurrentPlayer engine.Symbol  `json:"currentPlayer"`
	IsGameOver    bool           `json:"isGameOver"`
	Winner        engine.Outcome `json:"winner"`
}

type PlayerLeftPayload struct {
	Message string `json:"message"`
}
