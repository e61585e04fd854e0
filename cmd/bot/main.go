// Command bot plays tic-tac-toe against the server's realtime API with
// perfect moves. Without --game it creates a game first and logs its id so
// another player (or a second bot) can join.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/tictactoe-server/game/engine"
	"github.com/wricardo/tictactoe-server/logging"
	ws "github.com/wricardo/tictactoe-server/transport/websocket"
)

var errOpponentLeft = errors.New("opponent left the game")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "bot",
		Usage: "Join a game and play it out with perfect moves",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:3000", Usage: "Server base URL"},
			&cli.StringFlag{Name: "game", Usage: "Game id to join (default: create a new game)"},
			&cli.StringFlag{Name: "name", Value: "Bot", Usage: "Player name"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logging.InitLogger(cmd.String("log-level"), "text")

			baseURL := strings.TrimRight(cmd.String("url"), "/")
			gameID := cmd.String("game")
			if gameID == "" {
				id, err := createGame(ctx, baseURL)
				if err != nil {
					return err
				}
				gameID = id
				slog.InfoContext(ctx, "Created game", "game_id", gameID)
			}

			bot, err := Dial(ctx, baseURL, gameID, cmd.String("name"))
			if err != nil {
				return err
			}
			defer bot.Close()

			outcome, err := bot.Play(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "Game %s finished: %s\n", gameID, describe(outcome, bot.Symbol()))
			return nil
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("Bot failed", "error", err)
		os.Exit(1)
	}
}

// createGame asks the server for a new game id.
func createGame(ctx context.Context, baseURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/games/create", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create game: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		GameID string `json:"gameId"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("create game: %s (status %d)", body.Error, resp.StatusCode)
	}
	return body.GameID, nil
}

// wsURL maps an http(s) base URL to the server's WebSocket endpoint.
func wsURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Bot is one seated player driven by an engine.Solver.
type Bot struct {
	gameID string
	name   string
	conn   *websocket.Conn
	solver *engine.Solver
	log    *slog.Logger

	symbol  engine.Symbol
	board   engine.Board
	current engine.Symbol
	// movedOn is the last board the bot answered, so a repeated
	// notification of the same position does not produce a second move.
	movedOn *engine.Board
}

// Dial opens the realtime connection for gameID.
func Dial(ctx context.Context, baseURL, gameID, name string) (*Bot, error) {
	endpoint, err := wsURL(baseURL)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return &Bot{
		gameID: gameID,
		name:   name,
		conn:   conn,
		solver: engine.NewSolver(),
		log:    logging.WithGame(gameID).With("player", name),
	}, nil
}

// Symbol is the seat the server assigned, None before joining.
func (b *Bot) Symbol() engine.Symbol {
	return b.symbol
}

// Close closes the connection, which leaves the game.
func (b *Bot) Close() error {
	return b.conn.Close()
}

// Play joins the game and answers every turn until the game ends.
func (b *Bot) Play(ctx context.Context) (engine.Outcome, error) {
	stop := context.AfterFunc(ctx, func() { b.conn.Close() })
	defer stop()

	if err := b.send(ws.EventJoinGame, ws.JoinGamePayload{GameID: b.gameID, PlayerName: b.name}); err != nil {
		return engine.OutcomeNone, err
	}

	for {
		var msg ws.Message
		if err := b.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return engine.OutcomeNone, ctx.Err()
			}
			return engine.OutcomeNone, fmt.Errorf("read: %w", err)
		}

		outcome, done, err := b.handle(msg)
		if err != nil || done {
			return outcome, err
		}
	}
}

// handle applies one server event and reports whether the game is over.
func (b *Bot) handle(msg ws.Message) (engine.Outcome, bool, error) {
	switch msg.Event {
	case ws.EventPlayerAssigned:
		var p ws.PlayerAssignedPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return engine.OutcomeNone, false, fmt.Errorf("decode %s: %w", msg.Event, err)
		}
		b.symbol = p.Symbol
		b.log.Info("Seated", "symbol", p.Symbol)
		return engine.OutcomeNone, false, b.maybeMove()

	case ws.EventPlayerJoined:
		var p ws.PlayerJoinedPayload
		if err := json.Unmarshal(msg.Data, &p); err == nil {
			b.log.Info("Opponent joined", "opponent", p.PlayerName)
		}

	case ws.EventGameStart:
		var p ws.GameStartPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return engine.OutcomeNone, false, fmt.Errorf("decode %s: %w", msg.Event, err)
		}
		b.board, b.current = p.Board, p.CurrentPlayer
		return engine.OutcomeNone, false, b.maybeMove()

	case ws.EventGameUpdate:
		var p ws.GameUpdatePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return engine.OutcomeNone, false, fmt.Errorf("decode %s: %w", msg.Event, err)
		}
		if p.IsGameOver {
			return p.Winner, true, nil
		}
		b.board, b.current = p.Board, p.CurrentPlayer
		return engine.OutcomeNone, false, b.maybeMove()

	case ws.EventPlayerLeft:
		return engine.OutcomeNone, true, errOpponentLeft

	case ws.EventError:
		var text string
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			text = string(msg.Data)
		}
		return engine.OutcomeNone, true, fmt.Errorf("server error: %s", text)
	}
	return engine.OutcomeNone, false, nil
}

// maybeMove answers the last known position when it is the bot's turn.
func (b *Bot) maybeMove() error {
	board := b.board
	if b.symbol == engine.None || b.current != b.symbol {
		return nil
	}
	if b.movedOn != nil && *b.movedOn == board {
		return nil
	}

	moves := b.solver.BestMoves(board, b.symbol)
	if len(moves) == 0 {
		return nil
	}
	move := moves[0]
	b.movedOn = &board

	b.log.Debug("Moving", "row", move.Row, "col", move.Col)
	row, col := move.Row, move.Col
	return b.send(ws.EventMakeMove, ws.MakeMovePayload{GameID: b.gameID, Row: &row, Col: &col})
}

func (b *Bot) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	if err := b.conn.WriteJSON(ws.Message{Event: event, Data: data}); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

func describe(out engine.Outcome, me engine.Symbol) string {
	switch {
	case out == engine.OutcomeDraw:
		return "draw"
	case out.Winner() == me:
		return "won as " + string(me)
	default:
		return "lost as " + string(me)
	}
}
