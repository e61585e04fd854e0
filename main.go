// Command tictactoe-server starts the realtime tic-tac-toe session server.
//
// It supports two modes:
//  1. default – runs the HTTP server exposing the REST API, the /ws realtime
//     endpoint, Prometheus metrics and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server proxying to a running API, starting an
//     internal one when none is reachable
//
// Settings come from the environment (and an optional .env file); flags
// override host/port, log level and ngrok tunneling.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/tictactoe-server/api"
	"github.com/wricardo/tictactoe-server/config"
	"github.com/wricardo/tictactoe-server/game/service"
	"github.com/wricardo/tictactoe-server/game/session"
	"github.com/wricardo/tictactoe-server/logging"
	"github.com/wricardo/tictactoe-server/metrics"
	"github.com/wricardo/tictactoe-server/transport/mcp"
	"github.com/wricardo/tictactoe-server/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "TicTacToe Server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(runHTTPServer, runStdioMCP).Run(ctx, os.Args); err != nil {
		slog.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

type (
	serverFunc func(ctx context.Context, cfg config.Config) error
	mcpFunc    func(ctx context.Context, cfg config.Config, apiURL string) error
)

// newCommand builds the CLI. The run functions are injected so tests can
// observe the resolved configuration.
func newCommand(runServer serverFunc, runMCP mcpFunc) *cli.Command {
	return &cli.Command{
		Name:  "tictactoe-server",
		Usage: "Realtime two-player tic-tac-toe session server",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "HTTP server port (overrides PORT)"},
			&cli.StringFlag{Name: "host", Usage: "HTTP server host (overrides HOST)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (overrides LOG_LEVEL)"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Expose the server through an ngrok tunnel (overrides NGROK_ENABLED)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
			return runServer(ctx, cfg)
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					_, err := fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return err
				},
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp"},
				Usage:   "Run an MCP stdio server backed by the REST API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Usage: "Base URL of a running server (default: local server on the configured port)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd.Root())
					if err != nil {
						return err
					}
					// Stdout carries the MCP protocol.
					logging.InitLoggerTo(os.Stderr, cfg.LogLevel, cfg.LogFormat)
					return runMCP(ctx, cfg, cmd.String("api-url"))
				},
			},
		},
	}
}

// loadConfig reads env configuration and applies the flags that were set.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("ngrok") {
		cfg.NgrokEnabled = cmd.Bool("ngrok")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// app holds the wired server components.
type app struct {
	sessions *session.Manager
	games    service.GameService
	hub      *websocket.Hub
	gateway  *websocket.Gateway
	registry *prometheus.Registry
}

// newApp wires registry, service, realtime transport and metrics.
func newApp(cfg config.Config) *app {
	registry := metrics.NewRegistry()
	m := metrics.New(registry)

	sessions := session.NewManager()
	metrics.RegisterActiveGames(registry, sessions.Count)

	games := service.NewGameService(sessions, m)
	hub := websocket.NewHub(
		websocket.WithRateLimit(cfg.EventsPerSecond, cfg.EventBurst),
		websocket.WithMetrics(m),
	)

	return &app{
		sessions: sessions,
		games:    games,
		hub:      hub,
		gateway:  websocket.NewGateway(games, hub, m),
		registry: registry,
	}
}

// handler combines the API server with the /mcp endpoint. The MCP tools call
// the API at baseURL.
func (a *app) handler(baseURL string) http.Handler {
	apiServer := api.NewServer(a.games, a.hub.Handler(a.gateway), metrics.Handler(a.registry))
	mcpClient := mcp.NewClient(baseURL, Version)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))
	return mainRouter
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST.
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runHTTPServer runs the HTTP server, the realtime hub, the expiry sweeper and
// the optional ngrok tunnel until ctx is cancelled or one of them fails.
func runHTTPServer(ctx context.Context, cfg config.Config) error {
	a := newApp(cfg)
	addr := cfg.Addr()
	handler := a.handler(localURL(cfg))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.InfoContext(ctx, "Starting server", "app", AppName, "version", Version)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		a.sessions.RunSweeper(ctx, cfg.SweepInterval, cfg.GameMaxAge)
		return nil
	})

	g.Go(func() error {
		slog.InfoContext(ctx, "HTTP server listening",
			"addr", addr,
			"rest_api", fmt.Sprintf("http://%s/api", addr),
			"websocket", fmt.Sprintf("ws://%s/ws", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	if cfg.NgrokEnabled {
		g.Go(func() error {
			runNgrok(ctx, cfg, handler)
			return nil
		})
	}

	err := g.Wait()
	slog.Info("Server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is cancelled.
// Tunnel failures are logged and never stop the main server.
func runNgrok(ctx context.Context, cfg config.Config, handler http.Handler) {
	if cfg.NgrokAuthToken == "" {
		slog.WarnContext(ctx, "Ngrok enabled but no auth token provided (set NGROK_AUTHTOKEN)")
		return
	}

	slog.InfoContext(ctx, "Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuthToken))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to start ngrok tunnel", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			slog.Warn("Failed to close ngrok tunnel", "error", err)
		}
	}()

	ngrokURL := tun.URL()
	slog.InfoContext(ctx, "Ngrok tunnel established",
		"url", ngrokURL,
		"rest_api", ngrokURL+"/api",
		"mcp", ngrokURL+"/mcp",
	)

	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Ngrok server error", "error", err)
	}
	slog.Info("Ngrok tunnel closed")
}

// localURL is the loopback URL of the configured listener.
func localURL(cfg config.Config) string {
	host := cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Port))
}

// apiReachable reports whether a server answers at baseURL.
func apiReachable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/test", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCP runs an MCP stdio server against apiURL. When apiURL is empty
// the configured local server is tried first; if nothing answers, an internal
// server is started on a random loopback port.
func runStdioMCP(ctx context.Context, cfg config.Config, apiURL string) error {
	baseURL := apiURL
	if baseURL == "" {
		baseURL = localURL(cfg)
	}

	if !apiReachable(ctx, baseURL) {
		if apiURL != "" {
			return fmt.Errorf("API server not reachable at %s", apiURL)
		}

		slog.InfoContext(ctx, "No external API server found, starting internal HTTP server")
		internalURL, err := startInternalServer(ctx, cfg)
		if err != nil {
			return err
		}
		baseURL = internalURL
	}

	slog.InfoContext(ctx, "MCP stdio server ready", "api", baseURL)
	return server.ServeStdio(mcp.NewClient(baseURL, Version).GetMCPServer())
}

// startInternalServer serves the full application on 127.0.0.1:0 until ctx
// is cancelled and returns its base URL.
func startInternalServer(ctx context.Context, cfg config.Config) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to get available port: %w", err)
	}
	baseURL := "http://" + listener.Addr().String()

	a := newApp(cfg)
	httpServer := &http.Server{Handler: a.handler(baseURL)}

	go a.hub.Run(ctx)
	go a.sessions.RunSweeper(ctx, cfg.SweepInterval, cfg.GameMaxAge)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Internal HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	return baseURL, nil
}
