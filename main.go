// Command simonsays runs the Simon Says game server.
//
// It supports three commands:
//  1. "serve" (default) – runs the HTTP server for the boards, the REST API,
//     the observer WebSocket, the /mcp endpoint and the discovery beacon
//  2. "mcp" – runs an MCP stdio server, starting an internal HTTP API if none
//     is reachable
//  3. "board" – simulates trigger boards against a running server
//
// Settings come from the environment (and a .env file); flags override them.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/simonsays/api"
	"github.com/wricardo/simonsays/game/config"
	"github.com/wricardo/simonsays/game/engine"
	"github.com/wricardo/simonsays/game/registry"
	"github.com/wricardo/simonsays/game/service"
	"github.com/wricardo/simonsays/game/timer"
	"github.com/wricardo/simonsays/transport/discovery"
	"github.com/wricardo/simonsays/transport/mcp"
	"github.com/wricardo/simonsays/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Simon Says Server"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("simonsays failed")
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "simonsays",
		Usage:   AppName,
		Version: Version,
		Flags:   serveFlags(),
		Action:  runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the game server (default)",
				Flags:  serveFlags(),
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Run an MCP stdio server, with an internal HTTP API if none is reachable",
				Flags:  mcpFlags(),
				Action: runStdioMCP,
			},
			{
				Name:   "board",
				Usage:  "Simulate trigger boards against a running server",
				Flags:  boardFlags(),
				Action: runBoard,
			},
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		&cli.StringFlag{Name: "addr", Usage: "HTTP listen address (default from SIMON_ADDR or 0.0.0.0:5000)"},
		&cli.StringFlag{Name: "boards", Usage: "JSON board table file (default: built-in boards)"},
		&cli.StringFlag{Name: "static-dir", Usage: "Directory of the browser UI"},
		&cli.DurationFlag{Name: "turn-timeout", Usage: "Time the player has to repeat the sequence"},
		&cli.BoolFlag{Name: "no-discovery", Usage: "Do not send the multicast discovery beacon"},
		&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or use NGROK_AUTHTOKEN env var)"},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
	}
}

func mcpFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		&cli.StringFlag{Name: "server", Value: "http://localhost:5000", Usage: "Game server to proxy to"},
		&cli.StringFlag{Name: "boards", Usage: "JSON board table file for the internal server"},
	}
}

func boardFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		&cli.StringFlag{Name: "server", Usage: "Game server URL (default: discover it over multicast)"},
		&cli.StringFlag{Name: "boards", Usage: "JSON board table file (default: built-in boards)"},
		&cli.StringFlag{Name: "press", Usage: "Press a single board and exit"},
		&cli.BoolFlag{Name: "start", Usage: "Start a new game once connected"},
		&cli.IntFlag{Name: "max-level", Usage: "Press a wrong board on this level (0 plays until ctrl-c)"},
		&cli.DurationFlag{Name: "press-delay", Value: 300 * time.Millisecond, Usage: "Pause before each press"},
		&cli.DurationFlag{Name: "discover-timeout", Value: 15 * time.Second, Usage: "How long to wait for the server beacon"},
	}
}

// setupLogging configures the global logger. Logs always go to stderr so the
// mcp command keeps stdout for the protocol.
func setupLogging(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().
		Logger()
}

// loadSettings reads the environment and applies the flags set on cmd.
func loadSettings(cmd *cli.Command) (*config.Settings, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("debug") {
		settings.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("addr") {
		settings.Addr = cmd.String("addr")
	}
	if cmd.IsSet("boards") {
		settings.BoardsFile = cmd.String("boards")
	}
	if cmd.IsSet("static-dir") {
		settings.StaticDir = cmd.String("static-dir")
	}
	if cmd.IsSet("turn-timeout") {
		settings.TurnTimeout = cmd.Duration("turn-timeout")
	}
	if cmd.IsSet("no-discovery") {
		settings.Discovery.Enabled = !cmd.Bool("no-discovery")
	}
	if cmd.IsSet("ngrok") {
		settings.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		settings.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		settings.Ngrok.Domain = cmd.String("ngrok-domain")
	}
	// Also support the underscore variant of the ngrok token.
	if settings.Ngrok.AuthToken == "" {
		settings.Ngrok.AuthToken = os.Getenv("NGROK_AUTH_TOKEN")
	}

	return settings, nil
}

// app is the wired game server.
type app struct {
	settings *config.Settings
	boards   *registry.Registry
	orch     *service.Orchestrator
	hub      *websocket.Hub
	handler  http.Handler
}

// newApp wires the board registry, the game session, the orchestrator, the
// observer hub and the HTTP handler. mcpURL is the API the /mcp endpoint
// proxies to; empty disables it.
func newApp(settings *config.Settings, mcpURL string) (*app, error) {
	table, err := config.LoadBoards(settings.BoardsFile)
	if err != nil {
		return nil, fmt.Errorf("load boards: %w", err)
	}

	sched := timer.NewScheduler()
	sess := engine.NewSession(sched, engine.WithTurnTimeout(settings.TurnTimeout))
	boards := registry.New(table)

	hub := websocket.NewHub()
	orch := service.NewOrchestrator(sess, boards, sched, hub,
		service.WithPacing(service.Pacing{
			PreShow:    settings.PreShowDelay,
			Step:       settings.StepDelay,
			LevelPause: settings.LevelPauseDelay,
		}),
	)
	hub.SetRoster(orch.Roster)
	hub.SetStartHandler(func(ctx context.Context) error {
		_, err := orch.StartGame(ctx)
		return err
	})

	opts := []api.Option{api.WithStaticDir(settings.StaticDir)}
	if mcpURL != "" {
		opts = append(opts, api.WithMCPHandler(mcp.NewClient(mcpURL).HTTPHandler()))
	}

	return &app{
		settings: settings,
		boards:   boards,
		orch:     orch,
		hub:      hub,
		handler:  api.NewServer(orch, hub, opts...),
	}, nil
}

// localURL returns a URL this process can reach a server listening on addr at.
func localURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// runServe starts the HTTP server, the discovery beacon and the optional
// ngrok tunnel, and blocks until ctx is cancelled.
func runServe(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	setupLogging(settings.Debug)

	a, err := newApp(settings, localURL(settings.Addr))
	if err != nil {
		return err
	}
	defer a.orch.Close()

	log.Info().
		Str("version", Version).
		Int("boards", len(a.boards.List())).
		Dur("turn_timeout", settings.TurnTimeout).
		Msgf("Starting %s", AppName)

	var beacon *discovery.Beacon
	if settings.Discovery.Enabled {
		beacon, err = discovery.NewBeacon(settings.Discovery.Group,
			discovery.WithMessage(settings.Discovery.Message),
			discovery.WithInterval(settings.Discovery.Interval),
			discovery.WithTTL(settings.Discovery.TTL),
		)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.hub.Run(ctx)
	}()

	httpServer := &http.Server{
		Addr:        settings.Addr,
		Handler:     a.handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", settings.Addr).Msg("HTTP server listening")
		log.Info().Msgf("Board endpoint: %s/data", localURL(settings.Addr))
		log.Info().Msgf("WebSocket: %s/ws", localURL(settings.Addr))
		log.Info().Msgf("MCP endpoint: %s/mcp", localURL(settings.Addr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if beacon != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := beacon.Run(ctx); err != nil {
				log.Warn().Err(err).Msg("Discovery beacon stopped")
			}
		}()
	}

	if settings.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveNgrok(ctx, settings.Ngrok, a.handler)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
	case err := <-serveErr:
		cancel()
		wg.Wait()
		return err
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info().Msg("Server stopped")
	return nil
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is cancelled.
func serveNgrok(ctx context.Context, cfg config.Ngrok, handler http.Handler) {
	if cfg.AuthToken == "" {
		log.Warn().Msg("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info().Msg("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		log.Info().Str("domain", cfg.Domain).Msg("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		log.Error().Err(err).Msg("Failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.Info().Msgf("Ngrok tunnel established: %s", ngrokURL)
	log.Info().Msgf("  Board endpoint (ngrok): %s/data", ngrokURL)
	log.Info().Msgf("  WebSocket (ngrok): %s/ws", ngrokURL)
	log.Info().Msgf("  Game UI (ngrok): %s/", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Err(err).Msg("Ngrok server error")
	}
	log.Info().Msg("Ngrok tunnel closed")
}

// serverReachable reports whether a game server answers at baseURL.
func serverReachable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
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

// runStdioMCP runs an MCP stdio server. It reuses the server named by
// --server when it answers; otherwise it starts an internal HTTP API on a
// random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	setupLogging(settings.Debug)

	baseURL := cmd.String("server")
	log.Info().Str("url", baseURL).Msg("Checking for external API server")

	if serverReachable(ctx, baseURL) {
		log.Info().Str("url", baseURL).Msg("External API server found, using it for MCP")
	} else {
		log.Info().Msg("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}

		a, err := newApp(settings, "")
		if err != nil {
			listener.Close()
			return err
		}
		defer a.orch.Close()

		go a.hub.Run(ctx)

		httpServer := &http.Server{Handler: a.handler}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		log.Info().Str("url", baseURL).Msg("Internal HTTP server started")
	}

	log.Info().Msg("MCP stdio server ready")
	if err := mcp.NewClient(baseURL).ServeStdio(); err != nil {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

// boardIDs returns the ids of a board table, sorted.
func boardIDs(table map[string]string) []string {
	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
