package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawnchairsociety/xianmud/internal/command"
	"github.com/lawnchairsociety/xianmud/internal/config"
	"github.com/lawnchairsociety/xianmud/internal/help"
	"github.com/lawnchairsociety/xianmud/internal/items"
	"github.com/lawnchairsociety/xianmud/internal/logger"
	"github.com/lawnchairsociety/xianmud/internal/namefilter"
	"github.com/lawnchairsociety/xianmud/internal/npc"
	"github.com/lawnchairsociety/xianmud/internal/observability"
	"github.com/lawnchairsociety/xianmud/internal/output"
	"github.com/lawnchairsociety/xianmud/internal/server"
	"github.com/lawnchairsociety/xianmud/internal/session"
	"github.com/lawnchairsociety/xianmud/internal/spells"
	"github.com/lawnchairsociety/xianmud/internal/state"
	"github.com/lawnchairsociety/xianmud/internal/world"
)

func main() {
	configFile := flag.String("config", "data/game.yaml", "Path to game config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	mode := flag.String("mode", "console", "Run mode: console or server")
	telnetAddr := flag.String("telnet", "", "Telnet listen address (overrides config)")
	wsAddr := flag.String("ws", "", "WebSocket listen address (overrides config, \"-\" disables)")
	name := flag.String("name", "", "Player name in console mode")
	worldFile := flag.String("world", "", "Optional world YAML file")
	itemsFile := flag.String("items", "", "Optional items YAML file")
	npcsFile := flag.String("npcs", "", "Optional NPCs YAML file")
	spellsFile := flag.String("spells", "", "Optional skills YAML file")
	helpFile := flag.String("help", "", "Optional help YAML file")
	flag.Parse()

	logConfig, _ := logger.LoadConfig(*loggingConfig)
	if *mode == "console" {
		// The game screen owns stdout.
		logConfig.ConsoleTarget = "stderr"
		if logConfig.Level == "INFO" {
			logConfig.Level = "WARNING"
		}
	}
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to load game config, using defaults", "path", *configFile, "error", err)
		cfg = config.DefaultConfig()
	}
	if *telnetAddr != "" {
		cfg.Server.TelnetAddress = *telnetAddr
	}
	if *wsAddr != "" {
		cfg.Server.WebSocketAddress = *wsAddr
	}

	content, err := loadContent(*worldFile, *itemsFile, *npcsFile, *spellsFile, *helpFile)
	if err != nil {
		log.Fatalf("Failed to load game content: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tp.Shutdown(shutdownCtx)
	}()

	store, closer, err := session.OpenStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open save storage: %v", err)
	}
	defer closer.Close()
	logger.Info("Save storage ready", "driver", cfg.Storage.Driver)

	switch *mode {
	case "console":
		err = runConsole(ctx, cfg, content, store, tp, *name)
	case "server":
		err = runServer(ctx, cfg, content, store, tp)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadContent starts from the built-in game data and replaces each part
// whose file was given.
func loadContent(worldFile, itemsFile, npcsFile, spellsFile, helpFile string) (*command.Content, error) {
	content := command.DefaultContent()
	var err error
	if worldFile != "" {
		if content.World, err = world.Load(worldFile); err != nil {
			return nil, err
		}
		logger.Info("World loaded", "path", worldFile)
	}
	if itemsFile != "" {
		if content.Items, err = items.Load(itemsFile); err != nil {
			return nil, err
		}
		logger.Info("Items loaded", "path", itemsFile)
	}
	if npcsFile != "" {
		if content.NPCs, err = npc.Load(npcsFile); err != nil {
			return nil, err
		}
		logger.Info("NPCs loaded", "path", npcsFile)
	}
	if spellsFile != "" {
		if content.Spells, err = spells.Load(spellsFile); err != nil {
			return nil, err
		}
		logger.Info("Skills loaded", "path", spellsFile)
	}
	if helpFile != "" {
		if content.Help, err = help.Load(helpFile); err != nil {
			logger.Warning("Failed to load help, using built-in help", "path", helpFile, "error", err)
			content.Help = help.Default()
		}
	}
	return content, nil
}

func runConsole(ctx context.Context, cfg *config.GameConfig, content *command.Content, store state.SlotStore, tp *observability.TracerProvider, name string) error {
	s := session.New(session.Options{
		Config:     cfg,
		Content:    content,
		Store:      store,
		Output:     output.NewConsole(os.Stdout),
		Tracer:     tp.Tracer("xianmud/session"),
		PlayerName: name,
	})
	return s.Run(ctx, os.Stdin)
}

func runServer(ctx context.Context, cfg *config.GameConfig, content *command.Content, store state.SlotStore, tp *observability.TracerProvider) error {
	nameCfg := namefilter.DefaultConfig()
	if cfg.Server.NameFilterPath != "" {
		loaded, err := namefilter.LoadConfig(cfg.Server.NameFilterPath)
		if err != nil {
			logger.Warning("Failed to load name filter config, using defaults", "path", cfg.Server.NameFilterPath, "error", err)
		} else {
			nameCfg = loaded
			logger.Info("Name filter loaded", "banned_words", len(nameCfg.BannedWords), "banned_names", len(nameCfg.BannedNames))
		}
	}

	srv := server.NewServer(cfg, server.Options{
		Content:    content,
		Store:      store,
		Tracer:     tp.Tracer("xianmud/server"),
		NameFilter: namefilter.New(nameCfg),
	})

	if len(cfg.Server.WebSocket.AllowedOrigins) == 0 {
		logger.Info("WebSocket CORS policy", "mode", "same-origin")
	} else if len(cfg.Server.WebSocket.AllowedOrigins) == 1 && cfg.Server.WebSocket.AllowedOrigins[0] == "*" {
		logger.Warning("WebSocket CORS allows all origins (not recommended for production)")
	}

	errc := make(chan error, 2)
	go func() {
		errc <- srv.Start(cfg.Server.TelnetAddress)
	}()
	if cfg.Server.WebSocketAddress != "" && cfg.Server.WebSocketAddress != "-" {
		go func() {
			errc <- srv.StartWebSocket(cfg.Server.WebSocketAddress)
		}()
	}
	logger.Info("Server running", "telnet", cfg.Server.TelnetAddress, "websocket", cfg.Server.WebSocketAddress)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	logger.Info("Server stopped", "uptime", srv.GetUptime().Round(time.Second))
	return runErr
}
