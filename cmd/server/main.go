// Glossy - search and assistant page server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/glossy/internal/api"
	"github.com/ashureev/glossy/internal/chat"
	"github.com/ashureev/glossy/internal/config"
	"github.com/ashureev/glossy/internal/identity"
	"github.com/ashureev/glossy/internal/intent"
	"github.com/ashureev/glossy/internal/knowledge"
	"github.com/ashureev/glossy/internal/middleware"
	"github.com/ashureev/glossy/internal/probe"
	"github.com/ashureev/glossy/internal/realtime"
	"github.com/ashureev/glossy/internal/search"
	"github.com/ashureev/glossy/internal/session"
	"github.com/ashureev/glossy/internal/store"
	"github.com/ashureev/glossy/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "grpc_port", cfg.GRPCPort, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "glossy", telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
	})
	if err != nil {
		slog.Warn("Tracing disabled", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}()

	health, err := probe.Listen(":"+cfg.GRPCPort, logger)
	if err != nil {
		slog.Error("Failed to start health probe", "error", err)
		os.Exit(1)
	}
	probeDone := make(chan struct{})
	go func() {
		defer close(probeDone)
		if err := health.Serve(ctx); err != nil {
			slog.Error("Health probe failed", "error", err)
		}
	}()

	// Each feature initializes on its own; a failure disables only that feature.
	repo, sqlite := initStore(ctx, cfg)
	if sqlite != nil {
		defer func() {
			if closeErr := sqlite.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		}()
	}

	var chatLog *store.ChatLogger
	if sqlite != nil {
		chatLog = store.NewChatLogger(sqlite, store.ChatLogConfig{
			Enabled:   cfg.ChatLog.Enabled,
			QueueSize: cfg.ChatLog.QueueSize,
		}, logger)
		defer func() {
			if err := chatLog.Close(); err != nil {
				slog.Error("Failed to flush chat log", "error", err)
			}
		}()
	}

	lookup := initKnowledge(cfg, logger)
	health.SetFeature(probe.ServiceKnowledge, lookup != nil)

	catalog := initCatalog(cfg)
	health.SetFeature(probe.ServiceSearch, catalog != nil)

	var lookupIface intent.KnowledgeLookup
	if lookup != nil {
		lookupIface = lookup
	}
	resolver := intent.NewResolver(lookupIface, logger)
	health.SetFeature(probe.ServiceChat, true)
	health.SetFeature(probe.ServiceGames, true)

	chatCfg := chat.DefaultConfig()
	chatCfg.ReplyDelay = cfg.Chat.ReplyDelay
	chatCfg.FallbackDelay = cfg.Chat.FallbackDelay

	deps := session.Deps{
		Resolver:      resolver,
		Catalog:       catalog,
		DefaultEngine: cfg.Search.DefaultEngine,
		Chat:          chatCfg,
		Logger:        logger,
	}
	if chatLog != nil {
		deps.Recorder = chatLog
	}
	sessions := session.NewManager(deps)
	conns := realtime.NewConnections()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	limiter.StartSweeper(ctx, time.Minute)

	// Initialize handlers.
	handler := api.NewHandler(repo, sessions, catalog, api.Features{
		Chat:          true,
		Knowledge:     lookup != nil,
		Search:        catalog != nil,
		Games:         true,
		ChatLog:       chatLog != nil && cfg.ChatLog.Enabled,
		DefaultEngine: cfg.Search.DefaultEngine,
	})
	wsHandler := realtime.NewWebSocketHandler(sessions, conns, limiter, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	handler.RegisterRoutes(r, limiter.Middleware)

	// WebSocket endpoint.
	r.Get("/ws", wsHandler.ServeHTTP)

	// Note: WebSocket connections require long timeouts (no WriteTimeout).
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.Handler(r, "glossy.http"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	var pruner session.ChatLogPruner
	if sqlite != nil {
		pruner = sqlite
	}
	reaperDone := session.StartReaper(ctx, sessions, pruner, session.ReaperConfig{
		Interval:     cfg.ReaperInterval,
		IdleTTL:      cfg.SessionIdleTTL,
		LogRetention: cfg.ChatLog.Retention,
	}, conns.CloseTab)
	slog.Info("Session reaper started", "idle_ttl", cfg.SessionIdleTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conns.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	sessions.CloseAll()
	<-reaperDone
	<-probeDone

	slog.Info("Server stopped successfully")
}

// initStore opens the database. On failure the server runs without
// persistence and both returns are nil.
func initStore(ctx context.Context, cfg *config.Config) (store.Repository, *store.SQLiteStore) {
	sqlite, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database, persistence disabled", "error", err)
		return nil, nil
	}
	if err := sqlite.Ping(ctx); err != nil {
		slog.Error("Database health check failed, persistence disabled", "error", err)
		_ = sqlite.Close()
		return nil, nil
	}
	slog.Info("Database connected", "path", cfg.DBPath)
	return sqlite, sqlite
}

// initKnowledge builds the summary client, or nil when disabled.
func initKnowledge(cfg *config.Config, logger *slog.Logger) *knowledge.Client {
	if !cfg.Knowledge.Enabled {
		slog.Info("Knowledge lookups disabled")
		return nil
	}
	httpClient := &http.Client{
		Timeout:   cfg.Knowledge.Timeout,
		Transport: telemetry.Transport(nil),
	}
	client, err := knowledge.NewClient(knowledge.Config{
		BaseURL: cfg.Knowledge.BaseURL,
		Timeout: cfg.Knowledge.Timeout,
	}, httpClient, logger)
	if err != nil {
		slog.Error("Failed to initialize knowledge client, lookups disabled", "error", err)
		return nil
	}
	return client
}

// initCatalog loads the engine catalog, or nil when it cannot be used.
func initCatalog(cfg *config.Config) *search.Catalog {
	catalog, err := search.LoadCatalog(cfg.Search.EnginesFile)
	if err != nil {
		slog.Error("Failed to load search engines, search disabled", "error", err, "path", cfg.Search.EnginesFile)
		return nil
	}
	if _, ok := catalog.Lookup(cfg.Search.DefaultEngine); !ok {
		slog.Error("Default engine not in catalog, search disabled", "engine", cfg.Search.DefaultEngine)
		return nil
	}
	return catalog
}
