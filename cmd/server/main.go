// PDSA - chat relay and document generation server
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
	"golang.org/x/sync/errgroup"

	"github.com/pdsa-team/pdsa-backend/internal/agent"
	"github.com/pdsa-team/pdsa-backend/internal/api"
	"github.com/pdsa-team/pdsa-backend/internal/chatlog"
	"github.com/pdsa-team/pdsa-backend/internal/config"
	"github.com/pdsa-team/pdsa-backend/internal/docgen"
	"github.com/pdsa-team/pdsa-backend/internal/fetch"
	"github.com/pdsa-team/pdsa-backend/internal/logstream"
	"github.com/pdsa-team/pdsa-backend/internal/middleware"
	"github.com/pdsa-team/pdsa-backend/internal/retention"
	"github.com/pdsa-team/pdsa-backend/internal/settings"
	"github.com/pdsa-team/pdsa-backend/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := cfg.RequireAI(); err != nil {
		slog.Error("Missing AI application credentials", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Initialize dependencies.
	chatLog := chatlog.New(cfg.LogFile)
	store := settings.NewStore(cfg.SettingsFile)
	scheduler := retention.NewScheduler(chatLog, cfg.Retention.CheckInterval)
	controller := retention.NewController(store, chatLog, scheduler)
	if err := controller.Start(); err != nil {
		return err
	}
	snap := controller.Schedule()
	slog.Info("Retention policy armed", "strategy", snap.Strategy, "cleanup_time", snap.CleanupTime, "next_run", snap.NextRun)

	chatClient, err := agent.NewAppClient(agent.AppConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.ChatAPIKey,
		AppID:   cfg.AI.ChatAppID,
	}, cfg.AI.ChatTimeout, logger)
	if err != nil {
		return err
	}
	docClient, err := agent.NewAppClient(agent.AppConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.DocAPIKey,
		AppID:   cfg.AI.DocAppID,
	}, cfg.AI.GenerationTimeout, logger)
	if err != nil {
		return err
	}

	pipeline, err := docgen.NewPipeline(docgen.Config{
		Dir:     cfg.DocsDir,
		Timeout: cfg.AI.GenerationTimeout,
	}, fetch.New(cfg.Fetch.Timeout), docClient, chatLog)
	if err != nil {
		return err
	}
	library := docgen.NewLibrary(cfg.DocsDir, "")

	// Initialize handlers.
	sm := logstream.NewSessionManager()
	healthHandler := api.NewHealthHandler()
	chatHandler := agent.NewHandler(agent.NewService(chatClient, chatLog), cfg.MaxRequestBodySize)
	docsHandler := api.NewDocsHandler(pipeline, library, cfg.MaxRequestBodySize)
	settingsHandler := api.NewSettingsHandler(controller, cfg.MaxRequestBodySize)
	logsHandler := api.NewLogsHandler(chatLog)
	streamHandler := logstream.NewWebSocketHandler(chatLog, sm, cfg.Retention.StreamInterval, middleware.OriginPatterns(cfg.CORSOrigins))

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	healthHandler.RegisterHealth(r)
	chatHandler.RegisterRoutes(r)
	docsHandler.RegisterRoutes(r)
	settingsHandler.RegisterRoutes(r)
	logsHandler.RegisterRoutes(r)
	streamHandler.RegisterRoutes(r)

	// Serve the frontend (SPA catch-all).
	r.Handle("/*", web.DirHandler(cfg.FrontendDir))

	// Generation can take minutes, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(gCtx)
	})

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down gracefully...")

		sm.CloseAll("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
