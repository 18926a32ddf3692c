// Screening interview server: conducts automated candidate interviews over
// WebSocket and serves persisted verdicts to employers.
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

	"github.com/ansarzeinulla/prescreen/internal/api"
	"github.com/ansarzeinulla/prescreen/internal/audit"
	"github.com/ansarzeinulla/prescreen/internal/chat"
	"github.com/ansarzeinulla/prescreen/internal/config"
	"github.com/ansarzeinulla/prescreen/internal/evaluator/gemini"
	"github.com/ansarzeinulla/prescreen/internal/middleware"
	"github.com/ansarzeinulla/prescreen/internal/results"
	"github.com/ansarzeinulla/prescreen/internal/session"
	"github.com/ansarzeinulla/prescreen/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Initialize the evaluator. A missing credential disables interviews but
	// keeps the retrieval surface up.
	var engine *session.Engine
	aiEnabled := false
	if cfg.GeminiAPIKey != "" {
		evalClient, err := gemini.NewClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			slog.Warn("Failed to initialize Gemini client, interviews will be disabled", "error", err)
		} else {
			aiEnabled = true
			engine = session.NewEngine(repo, evalClient, cfg.EvaluatorTimeout)
			slog.Info("Evaluator initialized", "model", evalClient.Model(), "timeout", cfg.EvaluatorTimeout)
		}
	}
	if !aiEnabled {
		engine = session.NewEngine(repo, nil, cfg.EvaluatorTimeout)
		slog.Warn("Interviews disabled (GOOGLE_API_KEY not set or client init failed)")
	}

	auditLog, err := audit.New(audit.Config{
		Enabled:   cfg.TranscriptLog.Enabled,
		Dir:       cfg.TranscriptLog.Dir,
		QueueSize: cfg.TranscriptLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize transcript audit log", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := auditLog.Close(); closeErr != nil {
			slog.Error("Failed to close transcript audit log", "error", closeErr)
		}
	}()

	// Initialize handlers.
	healthHandler := api.NewHealthHandler(repo, 5*time.Second)
	resultsHandler := results.NewHandler(repo)
	chatHandler := chat.NewHandler(engine, aiEnabled, cfg.FrontendURL, cfg.IsDevelopment(), auditLog)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	healthHandler.RegisterHealth(r)
	resultsHandler.RegisterRoutes(r)

	// WebSocket interview endpoint.
	r.Get("/ws", chatHandler.ServeHTTP)

	// Create server.
	// Note: interview connections are long-lived, so no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
