// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	httpadapter "resume-canvas/internal/adapter/http"
	"resume-canvas/internal/adapter/repository"
	"resume-canvas/internal/coach"
	"resume-canvas/internal/config"
	"resume-canvas/internal/infrastructure/migration"
	"resume-canvas/internal/sse"
	"resume-canvas/internal/usecase"
	"resume-canvas/pkg/ai"
	infra "resume-canvas/pkg/infrastructure"

	"github.com/gofiber/fiber/v2"
)

const sseHeartbeat = 15 * time.Second

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{logOutput: os.Stderr}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger, logCloser := infra.NewLogger(app.logOutput, infra.LogOptions{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		File:   cfg.App.LogFile,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("chat_model", cfg.AI.ChatModel),
		slog.String("generate_model", cfg.AI.GenerateModel),
		slog.Bool("database", cfg.Database.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Optional document archive.
	pool, err := infra.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Warn("document archive not available", slog.String("error", err.Error()))
		pool = nil
	}
	if pool != nil {
		defer pool.Close()
		if err := migration.RunMigrations(ctx, pool, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}
	documents := repository.NewDocumentsRepo(pool)

	assistant := ai.NewClient(AIClientConfig(cfg), logger)

	pages, err := infra.NewDocumentRenderer()
	if err != nil {
		return fmt.Errorf("init document renderer: %w", err)
	}

	broker := sse.NewBroker(logger, sseHeartbeat)
	defer broker.Close()

	ws := usecase.NewWorkspace(assistant, usecase.Options{
		Logger:    logger,
		Publisher: broker,
		Archive:   documents,
		Pages:     pages,
		PDF:       infra.NewChromedpRenderer(cfg.Renderer.ChromePath, cfg.Renderer.Timeout),
		Coach: coach.Config{
			Debounce: cfg.Coach.Debounce,
			Dismiss:  cfg.Coach.Dismiss,
		},
		BannerTimeout: cfg.Coach.BannerTimeout,
		Greeting:      cfg.Coach.Greeting,
		GenerateModel: assistant.GenerateModel(),
	})
	defer ws.Close()

	streamCtx, stopStreams := context.WithCancel(ctx)
	defer stopStreams()

	handler := httpadapter.NewHandler(ws, httpadapter.Options{
		Events:  broker,
		History: documents,
		Logger:  logger,
		Context: streamCtx,
		Health: func() fiber.Map {
			return fiber.Map{
				"breaker":     assistant.BreakerState(),
				"subscribers": broker.ClientCount(),
			}
		},
	})
	server := httpadapter.NewApp(handler, cfg.App.HTTP.BodyLimit)

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := server.Listen(cfg.App.HTTP.Address()); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Event streams never finish on their own.
		stopStreams()
		if err := server.ShutdownWithTimeout(cfg.App.HTTP.ShutdownTimeout); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// AIClientConfig maps the ai and coach sections onto the Gemini client.
func AIClientConfig(cfg *config.Config) ai.Config {
	return ai.Config{
		BaseURL:            cfg.AI.BaseURL,
		APIKey:             cfg.AI.APIKey,
		ChatModel:          cfg.AI.ChatModel,
		DeepModel:          cfg.AI.DeepModel,
		GenerateModel:      cfg.AI.GenerateModel,
		SuggestModel:       cfg.AI.SuggestModel,
		ThinkingBudget:     cfg.AI.ThinkingBudget,
		Language:           cfg.Coach.Language,
		Timeout:            cfg.AI.Timeout,
		GenerateTimeout:    cfg.AI.GenerateTimeout,
		SuggestTimeout:     cfg.AI.SuggestTimeout,
		MaxRetries:         cfg.AI.MaxRetries,
		BreakerMaxFailures: cfg.AI.Breaker.MaxFailures,
		BreakerTimeout:     cfg.AI.Breaker.OpenTimeout,
		SuggestRate:        cfg.AI.SuggestRate,
		SuggestBurst:       cfg.AI.SuggestBurst,
	}
}
