package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ticket-triage/internal/api"
	"ticket-triage/internal/api/handlers"
	"ticket-triage/internal/embedding"
	"ticket-triage/internal/llm"
	"ticket-triage/internal/repository"
	"ticket-triage/internal/service"
	"ticket-triage/pkg/config"
	"ticket-triage/pkg/logger"
	"ticket-triage/pkg/postgres"

	"go.uber.org/zap"
)

// @title Ticket Triage API
// @version 1.0
// @description Support ticket triage: field extraction, knowledge-base search and next-action policy.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting ticket triage service")

	ctx := context.Background()

	knowledgeRepo, err := repository.LoadKnowledgeRepository(cfg.Triage.KBPath, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load knowledge base", zap.Error(err))
	}

	provider, err := embedding.Select(cfg.Embedding, knowledgeRepo.SearchableTexts(), appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize embeddings", zap.Error(err))
	}
	defer provider.Close()

	searchService, err := service.NewSearchService(ctx, knowledgeRepo, provider, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to index knowledge base", zap.Error(err))
	}

	model, err := llm.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM", zap.Error(err))
	}
	defer model.Close()

	extractorService := service.NewExtractorService(model, &cfg.LLM, appLogger)
	triageService := service.NewTriageService(extractorService, searchService, service.NewPolicy(&cfg.Triage), appLogger)

	if cfg.Journal.Enabled {
		db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		triageRepo := repository.NewTriageRepository(db, appLogger)
		if err := triageRepo.EnsureSchema(ctx); err != nil {
			appLogger.Fatal("Failed to prepare journal", zap.Error(err))
		}
		triageService.UseJournal(triageRepo, model.Name(), string(searchService.Strategy()))
	}

	// Initialize handlers
	triageHandler := handlers.NewTriageHandler(triageService, appLogger)

	// Setup router
	app := api.SetupRouter(triageHandler, &cfg.Server, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting",
			zap.String("address", addr),
			zap.String("model", model.Name()),
			zap.String("embedding", string(searchService.Strategy())),
		)
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
