package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lsvinicius/mental-health/api"
	"github.com/lsvinicius/mental-health/command"
	"github.com/lsvinicius/mental-health/config"
	"github.com/lsvinicius/mental-health/genai"
	"github.com/lsvinicius/mental-health/outbox"
	"github.com/lsvinicius/mental-health/policy"
	"github.com/lsvinicius/mental-health/projector"
	"github.com/lsvinicius/mental-health/query"
	"github.com/lsvinicius/mental-health/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("INFO: starting conversation service")
	log.Printf("INFO: HTTP port: %d", cfg.HTTPPort)
	log.Printf("INFO: database: %s", cfg.DatabaseURL)
	log.Printf("INFO: analyzer provider: %s", cfg.AnalyzerProvider)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize analyzer client
	analyzerClient, err := genai.NewAnalyzerClient(cfg.AnalyzerProvider, cfg.AnalyzerBaseURL, cfg.AnalyzerAPIKey, cfg.AnalyzerModel, cfg.AnalyzeTimeout)
	if err != nil {
		log.Fatalf("Failed to initialize analyzer client: %v", err)
	}

	// Initialize policy engine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize risk analyzer
	analyzer, err := genai.NewRiskAnalyzer(db, analyzerClient, policyEngine, cfg.PromptPath)
	if err != nil {
		log.Fatalf("Failed to initialize risk analyzer: %v", err)
	}

	// Initialize handlers
	commands := command.NewConversationCommandHandler(db)
	queries := query.NewConversationQueryHandler(db)
	h := api.NewHandler(db, commands, queries)

	// Start the outbox processor next to the API server
	processor := outbox.NewProcessor(db, projector.NewConversationProjector(db), analyzer)
	var processorDone sync.WaitGroup
	processorDone.Add(1)
	go func() {
		defer processorDone.Done()
		processor.ProcessForever(ctx, cfg.OutboxInterval)
	}()

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Register routes
	h.RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("INFO: API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("INFO: shutting down conversation service")

	// Stop the processor between cycles and wait for the in-flight cycle
	cancel()
	processorDone.Wait()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: failed to shutdown server gracefully: %v", err)
	}

	log.Println("INFO: conversation service stopped")
}
