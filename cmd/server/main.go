package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/fatura-engine/internal/app"
	"github.com/segyhp/fatura-engine/internal/config"
	"github.com/segyhp/fatura-engine/internal/handler"
	"github.com/segyhp/fatura-engine/internal/logging"
	"github.com/segyhp/fatura-engine/pkg/response"

	"github.com/gorilla/mux"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	ledger, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "failed to initialize ledger", "error", err)
		os.Exit(1)
	}
	defer ledger.Close()

	billingHandler := handler.NewBillingHandler(ledger.Billing, cfg.Location(), cfg.Bot.MessageMaxChars, logger)
	healthHandler := handler.NewHealthHandler(ledger.DB, ledger.Redis, cfg.Health.Timeout)

	// Setup routes
	router := setupRoutes(billingHandler, healthHandler, logger)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info(ctx, "server starting", "addr", server.Addr, "env", cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server forced to shutdown", "error", err)
	}

	logger.Info(ctx, "server exited")
}

func setupRoutes(billingHandler *handler.BillingHandler, healthHandler *handler.HealthHandler, logger logging.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.CORSMiddleware, response.LoggingMiddleware(logger))
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods(http.MethodGet)

	// API routes
	billingHandler.RegisterRoutes(router.PathPrefix("/api/v1").Subrouter())

	return router
}
