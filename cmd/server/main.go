/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the shift scheduling server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env and parse command-line flags
  2. Initialize SQLite store
  3. Load shift templates and wire the engine components
  4. Configure HTTP router, start the week scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -db         SQLite database path (default: shifts.db)
              Use ":memory:" for an in-memory database
  -templates  Shift template YAML path (optional, built-ins otherwise)
  -webhook    Notification webhook URL (optional)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the week scheduler, close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/shifts.db"

  # Run with custom templates and notifications
  ./server -templates=./shifts.yaml -webhook=https://hooks.internal/shifts

ENVIRONMENT:
  PORT, DB_PATH, TEMPLATES_PATH, WEBHOOK_URL mirror the flags and are
  read from the environment (or .env) when the flag is left at its
  default.

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/warp/shift-engine/api"
	"github.com/warp/shift-engine/schedule"
	"github.com/warp/shift-engine/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	// Flags, with environment fallbacks
	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "shifts.db"), "SQLite database path")
	templatesPath := flag.String("templates", envStr("TEMPLATES_PATH", ""), "shift template YAML path")
	webhookURL := flag.String("webhook", envStr("WEBHOOK_URL", ""), "notification webhook URL")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Shift templates: YAML overrides merged over the built-ins
	templates := schedule.DefaultTemplates()
	if *templatesPath != "" {
		templates, err = schedule.LoadTemplates(*templatesPath)
		if err != nil {
			logger.Fatal("failed to load shift templates",
				zap.String("path", *templatesPath), zap.Error(err))
		}
	}

	// Notifications
	var notify schedule.NotificationDispatcher = schedule.NoopDispatcher{}
	if *webhookURL != "" {
		notify = schedule.NewWebhookDispatcher(*webhookURL, logger)
	}

	// Engine components
	audit := schedule.NewAuditSink(store, logger)
	catalog := schedule.NewCatalog(store, templates, schedule.NewGermanHolidays(), audit)
	bookings := schedule.NewBookingLedger(store, audit, notify)
	entitlements := &schedule.StaticEntitlements{Default: schedule.Entitlement{AnnualDays: 30}}
	vacations := schedule.NewVacationLedger(store, entitlements, audit, notify)
	workflow := schedule.NewRequestWorkflow(store, audit, notify)
	budget := schedule.NewHourBudget(store, audit)

	handler := api.NewHandler(store, catalog, bookings, vacations, workflow, budget, audit, logger)
	router := api.NewRouter(handler)

	// Keep upcoming weeks populated
	scheduler := api.NewWeekScheduler(catalog, logger)
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.Int("port", *port), zap.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
