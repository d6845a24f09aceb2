/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the contract payment engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse command-line flags
  2. Initialize SQLite store
  3. Wire the notification dispatcher
  4. Create API handler with dependencies
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: contracts.db)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  PORT         Overrides -port when set
  DB_PATH      Overrides -db when set
  WEBHOOK_URL  Payment decision webhook; decisions are dropped when unset

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/contracts.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

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
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/contract-engine/api"
	"github.com/warp/contract-engine/engine"
	"github.com/warp/contract-engine/notify"
	"github.com/warp/contract-engine/store/sqlite"
)

func main() {
	// .env is optional; flags and env vars win in that order.
	_ = godotenv.Load()

	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "contracts.db", "SQLite database path")
	flag.Parse()

	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			*port = p
		}
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		*dbPath = v
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Dispatcher: webhook when configured, otherwise decisions are dropped.
	var dispatcher engine.Dispatcher = engine.NopDispatcher{}
	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		dispatcher = notify.NewWebhook(url)
		log.Printf("Payment decisions will be delivered to %s", url)
	}

	// Initialize handler and router
	handler := api.NewHandler(store, dispatcher)
	router := api.NewRouter(handler)

	// Background overdue sweep
	sweep := api.NewOverdueSweep(store, handler)
	sweep.Start()
	defer sweep.Stop()

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
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
