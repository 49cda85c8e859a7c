package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qrfoundry/batch-pipeline/internal/dbosruntime"
	"github.com/qrfoundry/batch-pipeline/internal/handlers"
	"github.com/qrfoundry/batch-pipeline/internal/history"
	"github.com/qrfoundry/batch-pipeline/internal/render"
	"github.com/qrfoundry/batch-pipeline/internal/workflows"
	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	// Configuration from environment
	httpAddr := os.Getenv("WORKER_HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8081"
	}

	pixelSize := 512
	if raw := os.Getenv("RENDER_PIXEL_SIZE"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			pixelSize = v
		}
	}

	// Initialize DBOS runtime (required)
	dbURL := os.Getenv("DBOS_SYSTEM_DATABASE_URL")
	if dbURL == "" {
		log.Fatalf("DBOS_SYSTEM_DATABASE_URL is required")
	}

	queueName := os.Getenv("DBOS_QUEUE_NAME")
	if queueName == "" {
		queueName = "default"
	}

	dbosRuntime, err := dbosruntime.NewRuntime(context.Background(), dbosruntime.Config{
		DatabaseURL: dbURL,
		AppName:     "batch-worker",
		QueueName:   queueName,
	})
	if err != nil {
		log.Fatalf("Failed to initialize DBOS: %v", err)
	}

	// Run history lives in HISTORY_DATABASE_URL, falling back to the DBOS
	// system database.
	var store *history.Store
	if histURL := os.Getenv("HISTORY_DATABASE_URL"); histURL != "" {
		store, err = history.Open(histURL)
	} else {
		store, err = history.NewStore(dbosRuntime.DB())
	}
	if err != nil {
		log.Fatalf("Failed to initialize history store: %v", err)
	}
	defer store.Close()

	// Initialize workflow runner with DBOS support (registers workflows with DBOS)
	workflowRunner := workflows.NewWorkflowRunner(dbosRuntime)

	// Register workflows
	renderer := render.NewPNGRenderer(pixelSize)
	archiveWorkflow := workflows.NewArchiveWorkflow(renderer, store)
	workflowRunner.Register(batch.JobBatchArchive, archiveWorkflow)
	log.Printf("✓ Registered workflow: %s for job: %s", archiveWorkflow.Name(), batch.JobBatchArchive)

	// Launch DBOS (must be done after workflow registration)
	if err := dbosRuntime.Launch(); err != nil {
		log.Fatalf("Failed to launch DBOS: %v", err)
	}
	defer dbosRuntime.Shutdown(10 * time.Second)

	log.Printf("✓ DBOS runtime initialized")
	log.Printf("  Database: %s", dbURL)
	log.Printf("  Queue: %s", dbosRuntime.QueueName())
	log.Printf("  Concurrency: %d", dbosRuntime.Concurrency())

	// Create HTTP server
	mux := http.NewServeMux()

	asyncHandler := handlers.NewAsyncHandler(workflowRunner, store)
	historyHandler := handlers.NewHistoryHandler(store)
	scanHandler := handlers.NewScanHandler()
	exportHandler := handlers.NewExportHandler()

	// Register handlers
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/v1/batch", asyncHandler.HandleBatchAsync)
	mux.HandleFunc("/v1/runs/", asyncHandler.HandleStatus)
	mux.HandleFunc("/v1/scan", scanHandler.HandleScan)
	mux.HandleFunc("/v1/export", exportHandler.HandleExport)
	mux.HandleFunc("/v1/history", historyHandler.HandleHistory)
	mux.HandleFunc("/v1/history/", historyHandler.HandleHistoryItem)
	mux.HandleFunc("/v1/templates", historyHandler.HandleTemplates)
	mux.HandleFunc("/v1/templates/", historyHandler.HandleTemplateItem)
	mux.Handle("/metrics", promhttp.Handler())

	log.Printf("✓ Registered endpoints")

	server := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Batch worker starting on %s", httpAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// handleHealth returns health status
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}
