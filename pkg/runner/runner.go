// Package runner embeds the batch pipeline in a host application, running
// workflows durably via DBOS without the HTTP worker.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/qrfoundry/batch-pipeline/internal/dbosruntime"
	"github.com/qrfoundry/batch-pipeline/internal/history"
	"github.com/qrfoundry/batch-pipeline/internal/render"
	"github.com/qrfoundry/batch-pipeline/internal/workflows"
	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

// Config holds the configuration for initializing the batch runner
type Config struct {
	DatabaseURL        string // DBOS PostgreSQL connection string
	AppName            string // Application name for DBOS
	QueueName          string // DBOS queue name
	Concurrency        int    // Number of concurrent batch runs
	PixelSize          int    // Rendered image size in pixels, 0 for default
	HistoryDatabaseURL string // Optional: separate database for run history
	ApplicationVersion string // Optional: override binary hash for version matching
}

// Runner provides a high-level API for running batch workflows via DBOS
type Runner struct {
	runtime *dbosruntime.Runtime
	runner  *workflows.WorkflowRunner
	store   *history.Store
}

// New creates and initializes a new batch runner with DBOS integration
func New(cfg Config) (*Runner, error) {
	dbosRuntime, err := dbosruntime.NewRuntime(context.Background(), dbosruntime.Config{
		DatabaseURL:        cfg.DatabaseURL,
		AppName:            cfg.AppName,
		QueueName:          cfg.QueueName,
		Concurrency:        cfg.Concurrency,
		ApplicationVersion: cfg.ApplicationVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DBOS: %w", err)
	}

	var store *history.Store
	if cfg.HistoryDatabaseURL != "" {
		store, err = history.Open(cfg.HistoryDatabaseURL)
	} else {
		store, err = history.NewStore(dbosRuntime.DB())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}

	workflowRunner := workflows.NewWorkflowRunner(dbosRuntime)

	archiveWorkflow := workflows.NewArchiveWorkflow(render.NewPNGRenderer(cfg.PixelSize), store)
	workflowRunner.Register(batch.JobBatchArchive, archiveWorkflow)

	// Launch DBOS (must be after workflow registration)
	if err := dbosRuntime.Launch(); err != nil {
		return nil, fmt.Errorf("failed to launch DBOS: %w", err)
	}

	return &Runner{
		runtime: dbosRuntime,
		runner:  workflowRunner,
		store:   store,
	}, nil
}

// RunBatch enqueues a batch archive run and returns its run ID
func (r *Runner) RunBatch(ctx context.Context, csvContent, zipPath string, validate bool) (string, error) {
	return r.runner.RunAsync(ctx, batch.RunRequest{
		Job:        batch.JobBatchArchive,
		CSVContent: csvContent,
		ZipPath:    zipPath,
		Validate:   validate,
	})
}

// GetRun returns the persisted state of a batch run
func (r *Runner) GetRun(ctx context.Context, runID string) (*history.RunRecord, error) {
	return r.store.GetRun(ctx, runID)
}

// History exposes the underlying history store
func (r *Runner) History() *history.Store {
	return r.store
}

// Shutdown gracefully shuts down the batch runner
func (r *Runner) Shutdown(timeoutSeconds int) {
	if r.store != nil {
		r.store.Close()
	}
	if r.runtime != nil {
		r.runtime.Shutdown(time.Duration(timeoutSeconds) * time.Second)
	}
}
