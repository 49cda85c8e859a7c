package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/qrfoundry/batch-pipeline/internal/history"
	"github.com/qrfoundry/batch-pipeline/internal/workflows"
	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

// AsyncHandler handles asynchronous batch requests
type AsyncHandler struct {
	workflowRunner *workflows.WorkflowRunner
	store          *history.Store
}

// NewAsyncHandler creates a new async handler. store may be nil, in which
// case run status lookups return 404.
func NewAsyncHandler(runner *workflows.WorkflowRunner, store *history.Store) *AsyncHandler {
	return &AsyncHandler{
		workflowRunner: runner,
		store:          store,
	}
}

// HandleBatchAsync handles POST /v1/batch - enqueues a batch run and returns immediately
func (h *AsyncHandler) HandleBatchAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req batch.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	if req.Job == "" {
		req.Job = batch.JobBatchArchive
	}
	if req.CSVContent == "" {
		http.Error(w, "csv_content is required", http.StatusBadRequest)
		return
	}
	if req.ZipPath == "" {
		http.Error(w, "zip_path is required", http.StatusBadRequest)
		return
	}

	log.Printf("Enqueueing batch run: job=%s, validate=%t", req.Job, req.Validate)

	runID, err := h.workflowRunner.RunAsync(r.Context(), req)
	if err != nil {
		log.Printf("Failed to enqueue batch run: %v", err)
		http.Error(w, fmt.Sprintf("Failed to enqueue batch run: %v", err), http.StatusInternalServerError)
		return
	}

	log.Printf("Batch run enqueued: run_id=%s", runID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(batch.RunResponse{RunID: runID})
}

// HandleStatus handles GET /v1/runs/{runID} - returns persisted run state
func (h *AsyncHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runID := r.URL.Path[len("/v1/runs/"):]
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}

	if h.store == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	rec, err := h.store.GetRun(r.Context(), runID)
	if errors.Is(err, history.ErrNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Failed to get run status: %v", err)
		http.Error(w, "Failed to get run status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rec)
}
