package workflows

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/qrfoundry/batch-pipeline/internal/archive"
	"github.com/qrfoundry/batch-pipeline/internal/ingest"
	"github.com/qrfoundry/batch-pipeline/internal/metrics"
	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

// Renderer turns one parsed row into an encoded QR image. Implementations
// may fail independently per row.
type Renderer interface {
	Render(item batch.Item) (batch.RenderedItem, error)
}

// RunRecorder persists batch run state for later status queries. Recording
// failures are logged and never fail the batch.
type RunRecorder interface {
	RecordRunStart(ctx context.Context, runID string, req batch.RunRequest) error
	RecordRunResult(ctx context.Context, runID string, outcome *batch.Outcome) error
}

// ArchiveWorkflow drives one batch run: ingest CSV rows, render each row,
// validate and archive the rendered images, and report one outcome with a
// verdict per row. Row-level failures degrade to verdicts; only a
// structural CSV error or a destination failure aborts the run.
type ArchiveWorkflow struct {
	renderer Renderer
	recorder RunRecorder

	// Workers sets the validation concurrency; <=0 uses the pool default.
	Workers int

	// RateLimitRPS caps validation decodes per second; <=0 disables it.
	RateLimitRPS float64
}

// NewArchiveWorkflow creates a batch archive workflow. recorder may be nil.
func NewArchiveWorkflow(renderer Renderer, recorder RunRecorder) *ArchiveWorkflow {
	return &ArchiveWorkflow{
		renderer: renderer,
		recorder: recorder,
	}
}

// Name returns the workflow name
func (w *ArchiveWorkflow) Name() string {
	return "ArchiveWorkflow"
}

// Execute runs the batch archive workflow
func (w *ArchiveWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	req := wctx.Request
	log.Printf("[%s] Starting batch archive workflow (validate=%t)", wctx.RunID, req.Validate)

	if err := w.validateRequest(&req); err != nil {
		log.Printf("[%s] Validation failed: %v", wctx.RunID, err)
		return w.fail(wctx, fmt.Errorf("validation failed: %w", err))
	}

	if w.recorder != nil {
		if err := w.recorder.RecordRunStart(wctx.Ctx, wctx.RunID, req); err != nil {
			// Continue anyway - run tracking is best effort.
			log.Printf("[%s] Failed to record run start: %v", wctx.RunID, err)
		}
	}

	// Step 1: Ingest CSV rows
	parsed, err := ingest.ParseCSVString(req.CSVContent)
	if err != nil {
		log.Printf("[%s] CSV ingestion failed: %v", wctx.RunID, err)
		return w.fail(wctx, err)
	}
	if len(parsed.Items) == 0 {
		return w.fail(wctx, ErrEmptyBatch)
	}
	log.Printf("[%s] Ingested %d rows", wctx.RunID, parsed.TotalRows)

	// Step 2: Render each row. A failed render degrades that row to an
	// error verdict and excludes it from the archive.
	rendered := make([]batch.RenderedItem, 0, len(parsed.Items))
	var renderFailures []batch.Verdict
	for _, item := range parsed.Items {
		ri, err := w.renderer.Render(item)
		if err != nil {
			log.Printf("[%s] Render failed for row %d: %v", wctx.RunID, item.Row, err)
			renderFailures = append(renderFailures, batch.Verdict{
				Row:     item.Row,
				State:   batch.StateDecodeInputError,
				Message: fmt.Sprintf("failed to render QR code: %v", err),
			})
			continue
		}
		rendered = append(rendered, ri)
	}
	log.Printf("[%s] Rendered %d/%d rows", wctx.RunID, len(rendered), len(parsed.Items))

	// Step 3: Archive (and validate) in row order
	verdicts, err := archive.BuildFile(wctx.Ctx, req.ZipPath, rendered, archive.BuildOptions{
		Validate:     req.Validate,
		Workers:      w.Workers,
		RateLimitRPS: w.RateLimitRPS,
	})
	if err != nil {
		log.Printf("[%s] Archive build failed: %v", wctx.RunID, err)
		return w.fail(wctx, err)
	}

	outcome := &batch.Outcome{
		Success:  true,
		ZipPath:  req.ZipPath,
		RowCount: len(rendered),
		Verdicts: mergeVerdicts(verdicts, renderFailures),
	}
	log.Printf("[%s] Archive written to %s (%d entries, %d verdicts)",
		wctx.RunID, req.ZipPath, len(rendered), len(outcome.Verdicts))

	if w.recorder != nil {
		if err := w.recorder.RecordRunResult(wctx.Ctx, wctx.RunID, outcome); err != nil {
			log.Printf("[%s] Failed to record run result: %v", wctx.RunID, err)
		}
	}
	metrics.ObserveOutcome(outcome)

	return &WorkflowResult{Success: true, Outcome: outcome}, nil
}

func (w *ArchiveWorkflow) validateRequest(req *batch.RunRequest) error {
	if req.CSVContent == "" {
		return fmt.Errorf("%w: csv_content is required", ErrInvalidRequest)
	}
	if req.ZipPath == "" {
		return fmt.Errorf("%w: zip_path is required", ErrInvalidRequest)
	}
	return nil
}

func (w *ArchiveWorkflow) fail(wctx *WorkflowContext, err error) (*WorkflowResult, error) {
	outcome := &batch.Outcome{Success: false, Error: err.Error()}
	if w.recorder != nil {
		if rerr := w.recorder.RecordRunResult(wctx.Ctx, wctx.RunID, outcome); rerr != nil {
			log.Printf("[%s] Failed to record run result: %v", wctx.RunID, rerr)
		}
	}
	metrics.ObserveOutcome(outcome)
	return &WorkflowResult{Success: false, Error: err, Outcome: outcome}, err
}

// mergeVerdicts combines validation verdicts with render failures, ordered
// by row number. Both inputs are already row-ordered.
func mergeVerdicts(validated, failures []batch.Verdict) []batch.Verdict {
	if len(failures) == 0 {
		return validated
	}
	merged := make([]batch.Verdict, 0, len(validated)+len(failures))
	merged = append(merged, validated...)
	merged = append(merged, failures...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Row < merged[j].Row })
	return merged
}
