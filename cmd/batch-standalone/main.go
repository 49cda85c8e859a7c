package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/qrfoundry/batch-pipeline/internal/qrdecode"
	"github.com/qrfoundry/batch-pipeline/internal/render"
	"github.com/qrfoundry/batch-pipeline/internal/workflows"
	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

// Standalone batch runner for local use and quick testing. Reads a CSV,
// renders QR images, optionally validates them by decoding, and writes a
// zip archive. No database or DBOS runtime needed.
func main() {
	_ = godotenv.Load()

	input := flag.String("input", "", "path to the input CSV file (required)")
	output := flag.String("output", "qr-batch.zip", "path of the zip archive to write")
	validate := flag.Bool("validate", false, "decode each rendered image and verify content")
	size := flag.Int("size", 512, "rendered image size in pixels")
	workers := flag.Int("workers", 0, "validation workers (0 = default)")
	rateLimit := flag.Float64("rate", 0, "max validation decodes per second (0 = unlimited)")
	scan := flag.String("scan", "", "scan a single image file and print the decoded payload")
	flag.Parse()

	if *scan != "" {
		runScan(*scan)
		return
	}

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: batch-standalone -input rows.csv [-output out.zip] [-validate] [-size N] [-workers N] [-rate N]")
		fmt.Fprintln(os.Stderr, "       batch-standalone -scan image.png")
		os.Exit(2)
	}

	csvContent, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *input, err)
	}

	// Inline runner, no durable runtime
	workflowRunner := workflows.NewWorkflowRunner(nil)
	archiveWorkflow := workflows.NewArchiveWorkflow(render.NewPNGRenderer(*size), nil)
	archiveWorkflow.Workers = *workers
	archiveWorkflow.RateLimitRPS = *rateLimit
	workflowRunner.Register(batch.JobBatchArchive, archiveWorkflow)

	runID := uuid.New().String()
	wctx := &workflows.WorkflowContext{
		Ctx: context.Background(),
		Request: batch.RunRequest{
			Job:        batch.JobBatchArchive,
			CSVContent: string(csvContent),
			ZipPath:    *output,
			Validate:   *validate,
		},
		RunID: runID,
	}

	result, err := workflowRunner.Run(wctx)
	if err != nil {
		log.Fatalf("[%s] Batch run failed: %v", runID, err)
	}

	outcome := result.Outcome
	passed, failed := 0, 0
	for _, v := range outcome.Verdicts {
		if v.Passed() {
			passed++
			continue
		}
		failed++
		fmt.Printf("row %d: %s: %s\n", v.Row, v.State, v.Message)
		for _, s := range v.Suggestions {
			fmt.Printf("  hint: %s\n", s)
		}
	}

	log.Printf("[%s] Archive written to %s", runID, outcome.ZipPath)
	if *validate {
		log.Printf("[%s] Validation: %d passed, %d failed", runID, passed, failed)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// runScan decodes one image file and prints its payload and detected type
func runScan(path string) {
	result, err := qrdecode.ScanFile(path)
	if err != nil {
		log.Fatalf("Failed to scan %s: %v", path, err)
	}
	if !result.Success {
		fmt.Fprintf(os.Stderr, "%s: %s\n", path, result.Error)
		os.Exit(1)
	}
	fmt.Printf("type: %s\n", result.QRType)
	fmt.Printf("content: %s\n", result.Content)
}
