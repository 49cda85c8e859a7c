package workflows

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrfoundry/batch-pipeline/internal/ingest"
	"github.com/qrfoundry/batch-pipeline/internal/render"
	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

// flakyRenderer fails rendering for the configured rows.
type flakyRenderer struct {
	inner    *render.PNGRenderer
	failRows map[int]bool
}

func (r *flakyRenderer) Render(item batch.Item) (batch.RenderedItem, error) {
	if r.failRows[item.Row] {
		return batch.RenderedItem{}, errors.New("forced render failure")
	}
	return r.inner.Render(item)
}

func newTestWorkflow() *ArchiveWorkflow {
	return NewArchiveWorkflow(render.NewPNGRenderer(256), nil)
}

func execute(t *testing.T, wf *ArchiveWorkflow, req batch.RunRequest) (*WorkflowResult, error) {
	t.Helper()
	runner := NewWorkflowRunner(nil)
	runner.Register(batch.JobBatchArchive, wf)
	return runner.Run(&WorkflowContext{
		Ctx:     context.Background(),
		Request: req,
		RunID:   "test-run",
	})
}

func zipEntryCount(t *testing.T, path string) int {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	return len(zr.File)
}

func TestArchiveWorkflowEndToEnd(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "qr-codes.zip")
	result, err := execute(t, newTestWorkflow(), batch.RunRequest{
		Job:        batch.JobBatchArchive,
		CSVContent: "content\nhttps://a.com\ntel:+15551234567",
		ZipPath:    zipPath,
		Validate:   true,
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	outcome := result.Outcome
	require.NotNil(t, outcome)
	assert.True(t, outcome.Success)
	assert.Equal(t, zipPath, outcome.ZipPath)

	require.Len(t, outcome.Verdicts, 2)
	assert.Equal(t, 1, outcome.Verdicts[0].Row)
	assert.Equal(t, batch.StatePass, outcome.Verdicts[0].State)
	assert.Equal(t, "https://a.com", outcome.Verdicts[0].DecodedContent)
	assert.Equal(t, 2, outcome.Verdicts[1].Row)
	assert.Equal(t, batch.StatePass, outcome.Verdicts[1].State)

	assert.Equal(t, 2, zipEntryCount(t, zipPath))
}

func TestArchiveWorkflowWithoutValidation(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "qr-codes.zip")
	result, err := execute(t, newTestWorkflow(), batch.RunRequest{
		Job:        batch.JobBatchArchive,
		CSVContent: "content,label\nhello,Greeting\nworld,",
		ZipPath:    zipPath,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Empty(t, result.Outcome.Verdicts)
	assert.Equal(t, 2, result.Outcome.RowCount)
	assert.Equal(t, 2, zipEntryCount(t, zipPath))
}

func TestArchiveWorkflowRenderFailureIsolated(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "qr-codes.zip")
	wf := NewArchiveWorkflow(&flakyRenderer{
		inner:    render.NewPNGRenderer(256),
		failRows: map[int]bool{2: true},
	}, nil)

	result, err := execute(t, wf, batch.RunRequest{
		Job:        batch.JobBatchArchive,
		CSVContent: "content\nhttps://a.com\nhttps://b.com\nhttps://c.com",
		ZipPath:    zipPath,
		Validate:   true,
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	verdicts := result.Outcome.Verdicts
	require.Len(t, verdicts, 3)
	assert.Equal(t, batch.StatePass, verdicts[0].State)
	assert.Equal(t, 2, verdicts[1].Row)
	assert.Equal(t, batch.StateDecodeInputError, verdicts[1].State)
	assert.Contains(t, verdicts[1].Message, "failed to render")
	assert.Equal(t, batch.StatePass, verdicts[2].State)

	// The failed row is excluded from the archive, not fatal to the batch.
	assert.Equal(t, 2, zipEntryCount(t, zipPath))
}

func TestArchiveWorkflowStructuralError(t *testing.T) {
	result, err := execute(t, newTestWorkflow(), batch.RunRequest{
		Job:        batch.JobBatchArchive,
		CSVContent: "type,label\nurl,Example",
		ZipPath:    filepath.Join(t.TempDir(), "qr-codes.zip"),
	})
	require.Error(t, err)
	require.False(t, result.Success)

	var serr *ingest.StructuralError
	assert.ErrorAs(t, err, &serr)
	assert.Contains(t, result.Outcome.Error, "content")
}

func TestArchiveWorkflowEmptyBatch(t *testing.T) {
	_, err := execute(t, newTestWorkflow(), batch.RunRequest{
		Job:        batch.JobBatchArchive,
		CSVContent: "content\n\n   \n",
		ZipPath:    filepath.Join(t.TempDir(), "qr-codes.zip"),
	})
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestArchiveWorkflowInvalidRequest(t *testing.T) {
	_, err := execute(t, newTestWorkflow(), batch.RunRequest{
		Job:        batch.JobBatchArchive,
		CSVContent: "content\nhello",
	})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestWorkflowRunnerUnknownJob(t *testing.T) {
	runner := NewWorkflowRunner(nil)
	result, err := runner.Run(&WorkflowContext{
		Ctx:     context.Background(),
		Request: batch.RunRequest{Job: "no_such_job"},
		RunID:   "test-run",
	})
	require.ErrorIs(t, err, ErrWorkflowNotFound)
	assert.False(t, result.Success)
}

func TestArchiveWorkflowAllRowsFailRender(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "qr-codes.zip")
	wf := NewArchiveWorkflow(&flakyRenderer{
		inner:    render.NewPNGRenderer(256),
		failRows: map[int]bool{1: true, 2: true},
	}, nil)

	_, err := execute(t, wf, batch.RunRequest{
		Job:        batch.JobBatchArchive,
		CSVContent: "content\na\nb",
		ZipPath:    zipPath,
		Validate:   true,
	})
	require.NoError(t, err)

	// All rows failed rendering: the archive is created but empty.
	assert.Equal(t, 0, zipEntryCount(t, zipPath))
	_, statErr := os.Stat(zipPath)
	assert.NoError(t, statErr)
}
