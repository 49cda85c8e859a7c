package history

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

// openTestStore connects to the database named by HISTORY_TEST_DATABASE_URL.
// Tests that need it are skipped when the variable is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("HISTORY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("HISTORY_TEST_DATABASE_URL not set")
	}
	store, err := Open(url)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHistoryItemLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.SaveItem(ctx, NewItem{
		Content: "https://example.com/" + uuid.NewString(),
		QRType:  "URL",
		Label:   "Lifecycle",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	items, err := store.ListItems(ctx, 10, 0, "Lifecycle")
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, "URL", items[0].QRType)
	assert.Equal(t, "{}", items[0].StyleJSON)

	deleted, err := store.DeleteItem(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteItem(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestTemplateDefaultIsExclusive(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.SaveTemplate(ctx, "first-"+uuid.NewString(), `{"fg":"#000"}`, "")
	require.NoError(t, err)
	second, err := store.SaveTemplate(ctx, "second-"+uuid.NewString(), `{"fg":"#333"}`, "")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.DeleteTemplate(ctx, first)
		store.DeleteTemplate(ctx, second)
	})

	require.NoError(t, store.SetDefaultTemplate(ctx, first))
	require.NoError(t, store.SetDefaultTemplate(ctx, second))

	templates, err := store.ListTemplates(ctx)
	require.NoError(t, err)
	defaults := 0
	for _, tpl := range templates {
		if tpl.IsDefault {
			defaults++
			assert.Equal(t, second, tpl.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestSetDefaultTemplateMissing(t *testing.T) {
	store := openTestStore(t)
	err := store.SetDefaultTemplate(context.Background(), -1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunRecordLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	runID := "test-" + uuid.NewString()

	req := batch.RunRequest{Job: batch.JobBatchArchive, CSVContent: "content\nhello", ZipPath: "/tmp/out.zip"}
	require.NoError(t, store.RecordRunStart(ctx, runID, req))

	rec, err := store.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, rec.Status)
	assert.Nil(t, rec.FinishedAt)

	outcome := &batch.Outcome{
		Success: true,
		ZipPath: "/tmp/out.zip",
		Verdicts: []batch.Verdict{
			{Row: 1, State: batch.StatePass},
			{Row: 2, State: batch.StateContentMismatch},
		},
	}
	require.NoError(t, store.RecordRunResult(ctx, runID, outcome))

	rec, err = store.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusSucceeded, rec.Status)
	assert.Equal(t, 2, rec.VerdictCount)
	assert.Equal(t, 1, rec.PassCount)
	assert.NotNil(t, rec.FinishedAt)
}

func TestGetRunMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetRun(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, ErrNotFound)
}
