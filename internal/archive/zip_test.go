package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qrc "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

func renderedItem(t *testing.T, row int, content, label string) batch.RenderedItem {
	t.Helper()
	data, err := qrc.Encode(content, qrc.Medium, 256)
	require.NoError(t, err)
	return batch.RenderedItem{
		Row:       row,
		Content:   content,
		Label:     label,
		ImageData: base64.StdEncoding.EncodeToString(data),
	}
}

func entryNames(t *testing.T, archive []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestBuildCompleteness(t *testing.T) {
	items := []batch.RenderedItem{
		renderedItem(t, 1, "https://a.com", "First"),
		renderedItem(t, 2, "tel:+15551234567", ""),
		renderedItem(t, 5, "hello", "Greeting"),
	}

	var buf bytes.Buffer
	verdicts, err := Build(context.Background(), &buf, items, BuildOptions{})
	require.NoError(t, err)
	assert.Empty(t, verdicts)

	names := entryNames(t, buf.Bytes())
	assert.Equal(t, []string{"001_First.png", "002_qr.png", "005_Greeting.png"}, names)
}

func TestBuildWithValidation(t *testing.T) {
	items := []batch.RenderedItem{
		renderedItem(t, 1, "https://a.com", ""),
		renderedItem(t, 2, "tel:+15551234567", ""),
		renderedItem(t, 3, "WIFI:T:WPA;S:X;;", ""),
	}

	var buf bytes.Buffer
	verdicts, err := Build(context.Background(), &buf, items, BuildOptions{Validate: true, Workers: 3})
	require.NoError(t, err)

	require.Len(t, verdicts, 3)
	for i, v := range verdicts {
		assert.Equal(t, items[i].Row, v.Row)
		assert.Equal(t, batch.StatePass, v.State)
	}
	assert.Len(t, entryNames(t, buf.Bytes()), 3)
}

func TestBuildDegradedItemStillArchived(t *testing.T) {
	// Row 2 carries valid base64 of bytes that are not an image. Validation
	// degrades it; archiving keeps it.
	items := []batch.RenderedItem{
		renderedItem(t, 1, "https://a.com", ""),
		{Row: 2, Content: "broken", ImageData: base64.StdEncoding.EncodeToString([]byte("not a png"))},
		renderedItem(t, 3, "hello", ""),
	}

	var buf bytes.Buffer
	verdicts, err := Build(context.Background(), &buf, items, BuildOptions{Validate: true})
	require.NoError(t, err)

	require.Len(t, verdicts, 3)
	assert.Equal(t, batch.StatePass, verdicts[0].State)
	assert.Equal(t, batch.StateDecodeInputError, verdicts[1].State)
	assert.Equal(t, batch.StatePass, verdicts[2].State)

	assert.Len(t, entryNames(t, buf.Bytes()), 3)
}

func TestBuildFatalOnBadEncoding(t *testing.T) {
	items := []batch.RenderedItem{
		renderedItem(t, 1, "https://a.com", ""),
		{Row: 2, Content: "x", ImageData: "!!! not base64 !!!"},
	}

	var buf bytes.Buffer
	_, err := Build(context.Background(), &buf, items, BuildOptions{})
	require.Error(t, err)

	var ferr *FatalError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, err.Error(), "row 2")
}

func TestBuildFileRemovesPartialOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qr-codes.zip")

	items := []batch.RenderedItem{
		renderedItem(t, 1, "https://a.com", ""),
		{Row: 2, Content: "x", ImageData: "!!! not base64 !!!"},
	}

	_, err := BuildFile(context.Background(), path, items, BuildOptions{})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "partial archive should be removed")
}

func TestBuildFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qr-codes.zip")

	items := []batch.RenderedItem{
		renderedItem(t, 1, "https://a.com", "a"),
		renderedItem(t, 2, "https://b.com", "b"),
	}

	verdicts, err := BuildFile(context.Background(), path, items, BuildOptions{Validate: true})
	require.NoError(t, err)
	require.Len(t, verdicts, 2)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.png", "002_b.png"}, entryNames(t, raw))
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err := Build(ctx, &buf, []batch.RenderedItem{renderedItem(t, 1, "x", "")}, BuildOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestEntryName(t *testing.T) {
	assert.Equal(t, "001_qr.png", EntryName(1, ""))
	assert.Equal(t, "042_Home.png", EntryName(42, "Home"))
	assert.Equal(t, "007_file_name.png", EntryName(7, "file/name"))
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "hello", sanitizeLabel("hello"))
	assert.Equal(t, "test-file", sanitizeLabel("test-file"))
	assert.Equal(t, "file_name.png", sanitizeLabel("file_name.png"))
	assert.Equal(t, "file_name", sanitizeLabel("file:name"))
	assert.Equal(t, "file_name_", sanitizeLabel("file<name>"))
	assert.Equal(t, "caf_", sanitizeLabel("café"))
	assert.Equal(t, "___", sanitizeLabel("日本語"))
	assert.Equal(t, strings.Repeat("a", 50), sanitizeLabel(strings.Repeat("a", 100)))
}
