package export

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	qrc "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrfoundry/batch-pipeline/internal/qrdecode"
)

func TestWritePNG(t *testing.T) {
	png, err := qrc.Encode("https://example.com", qrc.Medium, 256)
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(png)

	path := filepath.Join(t.TempDir(), "nested", "out.png")
	require.NoError(t, WritePNG(path, encoded))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, png, written)

	symbols, err := qrdecode.DecodeQR(written)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "https://example.com", symbols[0].Text)
}

func TestWritePNGDataURL(t *testing.T) {
	png, err := qrc.Encode("hello", qrc.Medium, 256)
	require.NoError(t, err)
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, WritePNG(path, dataURL))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, png, written)
}

func TestWritePNGBadPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	err := WritePNG(path, "!!not base64!!")
	assert.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteSVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.svg")
	svg := `<svg xmlns="http://www.w3.org/2000/svg"><rect width="1" height="1"/></svg>`
	require.NoError(t, WriteSVG(path, svg))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, svg, string(written))
}

func TestWriteSVGEmpty(t *testing.T) {
	err := WriteSVG(filepath.Join(t.TempDir(), "out.svg"), "  \n")
	assert.Error(t, err)
}
