// Package export writes individual QR images to disk outside of a batch
// archive.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qrfoundry/batch-pipeline/internal/qrdecode"
)

// WritePNG decodes a base64 or data-URL PNG payload and writes it to path.
// Parent directories are created as needed.
func WritePNG(path, imageData string) error {
	raw, err := qrdecode.DecodeImageData(imageData)
	if err != nil {
		return fmt.Errorf("failed to decode image data: %w", err)
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteSVG writes an SVG document to path. Parent directories are created
// as needed.
func WriteSVG(path, svg string) error {
	if strings.TrimSpace(svg) == "" {
		return fmt.Errorf("empty SVG document")
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}
