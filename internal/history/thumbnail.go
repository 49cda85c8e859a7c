package history

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

const defaultThumbnailSize = 128

// Thumbnail downscales an image into a small PNG preview and returns it as a
// data URL suitable for storing alongside a history record.
func Thumbnail(imageBytes []byte, size int) (string, error) {
	if size <= 0 {
		size = defaultThumbnailSize
	}
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to decode image for thumbnail: %w", err)
	}
	thumb := imaging.Fit(img, size, size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
