package qrdecode

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"strings"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"
)

// Symbol is one detected QR grid. Err is set when the grid was located but
// its payload could not be read; detection and readability are independent.
type Symbol struct {
	Text string
	Err  error
}

// StripDataURL strips a data-URL prefix (scheme:mime;encoding,) from image
// data, returning the substring after the first comma only.
func StripDataURL(s string) string {
	if i := strings.Index(s, ","); i >= 0 {
		return s[i+1:]
	}
	return s
}

// DecodeImageData decodes base64 image data into raw bytes, stripping an
// optional data-URL prefix first. Failures wrap ErrEncoding.
func DecodeImageData(imageData string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(StripDataURL(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return raw, nil
}

// DecodeQR decodes an encoded raster image and scans it for QR symbols.
//
// Zero detected symbols is not an error; the returned slice is empty.
// A grid that was detected but could not be read is reported as a Symbol
// with Err set. Only undecodable input bytes produce an error, wrapping
// ErrImageFormat.
func DecodeQR(imageBytes []byte) ([]Symbol, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageFormat, err)
	}

	// Single-channel luminance before grid detection.
	gray := imaging.Grayscale(img)

	bmp, err := gozxing.NewBinaryBitmapFromImage(gray)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageFormat, err)
	}

	result, err := zxqrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		if _, ok := err.(gozxing.NotFoundException); ok {
			return nil, nil
		}
		// Finder patterns were located but the bit matrix did not read back.
		return []Symbol{{Err: err}}, nil
	}

	return []Symbol{{Text: result.GetText()}}, nil
}
