// Package validate compares rendered QR images against the payload they are
// meant to encode. Every failure path maps to a verdict rather than an
// error, so callers can accumulate results across a batch without
// exceptions crossing row boundaries.
package validate

import (
	"fmt"
	"strings"

	"github.com/qrfoundry/batch-pipeline/internal/qrdecode"
	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

var noSymbolSuggestions = []string{
	"Increase error correction level to H",
	"Reduce logo size if using one",
	"Ensure sufficient contrast between colors",
}

var unreliableSuggestions = []string{
	"Increase error correction level",
	"Reduce customization complexity",
	"Ensure logo doesn't cover critical areas",
}

// Validate decodes the QR symbol in imageBytes and compares it against the
// expected payload. Comparison ignores boundary whitespace; internal
// whitespace is significant.
func Validate(expected string, imageBytes []byte) batch.Verdict {
	symbols, err := qrdecode.DecodeQR(imageBytes)
	if err != nil {
		return batch.Verdict{
			State:   batch.StateDecodeInputError,
			Message: fmt.Sprintf("failed to decode image: %v", err),
		}
	}

	if len(symbols) == 0 {
		return batch.Verdict{
			State:       batch.StateUndetectable,
			Message:     "no QR code detected in image",
			Suggestions: noSymbolSuggestions,
		}
	}

	first := symbols[0]
	if first.Err != nil {
		return batch.Verdict{
			State:       batch.StateUndetectable,
			Message:     "QR code detected but decode was unreliable",
			Suggestions: unreliableSuggestions,
		}
	}

	if strings.TrimSpace(first.Text) != strings.TrimSpace(expected) {
		return batch.Verdict{
			State:          batch.StateContentMismatch,
			DecodedContent: first.Text,
			Message:        "decoded content differs from expected",
			Suggestions:    []string{"Verify the QR content is correct"},
		}
	}

	return batch.Verdict{
		State:          batch.StatePass,
		DecodedContent: first.Text,
		Message:        "QR code scans correctly",
	}
}

// ValidateImageData validates base64-transported image data, stripping an
// optional data-URL prefix before decoding.
func ValidateImageData(expected, imageData string) batch.Verdict {
	raw, err := qrdecode.DecodeImageData(imageData)
	if err != nil {
		return batch.Verdict{
			State:   batch.StateDecodeInputError,
			Message: fmt.Sprintf("failed to decode image data: %v", err),
		}
	}
	return Validate(expected, raw)
}

// ValidateItem validates one rendered item and stamps its row number
func ValidateItem(item batch.RenderedItem) batch.Verdict {
	v := ValidateImageData(item.Content, item.ImageData)
	v.Row = item.Row
	return v
}
