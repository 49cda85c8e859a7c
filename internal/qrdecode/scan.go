package qrdecode

import (
	"fmt"
	"os"

	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

// ScanResult is the outcome of scanning a standalone image for a QR payload
type ScanResult struct {
	Success bool              `json:"success"`
	Content string            `json:"content,omitempty"`
	QRType  batch.ContentType `json:"qr_type,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Scan decodes a QR payload from encoded image bytes and classifies it
func Scan(imageBytes []byte) (*ScanResult, error) {
	symbols, err := DecodeQR(imageBytes)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return &ScanResult{Success: false, Error: "no QR code found in image"}, nil
	}
	if symbols[0].Err != nil {
		return &ScanResult{Success: false, Error: fmt.Sprintf("failed to decode QR: %v", symbols[0].Err)}, nil
	}
	content := symbols[0].Text
	return &ScanResult{
		Success: true,
		Content: content,
		QRType:  batch.Classify(content),
	}, nil
}

// ScanImageData scans base64 image data, stripping an optional data-URL prefix
func ScanImageData(imageData string) (*ScanResult, error) {
	raw, err := DecodeImageData(imageData)
	if err != nil {
		return nil, err
	}
	return Scan(raw)
}

// ScanFile scans an image file from disk
func ScanFile(path string) (*ScanResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return Scan(raw)
}
