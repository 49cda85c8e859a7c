package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/qrfoundry/batch-pipeline/internal/qrdecode"
)

// ScanHandler decodes uploaded QR images
type ScanHandler struct{}

// NewScanHandler creates a new scan handler
func NewScanHandler() *ScanHandler {
	return &ScanHandler{}
}

type scanRequest struct {
	ImageData string `json:"image_data"`
}

// HandleScan handles POST /v1/scan - decodes a base64 or data-URL image
func (h *ScanHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.ImageData == "" {
		http.Error(w, "image_data is required", http.StatusBadRequest)
		return
	}

	result, err := qrdecode.ScanImageData(req.ImageData)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid image data: %v", err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
