package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/qrfoundry/batch-pipeline/internal/export"
)

// ExportHandler writes individual QR images to disk on the worker host
type ExportHandler struct{}

// NewExportHandler creates a new export handler
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

// exportRequest is the body for POST /v1/export. Exactly one of ImageData
// (base64 or data-URL PNG) and SVG must be set, matching Format.
type exportRequest struct {
	Format    string `json:"format"` // png or svg
	Path      string `json:"path"`
	ImageData string `json:"image_data,omitempty"`
	SVG       string `json:"svg,omitempty"`
}

// HandleExport handles POST /v1/export - writes a single image file
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	var err error
	switch req.Format {
	case "png":
		if req.ImageData == "" {
			http.Error(w, "image_data is required for png export", http.StatusBadRequest)
			return
		}
		err = export.WritePNG(req.Path, req.ImageData)
	case "svg":
		if req.SVG == "" {
			http.Error(w, "svg is required for svg export", http.StatusBadRequest)
			return
		}
		err = export.WriteSVG(req.Path, req.SVG)
	default:
		http.Error(w, "format must be png or svg", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("Failed to export %s: %v", req.Path, err)
		http.Error(w, fmt.Sprintf("Failed to export: %v", err), http.StatusBadRequest)
		return
	}

	log.Printf("Exported %s to %s", req.Format, req.Path)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"path": req.Path})
}
