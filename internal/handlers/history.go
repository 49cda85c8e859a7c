package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/qrfoundry/batch-pipeline/internal/history"
	"github.com/qrfoundry/batch-pipeline/internal/qrdecode"
	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

// HistoryHandler exposes history records and style templates over HTTP
type HistoryHandler struct {
	store *history.Store
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(store *history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// saveHistoryRequest is the body for POST /v1/history. ImageData, when
// present, is downscaled into a stored thumbnail.
type saveHistoryRequest struct {
	Content   string `json:"content"`
	QRType    string `json:"qr_type,omitempty"`
	Label     string `json:"label,omitempty"`
	StyleJSON string `json:"style_json,omitempty"`
	ImageData string `json:"image_data,omitempty"`
}

// HandleHistory handles GET, POST and DELETE on /v1/history
func (h *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listHistory(w, r)
	case http.MethodPost:
		h.saveHistory(w, r)
	case http.MethodDelete:
		h.clearHistory(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleHistoryItem handles DELETE /v1/history/{id}
func (h *HistoryHandler) HandleHistoryItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := pathID(r.URL.Path, "/v1/history/")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	deleted, err := h.store.DeleteItem(r.Context(), id)
	if err != nil {
		log.Printf("Failed to delete history item %d: %v", id, err)
		http.Error(w, "Failed to delete history item", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "History item not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HistoryHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	search := r.URL.Query().Get("search")

	items, err := h.store.ListItems(r.Context(), limit, offset, search)
	if err != nil {
		log.Printf("Failed to list history: %v", err)
		http.Error(w, "Failed to list history", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []history.Item{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (h *HistoryHandler) saveHistory(w http.ResponseWriter, r *http.Request) {
	var req saveHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}
	if req.QRType == "" {
		req.QRType = string(batch.Classify(req.Content))
	}

	item := history.NewItem{
		Content:   req.Content,
		QRType:    req.QRType,
		Label:     req.Label,
		StyleJSON: req.StyleJSON,
	}
	if req.ImageData != "" {
		thumb, err := thumbnailFromImageData(req.ImageData)
		if err != nil {
			log.Printf("Failed to build thumbnail: %v", err)
		} else {
			item.Thumbnail = thumb
		}
	}

	id, err := h.store.SaveItem(r.Context(), item)
	if err != nil {
		log.Printf("Failed to save history item: %v", err)
		http.Error(w, "Failed to save history item", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]int64{"id": id})
}

func (h *HistoryHandler) clearHistory(w http.ResponseWriter, r *http.Request) {
	removed, err := h.store.ClearItems(r.Context())
	if err != nil {
		log.Printf("Failed to clear history: %v", err)
		http.Error(w, "Failed to clear history", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"removed": removed})
}

// templateRequest is the body for POST and PUT on templates
type templateRequest struct {
	Name      string `json:"name"`
	StyleJSON string `json:"style_json"`
	Preview   string `json:"preview,omitempty"`
}

// HandleTemplates handles GET and POST on /v1/templates
func (h *HistoryHandler) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		templates, err := h.store.ListTemplates(r.Context())
		if err != nil {
			log.Printf("Failed to list templates: %v", err)
			http.Error(w, "Failed to list templates", http.StatusInternalServerError)
			return
		}
		if templates == nil {
			templates = []history.Template{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(templates)

	case http.MethodPost:
		var req templateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.StyleJSON == "" {
			http.Error(w, "name and style_json are required", http.StatusBadRequest)
			return
		}
		id, err := h.store.SaveTemplate(r.Context(), req.Name, req.StyleJSON, req.Preview)
		if err != nil {
			log.Printf("Failed to save template: %v", err)
			http.Error(w, "Failed to save template", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]int64{"id": id})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleTemplateItem handles GET, PUT and DELETE on /v1/templates/{id} and
// POST /v1/templates/{id}/default
func (h *HistoryHandler) HandleTemplateItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/templates/")
	if r.Method == http.MethodPost && strings.HasSuffix(rest, "/default") {
		id, err := strconv.ParseInt(strings.TrimSuffix(rest, "/default"), 10, 64)
		if err != nil {
			http.Error(w, "invalid template id", http.StatusBadRequest)
			return
		}
		h.setDefaultTemplate(w, r, id)
		return
	}

	id, err := pathID(r.URL.Path, "/v1/templates/")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		tpl, err := h.store.GetTemplate(r.Context(), id)
		if errors.Is(err, history.ErrNotFound) {
			http.Error(w, "Template not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Printf("Failed to get template %d: %v", id, err)
			http.Error(w, "Failed to get template", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tpl)

	case http.MethodPut:
		var req templateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.StyleJSON == "" {
			http.Error(w, "name and style_json are required", http.StatusBadRequest)
			return
		}
		err = h.store.UpdateTemplate(r.Context(), id, req.Name, req.StyleJSON, req.Preview)
		if errors.Is(err, history.ErrNotFound) {
			http.Error(w, "Template not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Printf("Failed to update template %d: %v", id, err)
			http.Error(w, "Failed to update template", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		deleted, err := h.store.DeleteTemplate(r.Context(), id)
		if err != nil {
			log.Printf("Failed to delete template %d: %v", id, err)
			http.Error(w, "Failed to delete template", http.StatusInternalServerError)
			return
		}
		if !deleted {
			http.Error(w, "Template not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HistoryHandler) setDefaultTemplate(w http.ResponseWriter, r *http.Request, id int64) {
	err := h.store.SetDefaultTemplate(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		http.Error(w, "Template not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Failed to set default template %d: %v", id, err)
		http.Error(w, "Failed to set default template", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func thumbnailFromImageData(imageData string) (string, error) {
	raw, err := qrdecode.DecodeImageData(imageData)
	if err != nil {
		return "", err
	}
	return history.Thumbnail(raw, 0)
}

func pathID(path, prefix string) (int64, error) {
	raw := strings.TrimPrefix(path, prefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
