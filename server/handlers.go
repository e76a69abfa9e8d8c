package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"mediatag/config"
	"mediatag/core/catalog"
	"mediatag/logger"
	"mediatag/model"

	"github.com/gorilla/mux"
)

// APIHandler handles all API requests.
type APIHandler struct {
	catalog  *catalog.Catalog
	geocoder catalog.Geocoder
	cfg      *config.Config
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(cat *catalog.Catalog, geocoder catalog.Geocoder, cfg *config.Config) *APIHandler {
	return &APIHandler{catalog: cat, geocoder: geocoder, cfg: cfg}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// catalogEntry is one item in the catalog listing.
type catalogEntry struct {
	Key       string          `json:"key"`
	Path      string          `json:"path"`
	Type      model.MediaType `json:"type"`
	Epoch     float64         `json:"epoch"`
	WallClock string          `json:"wallClock,omitempty"`
	Manual    bool            `json:"manual,omitempty"`
}

// GetCatalogHandler returns the ordered catalog entries.
func (h *APIHandler) GetCatalogHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.RescanIfDirty(r.Context()); err != nil {
		logger.Warn("dirty rescan failed", logger.ErrorField(err))
	}

	items := h.catalog.Items()
	entries := make([]catalogEntry, 0, len(items))
	for _, item := range items {
		rec := h.catalog.Record(item.Key())
		entries = append(entries, catalogEntry{
			Key:       item.Key(),
			Path:      item.Path,
			Type:      item.Type(),
			Epoch:     rec.OrderEpoch(),
			WallClock: rec.CreationDateTime,
			Manual:    rec.CreationTimeManual != "",
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": entries})
}

// RescanHandler re-runs the load pipeline on demand.
func (h *APIHandler) RescanHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Rescan(r.Context()); err != nil {
		logger.Error("rescan failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "rescan failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetFolderHandler records a per-folder inclusion flag.
func (h *APIHandler) SetFolderHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Folder   string `json:"folder"`
		Included bool   `json:"included"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Folder == "" {
		writeError(w, http.StatusBadRequest, "folder is required")
		return
	}
	if err := h.catalog.SetFolderIncluded(r.Context(), req.Folder, req.Included); err != nil {
		logger.Error("folder update failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "folder update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetItemHandler returns one item's stored record and timeline.
func (h *APIHandler) GetItemHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	item, ok := h.catalog.Item(key)
	if !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	rec := h.catalog.Record(key)
	if item.Type() == model.MediaVideo {
		rec.Annotations = h.catalog.Annotations(key)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":    key,
		"path":   item.Path,
		"type":   item.Type(),
		"record": rec,
	})
}

// NeighborHandler steps to the next or previous item in catalog order with
// wraparound, force-flushing any open edit session on the item being left.
func (h *APIHandler) NeighborHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var (
		item model.MediaItem
		ok   bool
	)
	switch r.URL.Query().Get("dir") {
	case "prev":
		item, ok = h.catalog.Prev(key)
	default:
		item, ok = h.catalog.Next(key)
	}
	if !ok {
		writeError(w, http.StatusNotFound, "catalog is empty")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": item.Key(), "path": item.Path})
}

// SetTextHandler updates an image item's free-text annotation.
func (h *APIHandler) SetTextHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var req struct {
		Text string `json:"text"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if err := h.catalog.SetText(key, req.Text); err != nil {
		if errors.Is(err, catalog.ErrUnknownItem) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		logger.Error("text update failed", logger.String("key", key), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "text update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetManualTimestampHandler stores a manual wall-clock override. Invalid
// input is reported and the prior stored value is retained unchanged.
func (h *APIHandler) SetManualTimestampHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var req struct {
		Value string `json:"value"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if err := h.catalog.SetManualTimestamp(key, req.Value); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetAttrsHandler updates stored playback attributes.
func (h *APIHandler) SetAttrsHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var attrs catalog.ItemAttrs
	if !readJSON(w, r, &attrs) {
		return
	}
	if err := h.catalog.SetAttrs(key, attrs); err != nil {
		if errors.Is(err, catalog.ErrUnknownItem) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		logger.Error("attrs update failed", logger.String("key", key), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "attrs update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetDuplicatesHandler lists pending duplicate-filename groups.
func (h *APIHandler) GetDuplicatesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"groups": h.catalog.PendingDuplicates()})
}

// ResolveDuplicatesHandler applies accepted duplicate groups by name.
// Declined groups stay queued for a future run rather than being silently
// applied.
func (h *APIHandler) ResolveDuplicatesHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Accept []string `json:"accept"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	accepted := make(map[string]bool, len(req.Accept))
	for _, name := range req.Accept {
		accepted[name] = true
	}

	applied := 0
	var failures []string
	for _, g := range h.catalog.PendingDuplicates() {
		if !accepted[g.Name] {
			continue
		}
		if err := h.catalog.ApplyDuplicateGroup(g); err != nil {
			logger.Error("duplicate group failed",
				logger.String("name", g.Name), logger.ErrorField(err))
			failures = append(failures, g.Name)
			continue
		}
		applied++
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"applied": applied,
		"failed":  failures,
		"pending": h.catalog.PendingDuplicates(),
	})
}
