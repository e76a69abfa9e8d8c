package server

import (
	"net/http"

	"mediatag/logger"

	"github.com/gorilla/mux"
)

// GetAnnotationsHandler returns a video item's current timeline.
func (h *APIHandler) GetAnnotationsHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	writeJSON(w, http.StatusOK, map[string]interface{}{"annotations": h.catalog.Annotations(key)})
}

// AddAnnotationHandler appends a complete annotation in one shot: it opens
// a pending session at the current position (pausing playback), applies the
// text and commits. Used by clients that collect the text before calling.
func (h *APIHandler) AddAnnotationHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var req struct {
		Text string `json:"text"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	start := h.catalog.StartAnnotation(key)
	h.catalog.SetAnnotationText(key, req.Text)
	if err := h.catalog.CommitAnnotation(key); err != nil {
		logger.Error("annotation commit failed", logger.String("key", key), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "annotation commit failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"start":       start,
		"annotations": h.catalog.Annotations(key),
	})
}

// sessionRequest drives the edit-session state machine over HTTP. Action is
// one of: start-new, start-edit, text, skip, commit, discard, flush.
type sessionRequest struct {
	Action string `json:"action"`
	Text   string `json:"text"`
	Skip   bool   `json:"skip"`
}

// SessionHandler advances the item's edit session.
func (h *APIHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var req sessionRequest
	if !readJSON(w, r, &req) {
		return
	}

	switch req.Action {
	case "start-new":
		start := h.catalog.StartAnnotation(key)
		writeJSON(w, http.StatusOK, map[string]interface{}{"state": "pending-new", "start": start})
	case "start-edit":
		seg := h.catalog.StartEditing(key)
		writeJSON(w, http.StatusOK, map[string]interface{}{"state": "editing", "segment": seg})
	case "text":
		h.catalog.SetAnnotationText(key, req.Text)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case "skip":
		h.catalog.SetAnnotationSkip(key, req.Skip)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case "commit":
		if err := h.catalog.CommitAnnotation(key); err != nil {
			writeError(w, http.StatusInternalServerError, "commit failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"annotations": h.catalog.Annotations(key)})
	case "discard":
		h.catalog.DiscardAnnotation(key)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case "flush":
		if err := h.catalog.FlushSession(key); err != nil {
			writeError(w, http.StatusInternalServerError, "flush failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		writeError(w, http.StatusBadRequest, "unknown session action")
	}
}

// RemoveActiveAnnotationHandler removes the segment active at the current
// playback position; the baseline degrades to a text clear.
func (h *APIHandler) RemoveActiveAnnotationHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if err := h.catalog.RemoveActiveAnnotation(key); err != nil {
		logger.Error("annotation removal failed", logger.String("key", key), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "removal failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"annotations": h.catalog.Annotations(key)})
}
