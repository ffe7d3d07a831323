package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

type streamStatusResponse struct {
	models.Stream
	LastFrame *int64 `json:"last_frame,omitempty"`
}

// GetStreamStatusHandler returns the stream record plus the frame the
// engine last reported for it.
func (h *Handlers) GetStreamStatusHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	streamID := vars["stream_id"]

	row, err := h.db.GetStreamByID(r.Context(), streamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Stream not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}

	resp := streamStatusResponse{Stream: row}

	heartbeat, err := h.db.GetLatestHeartbeat(r.Context(), streamID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if heartbeat != nil {
		resp.LastFrame = &heartbeat.Frame
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
