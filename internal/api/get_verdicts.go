package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
)

const verdictPageSize = 100

// GetVerdictsHandler returns the latest verdicts of a stream
func (h *Handlers) GetVerdictsHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	streamID := vars["stream_id"]

	if _, err := h.db.GetStreamStatus(r.Context(), streamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Stream not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}

	verdicts, err := h.db.GetVerdictsByStream(r.Context(), streamID, verdictPageSize)
	if err != nil {
		http.Error(w, "Failed to fetch verdicts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(verdicts)
}
