package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
)

// streamSummary is the aggregate view of one stream's verdicts.
type streamSummary struct {
	StreamID    string           `json:"stream_id"`
	Status      string           `json:"status"`
	LevelCounts map[string]int64 `json:"level_counts"`
	Verdicts    int64            `json:"verdicts"`
	LastFrame   int64            `json:"last_frame"`
}

// GetStreamSummaryHandler aggregates a stream's verdicts by threat level
func (h *Handlers) GetStreamSummaryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	streamID := vars["stream_id"]

	status, err := h.db.GetStreamStatus(r.Context(), streamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Stream not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}

	counts, lastFrame, err := h.db.GetVerdictStats(r.Context(), streamID)
	if err != nil {
		http.Error(w, "Failed to aggregate verdicts", http.StatusInternalServerError)
		return
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(streamSummary{
		StreamID:    streamID,
		Status:      status,
		LevelCounts: counts,
		Verdicts:    total,
		LastFrame:   lastFrame,
	})
}
