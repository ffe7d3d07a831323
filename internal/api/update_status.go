package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// UpdateStreamStatusHandler starts or stops a stream. The command is
// queued through the outbox so the status change and the Kafka message
// cannot diverge.
func (h *Handlers) UpdateStreamStatusHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	streamID := vars["stream_id"]
	action := models.CommandAction(r.URL.Query().Get("action"))
	if action == "" {
		http.Error(w, "action parameter is required (start/stop)", http.StatusBadRequest)
		return
	}

	stream, err := h.db.GetStreamByID(r.Context(), streamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Stream not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}
	currentStatus := stream.Status

	var newStatus string
	ctx := r.Context()
	switch action {
	case models.CommandStart:
		switch currentStatus {
		case models.StatusInitStartup, models.StatusInStartupProcessing, models.StatusActive:
			http.Error(w, "Invalid transition", http.StatusBadRequest)
			return
		case models.StatusInitShutdown:
			// the stop command is still queued, retire it first
			if err := h.db.InTx(ctx, func(ctx context.Context) error {
				if _, err := h.db.MarkOutboxMessagesProcessedByStreamID(ctx, streamID); err != nil {
					return err
				}
				if err := h.db.UpdateStreamStatus(ctx, streamID, models.StatusInitStartup); err != nil {
					return err
				}
				return h.db.AddToOutbox(ctx, streamID, models.CommandStart)
			}); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			newStatus = models.StatusInitStartup
		case models.StatusInShutdownProcessing, models.StatusInactive:
			if err := h.db.InTx(ctx, func(ctx context.Context) error {
				if err := h.db.UpdateStreamStatus(ctx, streamID, models.StatusInitStartup); err != nil {
					return err
				}
				return h.db.AddToOutbox(ctx, streamID, models.CommandStart)
			}); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			newStatus = models.StatusInitStartup
		}
	case models.CommandStop:
		switch currentStatus {
		case models.StatusInitShutdown, models.StatusInShutdownProcessing, models.StatusInactive:
			http.Error(w, "Invalid transition", http.StatusBadRequest)
			return
		case models.StatusInitStartup:
			// the start command is still queued, retire it first
			if err := h.db.InTx(ctx, func(ctx context.Context) error {
				if _, err := h.db.MarkOutboxMessagesProcessedByStreamID(ctx, streamID); err != nil {
					return err
				}
				if err := h.db.UpdateStreamStatus(ctx, streamID, models.StatusInitShutdown); err != nil {
					return err
				}
				return h.db.AddToOutbox(ctx, streamID, models.CommandStop)
			}); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			newStatus = models.StatusInitShutdown
		case models.StatusInStartupProcessing, models.StatusActive:
			if err := h.db.InTx(ctx, func(ctx context.Context) error {
				if err := h.db.UpdateStreamStatus(ctx, streamID, models.StatusInitShutdown); err != nil {
					return err
				}
				return h.db.AddToOutbox(ctx, streamID, models.CommandStop)
			}); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			newStatus = models.StatusInitShutdown
		}
	default:
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	}
	log.Println(action, newStatus)

	response := map[string]string{"id": streamID, "status": newStatus}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}
