package utils

import (
	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// IsValidStatusTransition reports whether a stream may move from one
// lifecycle status to another.
func IsValidStatusTransition(currentStatus, newStatus string) bool {
	transitions := map[string][]string{
		models.StatusInitStartup:         {models.StatusInStartupProcessing},
		models.StatusInStartupProcessing: {models.StatusActive, models.StatusInactive},
		// active goes to inactive directly when the engine exhausts the source
		models.StatusActive:               {models.StatusInitShutdown, models.StatusInactive},
		models.StatusInitShutdown:         {models.StatusInShutdownProcessing},
		models.StatusInShutdownProcessing: {models.StatusInactive},
		models.StatusInactive:             {models.StatusInitStartup},
	}

	for _, allowedStatus := range transitions[currentStatus] {
		if allowedStatus == newStatus {
			return true
		}
	}
	return false
}
