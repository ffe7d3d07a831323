package api

import (
	"net/http"

	"github.com/Hollis36/smolvlm-anti-drone/internal/database"
	"github.com/Hollis36/smolvlm-anti-drone/internal/s3"
)

type Handlers struct {
	db *database.Database
	s3 *s3.Client
}

func NewHandlers(db *database.Database, s3 *s3.Client) *Handlers {
	return &Handlers{db: db, s3: s3}
}

// HealthzHandler reports process liveness.
func (h *Handlers) HealthzHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DB.PingContext(r.Context()); err != nil {
		http.Error(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
