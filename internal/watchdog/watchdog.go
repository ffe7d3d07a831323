// Package watchdog restarts streams whose engine stopped reporting.
package watchdog

import (
	"context"
	"log"
	"time"

	"github.com/Hollis36/smolvlm-anti-drone/internal/database"
	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

const watchInterval = 30 * time.Second

type Watchdog struct {
	db *database.Database
}

func New(db *database.Database) *Watchdog {
	return &Watchdog{
		db: db,
	}
}

func (w *Watchdog) Start(ctx context.Context) {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Watchdog stopped")
			return
		case <-ticker.C:
			w.checkStreams(ctx)
		}
	}
}

func (w *Watchdog) checkStreams(ctx context.Context) {
	streams, err := w.db.FindStuckStreams(ctx, watchInterval)
	if err != nil {
		log.Printf("Failed to find stuck streams: %v", err)
		return
	}

	for _, stream := range streams {
		log.Printf("Found stuck stream %s, sending restart command", stream.ID)

		if err := w.db.InTx(ctx, func(ctx context.Context) error {
			if err := w.db.AddToOutbox(ctx, stream.ID, models.CommandStart); err != nil {
				return err
			}
			return w.db.UpdateStreamStatus(ctx, stream.ID, models.StatusInitStartup)
		}); err != nil {
			log.Printf("Failed to schedule restart for stream %s: %v", stream.ID, err)
		}
	}
}
