package storage

import (
	"context"
	"log"
	"time"
)

// RunCooldownCleaner clears expired cooldowns every interval until ctx is done.
// Call from main in its own goroutine.
func RunCooldownCleaner(ctx context.Context, store *Storage, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := store.ClearExpiredCooldowns(); err != nil {
				log.Println("[ERR] Error clearing expired cooldowns:", err)
			}
		}
	}
}
