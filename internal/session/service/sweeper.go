package service

import (
	"context"
	"log"
	"time"
)

// RunSweeper purges expired sessions on the given interval until ctx is
// cancelled. Intended to run as a single goroutine alongside the server; the
// sweep only bounds storage, so a failed tick is logged and retried next tick.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("session sweeper: purge failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("session sweeper: purged %d expired sessions", n)
			}
		}
	}
}
