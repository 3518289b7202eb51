package hearings

import (
	"context"
	"log/slog"
	"time"
)

// StartHarvestDaemon runs a harvest immediately, then again on every
// tick until the context is cancelled.
func (s Service) StartHarvestDaemon(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour * 6
	}
	go s.harvestDaemon(ctx, interval)
}

func (s Service) harvestDaemon(ctx context.Context, interval time.Duration) {
	_, err := s.RunHarvest(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "scheduled harvest", "err", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := s.RunHarvest(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "scheduled harvest", "err", err)
			}
		}
	}
}
