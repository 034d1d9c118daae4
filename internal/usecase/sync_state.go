package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"torrentcore/internal/domain"
	"torrentcore/internal/domain/ports"
)

const defaultSyncInterval = 10 * time.Second

// SyncState periodically mirrors live session statuses into the repository
// so a restart can restore torrents close to where they left off.
type SyncState struct {
	Registry ports.Registry
	Repo     ports.TorrentRepository
	Logger   *slog.Logger
	Interval time.Duration
}

// Run blocks until ctx is cancelled, flushing on every tick.
func (s SyncState) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce flushes every live status once. Useful as a final flush before
// shutdown.
func (s SyncState) RunOnce(ctx context.Context) {
	for _, st := range s.Registry.Statuses() {
		update := domain.ProgressUpdate{
			DoneBytes:  st.TotalWantedDone,
			TotalBytes: st.TotalWanted,
			State:      st.State,
			Name:       st.Name,
		}
		err := s.Repo.UpdateProgress(ctx, st.ID, update)
		if err == nil || errors.Is(err, domain.ErrNotFound) {
			continue
		}
		s.Logger.Warn("state sync failed",
			slog.String("id", string(st.ID)),
			slog.String("error", err.Error()))
	}
}
