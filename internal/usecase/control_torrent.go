package usecase

import (
	"context"
	"errors"

	"torrentcore/internal/domain"
	"torrentcore/internal/domain/ports"
)

// PauseTorrent suspends transfer for one torrent and mirrors the new state
// into the repository.
type PauseTorrent struct {
	Registry ports.Registry
	Repo     ports.TorrentRepository
}

func (uc PauseTorrent) Execute(ctx context.Context, id domain.TorrentID) (domain.TorrentStatus, error) {
	if err := uc.Registry.Pause(ctx, id); err != nil {
		return domain.TorrentStatus{}, err
	}
	return persistState(ctx, uc.Registry, uc.Repo, id)
}

// ResumeTorrent restarts transfer for a paused torrent.
type ResumeTorrent struct {
	Registry ports.Registry
	Repo     ports.TorrentRepository
}

func (uc ResumeTorrent) Execute(ctx context.Context, id domain.TorrentID) (domain.TorrentStatus, error) {
	if err := uc.Registry.Resume(ctx, id); err != nil {
		return domain.TorrentStatus{}, err
	}
	return persistState(ctx, uc.Registry, uc.Repo, id)
}

// RetryTorrent sends a failed torrent back through verification.
type RetryTorrent struct {
	Registry ports.Registry
	Repo     ports.TorrentRepository
}

func (uc RetryTorrent) Execute(ctx context.Context, id domain.TorrentID) (domain.TorrentStatus, error) {
	if err := uc.Registry.Retry(ctx, id); err != nil {
		return domain.TorrentStatus{}, err
	}
	return persistState(ctx, uc.Registry, uc.Repo, id)
}

// persistState mirrors the live status of one torrent into the repository.
// A missing record is tolerated; the sync loop repairs drift later.
func persistState(ctx context.Context, reg ports.Registry, repo ports.TorrentRepository, id domain.TorrentID) (domain.TorrentStatus, error) {
	status, err := reg.Status(id)
	if err != nil {
		return domain.TorrentStatus{}, err
	}
	update := domain.ProgressUpdate{
		DoneBytes:  status.TotalWantedDone,
		TotalBytes: status.TotalWanted,
		State:      status.State,
		Name:       status.Name,
	}
	if err := repo.UpdateProgress(ctx, id, update); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return status, wrapRepo(err)
	}
	return status, nil
}
