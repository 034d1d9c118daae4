package usecase

import (
	"context"
	"errors"

	"torrentcore/internal/domain"
	"torrentcore/internal/domain/ports"
)

// RemoveTorrent drops a torrent from the session and deletes its record.
type RemoveTorrent struct {
	Registry ports.Registry
	Repo     ports.TorrentRepository
}

func (uc RemoveTorrent) Execute(ctx context.Context, id domain.TorrentID) error {
	if err := uc.Registry.Remove(ctx, id); err != nil {
		return err
	}
	// The record may never have been persisted; that is not a failure.
	if err := uc.Repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return wrapRepo(err)
	}
	return nil
}
