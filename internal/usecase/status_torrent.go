package usecase

import (
	"context"

	"torrentcore/internal/domain"
	"torrentcore/internal/domain/ports"
)

// StatusTorrent reports the live status of a single torrent.
type StatusTorrent struct {
	Registry ports.Registry
}

func (uc StatusTorrent) Execute(_ context.Context, id domain.TorrentID) (domain.TorrentStatus, error) {
	return uc.Registry.Status(id)
}

// ListStatuses reports the live status of every torrent in insertion order.
type ListStatuses struct {
	Registry ports.Registry
}

func (uc ListStatuses) Execute(_ context.Context) []domain.TorrentStatus {
	return uc.Registry.Statuses()
}
