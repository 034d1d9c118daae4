package ports

import (
	"context"

	"torrentcore/internal/domain"
)

// Engine is the download backend seam. Implementations observe the backend
// and publish domain.Event values; events for the same torrent must be
// delivered in observation order.
type Engine interface {
	// Add schedules src for download. It must return without blocking on
	// network I/O; failures discovered while scheduling arrive later as an
	// EventError for src.ID.
	Add(ctx context.Context, src domain.TorrentSource) error
	// Pause suspends transfer for the torrent without dropping it.
	Pause(ctx context.Context, id domain.TorrentID) error
	// Resume re-enables transfer for a paused torrent.
	Resume(ctx context.Context, id domain.TorrentID) error
	// Recheck forces re-verification of local data and restarts the
	// torrent's lifecycle event sequence.
	Recheck(ctx context.Context, id domain.TorrentID) error
	// Drop removes the torrent from the backend. Payload data on disk is
	// left in place.
	Drop(ctx context.Context, id domain.TorrentID) error
	// Events returns the adapter's event stream. The channel is closed by
	// Close after all in-flight events have been delivered.
	Events() <-chan domain.Event
	Close() error
}
