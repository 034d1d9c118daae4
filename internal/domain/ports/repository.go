package ports

import (
	"context"

	"torrentcore/internal/domain"
)

type TorrentRepository interface {
	Create(ctx context.Context, r domain.TorrentRecord) error
	// UpdateProgress applies u with max semantics on DoneBytes so stale
	// writers never move progress backwards.
	UpdateProgress(ctx context.Context, id domain.TorrentID, u domain.ProgressUpdate) error
	Get(ctx context.Context, id domain.TorrentID) (domain.TorrentRecord, error)
	// List returns all records ordered by AddedAt ascending, which is the
	// registry insertion order used to restore a session.
	List(ctx context.Context) ([]domain.TorrentRecord, error)
	Delete(ctx context.Context, id domain.TorrentID) error
}
