package ports

import (
	"context"

	"torrentcore/internal/domain"
)

// Registry is the session surface consumed by usecases and transports. It is
// implemented by the session package. Every method fails with
// domain.ErrSessionClosed once the session has been closed.
type Registry interface {
	// Add validates the magnet synchronously and registers the torrent in
	// StateChecking. The identity is returned before any network I/O happens.
	Add(ctx context.Context, magnetURI, savePath string) (domain.TorrentID, error)
	// AddMetaInfo is Add for raw .torrent file contents.
	AddMetaInfo(ctx context.Context, metaInfo []byte, savePath string) (domain.TorrentID, error)
	Remove(ctx context.Context, id domain.TorrentID) error
	Pause(ctx context.Context, id domain.TorrentID) error
	Resume(ctx context.Context, id domain.TorrentID) error
	Retry(ctx context.Context, id domain.TorrentID) error
	// Status reads one live entry. It does not touch the held snapshot.
	Status(id domain.TorrentID) (domain.TorrentStatus, error)
	Count() int
	// TakeSnapshot copies up to maxItems entry statuses in insertion order
	// and replaces the held snapshot. Negative maxItems means all entries.
	TakeSnapshot(maxItems int) ([]domain.TorrentStatus, error)
	// NameAt answers from the held snapshot only.
	NameAt(index int) (string, error)
	// Statuses is a read-only view of all live entries in insertion order.
	// Unlike TakeSnapshot it leaves the held snapshot untouched.
	Statuses() []domain.TorrentStatus
	Close() error
}
