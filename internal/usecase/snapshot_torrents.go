package usecase

import (
	"context"

	"torrentcore/internal/domain"
	"torrentcore/internal/domain/ports"
)

// SnapshotTorrents captures a bounded, ordered view of the session that
// later name lookups answer from.
type SnapshotTorrents struct {
	Registry ports.Registry
}

// Execute holds at most maxItems statuses; a negative maxItems keeps them
// all. The returned slice is the caller's copy.
func (uc SnapshotTorrents) Execute(_ context.Context, maxItems int) ([]domain.TorrentStatus, error) {
	return uc.Registry.TakeSnapshot(maxItems)
}

// LookupName answers a name query from the most recent snapshot.
type LookupName struct {
	Registry ports.Registry
}

func (uc LookupName) Execute(_ context.Context, index int) (string, error) {
	return uc.Registry.NameAt(index)
}
