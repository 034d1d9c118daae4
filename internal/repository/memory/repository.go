// Package memory keeps torrent records in process memory. It backs
// deployments that run without MongoDB; records do not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"torrentcore/internal/domain"
	"torrentcore/internal/domain/ports"
)

type Repository struct {
	mu      sync.RWMutex
	records map[domain.TorrentID]domain.TorrentRecord
}

var _ ports.TorrentRepository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{records: make(map[domain.TorrentID]domain.TorrentRecord)}
}

func (r *Repository) Create(_ context.Context, rec domain.TorrentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.records[rec.ID] = cloneRecord(rec)
	return nil
}

func (r *Repository) UpdateProgress(_ context.Context, id domain.TorrentID, u domain.ProgressUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.State = u.State
	if u.Name != "" {
		rec.Name = u.Name
	}
	if u.TotalBytes > 0 {
		rec.TotalBytes = u.TotalBytes
	}
	// Stale flushes never move progress backwards.
	if u.DoneBytes > rec.DoneBytes {
		rec.DoneBytes = u.DoneBytes
	}
	rec.UpdatedAt = time.Now().UTC()
	r.records[id] = rec
	return nil
}

func (r *Repository) Get(_ context.Context, id domain.TorrentID) (domain.TorrentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.TorrentRecord{}, domain.ErrNotFound
	}
	return cloneRecord(rec), nil
}

// List returns every record ordered by AddedAt, ties broken by ID so the
// order is stable across calls.
func (r *Repository) List(_ context.Context) ([]domain.TorrentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]domain.TorrentRecord, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, cloneRecord(rec))
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].AddedAt.Equal(records[j].AddedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].AddedAt.Before(records[j].AddedAt)
	})
	return records, nil
}

func (r *Repository) Delete(_ context.Context, id domain.TorrentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

// cloneRecord copies the metainfo bytes so callers cannot mutate stored
// state through a shared slice.
func cloneRecord(rec domain.TorrentRecord) domain.TorrentRecord {
	if len(rec.MetaInfo) > 0 {
		raw := make([]byte, len(rec.MetaInfo))
		copy(raw, rec.MetaInfo)
		rec.MetaInfo = raw
	}
	return rec
}
