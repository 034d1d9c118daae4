package domain

import (
	"errors"
	"time"
)

// TorrentRecord is the persisted form of a torrent entry. It carries enough
// to re-add the torrent after a restart: the original source plus the last
// observed progress.
type TorrentRecord struct {
	ID         TorrentID    `json:"id"`
	Name       string       `json:"name"`
	State      TorrentState `json:"state"`
	Magnet     string       `json:"magnet,omitempty"`
	MetaInfo   []byte       `json:"-"`
	SavePath   string       `json:"savePath"`
	TotalBytes int64        `json:"totalBytes"`
	DoneBytes  int64        `json:"doneBytes"`
	AddedAt    time.Time    `json:"addedAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// ProgressUpdate holds fields for an atomic progress update. DoneBytes is
// applied with max semantics so a stale writer can never move progress
// backwards; Name and TotalBytes are only written when non-zero.
type ProgressUpdate struct {
	DoneBytes  int64
	TotalBytes int64
	State      TorrentState
	Name       string
}

// Validate checks domain invariants for TorrentRecord.
func (r TorrentRecord) Validate() error {
	if r.ID == "" {
		return errors.New("torrent id is required")
	}
	if r.Magnet == "" && len(r.MetaInfo) == 0 {
		return errors.New("source is required")
	}
	if r.TotalBytes < 0 {
		return errors.New("totalBytes must not be negative")
	}
	if r.DoneBytes < 0 {
		return errors.New("doneBytes must not be negative")
	}
	if r.TotalBytes > 0 && r.DoneBytes > r.TotalBytes {
		return errors.New("doneBytes must not exceed totalBytes")
	}
	if r.State == "" {
		return errors.New("state is required")
	}
	if !r.State.Valid() {
		return errors.New("invalid state: " + string(r.State))
	}
	return nil
}
