package usecase

import (
	"context"
	"errors"
	"time"

	"torrentcore/internal/domain"
	"torrentcore/internal/domain/ports"
)

// AddTorrent admits a torrent into the live session and persists its record.
type AddTorrent struct {
	Registry ports.Registry
	Repo     ports.TorrentRepository
	Now      func() time.Time
}

// AddTorrentInput carries exactly one source: a magnet link or the raw
// bytes of a .torrent file.
type AddTorrentInput struct {
	Magnet   string
	MetaInfo []byte
	SavePath string
}

func (in AddTorrentInput) validate() error {
	hasMagnet := in.Magnet != ""
	hasMetaInfo := len(in.MetaInfo) > 0
	if hasMagnet == hasMetaInfo {
		return ErrInvalidSource
	}
	return nil
}

// Execute registers the torrent with the session, then stores a record for
// restart recovery. If the store rejects the record the torrent is removed
// from the session again so both sides stay consistent.
func (uc AddTorrent) Execute(ctx context.Context, input AddTorrentInput) (domain.TorrentRecord, error) {
	if err := input.validate(); err != nil {
		return domain.TorrentRecord{}, err
	}
	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}

	var (
		id  domain.TorrentID
		err error
	)
	if input.Magnet != "" {
		id, err = uc.Registry.Add(ctx, input.Magnet, input.SavePath)
	} else {
		id, err = uc.Registry.AddMetaInfo(ctx, input.MetaInfo, input.SavePath)
	}
	if err != nil {
		return domain.TorrentRecord{}, err
	}

	status, err := uc.Registry.Status(id)
	if err != nil {
		return domain.TorrentRecord{}, err
	}

	record := domain.TorrentRecord{
		ID:         id,
		Name:       status.Name,
		State:      status.State,
		Magnet:     input.Magnet,
		MetaInfo:   input.MetaInfo,
		SavePath:   input.SavePath,
		TotalBytes: status.TotalWanted,
		DoneBytes:  status.TotalWantedDone,
		AddedAt:    now(),
		UpdatedAt:  now(),
	}
	if err := uc.Repo.Create(ctx, record); err != nil {
		// A leftover record from a previous run is fine; the sync loop
		// refreshes it. Anything else rolls the session back.
		if !errors.Is(err, domain.ErrAlreadyExists) {
			_ = uc.Registry.Remove(ctx, id)
			return domain.TorrentRecord{}, wrapRepo(err)
		}
	}
	return record, nil
}
