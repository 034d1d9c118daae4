package usecase

import (
	"context"
	"errors"
	"log/slog"

	"torrentcore/internal/domain"
	"torrentcore/internal/domain/ports"
)

var errMissingSource = errors.New("record has no magnet or metainfo")

// RestoreTorrents re-admits every persisted torrent into a fresh session at
// startup. Restored torrents re-enter verification; a paused or failed state
// from the previous run is not carried over.
type RestoreTorrents struct {
	Registry ports.Registry
	Repo     ports.TorrentRepository
	Logger   *slog.Logger
}

// Execute returns how many torrents made it back into the session. Records
// that cannot be restored (vanished save path, unusable source) are logged
// and skipped rather than failing the whole startup.
func (uc RestoreTorrents) Execute(ctx context.Context) (int, error) {
	records, err := uc.Repo.List(ctx)
	if err != nil {
		return 0, wrapRepo(err)
	}

	restored := 0
	for _, rec := range records {
		err := uc.restore(ctx, rec)
		if err == nil || errors.Is(err, domain.ErrAlreadyExists) {
			restored++
			continue
		}
		uc.Logger.Warn("torrent not restored",
			slog.String("id", string(rec.ID)),
			slog.String("name", rec.Name),
			slog.String("error", err.Error()))
	}
	return restored, nil
}

func (uc RestoreTorrents) restore(ctx context.Context, rec domain.TorrentRecord) error {
	switch {
	case rec.Magnet != "":
		_, err := uc.Registry.Add(ctx, rec.Magnet, rec.SavePath)
		return err
	case len(rec.MetaInfo) > 0:
		_, err := uc.Registry.AddMetaInfo(ctx, rec.MetaInfo, rec.SavePath)
		return err
	default:
		return errMissingSource
	}
}
