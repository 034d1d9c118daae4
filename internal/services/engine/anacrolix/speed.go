package anacrolix

import (
	"time"

	"github.com/anacrolix/torrent"

	"torrentcore/internal/domain"
)

type speedSample struct {
	at      time.Time
	read    int64
	written int64
}

// sampleSpeed turns two consecutive stat snapshots into byte rates. The
// first snapshot for a torrent yields zero, as does a counter reset after
// the client re-verifies data.
func (e *Engine) sampleSpeed(id domain.TorrentID, stats torrent.TorrentStats, now time.Time) (download, upload int64) {
	cur := speedSample{
		at:      now,
		read:    stats.BytesReadUsefulData.Int64(),
		written: stats.BytesWrittenData.Int64(),
	}

	e.speedMu.Lock()
	prev, ok := e.speeds[id]
	e.speeds[id] = cur
	e.speedMu.Unlock()

	if !ok || prev.at.IsZero() {
		return 0, 0
	}
	dt := now.Sub(prev.at).Seconds()
	if dt <= 0 {
		return 0, 0
	}
	if d := cur.read - prev.read; d > 0 {
		download = int64(float64(d) / dt)
	}
	if d := cur.written - prev.written; d > 0 {
		upload = int64(float64(d) / dt)
	}
	return download, upload
}

func (e *Engine) forgetSpeed(id domain.TorrentID) {
	e.speedMu.Lock()
	delete(e.speeds, id)
	e.speedMu.Unlock()
}
