package anacrolix

import (
	"time"

	"torrentcore/internal/domain"
)

const eventBuffer = 64

// track carries the per-torrent poll state. Lifecycle events are edge
// triggered: each flag records that its event has already been published.
type track struct {
	t torrentHandle

	addedAt      time.Time
	infoSent     bool
	checkedSent  bool
	completeSent bool
	seedingSent  bool
	failedSent   bool
}

func newTrack(t torrentHandle) *track {
	return &track{t: t, addedAt: time.Now()}
}

// resetForRecheck rearms the lifecycle flags so the poll loop replays
// verification for this torrent. Caller holds e.mu.
func (tr *track) resetForRecheck(now time.Time) {
	tr.addedAt = now
	tr.checkedSent = false
	tr.completeSent = false
	tr.seedingSent = false
	tr.failedSent = false
}

func (e *Engine) loop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case now := <-ticker.C:
			e.sweep(now)
		}
	}
}

// sweep samples every tracked torrent once and publishes what changed.
func (e *Engine) sweep(now time.Time) {
	e.mu.Lock()
	ids := make([]domain.TorrentID, 0, len(e.tracks))
	for id := range e.tracks {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		for _, ev := range e.observe(id, now) {
			e.emit(ev)
		}
	}
}

// observe computes the events one torrent owes for this tick.
func (e *Engine) observe(id domain.TorrentID, now time.Time) []domain.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	tr, ok := e.tracks[id]
	if !ok {
		return nil // dropped between the listing and now
	}
	t := tr.t

	if !tr.infoSent {
		if !torrentInfoReady(t) {
			if !tr.failedSent && now.Sub(tr.addedAt) > e.metaTimeout {
				tr.failedSent = true
				return []domain.Event{{Type: domain.EventError, ID: id, Err: "metadata fetch timed out"}}
			}
			return nil
		}
		tr.infoSent = true
		return []domain.Event{{
			Type:     domain.EventMetadata,
			ID:       id,
			Name:     t.Name(),
			Transfer: domain.Transfer{TotalWanted: t.Length()},
		}}
	}

	length := t.Length()
	completed := t.BytesCompleted()

	if !tr.checkedSent {
		// First tick after metadata: whatever was already on disk has been
		// picked up by the client's piece verification.
		tr.checkedSent = true
		if length > 0 && completed >= length {
			tr.completeSent = true
			return []domain.Event{{Type: domain.EventCompleted, ID: id}}
		}
		t.DownloadAll()
		return []domain.Event{{Type: domain.EventChecked, ID: id}}
	}

	stats := t.Stats()
	download, upload := e.sampleSpeed(id, stats, now)
	evs := []domain.Event{{
		Type: domain.EventProgress,
		ID:   id,
		Transfer: domain.Transfer{
			TotalWanted:     length,
			TotalWantedDone: completed,
			DownloadRate:    download,
			UploadRate:      upload,
			Peers:           stats.ActivePeers,
			Seeds:           stats.ConnectedSeeders,
		},
	}}
	if !tr.completeSent && length > 0 && completed >= length {
		tr.completeSent = true
		evs = append(evs, domain.Event{Type: domain.EventCompleted, ID: id})
	}
	if tr.completeSent && !tr.seedingSent && t.Seeding() {
		tr.seedingSent = true
		evs = append(evs, domain.Event{Type: domain.EventSeeding, ID: id})
	}
	return evs
}
