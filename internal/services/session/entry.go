package session

import (
	"fmt"
	"sync"

	"torrentcore/internal/domain"
	"torrentcore/internal/errbuf"
)

// maxErrorLen bounds the error text retained per entry.
const maxErrorLen = 256

// entry is the live mutable record for one torrent. Every field access goes
// through mu, so readers can never observe torn combinations such as a
// has-error flag with a non-error state. Snapshots copy the fields and never
// alias them.
type entry struct {
	mu sync.Mutex

	id   domain.TorrentID
	name string

	state      domain.TorrentState
	pausedFrom domain.TorrentState // state Resume re-enters

	totalWanted     int64
	totalWantedDone int64
	downloadRate    int64
	uploadRate      int64
	peers           int
	seeds           int

	lastError string

	// allowRegress is set by retry: the re-verification that follows may
	// legitimately shrink the completed byte count once.
	allowRegress bool
}

func newEntry(id domain.TorrentID, name string) *entry {
	return &entry{id: id, name: name, state: domain.StateChecking}
}

// setState applies a transition if it is legal and keeps the derived fields
// in step: rates are zeroed outside of active transfer, stored error text is
// dropped when leaving StateError. Callers hold e.mu.
func (e *entry) setState(to domain.TorrentState) bool {
	if !domain.CanTransition(e.state, to) {
		return false
	}
	e.state = to
	switch to {
	case domain.StatePaused, domain.StateChecking, domain.StateError:
		e.downloadRate, e.uploadRate = 0, 0
	}
	if to != domain.StateError {
		e.lastError = ""
	}
	return true
}

// apply folds one engine event into the entry. It reports false when a
// transition-bearing event was stale for the current state and got dropped;
// the state machine is never forced.
func (e *entry) apply(ev domain.Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Type {
	case domain.EventMetadata:
		if ev.Name != "" {
			e.name = ev.Name
		}
		if ev.Transfer.TotalWanted > 0 {
			e.totalWanted = ev.Transfer.TotalWanted
		}
		return true

	case domain.EventChecked:
		return e.setState(domain.StateDownloading)

	case domain.EventProgress:
		e.applyTransfer(ev.Transfer)
		return true

	case domain.EventCompleted:
		if e.totalWanted > 0 {
			e.totalWantedDone = e.totalWanted
		}
		switch e.state {
		case domain.StateChecking:
			// Verification found the payload already complete.
			return e.setState(domain.StateSeeding)
		case domain.StateDownloading:
			return e.setState(domain.StateFinished)
		case domain.StateFinished, domain.StateSeeding:
			return true
		}
		return false

	case domain.EventSeeding:
		if e.state == domain.StateSeeding {
			return true
		}
		return e.setState(domain.StateSeeding)

	case domain.EventError:
		if e.state != domain.StateError && !e.setState(domain.StateError) {
			return false
		}
		msg := errbuf.Truncate(ev.Err, maxErrorLen)
		if msg == "" {
			msg = errbuf.Fallback
		}
		e.lastError = msg
		return true
	}
	return false
}

// applyTransfer folds one transfer sample into the entry. Byte counters are
// monotonic: a smaller done count is ignored unless a retry explicitly
// allowed one regress. Rates are clamped non-negative and forced to zero
// outside active transfer.
func (e *entry) applyTransfer(t domain.Transfer) {
	if t.TotalWanted > 0 {
		e.totalWanted = t.TotalWanted
	}
	done := t.TotalWantedDone
	if done < 0 {
		done = 0
	}
	if e.totalWanted > 0 && done > e.totalWanted {
		done = e.totalWanted
	}
	if done > e.totalWantedDone || e.allowRegress {
		e.totalWantedDone = done
		e.allowRegress = false
	}
	if e.transferActive() {
		e.downloadRate = clampRate(t.DownloadRate)
		e.uploadRate = clampRate(t.UploadRate)
	} else {
		e.downloadRate, e.uploadRate = 0, 0
	}
	if t.Peers >= 0 {
		e.peers = t.Peers
	}
	if t.Seeds >= 0 {
		e.seeds = t.Seeds
	}
}

func (e *entry) transferActive() bool {
	switch e.state {
	case domain.StateDownloading, domain.StateFinished, domain.StateSeeding:
		return true
	default:
		return false
	}
}

func clampRate(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// pause suspends the entry, remembering the state it left so resume can
// re-enter it. Pausing an already paused entry is a no-op.
func (e *entry) pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == domain.StatePaused {
		return nil
	}
	from := e.state
	if !e.setState(domain.StatePaused) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, domain.StatePaused)
	}
	e.pausedFrom = from
	return nil
}

// resume re-enters the state pause left. Resuming a running entry is a no-op.
func (e *entry) resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != domain.StatePaused {
		return nil
	}
	target := e.pausedFrom
	if target == "" {
		target = domain.StateDownloading
	}
	e.setState(target)
	return nil
}

// retry is the only exit from StateError: back into StateChecking, with one
// progress regress allowed for the re-verification that follows.
func (e *entry) retry() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != domain.StateError {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, e.state, domain.StateChecking)
	}
	e.setState(domain.StateChecking)
	e.allowRegress = true
	return nil
}

// status returns a value copy under the entry lock. The flags are computed
// from the state at copy time, so they are always consistent with it.
func (e *entry) status() domain.TorrentStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	var progress float64
	if e.totalWanted > 0 {
		progress = float64(e.totalWantedDone) / float64(e.totalWanted)
		if progress > 1 {
			progress = 1
		}
	}
	st := domain.TorrentStatus{
		ID:              e.id,
		Name:            e.name,
		State:           e.state,
		Progress:        progress,
		TotalWanted:     e.totalWanted,
		TotalWantedDone: e.totalWantedDone,
		DownloadRate:    e.downloadRate,
		UploadRate:      e.uploadRate,
		Peers:           e.peers,
		Seeds:           e.seeds,
		IsSeeding:       e.state == domain.StateSeeding,
		IsPaused:        e.state == domain.StatePaused,
		HasError:        e.state == domain.StateError,
	}
	if st.HasError {
		st.Error = e.lastError
	}
	return st
}
