package qbittorrent

import qbt "github.com/autobrr/go-qbittorrent"

// phase buckets the remote client's state strings into the lifecycle steps
// the session cares about.
type phase int

const (
	phaseFetching phase = iota // metadata not resolved yet
	phaseChecking
	phaseTransfer
	phaseComplete
	phasePaused
	phaseFailed
)

func classify(s qbt.TorrentState) phase {
	switch s {
	case qbt.TorrentStateMetaDl:
		return phaseFetching
	case qbt.TorrentStateAllocating,
		qbt.TorrentStateCheckingDl,
		qbt.TorrentStateCheckingUp,
		qbt.TorrentStateCheckingResumeData:
		return phaseChecking
	case qbt.TorrentStateDownloading,
		qbt.TorrentStateStalledDl,
		qbt.TorrentStateQueuedDl,
		qbt.TorrentStateForcedDl:
		return phaseTransfer
	case qbt.TorrentStateUploading,
		qbt.TorrentStateStalledUp,
		qbt.TorrentStateQueuedUp,
		qbt.TorrentStateForcedUp,
		qbt.TorrentStateMoving:
		return phaseComplete
	case qbt.TorrentStatePausedDl, qbt.TorrentStatePausedUp:
		return phasePaused
	case qbt.TorrentStateError, qbt.TorrentStateMissingFiles:
		return phaseFailed
	default:
		return phaseFetching
	}
}
