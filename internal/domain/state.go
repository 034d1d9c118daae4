package domain

import "errors"

// TorrentState is the lifecycle state of a torrent entry. Every entry starts
// in StateChecking and moves only along the edges listed in validTransitions.
type TorrentState string

const (
	StateChecking    TorrentState = "checking"    // Verifying local data, metadata pending.
	StateDownloading TorrentState = "downloading" // Fetching wanted bytes.
	StateFinished    TorrentState = "finished"    // All wanted bytes present, not yet uploading.
	StateSeeding     TorrentState = "seeding"     // Upload-only operation.
	StatePaused      TorrentState = "paused"      // Transfer suspended by the consumer.
	StateError       TorrentState = "error"       // Failed; terminal until an explicit retry.
)

var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines the adjacency list of allowed state transitions.
// Paused re-enters the state it left, so it lists both resume targets.
// Error only exits through an explicit retry back into Checking.
var validTransitions = map[TorrentState][]TorrentState{
	StateChecking:    {StateDownloading, StateSeeding, StateError},
	StateDownloading: {StateFinished, StatePaused, StateError},
	StateFinished:    {StateSeeding},
	StateSeeding:     {StatePaused, StateError},
	StatePaused:      {StateDownloading, StateSeeding},
	StateError:       {StateChecking},
}

// CanTransition reports whether a transition from one state to another is valid.
func CanTransition(from, to TorrentState) bool {
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known lifecycle states.
func (s TorrentState) Valid() bool {
	switch s {
	case StateChecking, StateDownloading, StateFinished, StateSeeding, StatePaused, StateError:
		return true
	default:
		return false
	}
}
