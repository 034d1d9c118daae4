package domain

// EventType classifies engine adapter events. Adapters observe the backend
// and report facts; the registry's entries decide which state transition, if
// any, each fact triggers.
type EventType int

const (
	// EventMetadata reports that the display name and sizes resolved.
	EventMetadata EventType = iota
	// EventChecked reports that local data verification finished and the
	// torrent is not yet complete.
	EventChecked
	// EventProgress carries a periodic transfer sample.
	EventProgress
	// EventCompleted reports that all wanted bytes are local.
	EventCompleted
	// EventSeeding reports that the backend entered upload-only operation.
	EventSeeding
	// EventError reports a per-torrent failure.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventMetadata:
		return "metadata"
	case EventChecked:
		return "checked"
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventSeeding:
		return "seeding"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Transfer is one sample of a torrent's transfer counters.
type Transfer struct {
	TotalWanted     int64
	TotalWantedDone int64
	DownloadRate    int64
	UploadRate      int64
	Peers           int
	Seeds           int
}

// Event is one engine adapter observation about a single torrent. Adapters
// must deliver events for the same torrent in the order they were observed.
type Event struct {
	Type     EventType
	ID       TorrentID
	Name     string
	Transfer Transfer
	Err      string
}
