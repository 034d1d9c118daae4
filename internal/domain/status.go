package domain

// TorrentID identifies a torrent across the registry, the engine, and
// persistence. It is the hex-encoded infohash, derived synchronously when the
// torrent is added and stable for the lifetime of the entry.
type TorrentID string

func (id TorrentID) String() string { return string(id) }

// TorrentStatus is a point-in-time value copy of one torrent entry. Snapshots
// hand these out; mutating an entry afterwards never changes a status already
// returned.
//
// IsSeeding, IsPaused and HasError are projections of State and can never
// disagree with it. DownloadRate and UploadRate are zero while the entry is
// paused or checking. TotalWantedDone never exceeds TotalWanted.
type TorrentStatus struct {
	ID              TorrentID    `json:"id"`
	Name            string       `json:"name"`
	State           TorrentState `json:"state"`
	Progress        float64      `json:"progress"`
	TotalWanted     int64        `json:"totalWanted"`
	TotalWantedDone int64        `json:"totalWantedDone"`
	DownloadRate    int64        `json:"downloadRate"`
	UploadRate      int64        `json:"uploadRate"`
	Peers           int          `json:"peers"`
	Seeds           int          `json:"seeds"`
	IsSeeding       bool         `json:"isSeeding"`
	IsPaused        bool         `json:"isPaused"`
	HasError        bool         `json:"hasError"`
	Error           string       `json:"error,omitempty"`
}
