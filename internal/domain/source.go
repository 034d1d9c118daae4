package domain

// TorrentSource describes one torrent handed to an engine adapter. Exactly
// one of Magnet or MetaInfo is set. ID and Name are derived synchronously
// from the source before any engine work is scheduled; Name may be empty for
// magnets without a display-name hint.
type TorrentSource struct {
	ID       TorrentID `json:"id"`
	Magnet   string    `json:"magnet,omitempty"`
	MetaInfo []byte    `json:"-"`
	SavePath string    `json:"savePath"`
	Name     string    `json:"name,omitempty"`
}
