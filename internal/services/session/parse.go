package session

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/zeebo/bencode"

	"torrentcore/internal/domain"
)

// parseMagnet derives the torrent identity from a magnet link without any
// network I/O. The dn parameter seeds the display name when present.
func parseMagnet(uri string) (domain.TorrentSource, error) {
	m, err := metainfo.ParseMagnetUri(uri)
	if err != nil {
		return domain.TorrentSource{}, fmt.Errorf("%w: %v", domain.ErrInvalidMagnet, err)
	}
	return domain.TorrentSource{
		ID:     domain.TorrentID(m.InfoHash.HexString()),
		Magnet: uri,
		Name:   m.DisplayName,
	}, nil
}

// metaInfoFile is the outer shape of a .torrent file. Only the raw info dict
// matters here: the infohash is the SHA-1 of its bencoding.
type metaInfoFile struct {
	Info bencode.RawMessage `bencode:"info"`
}

type metaInfoDict struct {
	Name string `bencode:"name"`
}

// parseMetaInfo derives the torrent identity and display name from raw
// .torrent file contents.
func parseMetaInfo(raw []byte) (domain.TorrentSource, error) {
	var mi metaInfoFile
	if err := bencode.DecodeBytes(raw, &mi); err != nil {
		return domain.TorrentSource{}, fmt.Errorf("%w: %v", domain.ErrInvalidMetaInfo, err)
	}
	if len(mi.Info) == 0 {
		return domain.TorrentSource{}, fmt.Errorf("%w: missing info dict", domain.ErrInvalidMetaInfo)
	}
	var info metaInfoDict
	if err := bencode.DecodeBytes(mi.Info, &info); err != nil {
		return domain.TorrentSource{}, fmt.Errorf("%w: %v", domain.ErrInvalidMetaInfo, err)
	}
	sum := sha1.Sum(mi.Info)
	return domain.TorrentSource{
		ID:       domain.TorrentID(hex.EncodeToString(sum[:])),
		MetaInfo: raw,
		Name:     info.Name,
	}, nil
}
