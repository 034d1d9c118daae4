// Package anacrolix adapts the embedded anacrolix/torrent client to the
// engine port. Torrents run in-process; a poll loop samples every tracked
// torrent and publishes lifecycle and progress events.
package anacrolix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/anacrolix/chansync/events"
	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/anacrolix/torrent/storage"

	"torrentcore/internal/domain"
	"torrentcore/internal/domain/ports"
)

// defaultMaxConns is the value restored when resuming a hard-paused torrent.
const defaultMaxConns = 35

const (
	// addTimeout caps the time we wait for the client to accept a torrent
	// spec. AddTorrentSpec can block on an internal client mutex while the
	// client is busy resolving metadata for another torrent.
	addTimeout = 10 * time.Second

	defaultPollInterval = 500 * time.Millisecond

	// defaultMetadataTimeout bounds how long a magnet may sit without
	// resolved metadata before the torrent is failed. Zero-peer magnets
	// would otherwise stay in verification forever.
	defaultMetadataTimeout = 10 * time.Minute
)

type Config struct {
	// ListenPortStart and ListenPortEnd bound the candidate listen ports,
	// inclusive. The first port that binds wins. Both zero lets the OS
	// pick a free port.
	ListenPortStart int
	ListenPortEnd   int

	DataDir         string
	PollInterval    time.Duration
	MetadataTimeout time.Duration
	Logger          *slog.Logger
}

type Engine struct {
	client *torrent.Client
	log    *slog.Logger

	interval    time.Duration
	metaTimeout time.Duration

	mu     sync.Mutex
	tracks map[domain.TorrentID]*track

	speedMu sync.Mutex
	speeds  map[domain.TorrentID]speedSample

	events chan domain.Event
	done   chan struct{}
	wg     sync.WaitGroup
}

var _ ports.Engine = (*Engine)(nil)

// torrentHandle is the slice of *torrent.Torrent the engine drives. The
// poll loop is written against it so it can be exercised with a fake.
type torrentHandle interface {
	GotInfo() events.Done
	Name() string
	Length() int64
	BytesCompleted() int64
	Stats() torrent.TorrentStats
	Seeding() bool
	DownloadAll()
	VerifyData() error
	Drop()
	AllowDataDownload()
	AllowDataUpload()
	DisallowDataDownload()
	DisallowDataUpload()
	SetMaxEstablishedConns(int) int
}

var _ torrentHandle = (*torrent.Torrent)(nil)

// New binds a listen port from the configured range and starts the poll
// loop. Candidate ports are tried in order; only when every bind fails is
// the construction an error.
func New(cfg Config) (*Engine, error) {
	if err := validateListenRange(cfg.ListenPortStart, cfg.ListenPortEnd); err != nil {
		return nil, err
	}

	var client *torrent.Client
	var lastErr error
	for _, port := range listenPorts(cfg.ListenPortStart, cfg.ListenPortEnd) {
		cc := torrent.NewDefaultClientConfig()
		cc.ListenPort = port
		cc.Seed = true
		if cfg.DataDir != "" {
			cc.DataDir = cfg.DataDir
		}
		client, lastErr = torrent.NewClient(cc)
		if lastErr == nil {
			break
		}
		client = nil
	}
	if client == nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNoPortAvailable, lastErr)
	}
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an already-built client and starts the poll loop. The
// engine takes ownership of the client; Close closes it.
func NewWithClient(client *torrent.Client, cfg Config) *Engine {
	e := &Engine{
		client:      client,
		log:         cfg.Logger,
		interval:    cfg.PollInterval,
		metaTimeout: cfg.MetadataTimeout,
		tracks:      make(map[domain.TorrentID]*track),
		speeds:      make(map[domain.TorrentID]speedSample),
		events:      make(chan domain.Event, eventBuffer),
		done:        make(chan struct{}),
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.interval <= 0 {
		e.interval = defaultPollInterval
	}
	if e.metaTimeout <= 0 {
		e.metaTimeout = defaultMetadataTimeout
	}
	e.wg.Add(1)
	go e.loop()
	return e
}

func validateListenRange(start, end int) error {
	if start == 0 && end == 0 {
		return nil
	}
	if start < 1 || end > 65535 || start > end {
		return fmt.Errorf("%w: %d-%d", domain.ErrInvalidListenRange, start, end)
	}
	return nil
}

func listenPorts(start, end int) []int {
	if start == 0 && end == 0 {
		return []int{0}
	}
	candidates := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		candidates = append(candidates, p)
	}
	return candidates
}

// buildSpec maps a torrent source onto a client spec with storage rooted at
// the source's save path.
func buildSpec(src domain.TorrentSource) (*torrent.TorrentSpec, error) {
	var (
		spec *torrent.TorrentSpec
		err  error
	)
	if src.Magnet != "" {
		spec, err = torrent.TorrentSpecFromMagnetUri(src.Magnet)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMagnet, err)
		}
	} else {
		var mi *metainfo.MetaInfo
		mi, err = metainfo.Load(bytes.NewReader(src.MetaInfo))
		if err == nil {
			spec, err = torrent.TorrentSpecFromMetaInfoErr(mi)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMetaInfo, err)
		}
	}
	if src.SavePath != "" {
		spec.Storage = storage.NewFile(src.SavePath)
	}
	return spec, nil
}

// Add registers the torrent with the client. The call is bounded: if the
// client cannot accept the spec within addTimeout, the orphaned torrent is
// dropped as soon as the stalled call finishes.
func (e *Engine) Add(ctx context.Context, src domain.TorrentSource) error {
	spec, err := buildSpec(src)
	if err != nil {
		return err
	}

	type addResult struct {
		t   *torrent.Torrent
		err error
	}
	ch := make(chan addResult, 1)
	go func() {
		t, _, err := e.client.AddTorrentSpec(spec)
		ch <- addResult{t, err}
	}()

	var t *torrent.Torrent
	select {
	case res := <-ch:
		if res.err != nil {
			return res.err
		}
		t = res.t
	case <-time.After(addTimeout):
		go func() {
			if res := <-ch; res.t != nil {
				res.t.Drop()
			}
		}()
		return errors.New("torrent client busy, try again later")
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.t != nil {
				res.t.Drop()
			}
		}()
		return ctx.Err()
	}

	id := domain.TorrentID(t.InfoHash().HexString())
	e.mu.Lock()
	if _, ok := e.tracks[id]; !ok {
		e.tracks[id] = newTrack(t)
	}
	e.mu.Unlock()
	e.log.Debug("torrent registered", "id", id)
	return nil
}

// Pause disconnects all peers and forbids data transfer in both directions.
func (e *Engine) Pause(ctx context.Context, id domain.TorrentID) error {
	t, err := e.torrentFor(id)
	if err != nil {
		return err
	}
	t.DisallowDataDownload()
	t.DisallowDataUpload()
	t.SetMaxEstablishedConns(0)
	return nil
}

// Resume re-enables data transfer and peer connections.
func (e *Engine) Resume(ctx context.Context, id domain.TorrentID) error {
	t, err := e.torrentFor(id)
	if err != nil {
		return err
	}
	t.SetMaxEstablishedConns(defaultMaxConns)
	t.AllowDataUpload()
	t.AllowDataDownload()
	if torrentInfoReady(t) {
		t.DownloadAll()
	}
	return nil
}

// Recheck rearms the lifecycle flags and re-verifies local data, so the
// poll loop replays the verification outcome for this torrent.
func (e *Engine) Recheck(ctx context.Context, id domain.TorrentID) error {
	e.mu.Lock()
	tr, ok := e.tracks[id]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	tr.resetForRecheck(time.Now())
	t := tr.t
	e.mu.Unlock()
	e.forgetSpeed(id)

	if !torrentInfoReady(t) {
		// No data to verify yet; the poll loop keeps waiting for metadata.
		return nil
	}
	go func() {
		if err := t.VerifyData(); err != nil {
			e.emit(domain.Event{Type: domain.EventError, ID: id, Err: err.Error()})
		}
	}()
	return nil
}

// Drop stops tracking the torrent and releases its client resources. Payload
// data on disk stays in place.
func (e *Engine) Drop(ctx context.Context, id domain.TorrentID) error {
	e.mu.Lock()
	tr, ok := e.tracks[id]
	if ok {
		delete(e.tracks, id)
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	e.forgetSpeed(id)
	tr.t.Drop()
	return nil
}

func (e *Engine) Events() <-chan domain.Event { return e.events }

// Close stops the poll loop, shuts the client down and closes the event
// channel so consumers can drain and exit.
func (e *Engine) Close() error {
	close(e.done)
	e.wg.Wait()

	var err error
	if e.client != nil {
		if errs := e.client.Close(); len(errs) > 0 {
			err = errors.Join(errs...)
		}
	}
	close(e.events)
	return err
}

func (e *Engine) torrentFor(id domain.TorrentID) (torrentHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tr, ok := e.tracks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return tr.t, nil
}

// emit publishes an event unless shutdown has begun. The channel is
// buffered; a slow consumer delays the poll loop rather than losing events.
func (e *Engine) emit(ev domain.Event) {
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

func torrentInfoReady(t torrentHandle) bool {
	if t == nil {
		return false
	}
	select {
	case <-t.GotInfo():
		return true
	default:
		return false
	}
}
