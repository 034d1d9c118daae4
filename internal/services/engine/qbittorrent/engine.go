// Package qbittorrent adapts a remote qBittorrent instance to the engine
// port. Torrents are pushed over the WebUI API; a poll loop sweeps their
// remote states, diffs them against the last sweep and publishes events.
package qbittorrent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"

	"torrentcore/internal/domain"
	"torrentcore/internal/domain/ports"
)

const (
	defaultPollInterval = time.Second
	loginTimeout        = 15 * time.Second
	ingestTimeout       = 30 * time.Second
	sweepTimeout        = 10 * time.Second

	eventBuffer = 64
)

// client is the slice of the qBittorrent WebUI API the engine uses.
type client interface {
	LoginCtx(ctx context.Context) error
	AddTorrentFromUrlCtx(ctx context.Context, url string, options map[string]string) error
	AddTorrentFromMemoryCtx(ctx context.Context, buf []byte, options map[string]string) error
	GetTorrentsCtx(ctx context.Context, o qbt.TorrentFilterOptions) ([]qbt.Torrent, error)
	PauseCtx(ctx context.Context, hashes []string) error
	ResumeCtx(ctx context.Context, hashes []string) error
	RecheckCtx(ctx context.Context, hashes []string) error
	DeleteTorrentsCtx(ctx context.Context, hashes []string, deleteFiles bool) error
}

var _ client = (*qbt.Client)(nil)

type Config struct {
	Host     string
	Username string
	Password string

	PollInterval time.Duration
	Logger       *slog.Logger
}

type Engine struct {
	qc  client
	log *slog.Logger

	interval time.Duration

	mu     sync.Mutex
	tracks map[domain.TorrentID]*track

	events chan domain.Event
	done   chan struct{}
	wg     sync.WaitGroup
}

var _ ports.Engine = (*Engine)(nil)

// track carries the per-torrent sweep state. Lifecycle events are edge
// triggered off the remote state, so each sweep publishes only what changed.
type track struct {
	infoSent     bool
	checkedSent  bool
	completeSent bool
	seedingSent  bool
	failedSent   bool
}

// New logs into the WebUI and starts the poll loop. A failed login fails
// construction: a session without a reachable backend is useless.
func New(cfg Config) (*Engine, error) {
	qc := qbt.NewClient(qbt.Config{
		Host:     cfg.Host,
		Username: cfg.Username,
		Password: cfg.Password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()
	if err := qc.LoginCtx(ctx); err != nil {
		return nil, fmt.Errorf("qbittorrent login: %w", err)
	}
	return newWithClient(qc, cfg), nil
}

func newWithClient(qc client, cfg Config) *Engine {
	e := &Engine{
		qc:       qc,
		log:      cfg.Logger,
		interval: cfg.PollInterval,
		tracks:   make(map[domain.TorrentID]*track),
		events:   make(chan domain.Event, eventBuffer),
		done:     make(chan struct{}),
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.interval <= 0 {
		e.interval = defaultPollInterval
	}
	e.wg.Add(1)
	go e.loop()
	return e
}

// Add starts tracking the torrent and hands it to the remote instance in the
// background. The WebUI round trip must not hold up the caller; push
// failures surface later as error events.
func (e *Engine) Add(ctx context.Context, src domain.TorrentSource) error {
	e.mu.Lock()
	if _, ok := e.tracks[src.ID]; !ok {
		e.tracks[src.ID] = &track{}
	}
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.ingest(src)
	}()
	return nil
}

// ingest pushes one torrent to the remote instance.
func (e *Engine) ingest(src domain.TorrentSource) {
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	opts := make(map[string]string)
	if src.SavePath != "" {
		opts["savepath"] = src.SavePath
	}

	var err error
	if src.Magnet != "" {
		err = e.qc.AddTorrentFromUrlCtx(ctx, src.Magnet, opts)
	} else {
		err = e.qc.AddTorrentFromMemoryCtx(ctx, src.MetaInfo, opts)
	}
	if err != nil {
		e.log.Warn("torrent push failed", "id", src.ID, "err", err)
		e.emit(domain.Event{Type: domain.EventError, ID: src.ID, Err: "add to remote client: " + err.Error()})
	}
}

func (e *Engine) Pause(ctx context.Context, id domain.TorrentID) error {
	if err := e.requireTrack(id); err != nil {
		return err
	}
	return e.qc.PauseCtx(ctx, []string{string(id)})
}

func (e *Engine) Resume(ctx context.Context, id domain.TorrentID) error {
	if err := e.requireTrack(id); err != nil {
		return err
	}
	return e.qc.ResumeCtx(ctx, []string{string(id)})
}

// Recheck rearms the lifecycle flags and asks the remote instance to
// re-verify, so the next sweeps replay the verification outcome.
func (e *Engine) Recheck(ctx context.Context, id domain.TorrentID) error {
	e.mu.Lock()
	tr, ok := e.tracks[id]
	if ok {
		tr.checkedSent = false
		tr.completeSent = false
		tr.seedingSent = false
		tr.failedSent = false
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return e.qc.RecheckCtx(ctx, []string{string(id)})
}

// Drop removes the torrent from the remote instance, keeping its payload
// files in place.
func (e *Engine) Drop(ctx context.Context, id domain.TorrentID) error {
	e.mu.Lock()
	_, ok := e.tracks[id]
	delete(e.tracks, id)
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return e.qc.DeleteTorrentsCtx(ctx, []string{string(id)}, false)
}

func (e *Engine) Events() <-chan domain.Event { return e.events }

// Close stops the poll loop and closes the event channel. The WebUI session
// needs no explicit teardown.
func (e *Engine) Close() error {
	close(e.done)
	e.wg.Wait()
	close(e.events)
	return nil
}

func (e *Engine) requireTrack(id domain.TorrentID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.tracks[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}

// emit publishes an event unless shutdown has begun.
func (e *Engine) emit(ev domain.Event) {
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

func (e *Engine) loop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			e.sweep(ctx)
			cancel()
		}
	}
}

// sweep fetches the remote state of every tracked torrent and publishes
// what changed.
func (e *Engine) sweep(ctx context.Context) {
	e.mu.Lock()
	hashes := make([]string, 0, len(e.tracks))
	for id := range e.tracks {
		hashes = append(hashes, string(id))
	}
	e.mu.Unlock()
	if len(hashes) == 0 {
		return
	}

	torrents, err := e.qc.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{Hashes: hashes})
	if err != nil {
		e.log.Warn("torrent list failed", "err", err)
		return
	}
	for _, t := range torrents {
		for _, ev := range e.observe(t) {
			e.emit(ev)
		}
	}
}

// observe diffs one remote torrent against its track and computes the
// events it owes for this sweep.
func (e *Engine) observe(t qbt.Torrent) []domain.Event {
	id := domain.TorrentID(strings.ToLower(t.Hash))

	e.mu.Lock()
	defer e.mu.Unlock()

	tr, ok := e.tracks[id]
	if !ok {
		return nil // dropped between the listing and now
	}

	ph := classify(t.State)
	var evs []domain.Event

	if !tr.infoSent {
		if ph == phaseFetching {
			return nil
		}
		tr.infoSent = true
		evs = append(evs, domain.Event{
			Type:     domain.EventMetadata,
			ID:       id,
			Name:     t.Name,
			Transfer: domain.Transfer{TotalWanted: t.Size},
		})
	}

	if !tr.checkedSent && ph != phaseChecking && ph != phaseFailed {
		tr.checkedSent = true
		if ph == phaseComplete {
			// Verification found the payload already complete.
			tr.completeSent = true
			evs = append(evs, domain.Event{Type: domain.EventCompleted, ID: id})
		} else {
			evs = append(evs, domain.Event{Type: domain.EventChecked, ID: id})
		}
	}

	// Transfer samples only make sense once verification has resolved.
	if tr.checkedSent {
		evs = append(evs, domain.Event{
			Type: domain.EventProgress,
			ID:   id,
			Transfer: domain.Transfer{
				TotalWanted:     t.Size,
				TotalWantedDone: t.Completed,
				DownloadRate:    t.DlSpeed,
				UploadRate:      t.UpSpeed,
				Peers:           int(t.NumLeechs + t.NumSeeds),
				Seeds:           int(t.NumSeeds),
			},
		})
		if !tr.completeSent && (ph == phaseComplete || (t.Size > 0 && t.Completed >= t.Size)) {
			tr.completeSent = true
			evs = append(evs, domain.Event{Type: domain.EventCompleted, ID: id})
		}
		if tr.completeSent && !tr.seedingSent && ph == phaseComplete {
			tr.seedingSent = true
			evs = append(evs, domain.Event{Type: domain.EventSeeding, ID: id})
		}
	}

	if ph == phaseFailed {
		if !tr.failedSent {
			tr.failedSent = true
			evs = append(evs, domain.Event{
				Type: domain.EventError,
				ID:   id,
				Err:  fmt.Sprintf("remote client reported state %s", t.State),
			})
		}
	} else {
		tr.failedSent = false
	}
	return evs
}
