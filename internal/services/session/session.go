// Package session implements the session core of the download engine: a
// registry of live torrent entries fed by an engine adapter's event stream,
// plus an ordered snapshot coordinator for consumers.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"torrentcore/internal/domain"
	"torrentcore/internal/domain/ports"
	"torrentcore/internal/errbuf"
)

// Session owns an engine connection and the collection of live torrent
// entries. It is an owned value, not a process-wide singleton: a process may
// run any number of independent sessions.
type Session struct {
	engine ports.Engine
	log    *slog.Logger

	mu      sync.RWMutex
	closed  bool
	entries map[domain.TorrentID]*entry
	order   []domain.TorrentID // insertion order; defines snapshot order

	viewMu    sync.Mutex
	held      []domain.TorrentStatus
	viewTaken bool

	pumpDone sync.WaitGroup
}

var _ ports.Registry = (*Session)(nil)

type Option func(*Session)

func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// New wraps an engine adapter in a session and starts consuming its events.
// The session takes ownership of the engine; Close closes it.
func New(engine ports.Engine, opts ...Option) *Session {
	s := &Session{
		engine:  engine,
		log:     slog.Default(),
		entries: make(map[domain.TorrentID]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pumpDone.Add(1)
	go s.pump()
	return s
}

// pump serializes engine events into entry updates. It exits when the engine
// closes its event channel on shutdown.
func (s *Session) pump() {
	defer s.pumpDone.Done()
	for ev := range s.engine.Events() {
		s.dispatch(ev)
	}
}

// dispatch applies one event to its entry. Events for unknown torrents, and
// any event arriving after Close, are dropped.
func (s *Session) dispatch(ev domain.Event) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return
	}
	e := s.entries[ev.ID]
	s.mu.RUnlock()
	if e == nil {
		return
	}
	if !e.apply(ev) {
		s.log.Debug("dropped stale engine event", "id", ev.ID, "event", ev.Type.String())
	}
	if ev.Type == domain.EventError {
		s.log.Warn("torrent failed", "id", ev.ID, "err", ev.Err)
	}
}

// Add validates magnetURI and savePath synchronously, registers the torrent
// in StateChecking with zero progress and schedules engine work. The
// identity is returned before the engine touches the network.
func (s *Session) Add(ctx context.Context, magnetURI, savePath string) (domain.TorrentID, error) {
	if err := s.closedErr(); err != nil {
		return "", err
	}
	src, err := parseMagnet(magnetURI)
	if err != nil {
		return "", err
	}
	return s.register(ctx, src, savePath)
}

// AddMetaInfo is Add for raw .torrent file contents.
func (s *Session) AddMetaInfo(ctx context.Context, metaInfo []byte, savePath string) (domain.TorrentID, error) {
	if err := s.closedErr(); err != nil {
		return "", err
	}
	src, err := parseMetaInfo(metaInfo)
	if err != nil {
		return "", err
	}
	return s.register(ctx, src, savePath)
}

// closedErr reports whether the session has been closed. All operations
// check it first: a closed session answers ErrSessionClosed regardless of
// any other problem with the call.
func (s *Session) closedErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	return nil
}

// AddTorrent is the buffer-reporting variant of Add. On failure the composed
// error text is copied into errBuf once, truncated to the buffer length with
// a trailing NUL.
func (s *Session) AddTorrent(magnetURI, savePath string, errBuf []byte) (domain.TorrentID, bool) {
	id, err := s.Add(context.Background(), magnetURI, savePath)
	if err != nil {
		errbuf.Write(errBuf, err.Error())
		return "", false
	}
	return id, true
}

func (s *Session) register(ctx context.Context, src domain.TorrentSource, savePath string) (domain.TorrentID, error) {
	if err := checkSavePath(savePath); err != nil {
		return "", err
	}
	src.SavePath = savePath

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", domain.ErrSessionClosed
	}
	if _, ok := s.entries[src.ID]; ok {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", domain.ErrAlreadyExists, src.ID)
	}
	s.entries[src.ID] = newEntry(src.ID, src.Name)
	s.order = append(s.order, src.ID)
	s.mu.Unlock()

	// Scheduling happens outside the registry lock; the engine contract
	// forbids network I/O before Add returns.
	if err := s.engine.Add(ctx, src); err != nil {
		s.forget(src.ID)
		return "", fmt.Errorf("engine add: %w", err)
	}
	s.log.Info("torrent added", "id", src.ID, "name", src.Name)
	return src.ID, nil
}

// checkSavePath validates the target directory synchronously, before the
// torrent is registered. It must already exist.
func checkSavePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", domain.ErrSavePath)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSavePath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrSavePath, path)
	}
	return nil
}

// forget rolls an entry back out of the registry.
func (s *Session) forget(id domain.TorrentID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return
	}
	delete(s.entries, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Remove drops the torrent from the registry and the engine. Payload data on
// disk is left in place.
func (s *Session) Remove(ctx context.Context, id domain.TorrentID) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if _, ok := s.entries[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	delete(s.entries, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if err := s.engine.Drop(ctx, id); err != nil {
		return fmt.Errorf("engine drop: %w", err)
	}
	s.log.Info("torrent removed", "id", id)
	return nil
}

func (s *Session) lookup(id domain.TorrentID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrSessionClosed
	}
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return e, nil
}

// Pause suspends transfer for the torrent. Rates drop to zero immediately;
// Resume re-enters the state the torrent left.
func (s *Session) Pause(ctx context.Context, id domain.TorrentID) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	if err := e.pause(); err != nil {
		return err
	}
	if err := s.engine.Pause(ctx, id); err != nil {
		return fmt.Errorf("engine pause: %w", err)
	}
	return nil
}

// Resume re-enables transfer for a paused torrent.
func (s *Session) Resume(ctx context.Context, id domain.TorrentID) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	if err := e.resume(); err != nil {
		return err
	}
	if err := s.engine.Resume(ctx, id); err != nil {
		return fmt.Errorf("engine resume: %w", err)
	}
	return nil
}

// Retry re-enters StateChecking from StateError and asks the engine to
// re-verify local data. It is the only way out of StateError.
func (s *Session) Retry(ctx context.Context, id domain.TorrentID) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	if err := e.retry(); err != nil {
		return err
	}
	if err := s.engine.Recheck(ctx, id); err != nil {
		return fmt.Errorf("engine recheck: %w", err)
	}
	return nil
}

// Status reads one live entry. The held snapshot is not touched.
func (s *Session) Status(id domain.TorrentID) (domain.TorrentStatus, error) {
	e, err := s.lookup(id)
	if err != nil {
		return domain.TorrentStatus{}, err
	}
	return e.status(), nil
}

// Count reports the number of live entries.
func (s *Session) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Close releases all entries and shuts the engine down. A second Close, like
// any other operation on a closed session, fails with ErrSessionClosed;
// engine events still in flight become no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	s.closed = true
	s.entries = nil
	s.order = nil
	s.mu.Unlock()

	err := s.engine.Close()
	s.pumpDone.Wait()

	s.viewMu.Lock()
	s.held = nil
	s.viewTaken = false
	s.viewMu.Unlock()

	if err != nil {
		return fmt.Errorf("engine close: %w", err)
	}
	s.log.Info("session closed")
	return nil
}
