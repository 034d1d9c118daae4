package session

import (
	"fmt"

	"torrentcore/internal/domain"
)

// TakeSnapshot copies up to maxItems entry statuses in registry insertion
// order, truncating from the tail, and replaces the snapshot NameAt answers
// from. maxItems zero holds an empty view; negative means all entries. Work
// under the registry lock is bounded by the number of live entries.
func (s *Session) TakeSnapshot(maxItems int) ([]domain.TorrentStatus, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, domain.ErrSessionClosed
	}
	n := len(s.order)
	if maxItems >= 0 && maxItems < n {
		n = maxItems
	}
	out := make([]domain.TorrentStatus, 0, n)
	for _, id := range s.order[:n] {
		out = append(out, s.entries[id].status())
	}
	s.mu.RUnlock()

	// The caller gets its own copy; the held view must not alias it.
	held := make([]domain.TorrentStatus, len(out))
	copy(held, out)

	s.viewMu.Lock()
	s.held = held
	s.viewTaken = true
	s.viewMu.Unlock()
	return out, nil
}

// NameAt answers from the most recently taken snapshot only. Live entries
// are never consulted, so an index stays meaningful exactly as long as the
// snapshot it came from.
func (s *Session) NameAt(index int) (string, error) {
	if err := s.closedErr(); err != nil {
		return "", err
	}

	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	if !s.viewTaken {
		return "", domain.ErrNoSnapshot
	}
	if index < 0 || index >= len(s.held) {
		return "", fmt.Errorf("%w: index %d, snapshot length %d", domain.ErrIndexOutOfRange, index, len(s.held))
	}
	return s.held[index].Name, nil
}

// Statuses returns a copy of all live entries in insertion order without
// replacing the held snapshot. Broadcast and metrics loops use it so they
// cannot disturb a consumer's TakeSnapshot/NameAt sequence.
func (s *Session) Statuses() []domain.TorrentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	out := make([]domain.TorrentStatus, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].status())
	}
	return out
}
